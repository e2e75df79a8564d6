package entity

import "errors"

// Sentinel errors surfaced across the account and session boundaries. The REST
// layer maps these to validation responses; everything else becomes a state
// flag rather than a propagated failure.
var (
	ErrInvalidAddress      = errors.New("invalid recipient address")
	ErrInvalidAmount       = errors.New("invalid transfer amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotActivated        = errors.New("account is not activated on-chain")
	ErrLinkMalformed       = errors.New("malformed wallet link")
	ErrSetupFailed         = errors.New("account setup failed")
	ErrEstimateUnavailable = errors.New("fee estimate unavailable")
	ErrNoSession           = errors.New("no active session")
)
