// Package keyring turns memorized credentials into key material: a salted
// memory-hard hash, an secp256k1 private key derived from it, and a
// URL-embeddable wallet link carrying the credentials between devices.
// Nothing in this package touches persistent storage.
package keyring

import (
	"errors"
	"unicode"

	"mybucks/internal/config"
)

// Scheme v1 derivation parameters.
//
// These values are a permanent compatibility contract: every wallet address in
// existence is a pure function of them. Changing any of them silently would
// move every user's funds out of reach. If a new scheme is ever needed it must
// be introduced as an explicitly selectable v2, never as an edit here.
//
// N=2^15 with r=8 costs ~32MB and a few seconds of CPU, which keeps
// brute-force expensive while still working inside browser-grade memory
// limits. p=5 widens the cost for attackers with parallel hardware.
const (
	ScryptN       = 1 << 15
	ScryptR       = 8
	ScryptP       = 5
	HashLen       = 64
	saltSuffixLen = 4
)

// GenerateSalt builds the scheme-v1 salt: the last four characters of the
// password followed by the full passcode. Part of the derivation contract.
func GenerateSalt(password, passcode string) string {
	if len(password) < saltSuffixLen {
		return password + passcode
	}
	return password[len(password)-saltSuffixLen:] + passcode
}

// Credential validation errors. These are safe to show to users.
var (
	ErrPasswordLength     = errors.New("password must be 12 to 128 characters")
	ErrPasswordComplexity = errors.New("password must contain upper and lower case letters, a digit and a symbol")
	ErrPasscodeLength     = errors.New("passcode must be 6 to 16 characters")
)

// ValidateCredentials enforces the credential policy before any derivation
// work is spent.
func ValidateCredentials(password, passcode string) error {
	if len(password) < config.PasswordMinLength || len(password) > config.PasswordMaxLength {
		return ErrPasswordLength
	}
	if len(passcode) < config.PasscodeMinLength || len(passcode) > config.PasscodeMaxLength {
		return ErrPasscodeLength
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return ErrPasswordComplexity
	}
	return nil
}
