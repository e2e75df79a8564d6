package port

import (
	"context"
	"math/big"

	"mybucks/internal/domain/entity"
)

// Account is the capability contract shared by the EVM and Tron variants: one
// derived wallet identity on one chain, owning its private key and provider
// connections for the lifetime of a session.
type Account interface {
	Network() entity.NetworkKind
	ChainID() uint64
	Address() string
	Activated() bool

	// IsAddress reports whether value is a well-formed address for this chain.
	IsAddress(value string) bool

	// Explorer URL builders. Pure string formatting, no I/O.
	LinkOfAddress(address string) string
	LinkOfContract(address string) string
	LinkOfTransaction(txHash string) string

	// GetNetworkStatus refreshes the cached status snapshot. Safe to call on an
	// interval; a returned error means "disconnected", never a fatal condition.
	GetNetworkStatus(ctx context.Context) error
	Status() entity.NetworkStatus

	// QueryBalances returns the account's holdings with the native asset at
	// index 0 and no zero-balance non-native entries.
	QueryBalances(ctx context.Context) ([]entity.TokenBalance, error)

	// QueryTokenHistory returns recent transfers of the given token. An empty
	// tokenAddress selects native-asset history.
	QueryTokenHistory(ctx context.Context, tokenAddress string, decimals uint8, limit int) ([]entity.TransferRecord, error)

	// PopulateTransfer builds an unsigned transfer. Recipient and amount are
	// validated before any network call.
	PopulateTransfer(ctx context.Context, tokenAddress, to string, value *big.Int) (*entity.UnsignedTransfer, error)

	// EstimateFee predicts the cost of executing tx. Failures propagate so the
	// caller can block submission.
	EstimateFee(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.FeeEstimate, error)

	// Execute signs and broadcasts tx with the in-memory private key.
	Execute(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.BroadcastResult, error)

	// Close releases provider connections. The account is unusable afterwards.
	Close()
}
