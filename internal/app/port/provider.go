package port

import (
	"context"

	"mybucks/internal/domain/entity"
)

// BalanceProvider fetches the full token holdings of an address from an
// indexing REST service. Chain is the provider-facing chain identifier
// (hex chain id for EVM networks, "tron" for Tron).
type BalanceProvider interface {
	GetTokenBalances(ctx context.Context, chain, address string) ([]entity.TokenBalance, error)
}

// HistoryProvider fetches recent transfers of one token for an address.
// An empty tokenAddress selects native-asset transfers; decimals scale the
// provider's raw smallest-unit values into display values.
type HistoryProvider interface {
	GetTokenTransfers(ctx context.Context, chain, address, tokenAddress string, decimals uint8, limit int) ([]entity.TransferRecord, error)
}

// PriceProvider resolves a quote-currency price for an asset symbol.
// Implementations return (0, false) on any failure; a missing price must never
// block a balance refresh.
type PriceProvider interface {
	GetPriceUSD(ctx context.Context, symbol string) (float64, bool)
}
