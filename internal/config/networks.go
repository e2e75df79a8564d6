package config

import "mybucks/internal/domain/entity"

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:          1,
		Name:             "ethereum",
		Label:            "Ethereum",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		PrimaryRPCURL:    "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/eth", "https://eth.llamarpc.com"},
		BlockExplorerURL: "https://etherscan.io",
	}
	Polygon = entity.NetworkDefinition{
		ChainID:          137,
		Name:             "polygon",
		Label:            "Polygon",
		NativeSymbol:     "POL",
		NativeName:       "Polygon",
		Decimals:         18,
		PrimaryRPCURL:    "https://polygon-rpc.com/",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL: "https://polygonscan.com",
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:          42161,
		Name:             "arbitrum",
		Label:            "Arbitrum",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		PrimaryRPCURL:    "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:  []string{"https://arbitrum.publicnode.com"},
		BlockExplorerURL: "https://arbiscan.io",
	}
	Optimism = entity.NetworkDefinition{
		ChainID:          10,
		Name:             "optimism",
		Label:            "Optimism",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		PrimaryRPCURL:    "https://mainnet.optimism.io",
		FallbackRPCURLs:  []string{"https://optimism.publicnode.com", "https://rpc.ankr.com/optimism"},
		BlockExplorerURL: "https://optimistic.etherscan.io",
	}
	BSC = entity.NetworkDefinition{
		ChainID:          56,
		Name:             "bsc",
		Label:            "BNB Chain",
		NativeSymbol:     "BNB",
		NativeName:       "BNB",
		Decimals:         18,
		PrimaryRPCURL:    "https://bsc-dataseed.binance.org/",
		FallbackRPCURLs:  []string{"https://bsc.publicnode.com"},
		BlockExplorerURL: "https://bscscan.com",
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:          43114,
		Name:             "avalanche",
		Label:            "Avalanche",
		NativeSymbol:     "AVAX",
		NativeName:       "Avalanche",
		Decimals:         18,
		PrimaryRPCURL:    "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:  []string{"https://rpc.ankr.com/avalanche"},
		BlockExplorerURL: "https://snowtrace.io",
	}
	Base = entity.NetworkDefinition{
		ChainID:          8453,
		Name:             "base",
		Label:            "Base",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		PrimaryRPCURL:    "https://mainnet.base.org",
		FallbackRPCURLs:  []string{"https://base.publicnode.com"},
		BlockExplorerURL: "https://basescan.org",
	}
)

// DefaultEVMNetworks returns the built-in network table used when the config
// file defines none. Ethereum mainnet stays first; it is the default chain.
func DefaultEVMNetworks() []entity.NetworkDefinition {
	return []entity.NetworkDefinition{
		Ethereum, Polygon, Arbitrum, Optimism, BSC, Avalanche, Base,
	}
}

// DefaultTronTokens returns the TRC-20 assets tracked by default. The list is
// deliberately short; extend it through the config file.
func DefaultTronTokens() []entity.TronToken {
	return []entity.TronToken{
		{
			Address:  "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			Symbol:   "USDT",
			Name:     "Tether USD",
			Decimals: 6,
		},
	}
}

// DefaultChainID is the chain selected right after unlock.
const DefaultChainID uint64 = 1
