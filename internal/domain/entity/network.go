package entity

import (
	"math/big"
	"time"
)

// NetworkKind discriminates the two supported chain families.
type NetworkKind string

const (
	NetworkEVM  NetworkKind = "evm"
	NetworkTron NetworkKind = "tron"
)

// NetworkDefinition holds the configuration for a specific EVM network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID          uint64   `json:"chainId" yaml:"chainId"`
	Name             string   `json:"name" yaml:"name"` // unique identifier, e.g. "ethereum", "bsc"
	Label            string   `json:"label" yaml:"label"`
	NativeSymbol     string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	NativeName       string   `json:"nativeName" yaml:"nativeName"`
	Decimals         uint8    `json:"decimals" yaml:"decimals"`
	PrimaryRPCURL    string   `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	LogoURI          string   `json:"logoURI,omitempty" yaml:"logoURI,omitempty"`
}

// NetworkStatus is a point-in-time snapshot of chain-level state an account
// refreshes periodically. EVM accounts fill GasPrice; Tron accounts fill the
// resource fields. A refresh replaces the whole snapshot, never single fields.
type NetworkStatus struct {
	GasPrice        *big.Int  `json:"gasPrice,omitempty"`
	FreeBandwidth   int64     `json:"freeBandwidth,omitempty"`
	StakedBandwidth int64     `json:"stakedBandwidth,omitempty"`
	EnergyBalance   int64     `json:"energyBalance,omitempty"`
	Activated       bool      `json:"activated"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
