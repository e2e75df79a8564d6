package entity

import "math/big"

// TokenBalance is one row of an account's holdings. The native asset carries
// an empty Address and is always the first entry of a balance snapshot.
type TokenBalance struct {
	Address    string   `json:"address"`
	Name       string   `json:"name"`
	Symbol     string   `json:"symbol"`
	Decimals   uint8    `json:"decimals"`
	Balance    float64  `json:"balance"`
	RawBalance *big.Int `json:"rawBalance"`
	Price      float64  `json:"price"`
	Quote      float64  `json:"quote"`
	Native     bool     `json:"native"`
	LogoURI    string   `json:"logoURI,omitempty"`
}

// TronToken describes one TRC-20 asset the Tron account tracks. The list is
// config-driven so new assets do not require a code change.
type TronToken struct {
	Address  string `json:"address" yaml:"address"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
	LogoURI  string `json:"logoURI,omitempty" yaml:"logoURI,omitempty"`
}
