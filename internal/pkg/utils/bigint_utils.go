package utils

import (
	"math/big"
	"strings"
)

// ToDecimal converts an integer amount in an asset's smallest unit into its
// display value, scaling by 10^-decimals in one exact big.Float division.
// The conversion happens once per value; repeated float accumulation is what
// this helper exists to avoid.
func ToDecimal(amount *big.Int, decimals uint8) float64 {
	if amount == nil || amount.Sign() == 0 {
		return 0
	}
	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), divisor).Float64()
	return value
}

// FormatBigInt renders an integer amount in smallest units as a decimal
// string, e.g. amount=1234500000000000000, decimals=18 => "1.2345".
func FormatBigInt(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if decimals == 0 {
		return amount.String()
	}

	divisor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).Quo(new(big.Float).SetInt(amount), divisor)

	formatted := value.Text('f', int(decimals))
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}
	if formatted == "" {
		return "0"
	}
	return formatted
}
