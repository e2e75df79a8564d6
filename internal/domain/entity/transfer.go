package entity

import (
	"encoding/json"
	"math/big"
	"time"
)

// GasOption selects a fee urgency tier for EVM transfers.
type GasOption string

const (
	GasOptionLow     GasOption = "low"
	GasOptionAverage GasOption = "average"
	GasOptionHigh    GasOption = "high"
)

// GasMultiplier returns the integer-percent price multiplier for an option.
// Callers divide the final product by 100; keeping the math in integers avoids
// rounding drift in fee-critical paths.
func GasMultiplier(option GasOption) *big.Int {
	switch option {
	case GasOptionHigh:
		return big.NewInt(175)
	case GasOptionAverage:
		return big.NewInt(150)
	default:
		return big.NewInt(100)
	}
}

// UnsignedTransfer is a populated but unsigned transfer, ready for fee
// estimation and execution. Data is EVM calldata (nil for native transfers);
// Envelope carries the Tron full-node transaction verbatim so broadcasting
// returns exactly what the node produced.
type UnsignedTransfer struct {
	TokenAddress string          `json:"tokenAddress"`
	To           string          `json:"to"`
	Value        *big.Int        `json:"value"`
	Decimals     uint8           `json:"decimals"`
	Data         []byte          `json:"data,omitempty"`
	Envelope     json.RawMessage `json:"envelope,omitempty"`
}

// FeeEstimate is the cost prediction for an unsigned transfer. EVM fills the
// gas fields; Tron fills bandwidth/energy plus the equivalent cost in sun.
type FeeEstimate struct {
	GasUnits  *big.Int `json:"gasUnits,omitempty"`
	GasPrice  *big.Int `json:"gasPrice,omitempty"`
	Fee       *big.Int `json:"fee,omitempty"` // native smallest unit, multiplier applied
	Bandwidth int64    `json:"bandwidth,omitempty"`
	Energy    int64    `json:"energy,omitempty"`
	SunCost   int64    `json:"sunCost,omitempty"`
}

// Broadcast outcome states. EVM execution resolves to mined or failed; Tron
// resolves to confirmed, failed or timeout after the receipt poll.
const (
	BroadcastMined     = "mined"
	BroadcastConfirmed = "confirmed"
	BroadcastFailed    = "failed"
	BroadcastTimeout   = "timeout"
)

// BroadcastResult reports the outcome of submitting a signed transfer.
type BroadcastResult struct {
	TxHash      string `json:"txHash"`
	Status      string `json:"status"`
	Confirmed   bool   `json:"confirmed"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// TransferRecord is one historical transfer of the selected asset.
type TransferRecord struct {
	Hash           string    `json:"hash"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Value          float64   `json:"value"`
	BlockNumber    uint64    `json:"blockNumber"`
	BlockTimestamp time.Time `json:"blockTimestamp"`
}
