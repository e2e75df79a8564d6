package httpclient

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"mybucks/internal/app/port"
	"mybucks/internal/domain/entity"
	"mybucks/internal/pkg/utils"
)

// historyClient implements port.HistoryProvider against a transfer-history
// indexing API (Covalent wire shape).
type historyClient struct {
	*restClient
	baseURL string
	apiKey  string
}

// NewHistoryClient creates a history provider adapter.
func NewHistoryClient(baseURL, apiKey string, timeout time.Duration, perSec float64, burst int, logger *zap.Logger) port.HistoryProvider {
	return &historyClient{
		restClient: newRESTClient("HistoryClient", timeout, perSec, burst, logger),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type transfersResponse struct {
	Data struct {
		Items []struct {
			Transfers []transferRow `json:"transfers"`
		} `json:"items"`
	} `json:"data"`
	Error bool `json:"error"`
}

type transferRow struct {
	TxHash        string    `json:"tx_hash"`
	FromAddress   string    `json:"from_address"`
	ToAddress     string    `json:"to_address"`
	Delta         string    `json:"delta"`
	BlockHeight   uint64    `json:"block_height"`
	BlockSignedAt time.Time `json:"block_signed_at"`
}

// GetTokenTransfers fetches recent transfers of one token for an address and
// flattens the provider's nested transaction/transfer pages into records.
func (c *historyClient) GetTokenTransfers(ctx context.Context, chain, address, tokenAddress string, decimals uint8, limit int) ([]entity.TransferRecord, error) {
	requestURL := fmt.Sprintf("%s/%s/address/%s/transfers_v2/?contract-address=%s&page-size=%d",
		c.baseURL, chain, address, tokenAddress, limit)

	body, err := c.getJSON(ctx, requestURL, map[string]string{"Authorization": "Bearer " + c.apiKey})
	if err != nil {
		return nil, err
	}

	var parsed transfersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfers response: %w", err)
	}
	if parsed.Error {
		return nil, fmt.Errorf("history provider reported an error for %s", address)
	}

	records := make([]entity.TransferRecord, 0, limit)
	for _, item := range parsed.Data.Items {
		for _, row := range item.Transfers {
			value := 0.0
			if raw, ok := new(big.Int).SetString(row.Delta, 10); ok {
				value = utils.ToDecimal(raw, decimals)
			} else {
				c.logger.Debug("malformed transfer delta", zap.String("delta", row.Delta))
			}
			records = append(records, entity.TransferRecord{
				Hash:           row.TxHash,
				From:           row.FromAddress,
				To:             row.ToAddress,
				Value:          value,
				BlockNumber:    row.BlockHeight,
				BlockTimestamp: row.BlockSignedAt,
			})
			if len(records) >= limit {
				return records, nil
			}
		}
	}
	return records, nil
}
