package httpclient

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"go.uber.org/zap"

	"mybucks/internal/app/port"
	"mybucks/internal/domain/entity"
	"mybucks/internal/pkg/utils"
)

// balanceClient implements port.BalanceProvider against a wallet-tokens
// indexing API (Moralis wire shape: GET {base}/wallets/{addr}/tokens?chain=).
type balanceClient struct {
	*restClient
	baseURL string
	apiKey  string
}

// NewBalanceClient creates a balance provider adapter.
func NewBalanceClient(baseURL, apiKey string, timeout time.Duration, perSec float64, burst int, logger *zap.Logger) port.BalanceProvider {
	return &balanceClient{
		restClient: newRESTClient("BalanceClient", timeout, perSec, burst, logger),
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// walletTokensResponse mirrors the provider's wallet-tokens payload; only the
// fields the domain model needs are declared.
type walletTokensResponse struct {
	Result []walletTokenRow `json:"result"`
}

type walletTokenRow struct {
	TokenAddress     string  `json:"token_address"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	Logo             string  `json:"logo"`
	Decimals         uint8   `json:"decimals"`
	Balance          string  `json:"balance"`
	BalanceFormatted string  `json:"balance_formatted"`
	USDPrice         float64 `json:"usd_price"`
	NativeToken      bool    `json:"native_token"`
	PossibleSpam     bool    `json:"possible_spam"`
}

// GetTokenBalances fetches all holdings of an address and normalizes them: the
// native entry first, spam filtered, non-native zero balances dropped, the
// rest sorted by descending quote.
func (c *balanceClient) GetTokenBalances(ctx context.Context, chain, address string) ([]entity.TokenBalance, error) {
	requestURL := fmt.Sprintf("%s/wallets/%s/tokens?chain=%s&exclude_unverified_contracts=true", c.baseURL, address, chain)

	body, err := c.getJSON(ctx, requestURL, map[string]string{"X-API-Key": c.apiKey})
	if err != nil {
		return nil, err
	}

	var parsed walletTokensResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warn("failed to unmarshal wallet tokens response", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal wallet tokens response: %w", err)
	}

	balances := make([]entity.TokenBalance, 0, len(parsed.Result))
	for _, row := range parsed.Result {
		if row.PossibleSpam {
			continue
		}
		raw, ok := new(big.Int).SetString(row.Balance, 10)
		if !ok {
			c.logger.Warn("skipping token with malformed raw balance",
				zap.String("token", row.TokenAddress), zap.String("balance", row.Balance))
			continue
		}
		value := utils.ToDecimal(raw, row.Decimals)
		tb := entity.TokenBalance{
			Address:    row.TokenAddress,
			Name:       row.Name,
			Symbol:     row.Symbol,
			Decimals:   row.Decimals,
			Balance:    value,
			RawBalance: raw,
			Price:      row.USDPrice,
			Quote:      value * row.USDPrice,
			Native:     row.NativeToken,
			LogoURI:    row.Logo,
		}
		if tb.Native {
			// The native asset carries no contract address in the domain model.
			tb.Address = ""
		} else if tb.Balance <= 0 {
			continue
		}
		balances = append(balances, tb)
	}

	sort.SliceStable(balances, func(i, j int) bool {
		if balances[i].Native != balances[j].Native {
			return balances[i].Native
		}
		if balances[i].Quote != balances[j].Quote {
			return balances[i].Quote > balances[j].Quote
		}
		return balances[i].Balance > balances[j].Balance
	})
	return balances, nil
}
