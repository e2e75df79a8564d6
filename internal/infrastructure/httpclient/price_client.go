package httpclient

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"mybucks/internal/app/port"
)

// priceClient implements port.PriceProvider against a symbol price-index API
// (blockchain.info wire shape: GET {base}/price/index?base=SYM&quote=USD).
// Prices are cached with a TTL; a refresh cycle never hits the provider twice
// for the same symbol.
type priceClient struct {
	*restClient
	baseURL string
	cache   *gocache.Cache
}

// NewPriceClient creates a price provider adapter with a TTL cache.
func NewPriceClient(baseURL string, timeout time.Duration, perSec float64, burst int, cacheTTL time.Duration, logger *zap.Logger) port.PriceProvider {
	return &priceClient{
		restClient: newRESTClient("PriceClient", timeout, perSec, burst, logger),
		baseURL:    baseURL,
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
	}
}

type priceIndexResponse struct {
	Price float64 `json:"price"`
}

// GetPriceUSD returns the USD price for a symbol, or (0, false) on any
// failure. Failures are cached briefly so a dead provider does not stall
// every balance refresh.
func (c *priceClient) GetPriceUSD(ctx context.Context, symbol string) (float64, bool) {
	if cached, found := c.cache.Get(symbol); found {
		price := cached.(float64)
		return price, price > 0
	}

	requestURL := fmt.Sprintf("%s/price/index?base=%s&quote=USD", c.baseURL, symbol)
	body, err := c.getJSON(ctx, requestURL, nil)
	if err != nil {
		c.cache.Set(symbol, 0.0, 30*time.Second)
		return 0, false
	}

	var parsed priceIndexResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Price <= 0 {
		c.logger.Warn("unusable price response", zap.String("symbol", symbol), zap.Error(err))
		c.cache.Set(symbol, 0.0, 30*time.Second)
		return 0, false
	}

	c.cache.SetDefault(symbol, parsed.Price)
	return parsed.Price, true
}
