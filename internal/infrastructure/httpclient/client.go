// Package httpclient implements the outbound REST adapters the accounts
// depend on: token balances, transfer history and asset prices. Each adapter
// normalizes one provider's wire format into the domain entities; accounts
// never see provider-specific shapes.
package httpclient

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mybucks/internal/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// restClient is the shared plumbing of all provider adapters: fasthttp
// transport, request rate limiting and per-request metrics.
type restClient struct {
	name    string
	client  *fasthttp.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

func newRESTClient(name string, timeout time.Duration, perSec float64, burst int, logger *zap.Logger) *restClient {
	return &restClient{
		name:    name,
		client:  &fasthttp.Client{},
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		timeout: timeout,
		logger:  logger.Named(name),
	}
}

// getJSON performs a rate-limited GET and returns the response body on 200.
func (c *restClient) getJSON(ctx context.Context, requestURL string, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	started := time.Now()
	body, err := c.doGet(ctx, requestURL, headers)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ProviderRequestDuration.With(prometheus.Labels{"provider": c.name, "outcome": outcome}).
		Observe(time.Since(started).Seconds())
	return body, err
}

func (c *restClient) doGet(ctx context.Context, requestURL string, headers map[string]string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Warn("request failed", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("request to %s failed: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Warn("request failed", zap.String("url", requestURL), zap.Error(err))
			return nil, fmt.Errorf("request to %s failed: %w", requestURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Warn("unexpected status",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()))
		return nil, fmt.Errorf("request to %s returned status %d", requestURL, resp.StatusCode())
	}

	// Body is owned by the response object; copy before release.
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
