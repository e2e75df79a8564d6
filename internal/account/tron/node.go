package tron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var nodeJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// nodeClient speaks the Tron full-node HTTP API. Transaction envelopes are
// kept as raw JSON end to end so broadcasting returns to the node exactly
// what it produced.
type nodeClient struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

func newNodeClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *nodeClient {
	return &nodeClient{
		client:  &fasthttp.Client{},
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("TronNode"),
	}
}

func (c *nodeClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := nodeJSON.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if c.apiKey != "" {
		req.Header.Set("TRON-PRO-API-KEY", c.apiKey)
	}
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Warn("node request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("node request %s failed: %w", path, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("node request %s returned status %d", path, resp.StatusCode())
	}

	if err := nodeJSON.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", path, err)
	}
	return nil
}

// accountInfo is the subset of wallet/getaccount the wallet needs. An empty
// response body means the account has never been funded.
type accountInfo struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
}

func (c *nodeClient) GetAccount(ctx context.Context, address string) (*accountInfo, error) {
	var out accountInfo
	err := c.post(ctx, "/wallet/getaccount", map[string]any{
		"address": address,
		"visible": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// accountResources mirrors wallet/getaccountresource.
type accountResources struct {
	FreeNetUsed  int64 `json:"freeNetUsed"`
	FreeNetLimit int64 `json:"freeNetLimit"`
	NetUsed      int64 `json:"NetUsed"`
	NetLimit     int64 `json:"NetLimit"`
	EnergyUsed   int64 `json:"EnergyUsed"`
	EnergyLimit  int64 `json:"EnergyLimit"`
}

func (c *nodeClient) GetAccountResources(ctx context.Context, address string) (*accountResources, error) {
	var out accountResources
	err := c.post(ctx, "/wallet/getaccountresource", map[string]any{
		"address": address,
		"visible": true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// txEnvelope is a full-node transaction, passed through opaquely except for
// the fields signing and broadcasting need.
type txEnvelope struct {
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data"`
	RawDataHex string          `json:"raw_data_hex"`
	Signature  []string        `json:"signature,omitempty"`
	Visible    bool            `json:"visible,omitempty"`
	Error      string          `json:"Error,omitempty"`
}

func (c *nodeClient) CreateTransaction(ctx context.Context, from, to string, amount int64) (*txEnvelope, error) {
	var out txEnvelope
	err := c.post(ctx, "/wallet/createtransaction", map[string]any{
		"owner_address": from,
		"to_address":    to,
		"amount":        amount,
		"visible":       true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("createtransaction rejected: %s", out.Error)
	}
	if out.TxID == "" {
		return nil, fmt.Errorf("createtransaction returned no transaction")
	}
	return &out, nil
}

// triggerResult wraps both triggersmartcontract and triggerconstantcontract
// responses.
type triggerResult struct {
	Result struct {
		Result  bool   `json:"result"`
		Message string `json:"message"`
	} `json:"result"`
	Transaction    *txEnvelope `json:"transaction"`
	EnergyUsed     int64       `json:"energy_used"`
	ConstantResult []string    `json:"constant_result"`
}

type triggerRequest struct {
	OwnerAddress     string `json:"owner_address"`
	ContractAddress  string `json:"contract_address"`
	FunctionSelector string `json:"function_selector"`
	Parameter        string `json:"parameter"`
	FeeLimit         int64  `json:"fee_limit,omitempty"`
	CallValue        int64  `json:"call_value"`
	Visible          bool   `json:"visible"`
}

func (c *nodeClient) TriggerSmartContract(ctx context.Context, req triggerRequest) (*triggerResult, error) {
	var out triggerResult
	if err := c.post(ctx, "/wallet/triggersmartcontract", req, &out); err != nil {
		return nil, err
	}
	if !out.Result.Result {
		return nil, fmt.Errorf("triggersmartcontract rejected: %s", out.Result.Message)
	}
	return &out, nil
}

func (c *nodeClient) TriggerConstantContract(ctx context.Context, req triggerRequest) (*triggerResult, error) {
	var out triggerResult
	if err := c.post(ctx, "/wallet/triggerconstantcontract", req, &out); err != nil {
		return nil, err
	}
	if !out.Result.Result {
		return nil, fmt.Errorf("triggerconstantcontract rejected: %s", out.Result.Message)
	}
	return &out, nil
}

// broadcastResponse mirrors wallet/broadcasttransaction.
type broadcastResponse struct {
	Result  bool   `json:"result"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *nodeClient) Broadcast(ctx context.Context, tx *txEnvelope) (*broadcastResponse, error) {
	var out broadcastResponse
	if err := c.post(ctx, "/wallet/broadcasttransaction", tx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// txInfo mirrors wallet/gettransactioninfobyid. An empty ID means the
// transaction has not been included in a block yet.
type txInfo struct {
	ID          string `json:"id"`
	BlockNumber uint64 `json:"blockNumber"`
	Receipt     struct {
		Result string `json:"result"`
	} `json:"receipt"`
}

func (c *nodeClient) GetTransactionInfo(ctx context.Context, txID string) (*txInfo, error) {
	var out txInfo
	if err := c.post(ctx, "/wallet/gettransactioninfobyid", map[string]any{"value": txID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
