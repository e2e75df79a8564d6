package tron

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mybucks/internal/app/port"
	"mybucks/internal/domain/entity"
	"mybucks/internal/pkg/metrics"
	"mybucks/internal/pkg/utils"
)

// Chain-level fee constants, in sun per unit. The node does not expose these
// over the HTTP API so they are pinned to the current chain parameters.
const (
	BandwidthPriceSun = 1000
	EnergyPriceSun    = 210
)

const (
	trxDecimals = 6

	// Protobuf framing the node adds around raw_data and the signature when
	// the transaction is serialized for broadcast.
	bandwidthOverhead = 64
	signatureLen      = 65

	defaultFeeLimit = 100_000_000 // 100 TRX ceiling for TRC-20 calls
)

// Settings carries the node endpoint and wallet-level Tron tunables.
type Settings struct {
	NodeURL             string
	APIKey              string
	BlockExplorerURL    string
	RequestTimeout      time.Duration
	Tokens              []entity.TronToken
	ReceiptPollAttempts int
	ReceiptPollInterval time.Duration
}

// Providers bundles the external data sources an account queries. Balances
// come from the node directly, so only history and prices are indirected.
type Providers struct {
	History port.HistoryProvider
	Prices  port.PriceProvider
}

// Account is one wallet identity on the Tron network.
type Account struct {
	settings Settings
	key      *ecdsa.PrivateKey
	rawAddr  []byte // 21 bytes, 0x41 prefixed
	address  string // base58check form

	node      *nodeClient
	providers Providers
	logger    *zap.Logger

	mu     sync.RWMutex
	status entity.NetworkStatus
}

// New constructs an account from a 32-byte private key. The account starts
// unactivated; the first status refresh decides whether the chain knows it.
func New(privKey []byte, settings Settings, providers Providers, logger *zap.Logger) (*Account, error) {
	key, err := crypto.ToECDSA(privKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	raw := addressFromPubkey(&key.PublicKey)
	return &Account{
		settings:  settings,
		key:       key,
		rawAddr:   raw,
		address:   encodeAddress(raw),
		node:      newNodeClient(settings.NodeURL, settings.APIKey, settings.RequestTimeout, logger),
		providers: providers,
		logger:    logger.Named("TronAccount"),
	}, nil
}

func (a *Account) Network() entity.NetworkKind { return entity.NetworkTron }
func (a *Account) ChainID() uint64             { return 0 }
func (a *Account) Address() string             { return a.address }

// Activated reports whether the chain has seen this account. It reflects the
// latest status refresh.
func (a *Account) Activated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status.Activated
}

func (a *Account) IsAddress(value string) bool {
	return isValidAddress(value)
}

func (a *Account) LinkOfAddress(address string) string {
	return a.settings.BlockExplorerURL + "/address/" + address
}

func (a *Account) LinkOfContract(address string) string {
	return a.settings.BlockExplorerURL + "/contract/" + address
}

func (a *Account) LinkOfTransaction(txHash string) string {
	return a.settings.BlockExplorerURL + "/transaction/" + txHash
}

// GetNetworkStatus refreshes activation and resource balances. A node error
// means "disconnected" and leaves the previous snapshot in place.
func (a *Account) GetNetworkStatus(ctx context.Context) error {
	info, err := a.node.GetAccount(ctx, a.address)
	if err != nil {
		metrics.StatusRefreshTotal.With(prometheus.Labels{"network": "tron", "outcome": "error"}).Inc()
		a.logger.Warn("account refresh failed", zap.Error(err))
		return err
	}

	// getaccount returns an empty object for unknown addresses.
	activated := info.Address != ""

	snapshot := entity.NetworkStatus{
		Activated: activated,
		UpdatedAt: time.Now(),
	}
	if activated {
		res, err := a.node.GetAccountResources(ctx, a.address)
		if err != nil {
			metrics.StatusRefreshTotal.With(prometheus.Labels{"network": "tron", "outcome": "error"}).Inc()
			a.logger.Warn("resource refresh failed", zap.Error(err))
			return err
		}
		snapshot.FreeBandwidth = res.FreeNetLimit - res.FreeNetUsed
		snapshot.StakedBandwidth = res.NetLimit - res.NetUsed
		snapshot.EnergyBalance = res.EnergyLimit - res.EnergyUsed
	}

	a.mu.Lock()
	a.status = snapshot
	a.mu.Unlock()
	metrics.StatusRefreshTotal.With(prometheus.Labels{"network": "tron", "outcome": "ok"}).Inc()
	return nil
}

// Status returns the latest snapshot.
func (a *Account) Status() entity.NetworkStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// QueryBalances reads TRX from the node and each configured TRC-20 balance
// via constant contract calls. An unactivated account is not an error: it
// yields a zero native row, which unfunded accounts legitimately have.
func (a *Account) QueryBalances(ctx context.Context) ([]entity.TokenBalance, error) {
	info, err := a.node.GetAccount(ctx, a.address)
	if err != nil {
		return nil, err
	}

	rawNative := big.NewInt(info.Balance)
	nativeValue := utils.ToDecimal(rawNative, trxDecimals)
	price, _ := a.providers.Prices.GetPriceUSD(ctx, "TRX")
	rows := []entity.TokenBalance{{
		Name:       "TRON",
		Symbol:     "TRX",
		Decimals:   trxDecimals,
		Balance:    nativeValue,
		RawBalance: rawNative,
		Price:      price,
		Quote:      nativeValue * price,
		Native:     true,
	}}

	for _, token := range a.settings.Tokens {
		raw, err := a.tokenBalance(ctx, token.Address)
		if err != nil {
			a.logger.Warn("token balance read failed",
				zap.String("token", token.Symbol), zap.Error(err))
			continue
		}
		if raw.Sign() == 0 {
			continue
		}
		value := utils.ToDecimal(raw, token.Decimals)
		tokenPrice, _ := a.providers.Prices.GetPriceUSD(ctx, token.Symbol)
		rows = append(rows, entity.TokenBalance{
			Address:    token.Address,
			Name:       token.Name,
			Symbol:     token.Symbol,
			Decimals:   token.Decimals,
			Balance:    value,
			RawBalance: raw,
			Price:      tokenPrice,
			Quote:      value * tokenPrice,
			LogoURI:    token.LogoURI,
		})
	}
	return rows, nil
}

// QueryTokenHistory returns recent transfers via the indexing provider.
// Provider failures yield an empty list so the caller's view stays stable.
func (a *Account) QueryTokenHistory(ctx context.Context, tokenAddress string, decimals uint8, limit int) ([]entity.TransferRecord, error) {
	records, err := a.providers.History.GetTokenTransfers(ctx, "tron", a.address, tokenAddress, decimals, limit)
	if err != nil {
		a.logger.Warn("token history fetch failed", zap.String("token", tokenAddress), zap.Error(err))
		return []entity.TransferRecord{}, nil
	}
	return records, nil
}

// PopulateTransfer asks the node to build the unsigned transaction and keeps
// its envelope verbatim for signing. An unactivated account cannot send.
func (a *Account) PopulateTransfer(ctx context.Context, tokenAddress, to string, value *big.Int) (*entity.UnsignedTransfer, error) {
	if !a.IsAddress(to) {
		return nil, entity.ErrInvalidAddress
	}
	if value == nil || value.Sign() <= 0 {
		return nil, entity.ErrInvalidAmount
	}
	if !a.Activated() {
		return nil, entity.ErrNotActivated
	}

	var (
		envelope *txEnvelope
		decimals uint8 = trxDecimals
	)
	if tokenAddress == "" {
		if !value.IsInt64() {
			return nil, entity.ErrInvalidAmount
		}
		tx, err := a.node.CreateTransaction(ctx, a.address, to, value.Int64())
		if err != nil {
			return nil, err
		}
		envelope = tx
	} else {
		if !a.IsAddress(tokenAddress) {
			return nil, entity.ErrInvalidAddress
		}
		result, err := a.node.TriggerSmartContract(ctx, triggerRequest{
			OwnerAddress:     a.address,
			ContractAddress:  tokenAddress,
			FunctionSelector: "transfer(address,uint256)",
			Parameter:        transferParams(to, value),
			FeeLimit:         defaultFeeLimit,
			Visible:          true,
		})
		if err != nil {
			return nil, err
		}
		if result.Transaction == nil {
			return nil, fmt.Errorf("node returned no transaction for contract call")
		}
		envelope = result.Transaction
		decimals = a.tokenDecimals(tokenAddress)
	}

	raw, err := nodeJSON.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to preserve transaction envelope: %w", err)
	}
	return &entity.UnsignedTransfer{
		TokenAddress: tokenAddress,
		To:           to,
		Value:        value,
		Decimals:     decimals,
		Envelope:     raw,
	}, nil
}

// EstimateFee computes the bandwidth the serialized transaction will consume
// and, for TRC-20 calls, the energy reported by a constant-mode dry run. The
// sun cost covers only what the account's resource balances cannot absorb.
// The gas option is accepted for interface symmetry; Tron fees are not
// tiered.
func (a *Account) EstimateFee(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.FeeEstimate, error) {
	if tx == nil || len(tx.Envelope) == 0 {
		return nil, entity.ErrEstimateUnavailable
	}
	var envelope txEnvelope
	if err := nodeJSON.Unmarshal(tx.Envelope, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrEstimateUnavailable, err)
	}

	bandwidth := int64(len(envelope.RawDataHex)/2) + signatureLen + bandwidthOverhead

	var energy int64
	if tx.TokenAddress != "" {
		result, err := a.node.TriggerConstantContract(ctx, triggerRequest{
			OwnerAddress:     a.address,
			ContractAddress:  tx.TokenAddress,
			FunctionSelector: "transfer(address,uint256)",
			Parameter:        transferParams(tx.To, tx.Value),
			Visible:          true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrEstimateUnavailable, err)
		}
		energy = result.EnergyUsed
	}

	status := a.Status()
	availableBandwidth := status.FreeBandwidth + status.StakedBandwidth
	chargedBandwidth := bandwidth - availableBandwidth
	if chargedBandwidth < 0 {
		chargedBandwidth = 0
	}
	chargedEnergy := energy - status.EnergyBalance
	if chargedEnergy < 0 {
		chargedEnergy = 0
	}

	return &entity.FeeEstimate{
		Bandwidth: bandwidth,
		Energy:    energy,
		SunCost:   chargedBandwidth*BandwidthPriceSun + chargedEnergy*EnergyPriceSun,
	}, nil
}

// Execute signs the preserved envelope, broadcasts it and polls for a receipt
// for a bounded number of attempts.
func (a *Account) Execute(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.BroadcastResult, error) {
	if tx == nil || len(tx.Envelope) == 0 {
		return nil, entity.ErrInvalidAmount
	}
	var envelope txEnvelope
	if err := nodeJSON.Unmarshal(tx.Envelope, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode transaction envelope: %w", err)
	}

	if err := a.sign(&envelope); err != nil {
		return nil, err
	}

	resp, err := a.node.Broadcast(ctx, &envelope)
	if err != nil {
		metrics.BroadcastsTotal.With(prometheus.Labels{"network": "tron", "status": entity.BroadcastFailed}).Inc()
		return nil, err
	}
	if !resp.Result {
		metrics.BroadcastsTotal.With(prometheus.Labels{"network": "tron", "status": entity.BroadcastFailed}).Inc()
		message, _ := hex.DecodeString(resp.Message)
		return nil, fmt.Errorf("broadcast rejected: %s %s", resp.Code, string(message))
	}

	result := a.awaitReceipt(ctx, envelope.TxID)
	metrics.BroadcastsTotal.With(prometheus.Labels{"network": "tron", "status": result.Status}).Inc()
	return result, nil
}

// Close is a no-op; the node client holds no persistent connections.
func (a *Account) Close() {}

// sign hashes raw_data_hex with SHA-256 and signs it with the in-memory key.
func (a *Account) sign(envelope *txEnvelope) error {
	rawData, err := hex.DecodeString(envelope.RawDataHex)
	if err != nil {
		return fmt.Errorf("malformed raw_data_hex: %w", err)
	}
	digest := sha256.Sum256(rawData)
	signature, err := crypto.Sign(digest[:], a.key)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	envelope.Signature = append(envelope.Signature, hex.EncodeToString(signature))
	return nil
}

// awaitReceipt polls the node until the transaction lands in a block or the
// attempt budget runs out.
func (a *Account) awaitReceipt(ctx context.Context, txID string) *entity.BroadcastResult {
	result := &entity.BroadcastResult{TxHash: txID, Status: entity.BroadcastTimeout}

	attempts := a.settings.ReceiptPollAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := a.settings.ReceiptPollInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return result
		case <-ticker.C:
		}

		info, err := a.node.GetTransactionInfo(ctx, txID)
		if err != nil {
			a.logger.Debug("receipt poll failed", zap.Error(err))
			continue
		}
		if info.ID == "" {
			continue
		}

		result.BlockNumber = info.BlockNumber
		if info.Receipt.Result == "" || info.Receipt.Result == "SUCCESS" {
			result.Status = entity.BroadcastConfirmed
			result.Confirmed = true
		} else {
			result.Status = entity.BroadcastFailed
		}
		return result
	}
	return result
}

// tokenBalance reads balanceOf via a constant contract call.
func (a *Account) tokenBalance(ctx context.Context, tokenAddress string) (*big.Int, error) {
	result, err := a.node.TriggerConstantContract(ctx, triggerRequest{
		OwnerAddress:     a.address,
		ContractAddress:  tokenAddress,
		FunctionSelector: "balanceOf(address)",
		Parameter:        addressParam(a.rawAddr),
		Visible:          true,
	})
	if err != nil {
		return nil, err
	}
	if len(result.ConstantResult) == 0 {
		return big.NewInt(0), nil
	}
	raw, err := hex.DecodeString(result.ConstantResult[0])
	if err != nil {
		return nil, fmt.Errorf("malformed constant result: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}

func (a *Account) tokenDecimals(tokenAddress string) uint8 {
	for _, token := range a.settings.Tokens {
		if token.Address == tokenAddress {
			return token.Decimals
		}
	}
	return trxDecimals
}

// addressParam ABI-encodes a 21-byte Tron address as a 32-byte word.
func addressParam(raw []byte) string {
	var word [32]byte
	copy(word[32-len(raw):], raw)
	return hex.EncodeToString(word[:])
}

// transferParams builds the two-word transfer(address,uint256) parameter
// block. The recipient has already been validated.
func transferParams(to string, value *big.Int) string {
	raw, _ := decodeAddress(to)
	var amount [32]byte
	value.FillBytes(amount[:])
	return addressParam(raw) + hex.EncodeToString(amount[:])
}

var _ port.Account = (*Account)(nil)
