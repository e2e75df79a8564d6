// Package evm implements the account contract for EVM-compatible chains: one
// derived key, one JSON-RPC endpoint, balance/history providers joined into
// the common token shape.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mybucks/internal/app/port"
	"mybucks/internal/domain/entity"
	"mybucks/internal/pkg/metrics"
	"mybucks/internal/pkg/utils"
)

const statusCallTimeout = 8 * time.Second

// Providers bundles the external data sources an account queries.
type Providers struct {
	Balances port.BalanceProvider
	History  port.HistoryProvider
	Prices   port.PriceProvider
}

// Account is one wallet identity on one EVM chain.
type Account struct {
	netDef  entity.NetworkDefinition
	key     *ecdsa.PrivateKey
	address common.Address
	client  *ethclient.Client

	providers Providers
	logger    *zap.Logger

	mu     sync.RWMutex
	status entity.NetworkStatus
}

// New constructs an account from a 32-byte private key. Network
// unavailability is not an error here; the status snapshot stays at its
// defaults until the first refresh succeeds.
func New(privKey []byte, netDef entity.NetworkDefinition, providers Providers, logger *zap.Logger) (*Account, error) {
	key, err := crypto.ToECDSA(privKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	client, err := ethclient.Dial(netDef.PrimaryRPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build RPC client for %s: %w", netDef.Name, err)
	}

	return &Account{
		netDef:    netDef,
		key:       key,
		address:   crypto.PubkeyToAddress(key.PublicKey),
		client:    client,
		providers: providers,
		logger:    logger.Named("EvmAccount").With(zap.String("network", netDef.Name)),
		status:    entity.NetworkStatus{Activated: true}, // EVM accounts exist implicitly
	}, nil
}

func (a *Account) Network() entity.NetworkKind { return entity.NetworkEVM }
func (a *Account) ChainID() uint64             { return a.netDef.ChainID }
func (a *Account) Address() string             { return a.address.Hex() }

// Activated is always true on EVM: an address exists without prior funding.
func (a *Account) Activated() bool { return true }

func (a *Account) IsAddress(value string) bool {
	return common.IsHexAddress(value)
}

func (a *Account) LinkOfAddress(address string) string {
	return a.netDef.BlockExplorerURL + "/address/" + address
}

func (a *Account) LinkOfContract(address string) string {
	return a.netDef.BlockExplorerURL + "/address/" + address + "#code"
}

func (a *Account) LinkOfTransaction(txHash string) string {
	return a.netDef.BlockExplorerURL + "/tx/" + txHash
}

// GetNetworkStatus refreshes the cached gas price. An error means the chain
// is unreachable; the previous snapshot stays in place.
func (a *Account) GetNetworkStatus(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, statusCallTimeout)
	defer cancel()

	gasPrice, err := a.client.SuggestGasPrice(callCtx)
	if err != nil {
		metrics.StatusRefreshTotal.With(prometheus.Labels{"network": "evm", "outcome": "error"}).Inc()
		a.logger.Warn("gas price refresh failed", zap.Error(err))
		return err
	}

	a.mu.Lock()
	a.status = entity.NetworkStatus{
		GasPrice:  gasPrice,
		Activated: true,
		UpdatedAt: time.Now(),
	}
	a.mu.Unlock()
	metrics.StatusRefreshTotal.With(prometheus.Labels{"network": "evm", "outcome": "ok"}).Inc()
	return nil
}

// Status returns the latest snapshot.
func (a *Account) Status() entity.NetworkStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// QueryBalances joins the indexing provider's holdings with prices and
// enforces the snapshot shape: native asset first (synthesized from a direct
// RPC read if the provider omits it), no zero non-native rows, rest sorted by
// descending quote.
func (a *Account) QueryBalances(ctx context.Context) ([]entity.TokenBalance, error) {
	chain := fmt.Sprintf("0x%x", a.netDef.ChainID)

	var (
		rows       []entity.TokenBalance
		rpcBalance *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = a.providers.Balances.GetTokenBalances(gctx, chain, a.address.Hex())
		return err
	})
	g.Go(func() error {
		// Best-effort direct read, used only if the provider has no native row.
		balance, err := a.client.BalanceAt(gctx, a.address, nil)
		if err == nil {
			rpcBalance = balance
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hasNative := len(rows) > 0 && rows[0].Native
	if !hasNative {
		raw := big.NewInt(0)
		if rpcBalance != nil {
			raw = rpcBalance
		}
		value := utils.ToDecimal(raw, a.netDef.Decimals)
		price, _ := a.providers.Prices.GetPriceUSD(ctx, a.netDef.NativeSymbol)
		native := entity.TokenBalance{
			Name:       a.netDef.NativeName,
			Symbol:     a.netDef.NativeSymbol,
			Decimals:   a.netDef.Decimals,
			Balance:    value,
			RawBalance: raw,
			Price:      price,
			Quote:      value * price,
			Native:     true,
			LogoURI:    a.netDef.LogoURI,
		}
		rows = append([]entity.TokenBalance{native}, rows...)
	}
	return rows, nil
}

// QueryTokenHistory returns recent transfers of the token, or the native
// asset when tokenAddress is empty. Provider failures yield an empty list so
// the caller's view stays stable.
func (a *Account) QueryTokenHistory(ctx context.Context, tokenAddress string, decimals uint8, limit int) ([]entity.TransferRecord, error) {
	chain := fmt.Sprintf("%d", a.netDef.ChainID)
	records, err := a.providers.History.GetTokenTransfers(ctx, chain, a.address.Hex(), tokenAddress, decimals, limit)
	if err != nil {
		a.logger.Warn("token history fetch failed", zap.String("token", tokenAddress), zap.Error(err))
		return []entity.TransferRecord{}, nil
	}
	return records, nil
}

// PopulateTransfer builds an unsigned native or ERC-20 transfer. Validation
// happens before any network call.
func (a *Account) PopulateTransfer(ctx context.Context, tokenAddress, to string, value *big.Int) (*entity.UnsignedTransfer, error) {
	if !a.IsAddress(to) {
		return nil, entity.ErrInvalidAddress
	}
	if value == nil || value.Sign() <= 0 {
		return nil, entity.ErrInvalidAmount
	}

	tx := &entity.UnsignedTransfer{
		TokenAddress: tokenAddress,
		To:           to,
		Value:        value,
	}
	if tokenAddress == "" {
		return tx, nil
	}

	if !a.IsAddress(tokenAddress) {
		return nil, entity.ErrInvalidAddress
	}
	data, err := packTransfer(common.HexToAddress(to), value)
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer calldata: %w", err)
	}
	tx.Data = data
	return tx, nil
}

// EstimateFee predicts gas for the transfer and applies the option's
// integer-percent multiplier: fee = gas * gasPrice * multiplier / 100. The
// whole computation stays in big.Int; division happens exactly once at the
// end.
func (a *Account) EstimateFee(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.FeeEstimate, error) {
	msg, err := a.callMsg(tx)
	if err != nil {
		return nil, err
	}

	gas, err := a.client.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrEstimateUnavailable, err)
	}

	gasPrice := a.Status().GasPrice
	if gasPrice == nil || gasPrice.Sign() == 0 {
		gasPrice, err = a.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrEstimateUnavailable, err)
		}
	}

	gasUnits := new(big.Int).SetUint64(gas)
	fee := new(big.Int).Mul(gasUnits, gasPrice)
	fee.Mul(fee, entity.GasMultiplier(option))
	fee.Div(fee, big.NewInt(100))

	return &entity.FeeEstimate{
		GasUnits: gasUnits,
		GasPrice: gasPrice,
		Fee:      fee,
	}, nil
}

// Execute signs the transfer with the in-memory key, broadcasts it and waits
// for it to be mined.
func (a *Account) Execute(ctx context.Context, tx *entity.UnsignedTransfer, option entity.GasOption) (*entity.BroadcastResult, error) {
	estimate, err := a.EstimateFee(ctx, tx, option)
	if err != nil {
		return nil, err
	}

	nonce, err := a.client.PendingNonceAt(ctx, a.address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice := new(big.Int).Mul(estimate.GasPrice, entity.GasMultiplier(option))
	gasPrice.Div(gasPrice, big.NewInt(100))

	to, amount, data := a.wireFields(tx)
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      estimate.GasUnits.Uint64(),
		To:       &to,
		Value:    amount,
		Data:     data,
	})

	chainID := new(big.Int).SetUint64(a.netDef.ChainID)
	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(chainID), a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := a.client.SendTransaction(ctx, signed); err != nil {
		metrics.BroadcastsTotal.With(prometheus.Labels{"network": "evm", "status": entity.BroadcastFailed}).Inc()
		return nil, fmt.Errorf("broadcast rejected: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, a.client, signed)
	if err != nil {
		metrics.BroadcastsTotal.With(prometheus.Labels{"network": "evm", "status": entity.BroadcastTimeout}).Inc()
		return &entity.BroadcastResult{
			TxHash: signed.Hash().Hex(),
			Status: entity.BroadcastTimeout,
		}, nil
	}

	result := &entity.BroadcastResult{
		TxHash:      signed.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		result.Status = entity.BroadcastMined
		result.Confirmed = true
	} else {
		result.Status = entity.BroadcastFailed
	}
	metrics.BroadcastsTotal.With(prometheus.Labels{"network": "evm", "status": result.Status}).Inc()
	return result, nil
}

// Close releases the RPC connection.
func (a *Account) Close() {
	a.client.Close()
}

// callMsg shapes the unsigned transfer into an estimation request.
func (a *Account) callMsg(tx *entity.UnsignedTransfer) (ethereum.CallMsg, error) {
	if tx == nil || tx.To == "" {
		return ethereum.CallMsg{}, entity.ErrInvalidAddress
	}
	to, amount, data := a.wireFields(tx)
	return ethereum.CallMsg{
		From:  a.address,
		To:    &to,
		Value: amount,
		Data:  data,
	}, nil
}

// wireFields resolves the on-wire destination, value and calldata: token
// transfers target the contract with zero value, native transfers target the
// recipient directly.
func (a *Account) wireFields(tx *entity.UnsignedTransfer) (common.Address, *big.Int, []byte) {
	if tx.TokenAddress != "" {
		return common.HexToAddress(tx.TokenAddress), big.NewInt(0), tx.Data
	}
	return common.HexToAddress(tx.To), tx.Value, nil
}

var _ port.Account = (*Account)(nil)
