package evm

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mybucks/internal/domain/entity"
)

const testPrivKeyHex = "71743de900c63ed741263a2a4513c1b1829e80bd9f18d5d3a593e651b914cb3b"

type fakeBalances struct {
	rows []entity.TokenBalance
	err  error
}

func (f *fakeBalances) GetTokenBalances(ctx context.Context, chain, address string) ([]entity.TokenBalance, error) {
	return f.rows, f.err
}

type fakeHistory struct {
	records []entity.TransferRecord
	err     error
}

func (f *fakeHistory) GetTokenTransfers(ctx context.Context, chain, address, tokenAddress string, decimals uint8, limit int) ([]entity.TransferRecord, error) {
	return f.records, f.err
}

type fakePrices struct {
	price float64
	ok    bool
}

func (f *fakePrices) GetPriceUSD(ctx context.Context, symbol string) (float64, bool) {
	return f.price, f.ok
}

func testNetDef() entity.NetworkDefinition {
	return entity.NetworkDefinition{
		ChainID:          1,
		Name:             "ethereum",
		Label:            "Ethereum",
		NativeSymbol:     "ETH",
		NativeName:       "Ethereum",
		Decimals:         18,
		PrimaryRPCURL:    "http://127.0.0.1:1",
		BlockExplorerURL: "https://etherscan.io",
	}
}

func testAccount(t *testing.T, providers Providers) *Account {
	t.Helper()
	privKey, err := hex.DecodeString(testPrivKeyHex)
	require.NoError(t, err)
	account, err := New(privKey, testNetDef(), providers, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(account.Close)
	return account
}

func TestNewDerivesAddress(t *testing.T) {
	account := testAccount(t, Providers{})
	assert.Equal(t, "0x347CEB6Bf002Ee1819009bA07d8dCAA95Efe6465", account.Address())
	assert.Equal(t, entity.NetworkEVM, account.Network())
	assert.Equal(t, uint64(1), account.ChainID())
	assert.True(t, account.Activated())
}

func TestIsAddress(t *testing.T) {
	account := testAccount(t, Providers{})
	assert.True(t, account.IsAddress("0x347CEB6Bf002Ee1819009bA07d8dCAA95Efe6465"))
	assert.True(t, account.IsAddress("0x0000000000000000000000000000000000000000"))
	assert.False(t, account.IsAddress("TEkjnbpr2cTgRFgmrbv2Gb7GdgupZ5Sh3A"))
	assert.False(t, account.IsAddress("0x12345"))
	assert.False(t, account.IsAddress(""))
}

func TestExplorerLinks(t *testing.T) {
	account := testAccount(t, Providers{})
	assert.Equal(t, "https://etherscan.io/address/0xabc", account.LinkOfAddress("0xabc"))
	assert.Equal(t, "https://etherscan.io/address/0xabc#code", account.LinkOfContract("0xabc"))
	assert.Equal(t, "https://etherscan.io/tx/0xdef", account.LinkOfTransaction("0xdef"))
}

func TestPopulateTransferValidation(t *testing.T) {
	account := testAccount(t, Providers{})
	recipient := "0x650CF9fE3d45cf461C5287208A8a1e1737904dC4"

	_, err := account.PopulateTransfer(context.Background(), "", "not-an-address", big.NewInt(1))
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)

	_, err = account.PopulateTransfer(context.Background(), "", recipient, big.NewInt(0))
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	_, err = account.PopulateTransfer(context.Background(), "", recipient, big.NewInt(-5))
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	_, err = account.PopulateTransfer(context.Background(), "", recipient, nil)
	assert.ErrorIs(t, err, entity.ErrInvalidAmount)

	_, err = account.PopulateTransfer(context.Background(), "bad-token", recipient, big.NewInt(1))
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)
}

func TestPopulateNativeTransfer(t *testing.T) {
	account := testAccount(t, Providers{})
	recipient := "0x650CF9fE3d45cf461C5287208A8a1e1737904dC4"

	tx, err := account.PopulateTransfer(context.Background(), "", recipient, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, recipient, tx.To)
	assert.Equal(t, big.NewInt(1000), tx.Value)
	assert.Empty(t, tx.Data)
}

func TestPopulateTokenTransferCalldata(t *testing.T) {
	account := testAccount(t, Providers{})
	token := "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	recipient := "0x650CF9fE3d45cf461C5287208A8a1e1737904dC4"

	tx, err := account.PopulateTransfer(context.Background(), token, recipient, big.NewInt(1_000_000))
	require.NoError(t, err)
	require.Len(t, tx.Data, 4+32+32)

	// transfer(address,uint256) selector
	assert.Equal(t, "a9059cbb", hex.EncodeToString(tx.Data[:4]))
	assert.Equal(t, common.HexToAddress(recipient).Bytes(), tx.Data[4+12:4+32])
	assert.Equal(t, big.NewInt(1_000_000), new(big.Int).SetBytes(tx.Data[4+32:]))
}

// With the RPC endpoint unreachable, the native row is synthesized with a
// zero balance so the snapshot shape holds regardless of connectivity.
func TestQueryBalancesSynthesizesNativeRow(t *testing.T) {
	account := testAccount(t, Providers{
		Balances: &fakeBalances{rows: []entity.TokenBalance{
			{Address: "0xToken", Symbol: "USDT", Decimals: 6, Balance: 12.5, RawBalance: big.NewInt(12_500_000)},
		}},
		Prices: &fakePrices{price: 2500, ok: true},
	})

	rows, err := account.QueryBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Native)
	assert.Equal(t, "ETH", rows[0].Symbol)
	assert.Equal(t, 0.0, rows[0].Balance)
	assert.Equal(t, 2500.0, rows[0].Price)
	assert.Equal(t, "USDT", rows[1].Symbol)
}

func TestQueryBalancesKeepsProviderNativeRow(t *testing.T) {
	native := entity.TokenBalance{Symbol: "ETH", Native: true, Balance: 1.25, RawBalance: big.NewInt(0).SetUint64(1_250_000_000_000_000_000)}
	account := testAccount(t, Providers{
		Balances: &fakeBalances{rows: []entity.TokenBalance{native}},
		Prices:   &fakePrices{},
	})

	rows, err := account.QueryBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, native, rows[0])
}

func TestQueryBalancesProviderError(t *testing.T) {
	account := testAccount(t, Providers{
		Balances: &fakeBalances{err: errors.New("provider down")},
		Prices:   &fakePrices{},
	})
	_, err := account.QueryBalances(context.Background())
	assert.Error(t, err)
}

// History provider failures degrade to an empty list, never an error.
func TestQueryTokenHistoryProviderFailure(t *testing.T) {
	account := testAccount(t, Providers{
		History: &fakeHistory{err: errors.New("provider down")},
	})
	records, err := account.QueryTokenHistory(context.Background(), "0xToken", 6, 15)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQueryTokenHistoryPassesThrough(t *testing.T) {
	expected := []entity.TransferRecord{{Hash: "0xabc", Value: 1.5}}
	account := testAccount(t, Providers{
		History: &fakeHistory{records: expected},
	})
	records, err := account.QueryTokenHistory(context.Background(), "", 18, 15)
	require.NoError(t, err)
	assert.Equal(t, expected, records)
}

func TestGasMultiplier(t *testing.T) {
	assert.Equal(t, big.NewInt(100), entity.GasMultiplier(entity.GasOptionLow))
	assert.Equal(t, big.NewInt(150), entity.GasMultiplier(entity.GasOptionAverage))
	assert.Equal(t, big.NewInt(175), entity.GasMultiplier(entity.GasOptionHigh))
	assert.Equal(t, big.NewInt(100), entity.GasMultiplier(entity.GasOption("unknown")))
}
