package tron

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mybucks/internal/domain/entity"
)

const (
	testPrivKeyHex = "71743de900c63ed741263a2a4513c1b1829e80bd9f18d5d3a593e651b914cb3b"
	testAddress    = "TEkjnbpr2cTgRFgmrbv2Gb7GdgupZ5Sh3A"
)

func TestAddressFromPrivateKey(t *testing.T) {
	key, err := crypto.HexToECDSA(testPrivKeyHex)
	require.NoError(t, err)

	raw := addressFromPubkey(&key.PublicKey)
	require.Len(t, raw, 21)
	assert.Equal(t, byte(addressPrefix), raw[0])
	assert.Equal(t, testAddress, encodeAddress(raw))
}

func TestAddressRoundTrip(t *testing.T) {
	raw, err := decodeAddress(testAddress)
	require.NoError(t, err)
	assert.Equal(t, testAddress, encodeAddress(raw))
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, isValidAddress(testAddress))
	assert.True(t, isValidAddress("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"))

	// last character changed, checksum no longer matches
	assert.False(t, isValidAddress("TEkjnbpr2cTgRFgmrbv2Gb7GdgupZ5Sh3B"))
	assert.False(t, isValidAddress("0x347CEB6Bf002Ee1819009bA07d8dCAA95Efe6465"))
	assert.False(t, isValidAddress("tooshort"))
	assert.False(t, isValidAddress(""))
}

func TestTransferParams(t *testing.T) {
	params := transferParams(testAddress, big.NewInt(1_000_000))
	require.Len(t, params, 128)

	raw, err := decodeAddress(testAddress)
	require.NoError(t, err)
	assert.Equal(t, addressParam(raw), params[:64])

	amount, ok := new(big.Int).SetString(params[64:], 16)
	require.True(t, ok)
	assert.Equal(t, big.NewInt(1_000_000), amount)
}

// fakeNode serves the subset of the full-node HTTP API the account uses.
type fakeNode struct {
	t         *testing.T
	responses map[string]any
	infoCalls int32
	infoAfter int32
	info      any
}

func (f *fakeNode) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/wallet/gettransactioninfobyid" {
			calls := atomic.AddInt32(&f.infoCalls, 1)
			if calls <= f.infoAfter {
				w.Write([]byte(`{}`))
				return
			}
			json.NewEncoder(w).Encode(f.info)
			return
		}
		resp, ok := f.responses[r.URL.Path]
		if !ok {
			f.t.Errorf("unexpected node call: %s", r.URL.Path)
			w.Write([]byte(`{}`))
			return
		}
		json.NewEncoder(w).Encode(resp)
	})
}

type fakePrices struct {
	price float64
}

func (f *fakePrices) GetPriceUSD(ctx context.Context, symbol string) (float64, bool) {
	return f.price, f.price != 0
}

func newTestAccount(t *testing.T, node *fakeNode) *Account {
	t.Helper()
	server := httptest.NewServer(node.handler())
	t.Cleanup(server.Close)

	privKey, err := hex.DecodeString(testPrivKeyHex)
	require.NoError(t, err)

	account, err := New(privKey, Settings{
		NodeURL:          server.URL,
		BlockExplorerURL: "https://tronscan.org/#",
		RequestTimeout:   2 * time.Second,
		Tokens: []entity.TronToken{
			{Address: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", Symbol: "USDT", Name: "Tether USD", Decimals: 6},
		},
		ReceiptPollAttempts: 5,
		ReceiptPollInterval: 10 * time.Millisecond,
	}, Providers{Prices: &fakePrices{}}, zap.NewNop())
	require.NoError(t, err)
	return account
}

func TestNewDerivesAddress(t *testing.T) {
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{}})
	assert.Equal(t, testAddress, account.Address())
	assert.Equal(t, entity.NetworkTron, account.Network())
	assert.False(t, account.Activated())
}

func TestExplorerLinks(t *testing.T) {
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{}})
	assert.Equal(t, "https://tronscan.org/#/address/"+testAddress, account.LinkOfAddress(testAddress))
	assert.Equal(t, "https://tronscan.org/#/contract/abc", account.LinkOfContract("abc"))
	assert.Equal(t, "https://tronscan.org/#/transaction/def", account.LinkOfTransaction("def"))
}

func TestGetNetworkStatusUnactivated(t *testing.T) {
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{
		"/wallet/getaccount": map[string]any{},
	}})

	require.NoError(t, account.GetNetworkStatus(context.Background()))
	status := account.Status()
	assert.False(t, status.Activated)
	assert.False(t, account.Activated())
}

func TestGetNetworkStatusActivated(t *testing.T) {
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{
		"/wallet/getaccount": map[string]any{"address": testAddress, "balance": 5_000_000},
		"/wallet/getaccountresource": map[string]any{
			"freeNetUsed": 100, "freeNetLimit": 600,
			"NetUsed": 0, "NetLimit": 1000,
			"EnergyUsed": 50, "EnergyLimit": 200,
		},
	}})

	require.NoError(t, account.GetNetworkStatus(context.Background()))
	status := account.Status()
	assert.True(t, status.Activated)
	assert.Equal(t, int64(500), status.FreeBandwidth)
	assert.Equal(t, int64(1000), status.StakedBandwidth)
	assert.Equal(t, int64(150), status.EnergyBalance)
}

// An account the chain has never seen still produces a balance snapshot: a
// zero native row, with zero token rows dropped.
func TestQueryBalancesUnactivated(t *testing.T) {
	zeroWord := make([]byte, 32)
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{
		"/wallet/getaccount": map[string]any{},
		"/wallet/triggerconstantcontract": map[string]any{
			"result":          map[string]any{"result": true},
			"constant_result": []string{hex.EncodeToString(zeroWord)},
		},
	}})

	rows, err := account.QueryBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Native)
	assert.Equal(t, "TRX", rows[0].Symbol)
	assert.Equal(t, 0.0, rows[0].Balance)
}

func TestQueryBalancesWithToken(t *testing.T) {
	var word [32]byte
	big.NewInt(12_500_000).FillBytes(word[:])
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{
		"/wallet/getaccount": map[string]any{"address": testAddress, "balance": 5_000_000},
		"/wallet/triggerconstantcontract": map[string]any{
			"result":          map[string]any{"result": true},
			"constant_result": []string{hex.EncodeToString(word[:])},
		},
	}})

	rows, err := account.QueryBalances(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 5.0, rows[0].Balance)
	assert.Equal(t, "USDT", rows[1].Symbol)
	assert.Equal(t, 12.5, rows[1].Balance)
}

func TestPopulateTransferRequiresActivation(t *testing.T) {
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{}})
	_, err := account.PopulateTransfer(context.Background(), "", testAddress, big.NewInt(1))
	assert.ErrorIs(t, err, entity.ErrNotActivated)
}

func activatedAccount(t *testing.T, node *fakeNode) *Account {
	t.Helper()
	if node.responses == nil {
		node.responses = map[string]any{}
	}
	node.responses["/wallet/getaccount"] = map[string]any{"address": testAddress, "balance": 100_000_000}
	node.responses["/wallet/getaccountresource"] = map[string]any{}
	account := newTestAccount(t, node)
	require.NoError(t, account.GetNetworkStatus(context.Background()))
	return account
}

func TestEstimateFeeBandwidthArithmetic(t *testing.T) {
	rawDataHex := "0a02b1b22208c9" // 7 bytes once decoded
	envelope, err := json.Marshal(txEnvelope{TxID: "deadbeef", RawDataHex: rawDataHex})
	require.NoError(t, err)

	account := activatedAccount(t, &fakeNode{t: t})

	estimate, err := account.EstimateFee(context.Background(), &entity.UnsignedTransfer{
		To:       testAddress,
		Value:    big.NewInt(1),
		Envelope: envelope,
	}, entity.GasOptionAverage)
	require.NoError(t, err)

	wantBandwidth := int64(7 + signatureLen + bandwidthOverhead)
	assert.Equal(t, wantBandwidth, estimate.Bandwidth)
	assert.Equal(t, int64(0), estimate.Energy)
	// no free or staked bandwidth in the snapshot, everything is charged
	assert.Equal(t, wantBandwidth*BandwidthPriceSun, estimate.SunCost)
}

func TestEstimateFeeTokenEnergy(t *testing.T) {
	envelope, err := json.Marshal(txEnvelope{TxID: "deadbeef", RawDataHex: "b1b2"})
	require.NoError(t, err)

	node := &fakeNode{t: t, responses: map[string]any{
		"/wallet/triggerconstantcontract": map[string]any{
			"result":      map[string]any{"result": true},
			"energy_used": 13100,
		},
	}}
	account := activatedAccount(t, node)

	estimate, err := account.EstimateFee(context.Background(), &entity.UnsignedTransfer{
		TokenAddress: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		To:           testAddress,
		Value:        big.NewInt(1_000_000),
		Envelope:     envelope,
	}, entity.GasOptionAverage)
	require.NoError(t, err)

	assert.Equal(t, int64(13100), estimate.Energy)
	wantBandwidth := int64(2 + signatureLen + bandwidthOverhead)
	assert.Equal(t, wantBandwidth*BandwidthPriceSun+13100*EnergyPriceSun, estimate.SunCost)
}

func TestExecuteConfirmed(t *testing.T) {
	envelope, err := json.Marshal(txEnvelope{TxID: "deadbeef", RawDataHex: "b1b2c3"})
	require.NoError(t, err)

	node := &fakeNode{
		t: t,
		responses: map[string]any{
			"/wallet/broadcasttransaction": map[string]any{"result": true},
		},
		infoAfter: 2,
		info: map[string]any{
			"id":          "deadbeef",
			"blockNumber": 7123456,
			"receipt":     map[string]any{"result": "SUCCESS"},
		},
	}
	account := activatedAccount(t, node)

	result, err := account.Execute(context.Background(), &entity.UnsignedTransfer{
		To:       testAddress,
		Value:    big.NewInt(1),
		Envelope: envelope,
	}, entity.GasOptionAverage)
	require.NoError(t, err)

	assert.Equal(t, entity.BroadcastConfirmed, result.Status)
	assert.True(t, result.Confirmed)
	assert.Equal(t, "deadbeef", result.TxHash)
	assert.Equal(t, uint64(7123456), result.BlockNumber)
	// the first polls saw no receipt yet
	assert.GreaterOrEqual(t, atomic.LoadInt32(&node.infoCalls), int32(3))
}

func TestExecuteTimeout(t *testing.T) {
	envelope, err := json.Marshal(txEnvelope{TxID: "deadbeef", RawDataHex: "b1b2c3"})
	require.NoError(t, err)

	node := &fakeNode{
		t: t,
		responses: map[string]any{
			"/wallet/broadcasttransaction": map[string]any{"result": true},
		},
		infoAfter: 1000, // never resolves inside the attempt budget
	}
	account := activatedAccount(t, node)

	result, err := account.Execute(context.Background(), &entity.UnsignedTransfer{
		To:       testAddress,
		Value:    big.NewInt(1),
		Envelope: envelope,
	}, entity.GasOptionAverage)
	require.NoError(t, err)

	assert.Equal(t, entity.BroadcastTimeout, result.Status)
	assert.False(t, result.Confirmed)
	assert.Equal(t, int32(5), atomic.LoadInt32(&node.infoCalls))
}

func TestExecuteBroadcastRejected(t *testing.T) {
	envelope, err := json.Marshal(txEnvelope{TxID: "deadbeef", RawDataHex: "b1b2c3"})
	require.NoError(t, err)

	node := &fakeNode{t: t, responses: map[string]any{
		"/wallet/broadcasttransaction": map[string]any{
			"result":  false,
			"code":    "BANDWITH_ERROR",
			"message": hex.EncodeToString([]byte("not enough bandwidth")),
		},
	}}
	account := activatedAccount(t, node)

	_, err = account.Execute(context.Background(), &entity.UnsignedTransfer{
		To:       testAddress,
		Value:    big.NewInt(1),
		Envelope: envelope,
	}, entity.GasOptionAverage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough bandwidth")
}

func TestSignAppendsRecoverableSignature(t *testing.T) {
	account := newTestAccount(t, &fakeNode{t: t, responses: map[string]any{}})

	envelope := &txEnvelope{TxID: "deadbeef", RawDataHex: "b1b2c3"}
	require.NoError(t, account.sign(envelope))
	require.Len(t, envelope.Signature, 1)

	sig, err := hex.DecodeString(envelope.Signature[0])
	require.NoError(t, err)
	assert.Len(t, sig, 65)
}
