package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetTokenTransfersFlattensPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[
			{"transfers":[
				{"tx_hash":"0xa","from_address":"0x1","to_address":"0x2","delta":"2500000","block_height":100,"block_signed_at":"2026-08-01T10:00:00Z"},
				{"tx_hash":"0xb","from_address":"0x2","to_address":"0x1","delta":"1000000","block_height":101,"block_signed_at":"2026-08-02T10:00:00Z"}
			]},
			{"transfers":[
				{"tx_hash":"0xc","from_address":"0x3","to_address":"0x1","delta":"500000","block_height":102,"block_signed_at":"2026-08-03T10:00:00Z"}
			]}
		]}}`))
	}))
	t.Cleanup(server.Close)

	client := NewHistoryClient(server.URL, "test-key", 2*time.Second, 100, 10, zap.NewNop())
	records, err := client.GetTokenTransfers(context.Background(), "1", "0x1", "0xusdt", 6, 15)
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, "0xa", records[0].Hash)
	assert.Equal(t, 2.5, records[0].Value)
	assert.Equal(t, uint64(100), records[0].BlockNumber)
	assert.Equal(t, "0xc", records[2].Hash)
}

func TestGetTokenTransfersRespectsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"items":[{"transfers":[
			{"tx_hash":"0xa","delta":"1"},
			{"tx_hash":"0xb","delta":"2"},
			{"tx_hash":"0xc","delta":"3"}
		]}]}}`))
	}))
	t.Cleanup(server.Close)

	client := NewHistoryClient(server.URL, "test-key", 2*time.Second, 100, 10, zap.NewNop())
	records, err := client.GetTokenTransfers(context.Background(), "1", "0x1", "", 18, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestGetTokenTransfersProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":true}`))
	}))
	t.Cleanup(server.Close)

	client := NewHistoryClient(server.URL, "test-key", 2*time.Second, 100, 10, zap.NewNop())
	_, err := client.GetTokenTransfers(context.Background(), "1", "0x1", "", 18, 15)
	assert.Error(t, err)
}

func TestGetPriceUSDCachesResult(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "ETH", r.URL.Query().Get("base"))
		w.Write([]byte(`{"price":2500.5}`))
	}))
	t.Cleanup(server.Close)

	client := NewPriceClient(server.URL, 2*time.Second, 100, 10, time.Minute, zap.NewNop())

	price, ok := client.GetPriceUSD(context.Background(), "ETH")
	require.True(t, ok)
	assert.Equal(t, 2500.5, price)

	price, ok = client.GetPriceUSD(context.Background(), "ETH")
	require.True(t, ok)
	assert.Equal(t, 2500.5, price)
	assert.Equal(t, 1, calls)
}

func TestGetPriceUSDFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewPriceClient(server.URL, 2*time.Second, 100, 10, time.Minute, zap.NewNop())
	price, ok := client.GetPriceUSD(context.Background(), "TRX")
	assert.False(t, ok)
	assert.Zero(t, price)
}
