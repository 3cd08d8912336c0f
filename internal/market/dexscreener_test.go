package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/upstream"
)

const twoPairs = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "solana",
      "dexId": "meteora",
      "url": "https://dexscreener.com/solana/pair1",
      "pairAddress": "pair1",
      "baseToken": {"address": "MintA", "name": "Alpha", "symbol": "ALP"},
      "quoteToken": {"address": "So11111111111111111111111111111111111111112", "name": "Wrapped SOL", "symbol": "SOL"},
      "priceNative": "0.0001",
      "priceUsd": "0.0213",
      "txns": {"h24": {"buys": 120, "sells": 80}},
      "volume": {"h24": 50000, "h1": 1200},
      "priceChange": {"h24": -4.5},
      "liquidity": {"usd": 88000.5},
      "fdv": 2100000,
      "marketCap": 1900000
    },
    {
      "chainId": "solana",
      "dexId": "raydium",
      "pairAddress": "pair2",
      "baseToken": {"address": "MintA", "name": "Alpha", "symbol": "ALP"},
      "liquidity": {"usd": 999999999},
      "fdv": 1
    }
  ]
}`

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := upstream.NewClient("dexscreener", zap.NewNop())
	return NewFetcher(server.URL, client, zap.NewNop())
}

func TestFetch_SelectsFirstPair(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/MintA", r.URL.Path)
		_, _ = w.Write([]byte(twoPairs))
	})

	md, err := f.Fetch(context.Background(), "MintA")
	require.NoError(t, err)

	assert.Equal(t, "Alpha", md.Name)
	assert.Equal(t, "ALP", md.Symbol)
	assert.Equal(t, 2100000.0, md.MarketCapUSD, "FDV is preferred over market cap")
	assert.InDelta(t, 0.0213, md.PriceUSD, 1e-9)
	assert.Equal(t, "pair1", md.PairAddress, "first pair wins even when a later one is more liquid")
	require.NotNil(t, md.LiquidityUSD)
	assert.Equal(t, 88000.5, *md.LiquidityUSD)
	require.NotNil(t, md.Txns)
	assert.Equal(t, 120, md.Txns.H24.Buys)
	require.NotNil(t, md.Volume)
	assert.Equal(t, 50000.0, md.Volume.H24)
	assert.True(t, strings.HasSuffix(md.ImageURL, "/MintA.png"))
}

func TestFetch_FallsBackToMarketCap(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":[{"baseToken":{"address":"M","name":"N","symbol":"S"},"marketCap":500,"priceUsd":"oops"}]}`))
	})

	md, err := f.Fetch(context.Background(), "M")
	require.NoError(t, err)
	assert.Equal(t, 500.0, md.MarketCapUSD)
	assert.Zero(t, md.PriceUSD, "unparseable price defaults to zero")
	assert.Nil(t, md.LiquidityUSD)
	assert.Nil(t, md.Volume)
}

func TestFetch_NoValuationDefaultsToZero(t *testing.T) {
	f := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":[{"baseToken":{"address":"M","name":"N","symbol":"S"}}]}`))
	})

	md, err := f.Fetch(context.Background(), "M")
	require.NoError(t, err)
	assert.Zero(t, md.MarketCapUSD)
	assert.Zero(t, md.PriceUSD)
}

func TestFetch_NoDataCases(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"empty pairs", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":[]}`))
		}},
		{"null pairs", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":null}`))
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"pairs":[`))
		}},
		{"schema mismatch", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"pairs":[{"pairAddress":"p","baseToken":{"name":"x"}}]}`))
		}},
		{"wrong type", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"pairs":"nope"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(t, tt.handler)
			md, err := f.Fetch(context.Background(), "MintX")
			assert.Nil(t, md)
			assert.ErrorIs(t, err, upstream.ErrNoData)
		})
	}
}

func TestFetch_NetworkErrorIsNoData(t *testing.T) {
	client := upstream.NewClient("dexscreener", zap.NewNop())
	f := NewFetcher("http://127.0.0.1:1", client, zap.NewNop())

	md, err := f.Fetch(context.Background(), "MintX")
	assert.Nil(t, md)
	assert.ErrorIs(t, err, upstream.ErrNoData)
}
