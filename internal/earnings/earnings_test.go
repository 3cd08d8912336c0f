package earnings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/bags"
	"github.com/rovshanmuradov/topbags/internal/metrics"
	"github.com/rovshanmuradov/topbags/internal/types"
	"github.com/rovshanmuradov/topbags/internal/upstream"
)

type fixedRate float64

func (r fixedRate) ExchangeRate(context.Context) float64 { return float64(r) }

type endpointStub struct {
	hits   atomic.Int32
	status int
	body   string
}

func (e *endpointStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.hits.Add(1)
		assert.Equal(t, claimStatsPath, r.URL.Path)
		assert.Equal(t, "MintA", r.URL.Query().Get("tokenMint"))
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		if e.status != 0 {
			w.WriteHeader(e.status)
		}
		_, _ = w.Write([]byte(e.body))
	}))
	t.Cleanup(s.Close)
	return s
}

func newClaimStats(t *testing.T, rate float64, stubs ...*endpointStub) *ClaimStatsSource {
	t.Helper()
	var eps []Endpoint
	for i, stub := range stubs {
		eps = append(eps, Endpoint{Name: string(rune('a' + i)), BaseURL: stub.server(t).URL})
	}
	client := upstream.NewClient("bags", zap.NewNop(), upstream.WithHeader("x-api-key", "key"))
	return NewClaimStatsSource(eps, client, fixedRate(rate), zap.NewNop())
}

func TestClaimStats_SkipsServerErrorThenUsesNext(t *testing.T) {
	first := &endpointStub{status: http.StatusServiceUnavailable, body: `{"error":"down"}`}
	second := &endpointStub{body: `{"totalClaimed":2,"totalClaimedUsd":400}`}

	e, err := newClaimStats(t, 150, first, second).Fetch(context.Background(), "MintA")
	require.NoError(t, err)

	assert.Equal(t, 400.0, e.TotalClaimedUSD)
	assert.Equal(t, 2.0, e.TotalClaimedSOL)
	assert.Equal(t, "claim-stats/b", e.Source)
	assert.EqualValues(t, 1, first.hits.Load())
	assert.EqualValues(t, 1, second.hits.Load())
}

func TestClaimStats_RecordsFetchOutcomes(t *testing.T) {
	down := (&endpointStub{status: http.StatusBadGateway, body: `{}`}).server(t)
	empty := (&endpointStub{body: `{"success":true}`}).server(t)
	ok := (&endpointStub{body: `{"totalClaimedUsd":10}`}).server(t)

	m := metrics.NewCollector()
	client := upstream.NewClient("bags", zap.NewNop(),
		upstream.WithHeader("x-api-key", "key"),
		upstream.WithMetrics(m))
	src := NewClaimStatsSource([]Endpoint{
		{Name: "down", BaseURL: down.URL},
		{Name: "empty", BaseURL: empty.URL},
		{Name: "ok", BaseURL: ok.URL},
	}, client, fixedRate(150), zap.NewNop())

	_, err := src.Fetch(context.Background(), "MintA")
	require.NoError(t, err)

	expected := `
# HELP topbags_upstream_fetch_total Upstream fetches by source and outcome.
# TYPE topbags_upstream_fetch_total counter
topbags_upstream_fetch_total{outcome="error",source="bags"} 1
topbags_upstream_fetch_total{outcome="no_data",source="bags"} 1
topbags_upstream_fetch_total{outcome="ok",source="bags"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "topbags_upstream_fetch_total"))
}

func TestClaimStats_SkipsNonJSON(t *testing.T) {
	first := &endpointStub{body: `<!doctype html><p>Cloudflare</p>`}
	second := &endpointStub{body: `{"totalClaimedUsd":12.5}`}

	e, err := newClaimStats(t, 150, first, second).Fetch(context.Background(), "MintA")
	require.NoError(t, err)
	assert.Equal(t, 12.5, e.TotalClaimedUSD)
}

func TestClaimStats_NestedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"data wrapper", `{"success":true,"data":{"totalClaimed":1,"totalClaimedUsd":99}}`},
		{"response wrapper", `{"success":true,"response":{"totalClaimed":1,"totalClaimedUsd":99}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := newClaimStats(t, 150, &endpointStub{body: tt.body}).Fetch(context.Background(), "MintA")
			require.NoError(t, err)
			assert.Equal(t, 99.0, e.TotalClaimedUSD)
			assert.Equal(t, 1.0, e.TotalClaimedSOL)
		})
	}
}

func TestClaimStats_ZeroStopsProbing(t *testing.T) {
	first := &endpointStub{body: `{"totalClaimed":0}`}
	second := &endpointStub{body: `{"totalClaimedUsd":1000}`}

	e, err := newClaimStats(t, 150, first, second).Fetch(context.Background(), "MintA")
	require.NoError(t, err)

	assert.Zero(t, e.TotalClaimedUSD)
	assert.EqualValues(t, 0, second.hits.Load(), "a numeric zero is a valid answer")
}

func TestClaimStats_ConvertsSOLWhenUSDMissing(t *testing.T) {
	stub := &endpointStub{body: `{"data":{"totalClaimed":3.5}}`}

	e, err := newClaimStats(t, 200, stub).Fetch(context.Background(), "MintA")
	require.NoError(t, err)

	assert.Equal(t, 700.0, e.TotalClaimedUSD)
	assert.Equal(t, 200.0, e.SOLPrice)
}

func TestClaimStats_ConvertsSOLWhenUSDZero(t *testing.T) {
	stub := &endpointStub{body: `{"totalClaimed":2,"totalClaimedUsd":0}`}

	e, err := newClaimStats(t, 100, stub).Fetch(context.Background(), "MintA")
	require.NoError(t, err)
	assert.Equal(t, 200.0, e.TotalClaimedUSD)
}

func TestClaimStats_ExhaustedIsNoData(t *testing.T) {
	stubs := []*endpointStub{
		{status: http.StatusInternalServerError},
		{status: http.StatusNotFound, body: `{"error":"not found"}`},
	}

	e, err := newClaimStats(t, 150, stubs...).Fetch(context.Background(), "MintA")
	assert.Nil(t, e)
	assert.ErrorIs(t, err, upstream.ErrNoData)
}

func TestClaimStats_NonNumericFieldsAreIgnored(t *testing.T) {
	stub := &endpointStub{body: `{"totalClaimed":"12","totalClaimedUsd":null}`}

	_, err := newClaimStats(t, 150, stub).Fetch(context.Background(), "MintA")
	assert.ErrorIs(t, err, upstream.ErrNoData)
}

func TestProxySource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token-fees/MintA", r.URL.Path)
		_, _ = w.Write([]byte(`{"feesLamports":1500000000,"feesSOL":1.5,"feesUSD":300,"solPrice":200}`))
	}))
	defer server.Close()

	src := NewProxySource(server.URL, upstream.NewClient("proxy", zap.NewNop()), zap.NewNop())
	e, err := src.Fetch(context.Background(), "MintA")
	require.NoError(t, err)

	assert.EqualValues(t, 1_500_000_000, e.FeesLamports)
	assert.Equal(t, 300.0, e.TotalClaimedUSD)
	assert.Equal(t, "proxy", e.Source)
}

func TestProxySource_ErrorIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid token mint address"}`))
	}))
	defer server.Close()

	src := NewProxySource(server.URL, upstream.NewClient("proxy", zap.NewNop()), zap.NewNop())
	_, err := src.Fetch(context.Background(), "bad")
	assert.ErrorIs(t, err, upstream.ErrNoData)
}

func TestLifetimeFeesSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"response":"4000000000"}`))
	}))
	defer server.Close()

	bc := bags.NewClient(server.URL, upstream.NewClient("bags", zap.NewNop()), zap.NewNop())
	src := NewLifetimeFeesSource(bc, fixedRate(150), zap.NewNop())

	e, err := src.Fetch(context.Background(), "MintA")
	require.NoError(t, err)
	assert.Equal(t, 4.0, e.TotalClaimedSOL)
	assert.Equal(t, 600.0, e.TotalClaimedUSD)
	assert.Equal(t, 150.0, e.SOLPrice)
}

type stubSource struct {
	calls atomic.Int32
	out   *types.Earnings
}

func (s *stubSource) Fetch(context.Context, string) (*types.Earnings, error) {
	s.calls.Add(1)
	if s.out == nil {
		return nil, upstream.ErrNoData
	}
	return s.out, nil
}

func TestChain(t *testing.T) {
	empty := &stubSource{}
	full := &stubSource{out: &types.Earnings{TotalClaimedUSD: 5, Source: "second"}}
	unused := &stubSource{out: &types.Earnings{TotalClaimedUSD: 9}}

	c := NewChain(zap.NewNop(), empty, nil, full, unused)
	e, err := c.Fetch(context.Background(), "MintA")
	require.NoError(t, err)

	assert.Equal(t, "second", e.Source)
	assert.EqualValues(t, 0, unused.calls.Load())
}

func TestChain_AllEmpty(t *testing.T) {
	c := NewChain(zap.NewNop(), &stubSource{}, &stubSource{})
	_, err := c.Fetch(context.Background(), "MintA")
	assert.ErrorIs(t, err, upstream.ErrNoData)
}
