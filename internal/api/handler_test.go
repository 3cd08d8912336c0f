package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/details"
	"github.com/rovshanmuradov/topbags/internal/earnings"
	"github.com/rovshanmuradov/topbags/internal/metrics"
	"github.com/rovshanmuradov/topbags/internal/state"
	"github.com/rovshanmuradov/topbags/internal/types"
)

const wsol = "So11111111111111111111111111111111111111112"

type stubFees struct {
	calls int
	err   error
}

func (s *stubFees) Fees(context.Context, string) (*earnings.FeesResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &earnings.FeesResponse{FeesLamports: 3_000_000_000, FeesSOL: 3, FeesUSD: 600, SOLPrice: 200}, nil
}

type stubDetails struct{ err error }

func (s stubDetails) Get(_ context.Context, mint string) (*details.TokenDetails, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &details.TokenDetails{Mint: mint, Name: "Wrapped SOL"}, nil
}

type stubTokens struct {
	tokens []string
	err    error
}

func (s stubTokens) Tokens(context.Context) ([]string, error) { return s.tokens, s.err }

type fixture struct {
	fees   *stubFees
	store  *state.Store
	router *gin.Engine
}

func newFixture(t *testing.T, d Deps) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{fees: &stubFees{}, store: state.NewStore(zap.NewNop())}
	if d.Fees == nil {
		d.Fees = f.fees
	}
	if d.Details == nil {
		d.Details = stubDetails{}
	}
	if d.Tokens == nil {
		d.Tokens = stubTokens{tokens: []string{"A", "B"}}
	}
	d.Store = f.store
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}
	f.router = NewRouter(NewHandler(d, zap.NewNop()), nil)
	return f
}

func (f *fixture) get(t *testing.T, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.router.ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestTokenFees(t *testing.T) {
	f := newFixture(t, Deps{})

	w, body := f.get(t, "/api/token-fees/"+wsol)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3_000_000_000, body["feesLamports"])
	assert.EqualValues(t, 600, body["feesUSD"])
	assert.EqualValues(t, 200, body["solPrice"])

	w, _ = f.get(t, "/api/token-fees/"+wsol)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.fees.calls, "second call is served from cache")
}

func TestTokenFees_InvalidMint(t *testing.T) {
	f := newFixture(t, Deps{})

	for _, mint := range []string{"not-a-key", "0OIl", "abc"} {
		w, body := f.get(t, "/api/token-fees/"+mint)
		assert.Equal(t, http.StatusBadRequest, w.Code, mint)
		assert.Equal(t, "Invalid token mint address", body["error"])
	}
	assert.Zero(t, f.fees.calls)
}

func TestTokenFees_UpstreamFailure(t *testing.T) {
	f := newFixture(t, Deps{Fees: &stubFees{err: errors.New("sdk not initialized")}})

	w, body := f.get(t, "/api/token-fees/"+wsol)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to fetch token fees", body["error"])
}

func TestTokenDetails(t *testing.T) {
	f := newFixture(t, Deps{})

	w, body := f.get(t, "/api/token-details/"+wsol)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Wrapped SOL", data["name"])
}

func TestTokenDetails_FailureIsStill200(t *testing.T) {
	f := newFixture(t, Deps{Details: stubDetails{err: errors.New("upstream exploded: secret")}})

	w, body := f.get(t, "/api/token-details/"+wsol)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to fetch token details", body["error"])
	assert.NotContains(t, w.Body.String(), "secret")

	w, body = f.get(t, "/api/token-details/bogus")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestAllTokens(t *testing.T) {
	f := newFixture(t, Deps{})
	w, body := f.get(t, "/api/all-tokens")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"A", "B"}, body["tokens"])

	f = newFixture(t, Deps{Tokens: stubTokens{err: errors.New("down")}})
	w, _ = f.get(t, "/api/all-tokens")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t, Deps{})

	w, _ := f.get(t, "/api/leaderboard")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.store.Set(types.Snapshot{
		RunID:     "run-1",
		Requested: 5,
		UpdatedAt: time.Now(),
		Records: []types.TokenRecord{
			{Mint: "A", MarketCapUSD: 10, TotalEarningsUSD: 40, Loaded: true},
			{Mint: "B", MarketCapUSD: 20, TotalEarningsUSD: 30, Loaded: true},
			{Mint: "C", MarketCapUSD: 30, TotalEarningsUSD: 20, Loaded: true},
			{Mint: "D", MarketCapUSD: 40, TotalEarningsUSD: 10, Loaded: true},
		},
	})

	w, body := f.get(t, "/api/leaderboard?metric=earnings")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "earnings", body["metric"])
	assert.Equal(t, "run-1", body["runId"])
	assert.EqualValues(t, 4, body["total"])

	podium := body["podium"].([]interface{})
	require.Len(t, podium, 3)
	first := podium[0].(map[string]interface{})
	assert.EqualValues(t, 1, first["rank"])
	assert.Equal(t, "A", first["token"].(map[string]interface{})["mint"])
	assert.Len(t, body["list"], 1)

	w, _ = f.get(t, "/api/leaderboard?metric=volume")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, Deps{})

	w, body := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["snapshot"])

	f.get(t, "/api/token-fees/"+wsol)
	w, _ = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `topbags_cache_lookups_total`)
}
