// internal/earnings/claimstats.go
package earnings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/bags"
	"github.com/rovshanmuradov/topbags/internal/metrics"
	"github.com/rovshanmuradov/topbags/internal/types"
	"github.com/rovshanmuradov/topbags/internal/upstream"
)

const claimStatsPath = "/token-launch/claim-stats"

// Endpoint is one candidate host for the claim-stats lookup.
type Endpoint struct {
	Name    string
	BaseURL string
}

// DefaultEndpoints are probed in this order.
var DefaultEndpoints = []Endpoint{
	{Name: "public-api-v2", BaseURL: bags.DefaultBaseURL},
	{Name: "api", BaseURL: bags.FallbackBaseURL},
}

// ClaimStatsSource reads claimed fee totals from the Bags claim-stats endpoint,
// probing each configured endpoint until one yields a numeric value.
type ClaimStatsSource struct {
	endpoints []Endpoint
	client    *upstream.Client
	rates     RateProvider
	logger    *zap.Logger
}

// NewClaimStatsSource creates the source. Empty endpoints select DefaultEndpoints.
func NewClaimStatsSource(endpoints []Endpoint, client *upstream.Client, rates RateProvider, logger *zap.Logger) *ClaimStatsSource {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &ClaimStatsSource{
		endpoints: endpoints,
		client:    client,
		rates:     rates,
		logger:    logger.Named("claim_stats"),
	}
}

// claimTotals holds the two fields we look for; nil means absent or non-numeric.
type claimTotals struct {
	sol *float64
	usd *float64
}

func (t claimTotals) found() bool {
	return t.sol != nil || t.usd != nil
}

// Fetch implements Source.
func (s *ClaimStatsSource) Fetch(ctx context.Context, mint string) (*types.Earnings, error) {
	for _, ep := range s.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, noData(err)
		}

		totals, err := s.probe(ctx, ep, mint)
		if err != nil {
			s.logger.Debug("Claim-stats endpoint skipped",
				zap.String("endpoint", ep.Name),
				zap.String("mint", mint),
				zap.Error(err))
			continue
		}

		return s.toEarnings(ctx, ep, totals), nil
	}

	s.logger.Debug("No claim-stats endpoint produced a value", zap.String("mint", mint))
	return nil, upstream.ErrNoData
}

// probe runs one strategy. Any error means "try the next endpoint".
func (s *ClaimStatsSource) probe(ctx context.Context, ep Endpoint, mint string) (totals claimTotals, err error) {
	u := fmt.Sprintf("%s%s?tokenMint=%s", strings.TrimRight(ep.BaseURL, "/"), claimStatsPath, url.QueryEscape(mint))

	started := time.Now()
	defer func() {
		switch {
		case err == nil:
			s.client.RecordFetch(metrics.OutcomeOK, started)
		case errors.Is(err, upstream.ErrNoData):
			s.client.RecordFetch(metrics.OutcomeNoData, started)
		default:
			s.client.RecordFetch(metrics.OutcomeError, started)
		}
	}()

	status, body, err := s.client.Get(ctx, u)
	if err != nil {
		return claimTotals{}, err
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("Claim-stats API error",
			zap.String("endpoint", ep.Name),
			zap.String("mint", mint),
			zap.Int("status", status))
		return claimTotals{}, &upstream.StatusError{Code: status}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Warn("Invalid claim-stats JSON",
			zap.String("mint", mint),
			zap.String("body", preview(body)))
		return claimTotals{}, fmt.Errorf("%w: %v", upstream.ErrMalformed, err)
	}

	totals = extractTotals(payload)
	if !totals.found() {
		return claimTotals{}, fmt.Errorf("%w: status %d without claim totals", upstream.ErrNoData, status)
	}
	return totals, nil
}

// extractTotals checks the flat fields first, then the wrapped ones.
func extractTotals(payload map[string]interface{}) claimTotals {
	t := claimTotals{
		sol: number(payload["totalClaimed"]),
		usd: number(payload["totalClaimedUsd"]),
	}
	for _, key := range []string{"data", "response"} {
		nested, ok := payload[key].(map[string]interface{})
		if !ok {
			continue
		}
		if t.sol == nil {
			t.sol = number(nested["totalClaimed"])
		}
		if t.usd == nil {
			t.usd = number(nested["totalClaimedUsd"])
		}
	}
	return t
}

func number(v interface{}) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

// toEarnings prefers the USD figure and converts SOL through the oracle otherwise.
func (s *ClaimStatsSource) toEarnings(ctx context.Context, ep Endpoint, t claimTotals) *types.Earnings {
	e := &types.Earnings{Source: "claim-stats/" + ep.Name}
	if t.sol != nil {
		e.TotalClaimedSOL = *t.sol
	}

	switch {
	case t.usd != nil && *t.usd > 0:
		e.TotalClaimedUSD = *t.usd
	case e.TotalClaimedSOL > 0 && s.rates != nil:
		e.SOLPrice = s.rates.ExchangeRate(ctx)
		e.TotalClaimedUSD = e.TotalClaimedSOL * e.SOLPrice
	}
	return e
}

func preview(body []byte) string {
	const n = 100
	if len(body) > n {
		return string(body[:n])
	}
	return string(body)
}
