// internal/earnings/proxy.go
package earnings

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/bags"
	"github.com/rovshanmuradov/topbags/internal/types"
	"github.com/rovshanmuradov/topbags/internal/upstream"
)

// FeesResponse is the body of GET /api/token-fees/:mint.
type FeesResponse struct {
	FeesLamports uint64  `json:"feesLamports"`
	FeesSOL      float64 `json:"feesSOL"`
	FeesUSD      float64 `json:"feesUSD"`
	SOLPrice     float64 `json:"solPrice"`
}

// ProxySource reads earnings from a topbags backend.
type ProxySource struct {
	baseURL string
	client  *upstream.Client
	logger  *zap.Logger
}

// NewProxySource creates a source for the backend at baseURL.
func NewProxySource(baseURL string, client *upstream.Client, logger *zap.Logger) *ProxySource {
	return &ProxySource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.Named("proxy_fees"),
	}
}

// Fetch implements Source.
func (p *ProxySource) Fetch(ctx context.Context, mint string) (*types.Earnings, error) {
	u := fmt.Sprintf("%s/api/token-fees/%s", p.baseURL, url.PathEscape(mint))

	var resp FeesResponse
	if err := p.client.GetJSON(ctx, u, &resp); err != nil {
		p.logger.Debug("Proxy fee lookup failed", zap.String("mint", mint), zap.Error(err))
		return nil, noData(err)
	}

	return &types.Earnings{
		FeesLamports:    resp.FeesLamports,
		TotalClaimedSOL: resp.FeesSOL,
		TotalClaimedUSD: resp.FeesUSD,
		SOLPrice:        resp.SOLPrice,
		Source:          "proxy",
	}, nil
}

// LifetimeFeesSource asks the Bags API for lifetime fees in lamports and
// prices them with the oracle. It is what the backend proxy serves.
type LifetimeFeesSource struct {
	bags   *bags.Client
	rates  RateProvider
	logger *zap.Logger
}

// NewLifetimeFeesSource creates the source.
func NewLifetimeFeesSource(client *bags.Client, rates RateProvider, logger *zap.Logger) *LifetimeFeesSource {
	return &LifetimeFeesSource{
		bags:   client,
		rates:  rates,
		logger: logger.Named("lifetime_fees"),
	}
}

// Fees returns the raw lookup with its error, for callers that must surface failures.
func (s *LifetimeFeesSource) Fees(ctx context.Context, mint string) (*FeesResponse, error) {
	lamports, err := s.bags.LifetimeFees(ctx, mint)
	if err != nil {
		return nil, err
	}

	sol := bags.LamportsToSOL(lamports)
	price := s.rates.ExchangeRate(ctx)
	return &FeesResponse{
		FeesLamports: lamports,
		FeesSOL:      sol,
		FeesUSD:      sol * price,
		SOLPrice:     price,
	}, nil
}

// Fetch implements Source.
func (s *LifetimeFeesSource) Fetch(ctx context.Context, mint string) (*types.Earnings, error) {
	fees, err := s.Fees(ctx, mint)
	if err != nil {
		s.logger.Debug("Lifetime fee lookup failed", zap.String("mint", mint), zap.Error(err))
		return nil, noData(err)
	}

	return &types.Earnings{
		FeesLamports:    fees.FeesLamports,
		TotalClaimedSOL: fees.FeesSOL,
		TotalClaimedUSD: fees.FeesUSD,
		SOLPrice:        fees.SOLPrice,
		Source:          "lifetime-fees",
	}, nil
}
