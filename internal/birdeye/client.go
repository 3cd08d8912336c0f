// internal/birdeye/client.go
package birdeye

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/topbags/internal/upstream"
)

// DefaultBaseURL is the public Birdeye API root.
const DefaultBaseURL = "https://public-api.birdeye.so/public"

// Market is the subset of Birdeye data used as a fallback for DexScreener.
// Nil fields were not returned.
type Market struct {
	Price     *float64
	Holders   *int64
	MarketCap *float64
	Volume24h *float64
	Liquidity *float64
}

// Client talks to Birdeye. It is disabled when no API key is configured.
type Client struct {
	baseURL string
	apiKey  string
	client  *upstream.Client
	logger  *zap.Logger
}

// NewClient creates a client. The upstream client must send apiKey as X-API-KEY.
func NewClient(baseURL, apiKey string, client *upstream.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		logger:  logger.Named("birdeye"),
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Market fetches price, holders and market stats concurrently. Each part
// is optional; the call fails only when the client is disabled.
func (c *Client) Market(ctx context.Context, mint string) (*Market, error) {
	if !c.Enabled() {
		return nil, upstream.ErrNoData
	}

	var (
		m      Market
		g      errgroup.Group
		escape = url.QueryEscape(mint)
	)

	g.Go(func() error {
		var resp struct {
			Data struct {
				Value *float64 `json:"value"`
			} `json:"data"`
		}
		if c.get(ctx, "/price?address="+escape, &resp) {
			m.Price = resp.Data.Value
		}
		return nil
	})
	g.Go(func() error {
		var resp struct {
			Data struct {
				HolderNumber *int64 `json:"holderNumber"`
			} `json:"data"`
		}
		if c.get(ctx, "/token/holder?address="+escape, &resp) {
			m.Holders = resp.Data.HolderNumber
		}
		return nil
	})
	g.Go(func() error {
		var resp struct {
			Data struct {
				MarketCap *float64 `json:"marketCap"`
				Volume24h *float64 `json:"volume24h"`
				Liquidity *float64 `json:"liquidity"`
			} `json:"data"`
		}
		if c.get(ctx, "/token/market?address="+escape, &resp) {
			m.MarketCap = resp.Data.MarketCap
			m.Volume24h = resp.Data.Volume24h
			m.Liquidity = resp.Data.Liquidity
		}
		return nil
	})
	_ = g.Wait()

	return &m, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) bool {
	u := c.baseURL + path
	if err := c.client.GetJSON(ctx, u, out); err != nil {
		c.logger.Debug("Birdeye request failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}
