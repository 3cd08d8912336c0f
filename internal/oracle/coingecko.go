package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rovshanmuradov/topbags/internal/upstream"
)

// DefaultCoinGeckoURL is the public CoinGecko API root.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGecko reads the SOL price from the simple/price endpoint.
type CoinGecko struct {
	baseURL string
	client  *upstream.Client
}

// NewCoinGecko creates a CoinGecko price source.
func NewCoinGecko(baseURL string, client *upstream.Client) *CoinGecko {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	return &CoinGecko{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type simplePriceResponse struct {
	Solana struct {
		USD float64 `json:"usd"`
	} `json:"solana"`
}

// SOLPrice implements PriceSource.
func (c *CoinGecko) SOLPrice(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/simple/price?ids=solana&vs_currencies=usd", c.baseURL)

	var resp simplePriceResponse
	if err := c.client.GetJSON(ctx, url, &resp); err != nil {
		return 0, fmt.Errorf("coingecko simple price: %w", err)
	}
	if resp.Solana.USD <= 0 {
		return 0, ErrInvalidPrice
	}
	return resp.Solana.USD, nil
}
