// internal/market/dexscreener.go

package market

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/types"
	"github.com/rovshanmuradov/topbags/internal/upstream"
)

const (
	DefaultBaseURL = "https://api.dexscreener.com/latest/dex"
	// DexScreener allows 300 requests per minute on the token endpoints.
	RateLimit = 300

	imageURLPattern = "https://dd.dexscreener.com/ds-data/tokens/solana/%s.png"
)

// DexScreenerResponse is the body of GET /tokens/{mint}.
type DexScreenerResponse struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairInfo `json:"pairs"`
}

// PairInfo is one trading pair. Every block except the base token is optional.
type PairInfo struct {
	ChainID     string          `json:"chainId"`
	DexID       string          `json:"dexId"`
	URL         string          `json:"url"`
	PairAddress string          `json:"pairAddress"`
	BaseToken   TokenInfo       `json:"baseToken"`
	QuoteToken  TokenInfo       `json:"quoteToken"`
	PriceNative string          `json:"priceNative"`
	PriceUSD    *string         `json:"priceUsd"`
	Txns        *types.Txns     `json:"txns"`
	Volume      *types.Windowed `json:"volume"`
	PriceChange *types.Windowed `json:"priceChange"`
	Liquidity   *LiquidityInfo  `json:"liquidity"`
	FDV         *float64        `json:"fdv"`
	MarketCap   *float64        `json:"marketCap"`
}

// TokenInfo names one side of a pair.
type TokenInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// LiquidityInfo is pool depth in USD and in each side's units.
type LiquidityInfo struct {
	USD   *float64 `json:"usd"`
	Base  *float64 `json:"base"`
	Quote *float64 `json:"quote"`
}

// Fetcher resolves market data for a mint from DexScreener.
type Fetcher struct {
	baseURL string
	client  *upstream.Client
	logger  *zap.Logger
}

// NewFetcher creates a market fetcher. An empty baseURL selects DefaultBaseURL.
func NewFetcher(baseURL string, client *upstream.Client, logger *zap.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.Named("market"),
	}
}

// Fetch returns normalized market data for mint.
// Every failure (transport, status, JSON, schema, no pairs) is reported as
// upstream.ErrNoData so the caller never has to classify it.
func (f *Fetcher) Fetch(ctx context.Context, mint string) (*types.MarketData, error) {
	pair, err := f.FetchPair(ctx, mint)
	if err != nil {
		return nil, upstream.ErrNoData
	}
	return Normalize(mint, pair), nil
}

// FetchPair returns the pair used for a mint, with the underlying error on failure.
func (f *Fetcher) FetchPair(ctx context.Context, mint string) (*PairInfo, error) {
	url := fmt.Sprintf("%s/tokens/%s", f.baseURL, mint)

	var response DexScreenerResponse
	if err := f.client.GetJSON(ctx, url, &response); err != nil {
		f.logger.Warn("Failed to fetch market data", zap.String("mint", mint), zap.Error(err))
		return nil, err
	}

	if len(response.Pairs) == 0 {
		f.logger.Debug("No pairs indexed for token", zap.String("mint", mint))
		return nil, upstream.ErrNoData
	}

	// Первая пара используется как прокси ликвидности, не самая ликвидная.
	pair := &response.Pairs[0]
	if err := validatePair(pair); err != nil {
		f.logger.Warn("Pair failed validation", zap.String("mint", mint), zap.Error(err))
		return nil, err
	}

	return pair, nil
}

func validatePair(p *PairInfo) error {
	if p.BaseToken.Address == "" {
		return fmt.Errorf("%w: pair %q has no base token address", upstream.ErrMalformed, p.PairAddress)
	}
	return nil
}

// Normalize maps a DexScreener pair to MarketData.
func Normalize(mint string, p *PairInfo) *types.MarketData {
	md := &types.MarketData{
		Name:         p.BaseToken.Name,
		Symbol:       p.BaseToken.Symbol,
		MarketCapUSD: marketCap(p),
		PriceUSD:     parsePrice(p.PriceUSD),
		ImageURL:     fmt.Sprintf(imageURLPattern, mint),
		PairAddress:  p.PairAddress,
		DexID:        p.DexID,
		PairURL:      p.URL,
		Volume:       p.Volume,
		PriceChange:  p.PriceChange,
		Txns:         p.Txns,
	}
	if p.Liquidity != nil && p.Liquidity.USD != nil {
		v := *p.Liquidity.USD
		md.LiquidityUSD = &v
	}
	return md
}

// marketCap prefers FDV over the reported market cap; zero counts as absent.
func marketCap(p *PairInfo) float64 {
	if p.FDV != nil && *p.FDV != 0 {
		return *p.FDV
	}
	if p.MarketCap != nil {
		return *p.MarketCap
	}
	return 0
}

func parsePrice(s *string) float64 {
	if s == nil {
		return 0
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return 0
	}
	return v
}
