// =============================
// File: internal/details/details.go
// =============================
package details

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/topbags/internal/bags"
	"github.com/rovshanmuradov/topbags/internal/birdeye"
	"github.com/rovshanmuradov/topbags/internal/earnings"
	"github.com/rovshanmuradov/topbags/internal/market"
	"github.com/rovshanmuradov/topbags/internal/types"
)

// Link is a labelled URL.
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// SocialLink is a typed link such as twitter or telegram.
type SocialLink struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// Creator is the public profile of the token launcher.
type Creator struct {
	Username   string  `json:"username"`
	Avatar     *string `json:"avatar"`
	Twitter    *string `json:"twitter"`
	ProfileURL string  `json:"profileUrl"`
	Bio        *string `json:"bio"`
}

// Trading merges DexScreener with Birdeye fallbacks. Nil means unknown.
type Trading struct {
	Price          *float64 `json:"price"`
	PriceChange24h *float64 `json:"priceChange24h"`
	Volume24h      *float64 `json:"volume24h"`
	LiquidityUSD   *float64 `json:"liquidityUsd"`
	MarketCap      *float64 `json:"marketCap"`
	FDV            *float64 `json:"fdv"`
	Holders        *int64   `json:"holders"`
	Buys24h        *int     `json:"buys24h"`
	Sells24h       *int     `json:"sells24h"`
	Txns24h        *int     `json:"txns24h"`
}

// Fees are lifetime creator fees.
type Fees struct {
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
	USD      float64 `json:"usd"`
}

// TokenDetails is the combined detail view of one token.
type TokenDetails struct {
	Mint           string       `json:"mint"`
	Name           string       `json:"name"`
	Symbol         string       `json:"symbol"`
	Description    *string      `json:"description"`
	Image          string       `json:"image"`
	BannerImage    string       `json:"bannerImage"`
	Creator        *Creator     `json:"creator"`
	Websites       []Link       `json:"websites"`
	Socials        []SocialLink `json:"socials"`
	Trading        Trading      `json:"trading"`
	Fees           Fees         `json:"fees"`
	SOLPrice       float64      `json:"solPrice"`
	DexScreenerURL string       `json:"dexscreenerUrl"`
	BirdeyeURL     string       `json:"birdeyeUrl"`
	BagsURL        string       `json:"bagsUrl"`
	Verified       bool         `json:"verified"`
	CreatedAt      *string      `json:"createdAt"`
	UpdatedAt      *string      `json:"updatedAt"`
}

// MetadataSource is the Bags analytics API.
type MetadataSource interface {
	TokenMetadata(ctx context.Context, mint string) (*bags.TokenMetadata, error)
	Socials(ctx context.Context, mint string) ([]bags.Social, error)
}

// PairSource returns the raw DexScreener pair.
type PairSource interface {
	FetchPair(ctx context.Context, mint string) (*market.PairInfo, error)
}

// MarketFallback supplies Birdeye market stats.
type MarketFallback interface {
	Market(ctx context.Context, mint string) (*birdeye.Market, error)
}

// FeeSource returns lifetime fees priced in USD.
type FeeSource interface {
	Fees(ctx context.Context, mint string) (*earnings.FeesResponse, error)
}

// Service assembles TokenDetails from every upstream.
type Service struct {
	meta    MetadataSource
	pairs   PairSource
	birdeye MarketFallback
	fees    FeeSource
	logger  *zap.Logger
}

// NewService creates the service. birdeye may be nil.
func NewService(meta MetadataSource, pairs PairSource, be MarketFallback, fees FeeSource, logger *zap.Logger) *Service {
	return &Service{
		meta:    meta,
		pairs:   pairs,
		birdeye: be,
		fees:    fees,
		logger:  logger.Named("details"),
	}
}

// Get fetches all parts in parallel. Only the fee lookup is required;
// every other part degrades to empty.
func (s *Service) Get(ctx context.Context, mint string) (*TokenDetails, error) {
	var (
		fees    *earnings.FeesResponse
		meta    *bags.TokenMetadata
		socials []bags.Social
		pair    *market.PairInfo
		be      *birdeye.Market
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := s.fees.Fees(gctx, mint)
		if err != nil {
			return fmt.Errorf("lifetime fees: %w", err)
		}
		fees = f
		return nil
	})
	g.Go(func() error {
		m, err := s.meta.TokenMetadata(gctx, mint)
		if err != nil {
			s.logger.Debug("Metadata unavailable", zap.String("mint", mint), zap.Error(err))
			return nil
		}
		meta = m
		return nil
	})
	g.Go(func() error {
		sc, err := s.meta.Socials(gctx, mint)
		if err != nil {
			s.logger.Debug("Socials unavailable", zap.String("mint", mint), zap.Error(err))
			return nil
		}
		socials = sc
		return nil
	})
	g.Go(func() error {
		p, err := s.pairs.FetchPair(gctx, mint)
		if err != nil {
			s.logger.Debug("Pair unavailable", zap.String("mint", mint), zap.Error(err))
			return nil
		}
		pair = p
		return nil
	})
	if s.birdeye != nil {
		g.Go(func() error {
			m, err := s.birdeye.Market(gctx, mint)
			if err != nil {
				return nil
			}
			be = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Token details failed", zap.String("mint", mint), zap.Error(err))
		return nil, err
	}

	d := &TokenDetails{
		Mint:        mint,
		Name:        types.UnknownName,
		Symbol:      "UNKNOWN",
		Image:       fmt.Sprintf("https://cdn.bags.fm/tokens/%s/icon", mint),
		BannerImage: fmt.Sprintf("https://cdn.bags.fm/tokens/%s/banner", mint),
		Websites:    []Link{},
		Socials:     []SocialLink{},
		Trading:     trading(pair, be),
		Fees: Fees{
			Lamports: fees.FeesLamports,
			SOL:      fees.FeesSOL,
			USD:      fees.FeesUSD,
		},
		SOLPrice:       fees.SOLPrice,
		DexScreenerURL: fmt.Sprintf("https://dexscreener.com/solana/%s", mint),
		BirdeyeURL:     fmt.Sprintf("https://birdeye.so/token/%s?chain=solana", mint),
		BagsURL:        fmt.Sprintf("https://bags.fm/token/%s", mint),
	}

	if pair != nil {
		d.Name = firstString(pair.BaseToken.Name, d.Name)
		d.Symbol = firstString(pair.BaseToken.Symbol, d.Symbol)
		if pair.PairAddress != "" {
			d.DexScreenerURL = fmt.Sprintf("https://dexscreener.com/solana/%s", pair.PairAddress)
		}
	}
	if meta != nil {
		applyMetadata(d, meta)
	}
	applySocials(d, socials)

	return d, nil
}

func applyMetadata(d *TokenDetails, m *bags.TokenMetadata) {
	d.Name = firstString(m.Name, d.Name)
	d.Symbol = firstString(m.Symbol, d.Symbol)
	d.Description = optString(m.Description)
	d.Image = firstString(m.Image, d.Image)
	d.BannerImage = firstString(m.Banner, d.BannerImage)
	d.Verified = m.Verified
	d.CreatedAt = optString(m.CreatedAt)
	d.UpdatedAt = optString(m.UpdatedAt)

	if m.Website != "" {
		d.Websites = append(d.Websites, Link{URL: m.Website, Label: "Official Website"})
	}

	if c := m.Creator; c != nil {
		handle := firstString(c.Wallet, c.Username)
		d.Creator = &Creator{
			Username:   firstString(c.Username, c.Wallet, types.UnknownName),
			Avatar:     optString(c.Avatar),
			Twitter:    optString(c.Twitter),
			ProfileURL: "https://bags.fm/profile/" + handle,
			Bio:        optString(c.Bio),
		}
	}
}

// applySocials splits links into websites and social profiles.
func applySocials(d *TokenDetails, socials []bags.Social) {
	for _, s := range socials {
		if s.URL == "" {
			continue
		}
		if s.Type == "website" {
			d.Websites = append(d.Websites, Link{URL: s.URL, Label: firstString(s.Label, "Website")})
			continue
		}
		d.Socials = append(d.Socials, SocialLink{
			Type:  firstString(s.Type, "social"),
			URL:   s.URL,
			Label: s.Label,
		})
	}
}

func trading(p *market.PairInfo, be *birdeye.Market) Trading {
	var t Trading
	if be == nil {
		be = &birdeye.Market{}
	}

	var dexPrice, dexVolume, dexLiquidity, dexMC *float64
	if p != nil {
		if p.PriceUSD != nil {
			if v, err := strconv.ParseFloat(*p.PriceUSD, 64); err == nil {
				dexPrice = &v
			}
		}
		if p.Volume != nil {
			v := p.Volume.H24
			dexVolume = &v
		}
		if p.PriceChange != nil {
			v := p.PriceChange.H24
			t.PriceChange24h = nonZero(&v)
		}
		if p.Liquidity != nil {
			dexLiquidity = p.Liquidity.USD
		}
		dexMC = p.MarketCap
		t.FDV = nonZero(p.FDV)
		if p.Txns != nil {
			buys, sells := p.Txns.H24.Buys, p.Txns.H24.Sells
			total := buys + sells
			t.Buys24h, t.Sells24h, t.Txns24h = nonZeroInt(buys), nonZeroInt(sells), nonZeroInt(total)
		}
	}

	t.Price = firstFloat(dexPrice, be.Price)
	t.Volume24h = firstFloat(dexVolume, be.Volume24h)
	t.LiquidityUSD = firstFloat(dexLiquidity, be.Liquidity)
	t.MarketCap = firstFloat(dexMC, be.MarketCap)
	if be.Holders != nil && *be.Holders != 0 {
		t.Holders = be.Holders
	}
	return t
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if p := nonZero(v); p != nil {
			return p
		}
	}
	return nil
}

func nonZero(v *float64) *float64 {
	if v == nil || *v == 0 {
		return nil
	}
	out := *v
	return &out
}

func nonZeroInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
