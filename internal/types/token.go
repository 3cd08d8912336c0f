// internal/types/token.go
package types

import "time"

// Placeholder identity used when the market source did not resolve a token.
const (
	UnknownName   = "Unknown"
	UnknownSymbol = "UNK"
)

// Windowed holds a value per DexScreener time window.
type Windowed struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// TxnCount is a buy/sell counter for one window.
type TxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// Txns holds transaction counters per window.
type Txns struct {
	M5  TxnCount `json:"m5"`
	H1  TxnCount `json:"h1"`
	H6  TxnCount `json:"h6"`
	H24 TxnCount `json:"h24"`
}

// MarketData is the normalized output of the market data fetcher.
// Optional blocks are nil when the pair did not expose them.
type MarketData struct {
	Name         string
	Symbol       string
	MarketCapUSD float64
	PriceUSD     float64
	ImageURL     string

	PairAddress  string
	DexID        string
	PairURL      string
	LiquidityUSD *float64
	Volume       *Windowed
	PriceChange  *Windowed
	Txns         *Txns
}

// Earnings is the normalized output of an earnings source.
type Earnings struct {
	FeesLamports    uint64
	TotalClaimedSOL float64
	TotalClaimedUSD float64
	SOLPrice        float64
	Source          string
}

// TokenRecord is the unit of aggregation: one per configured mint per run.
type TokenRecord struct {
	Mint             string  `json:"mint"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	MarketCapUSD     float64 `json:"marketCap"`
	PriceUSD         float64 `json:"priceUsd"`
	TotalEarningsUSD float64 `json:"totalEarnings"`
	TotalEarningsSOL float64 `json:"totalEarningsSol"`
	ImageURL         string  `json:"image,omitempty"`
	Loaded           bool    `json:"loaded"`

	PairAddress  string    `json:"pairAddress,omitempty"`
	DexID        string    `json:"dexId,omitempty"`
	PairURL      string    `json:"pairUrl,omitempty"`
	LiquidityUSD *float64  `json:"liquidityUsd,omitempty"`
	Volume       *Windowed `json:"volume,omitempty"`
	PriceChange  *Windowed `json:"priceChange,omitempty"`
	Txns         *Txns     `json:"txns,omitempty"`
}

// NewTokenRecord merges the two partial results for mint.
// A nil market means the market side produced no data; a nil earnings means
// the earnings side produced no data. Neither drops the record.
func NewTokenRecord(mint string, market *MarketData, earnings *Earnings) TokenRecord {
	rec := TokenRecord{
		Mint:   mint,
		Name:   UnknownName,
		Symbol: UnknownSymbol,
	}

	if market != nil {
		rec.Loaded = true
		if market.Name != "" {
			rec.Name = market.Name
		}
		if market.Symbol != "" {
			rec.Symbol = market.Symbol
		}
		rec.MarketCapUSD = market.MarketCapUSD
		rec.PriceUSD = market.PriceUSD
		rec.ImageURL = market.ImageURL
		rec.PairAddress = market.PairAddress
		rec.DexID = market.DexID
		rec.PairURL = market.PairURL
		rec.LiquidityUSD = market.LiquidityUSD
		rec.Volume = market.Volume
		rec.PriceChange = market.PriceChange
		rec.Txns = market.Txns
	}

	if earnings != nil {
		rec.TotalEarningsUSD = earnings.TotalClaimedUSD
		rec.TotalEarningsSOL = earnings.TotalClaimedSOL
	}

	return rec
}

// Snapshot is one complete aggregation result.
type Snapshot struct {
	RunID     string        `json:"runId"`
	Records   []TokenRecord `json:"records"`
	Requested int           `json:"requested"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Duration  time.Duration `json:"duration"`
}
