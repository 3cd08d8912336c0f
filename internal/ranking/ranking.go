// internal/ranking/ranking.go
package ranking

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rovshanmuradov/topbags/internal/types"
)

// PodiumSize is the number of top positions shown apart from the list.
const PodiumSize = 3

// Metric selects the field a leaderboard is ordered by.
type Metric string

const (
	MarketCap Metric = "marketCap"
	Earnings  Metric = "earnings"
)

// ParseMetric accepts the API spellings of a metric. Empty means MarketCap.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "marketcap", "market_cap", "mc":
		return MarketCap, nil
	case "earnings":
		return Earnings, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}

// Other returns the alternate metric.
func (m Metric) Other() Metric {
	if m == Earnings {
		return MarketCap
	}
	return Earnings
}

// Label is the human-readable metric name.
func (m Metric) Label() string {
	if m == Earnings {
		return "Earnings"
	}
	return "Market Cap"
}

// Value reads the metric from a record.
func (m Metric) Value(r types.TokenRecord) float64 {
	if m == Earnings {
		return r.TotalEarningsUSD
	}
	return r.MarketCapUSD
}

// Rank returns a copy of records sorted by metric, descending.
// Equal values keep their input order.
func Rank(records []types.TokenRecord, metric Metric) []types.TokenRecord {
	out := make([]types.TokenRecord, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		return metric.Value(out[i]) > metric.Value(out[j])
	})
	return out
}

// Split cuts a ranked list into the podium and the remainder by position.
func Split(ranked []types.TokenRecord) (podium, list []types.TokenRecord) {
	n := PodiumSize
	if len(ranked) < n {
		n = len(ranked)
	}
	return ranked[:n], ranked[n:]
}

// Entry is a ranked record with its 1-based position.
type Entry struct {
	Rank  int               `json:"rank"`
	Value float64           `json:"value"`
	Token types.TokenRecord `json:"token"`
}

// Board is a ranked view of one snapshot.
type Board struct {
	Metric    Metric    `json:"metric"`
	Podium    []Entry   `json:"podium"`
	List      []Entry   `json:"list"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewBoard ranks records by metric and splits them into podium and list.
func NewBoard(records []types.TokenRecord, metric Metric, updatedAt time.Time) Board {
	ranked := Rank(records, metric)
	podium, list := Split(ranked)

	return Board{
		Metric:    metric,
		Podium:    entries(podium, metric, 1),
		List:      entries(list, metric, len(podium)+1),
		Total:     len(ranked),
		UpdatedAt: updatedAt,
	}
}

// Entries returns podium and list as one ordered slice.
func (b Board) Entries() []Entry {
	out := make([]Entry, 0, len(b.Podium)+len(b.List))
	out = append(out, b.Podium...)
	return append(out, b.List...)
}

func entries(records []types.TokenRecord, metric Metric, first int) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = Entry{Rank: first + i, Value: metric.Value(r), Token: r}
	}
	return out
}
