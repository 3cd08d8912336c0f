// =============================
// File: internal/aggregator/aggregator.go
// =============================
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/earnings"
	"github.com/rovshanmuradov/topbags/internal/metrics"
	"github.com/rovshanmuradov/topbags/internal/types"
)

// DefaultStagger spreads token start times to stay under upstream rate limits.
const DefaultStagger = 50 * time.Millisecond

// ErrNoTokens is returned when there is nothing to aggregate.
var ErrNoTokens = errors.New("no tokens to aggregate")

// MarketFetcher resolves market data for a mint.
type MarketFetcher interface {
	Fetch(ctx context.Context, mint string) (*types.MarketData, error)
}

// Aggregator merges market and earnings data per token.
type Aggregator struct {
	market   MarketFetcher
	earnings earnings.Source
	stagger  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// Option configures Aggregator.
type Option func(*Aggregator)

// WithStagger sets the per-position start delay. Zero disables staggering.
func WithStagger(d time.Duration) Option {
	return func(a *Aggregator) {
		if d >= 0 {
			a.stagger = d
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// New creates an aggregator.
func New(market MarketFetcher, earn earnings.Source, logger *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		market:   market,
		earnings: earn,
		stagger:  DefaultStagger,
		logger:   logger.Named("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns one record per distinct mint that has market data,
// in input order. Per-token failures never fail the batch.
func (a *Aggregator) Aggregate(ctx context.Context, mints []string) ([]types.TokenRecord, error) {
	all, err := a.Collect(ctx, mints)
	if err != nil {
		return nil, err
	}

	loaded := make([]types.TokenRecord, 0, len(all))
	for _, rec := range all {
		if rec.Loaded {
			loaded = append(loaded, rec)
		}
	}

	a.logger.Info("Aggregation finished",
		zap.Int("requested", len(all)),
		zap.Int("loaded", len(loaded)))
	return loaded, nil
}

// Collect returns exactly one record per distinct mint, loaded or not.
func (a *Aggregator) Collect(ctx context.Context, mints []string) ([]types.TokenRecord, error) {
	unique := Dedupe(mints)
	if len(unique) == 0 {
		return nil, ErrNoTokens
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tasks := make([]Task[types.TokenRecord], len(unique))
	for i, mint := range unique {
		mint := mint
		tasks[i] = func(ctx context.Context) (types.TokenRecord, error) {
			return a.FetchToken(ctx, mint), nil
		}
	}

	outcomes := SettleAll(ctx, a.stagger, tasks)
	// Прерванный батч неполон: незапущенные токены выглядели бы как "нет данных".
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]types.TokenRecord, len(unique))
	for i, o := range outcomes {
		if o.OK() {
			records[i] = o.Value
			continue
		}
		// Panicked: keep the slot, unloaded.
		a.logger.Debug("Token task did not complete",
			zap.String("mint", unique[i]),
			zap.Error(o.Err))
		records[i] = types.NewTokenRecord(unique[i], nil, nil)
	}
	return records, nil
}

// FetchToken runs both fetchers for mint concurrently and merges the results.
// A failing or panicking fetcher only leaves its half of the record empty.
func (a *Aggregator) FetchToken(ctx context.Context, mint string) types.TokenRecord {
	var (
		wg     sync.WaitGroup
		market *types.MarketData
		earn   *types.Earnings
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		md, err := guard(func() (*types.MarketData, error) { return a.market.Fetch(ctx, mint) })
		if err != nil {
			a.logger.Debug("No market data", zap.String("mint", mint), zap.Error(err))
			return
		}
		market = md
	}()
	go func() {
		defer wg.Done()
		e, err := guard(func() (*types.Earnings, error) { return a.earnings.Fetch(ctx, mint) })
		if err != nil {
			a.logger.Debug("No earnings data", zap.String("mint", mint), zap.Error(err))
			return
		}
		earn = e
	}()
	wg.Wait()

	return types.NewTokenRecord(mint, market, earn)
}

// guard turns a panic in fetch into an error.
func guard[T any](fetch func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panicked: %v", r)
		}
	}()
	return fetch()
}

// Dedupe drops empty and repeated mints, keeping first occurrences in order.
func Dedupe(mints []string) []string {
	seen := make(map[string]struct{}, len(mints))
	out := make([]string, 0, len(mints))
	for _, m := range mints {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
