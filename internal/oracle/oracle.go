// =============================
// File: internal/oracle/oracle.go
// =============================
package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rovshanmuradov/topbags/internal/events"
	"github.com/rovshanmuradov/topbags/internal/metrics"
)

const (
	// DefaultTTL is how long a fetched rate is served without a new request.
	DefaultTTL = 60 * time.Second

	// FallbackSOLPrice is a placeholder served only when no rate was ever fetched.
	FallbackSOLPrice = 200.0
)

// ErrInvalidPrice is returned by sources that answered with a non-positive price.
var ErrInvalidPrice = errors.New("invalid price")

// PriceSource fetches the current SOL/USD price.
type PriceSource interface {
	SOLPrice(ctx context.Context) (float64, error)
}

// PriceSourceFunc adapts a function to PriceSource.
type PriceSourceFunc func(ctx context.Context) (float64, error)

// SOLPrice calls f(ctx).
func (f PriceSourceFunc) SOLPrice(ctx context.Context) (float64, error) {
	return f(ctx)
}

// Rate is a point-in-time view of the cache.
type Rate struct {
	Value     float64
	FetchedAt time.Time
	Fallback  bool
}

// Oracle caches the SOL/USD exchange rate.
// Concurrent callers that miss the cache share a single upstream request.
type Oracle struct {
	source   PriceSource
	ttl      time.Duration
	fallback float64
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *metrics.Collector
	bus      *events.Bus

	mu        sync.RWMutex
	value     float64
	fetchedAt time.Time

	group singleflight.Group
}

// Option configures Oracle.
type Option func(*Oracle)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock injects a clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(o *Oracle) {
		o.clock = c
	}
}

// WithFallback overrides FallbackSOLPrice.
func WithFallback(v float64) Option {
	return func(o *Oracle) {
		if v > 0 {
			o.fallback = v
		}
	}
}

// WithBus publishes SOLPriceUpdated after every successful fetch.
func WithBus(b *events.Bus) Option {
	return func(o *Oracle) {
		o.bus = b
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *Oracle) {
		o.metrics = m
	}
}

// New creates an oracle over source.
func New(source PriceSource, logger *zap.Logger, opts ...Option) *Oracle {
	o := &Oracle{
		source:   source,
		ttl:      DefaultTTL,
		fallback: FallbackSOLPrice,
		clock:    clock.New(),
		logger:   logger.Named("oracle"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExchangeRate returns a positive SOL/USD rate. It never fails:
// cached value within TTL, otherwise a fresh fetch, otherwise the stale value,
// otherwise the fallback constant.
func (o *Oracle) ExchangeRate(ctx context.Context) float64 {
	if v, ok := o.fresh(); ok {
		o.metrics.RecordCache("sol_rate", true)
		return v
	}
	o.metrics.RecordCache("sol_rate", false)

	v, err := o.load(ctx)
	if err != nil {
		return o.stale()
	}
	return v
}

// Refresh bypasses the TTL and fetches a new rate. On failure the cache is untouched.
func (o *Oracle) Refresh(ctx context.Context) (float64, error) {
	return o.fetch(ctx)
}

// Snapshot returns the cached rate without triggering a fetch.
func (o *Oracle) Snapshot() Rate {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.value <= 0 {
		return Rate{Value: o.fallback, Fallback: true}
	}
	return Rate{Value: o.value, FetchedAt: o.fetchedAt}
}

func (o *Oracle) load(ctx context.Context) (float64, error) {
	// Detached so one caller's cancellation does not fail every waiter;
	// the upstream client timeout still bounds the call.
	fetchCtx := context.WithoutCancel(ctx)

	v, err, shared := o.group.Do("sol_usd", func() (interface{}, error) {
		if v, ok := o.fresh(); ok {
			return v, nil
		}
		return o.fetch(fetchCtx)
	})
	if err != nil {
		return 0, err
	}
	if shared {
		o.logger.Debug("Shared in-flight SOL price fetch")
	}
	return v.(float64), nil
}

func (o *Oracle) fetch(ctx context.Context) (float64, error) {
	price, err := o.source.SOLPrice(ctx)
	if err == nil && price <= 0 {
		err = ErrInvalidPrice
	}
	if err != nil {
		o.logger.Warn("Failed to fetch SOL price", zap.Error(err))
		return 0, err
	}

	o.mu.Lock()
	o.value = price
	o.fetchedAt = o.clock.Now()
	o.mu.Unlock()

	o.metrics.SetSOLPrice(price)
	o.logger.Info("SOL price updated", zap.Float64("usd", price))
	_ = o.bus.Publish(events.SOLPriceUpdatedEvent{
		BaseEvent: events.NewBase(events.SOLPriceUpdated),
		Price:     price,
	})
	return price, nil
}

func (o *Oracle) fresh() (float64, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.value <= 0 {
		return 0, false
	}
	if o.clock.Now().Sub(o.fetchedAt) >= o.ttl {
		return 0, false
	}
	return o.value, true
}

func (o *Oracle) stale() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.value > 0 {
		return o.value
	}
	return o.fallback
}
