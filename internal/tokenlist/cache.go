// internal/tokenlist/cache.go
package tokenlist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/metrics"
)

// DefaultTTL is how long a fetched token list is served without refetching.
const DefaultTTL = time.Hour

// ErrUnavailable is returned when the list cannot be fetched and nothing is cached.
var ErrUnavailable = errors.New("token list unavailable")

// Loader fetches the full token list.
type Loader interface {
	TokenMints(ctx context.Context) ([]string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]string, error)

// TokenMints calls f(ctx).
func (f LoaderFunc) TokenMints(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// Cache serves the remote token list with a TTL and falls back to the
// last good list when a refresh fails.
type Cache struct {
	loader  Loader
	ttl     time.Duration
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Collector

	mu        sync.Mutex
	tokens    []string
	fetchedAt time.Time
}

// Option configures Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects a clock, used by tests.
func WithClock(clk clock.Clock) Option {
	return func(c *Cache) {
		c.clock = clk
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a token list cache.
func New(loader Loader, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		loader: loader,
		ttl:    DefaultTTL,
		clock:  clock.New(),
		logger: logger.Named("tokenlist"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the cached list while fresh, refetches otherwise and
// serves the stale list if the refetch fails.
func (c *Cache) Tokens(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.tokens != nil && now.Sub(c.fetchedAt) < c.ttl {
		c.metrics.RecordCache("tokenlist", true)
		return c.copyTokens(), nil
	}
	c.metrics.RecordCache("tokenlist", false)

	tokens, err := c.loader.TokenMints(ctx)
	if err == nil && len(tokens) == 0 {
		err = errors.New("empty token list")
	}
	if err != nil {
		if c.tokens != nil {
			c.logger.Warn("Token list refresh failed, serving stale list",
				zap.Duration("age", now.Sub(c.fetchedAt)),
				zap.Error(err))
			return c.copyTokens(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.tokens = tokens
	c.fetchedAt = now
	c.logger.Info("Token list refreshed", zap.Int("tokens", len(tokens)))
	return c.copyTokens(), nil
}

// Invalidate forces the next call to refetch. The stale list stays available.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) copyTokens() []string {
	out := make([]string, len(c.tokens))
	copy(out, c.tokens)
	return out
}
