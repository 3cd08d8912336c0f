// internal/earnings/source.go
package earnings

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/types"
	"github.com/rovshanmuradov/topbags/internal/upstream"
)

// Source resolves lifetime earnings for a mint.
// Implementations return upstream.ErrNoData when they have nothing usable.
type Source interface {
	Fetch(ctx context.Context, mint string) (*types.Earnings, error)
}

// RateProvider supplies the SOL/USD rate used to convert native amounts.
type RateProvider interface {
	ExchangeRate(ctx context.Context) float64
}

// Chain tries sources in order and returns the first one with data.
type Chain struct {
	sources []Source
	logger  *zap.Logger
}

// NewChain creates a chain over sources. Nil sources are skipped.
func NewChain(logger *zap.Logger, sources ...Source) *Chain {
	c := &Chain{logger: logger.Named("earnings_chain")}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Fetch implements Source.
func (c *Chain) Fetch(ctx context.Context, mint string) (*types.Earnings, error) {
	for i, s := range c.sources {
		e, err := s.Fetch(ctx, mint)
		if err == nil && e != nil {
			return e, nil
		}
		if ctx.Err() != nil {
			break
		}
		c.logger.Debug("Earnings source had no data",
			zap.String("mint", mint),
			zap.Int("source_index", i),
			zap.Error(err))
	}
	return nil, upstream.ErrNoData
}

// noData collapses any failure into ErrNoData while keeping context errors visible in logs.
func noData(err error) error {
	if err == nil || errors.Is(err, upstream.ErrNoData) {
		return upstream.ErrNoData
	}
	return errors.Join(upstream.ErrNoData, err)
}
