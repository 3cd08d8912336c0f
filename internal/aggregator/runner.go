// =============================
// File: internal/aggregator/runner.go
// =============================
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/metrics"
	"github.com/rovshanmuradov/topbags/internal/types"
)

// Defaults for the batch retry policy.
const (
	DefaultRetries         = 3
	DefaultInitialInterval = time.Second
	DefaultMaxInterval     = 30 * time.Second
)

// RetryPolicy bounds retries of a whole aggregation batch.
type RetryPolicy struct {
	MaxTries        int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy waits 1s, 2s, 4s ... capped at 30s, three tries in total.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        DefaultRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Runner resolves the token list and runs aggregation batches with retries.
type Runner struct {
	agg     *Aggregator
	tokens  TokenSource
	policy  RetryPolicy
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewRunner creates a runner.
func NewRunner(agg *Aggregator, tokens TokenSource, policy RetryPolicy, logger *zap.Logger) *Runner {
	if policy.MaxTries <= 0 {
		policy.MaxTries = DefaultRetries
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultInitialInterval
	}
	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = DefaultMaxInterval
	}
	return &Runner{
		agg:     agg,
		tokens:  tokens,
		policy:  policy,
		logger:  logger.Named("runner"),
		metrics: agg.metrics,
		now:     time.Now,
	}
}

// RunError is returned when every try of a batch failed.
type RunError struct {
	RunID    string
	Attempts int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("aggregation run %s failed after %d attempt(s): %v", e.RunID, e.Attempts, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Run produces a fresh snapshot. Per-token gaps never fail it; only a
// failing token source, an empty token list or cancellation do.
func (r *Runner) Run(ctx context.Context) (types.Snapshot, error) {
	runID := uuid.NewString()
	started := r.now()
	attempts := 0
	requested := 0

	log := r.logger.With(zap.String("run_id", runID))

	operation := func() ([]types.TokenRecord, error) {
		attempts++
		mints, err := r.tokens.Tokens(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve token list: %w", err)
		}
		mints = Dedupe(mints)
		if len(mints) == 0 {
			return nil, backoff.Permanent(ErrNoTokens)
		}
		requested = len(mints)

		records, err := r.agg.Aggregate(ctx, mints)
		if cerr := ctx.Err(); cerr != nil {
			return nil, backoff.Permanent(cerr)
		}
		return records, err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("Aggregation attempt failed, retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	records, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(r.policy.backOff()),
		backoff.WithMaxTries(uint(r.policy.MaxTries)),
		backoff.WithNotify(notify))

	elapsed := r.now().Sub(started)
	if err != nil {
		r.metrics.RecordAggregation(metrics.OutcomeError, elapsed, requested, 0)
		log.Error("Aggregation failed", zap.Int("attempts", attempts), zap.Error(err))
		return types.Snapshot{}, &RunError{RunID: runID, Attempts: attempts, Err: err}
	}

	r.metrics.RecordAggregation(metrics.OutcomeOK, elapsed, requested, len(records))
	log.Info("Aggregation run complete",
		zap.Int("requested", requested),
		zap.Int("loaded", len(records)),
		zap.Duration("duration", elapsed))

	return types.Snapshot{
		RunID:     runID,
		Records:   records,
		Requested: requested,
		UpdatedAt: r.now(),
		Duration:  elapsed,
	}, nil
}
