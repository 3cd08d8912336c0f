package aggregator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/events"
	"github.com/rovshanmuradov/topbags/internal/state"
	"github.com/rovshanmuradov/topbags/internal/types"
)

// DefaultPollInterval is the full refresh cadence.
const DefaultPollInterval = 5 * time.Minute

// BatchRunner produces snapshots. *Runner implements it.
type BatchRunner interface {
	Run(ctx context.Context) (types.Snapshot, error)
}

// Poller re-runs aggregation on a fixed interval and publishes the results.
type Poller struct {
	runner   BatchRunner
	store    *state.Store
	bus      *events.Bus
	interval time.Duration
	logger   *zap.Logger

	trigger chan struct{}
	runMu   sync.Mutex
}

// NewPoller creates a poller. bus may be nil.
func NewPoller(runner BatchRunner, store *state.Store, bus *events.Bus, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		runner:   runner,
		store:    store,
		bus:      bus,
		interval: interval,
		logger:   logger.Named("poller"),
		trigger:  make(chan struct{}, 1),
	}
}

// Start runs one refresh immediately, then one per interval, until ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Poller started", zap.Duration("interval", p.interval))
	defer p.logger.Info("Poller stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	_ = p.refresh(ctx, false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.refresh(ctx, false)
		case <-p.trigger:
			_ = p.refresh(ctx, true)
			ticker.Reset(p.interval)
		}
	}
}

// Trigger asks a running poller for an out-of-band refresh. Repeated
// triggers before the refresh starts collapse into one.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// RefreshNow runs one batch synchronously and stores it on success.
// The previous snapshot stays in place when the batch fails.
func (p *Poller) RefreshNow(ctx context.Context) error {
	return p.refresh(ctx, true)
}

func (p *Poller) refresh(ctx context.Context, manual bool) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.publish(events.AggregationStartedEvent{
		BaseEvent: events.NewBase(events.AggregationStarted),
		Manual:    manual,
	})

	snap, err := p.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		ev := events.AggregationFailedEvent{
			BaseEvent: events.NewBase(events.AggregationFailed),
			Error:     err,
		}
		var runErr *RunError
		if errors.As(err, &runErr) {
			ev.RunID = runErr.RunID
			ev.Attempts = runErr.Attempts
		}
		p.publish(ev)
		return err
	}

	p.store.Set(snap)
	p.publish(events.SnapshotUpdatedEvent{
		BaseEvent: events.NewBase(events.SnapshotUpdated),
		RunID:     snap.RunID,
		Requested: snap.Requested,
		Loaded:    len(snap.Records),
		Duration:  snap.Duration,
	})
	return nil
}

func (p *Poller) publish(ev events.Event) {
	if err := p.bus.Publish(ev); err != nil {
		p.logger.Debug("Event not published", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}
