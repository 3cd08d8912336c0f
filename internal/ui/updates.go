package ui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/events"
)

// UpdateSender provides non-blocking UI update sending with statistics
type UpdateSender struct {
	msgChan        chan tea.Msg
	droppedUpdates uint64
	sentUpdates    uint64
	logger         *zap.Logger
	statsInterval  time.Duration
	stopStats      chan struct{}
	subs           []events.Subscription
}

// NewUpdateSender creates a sender with a queue of size messages.
func NewUpdateSender(size int, logger *zap.Logger) *UpdateSender {
	if size <= 0 {
		size = 64
	}
	us := &UpdateSender{
		msgChan:       make(chan tea.Msg, size),
		logger:        logger.Named("ui_updates"),
		statsInterval: 30 * time.Second,
		stopStats:     make(chan struct{}),
	}

	// Start periodic stats logging
	go us.logStats()

	return us
}

// Updates is the channel the UI listens on.
func (us *UpdateSender) Updates() <-chan tea.Msg {
	return us.msgChan
}

// SendUpdate sends a message to UI without blocking
func (us *UpdateSender) SendUpdate(msg tea.Msg) {
	select {
	case us.msgChan <- msg:
		atomic.AddUint64(&us.sentUpdates, 1)
	default:
		// A slow UI never blocks the poller
		atomic.AddUint64(&us.droppedUpdates, 1)
	}
}

// Attach subscribes to the bus and forwards leaderboard events as tea messages.
// latest supplies the stored snapshot when a SnapshotUpdated event arrives.
func (us *UpdateSender) Attach(bus *events.Bus, latest SnapshotSource) {
	us.subs = append(us.subs,
		bus.SubscribeFunc(events.AggregationStarted, func(_ context.Context, e events.Event) error {
			ev, _ := e.(events.AggregationStartedEvent)
			us.SendUpdate(RefreshStartedMsg{Manual: ev.Manual})
			return nil
		}),
		bus.SubscribeFunc(events.SnapshotUpdated, func(context.Context, events.Event) error {
			if snap, ok := latest.Latest(); ok {
				us.SendUpdate(SnapshotMsg{Snapshot: snap})
			}
			return nil
		}),
		bus.SubscribeFunc(events.AggregationFailed, func(_ context.Context, e events.Event) error {
			ev, _ := e.(events.AggregationFailedEvent)
			us.SendUpdate(RefreshFailedMsg{Err: ev.Error, Attempts: ev.Attempts})
			return nil
		}),
		bus.SubscribeFunc(events.SOLPriceUpdated, func(_ context.Context, e events.Event) error {
			ev, _ := e.(events.SOLPriceUpdatedEvent)
			us.SendUpdate(SOLPriceMsg{Price: ev.Price})
			return nil
		}),
	)
}

// GetStats returns current statistics
func (us *UpdateSender) GetStats() (sent, dropped uint64) {
	sent = atomic.LoadUint64(&us.sentUpdates)
	dropped = atomic.LoadUint64(&us.droppedUpdates)
	return sent, dropped
}

// logStats periodically logs statistics
func (us *UpdateSender) logStats() {
	ticker := time.NewTicker(us.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, dropped := us.GetStats()
			if dropped > 0 {
				us.logger.Warn("UI update statistics",
					zap.Uint64("sent", sent),
					zap.Uint64("dropped", dropped),
					zap.Float64("drop_rate", float64(dropped)/float64(sent+dropped)*100))
			}
		case <-us.stopStats:
			return
		}
	}
}

// Close unsubscribes from the bus and stops the stats loop.
func (us *UpdateSender) Close() {
	for _, sub := range us.subs {
		sub.Unsubscribe()
	}
	us.subs = nil
	close(us.stopStats)
}
