// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Aggregation lifecycle
	AggregationStarted EventType = "aggregation.started"
	SnapshotUpdated    EventType = "snapshot.updated"
	AggregationFailed  EventType = "aggregation.failed"

	// Oracle
	SOLPriceUpdated EventType = "sol_price.updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// AggregationStartedEvent is emitted before a batch run.
type AggregationStartedEvent struct {
	BaseEvent
	Manual bool
}

// SnapshotUpdatedEvent is emitted when a new leaderboard snapshot is stored.
type SnapshotUpdatedEvent struct {
	BaseEvent
	RunID     string
	Requested int
	Loaded    int
	Duration  time.Duration
}

// AggregationFailedEvent is emitted when a batch run gives up after retries.
type AggregationFailedEvent struct {
	BaseEvent
	RunID    string
	Attempts int
	Error    error
}

// SOLPriceUpdatedEvent is emitted when the oracle refreshes its price.
type SOLPriceUpdatedEvent struct {
	BaseEvent
	Price float64
}
