package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_PublishDelivers(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)

	got := make(chan Event, 1)
	bus.SubscribeFunc(SnapshotUpdated, func(_ context.Context, e Event) error {
		got <- e
		return nil
	})

	require.NoError(t, bus.Publish(SnapshotUpdatedEvent{BaseEvent: NewBase(SnapshotUpdated), RunID: "r1", Loaded: 2}))

	select {
	case e := <-got:
		ev, ok := e.(SnapshotUpdatedEvent)
		require.True(t, ok)
		assert.Equal(t, "r1", ev.RunID)
		assert.Equal(t, 2, ev.Loaded)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	require.NoError(t, bus.Shutdown(context.Background()))
}

func TestBus_PublishSyncJoinsErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(AggregationFailed, func(context.Context, Event) error { return boom })
	bus.SubscribeFunc(AggregationFailed, func(context.Context, Event) error { return nil })

	err := bus.PublishSync(context.Background(), AggregationFailedEvent{BaseEvent: NewBase(AggregationFailed)})
	assert.ErrorIs(t, err, boom)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	defer bus.Shutdown(context.Background())

	calls := 0
	sub := bus.SubscribeFunc(SOLPriceUpdated, func(context.Context, Event) error {
		calls++
		return nil
	})
	assert.Equal(t, 1, bus.Stats().HandlersPerType[SOLPriceUpdated])

	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), SOLPriceUpdatedEvent{BaseEvent: NewBase(SOLPriceUpdated)}))

	assert.Zero(t, calls)
	assert.Zero(t, bus.Stats().HandlersPerType[SOLPriceUpdated])
}

func TestBus_ShutdownDrainsQueue(t *testing.T) {
	bus := NewBus(zap.NewNop(), 16)

	var (
		mu   sync.Mutex
		seen int
	)
	bus.SubscribeFunc(AggregationStarted, func(context.Context, Event) error {
		mu.Lock()
		seen++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(AggregationStartedEvent{BaseEvent: NewBase(AggregationStarted)}))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, seen)
	assert.ErrorIs(t, bus.Publish(AggregationStartedEvent{BaseEvent: NewBase(AggregationStarted)}), ErrBusClosed)
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	assert.NoError(t, bus.Publish(SnapshotUpdatedEvent{}))
}
