package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/progression-core/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var levelUps, xpGains int
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		levelUps++
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(shared.Event) error {
		xpGains++
		return nil
	}))

	student := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(student, 1, 2, "Novice")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(student, 2, 3, "Novice")))
	require.NoError(t, bus.Publish(shared.NewXPGainedEvent(student, "study_session", 50, 150)))

	assert.Equal(t, 2, levelUps)
	assert.Equal(t, 1, xpGains)
}

func TestInMemoryEventBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var seen []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		seen = append(seen, e.EventType())
		return nil
	}))

	student := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	require.NoError(t, bus.Publish(shared.NewStreakMilestoneEvent(student, 7, 7)))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent(student, 1, 2, "Novice")))

	assert.Equal(t, []shared.EventType{shared.EventStreakMilestone, shared.EventLevelUp}, seen)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var second bool
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		return errors.New("delivery failed")
	}))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		second = true
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("1b4e28ba-2fa1-11d2-883f-0016d3cca427", 1, 2, "Novice")))
	assert.True(t, second)
}

func TestInMemoryEventBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewLevelUpEvent("1b4e28ba-2fa1-11d2-883f-0016d3cca427", 1, 2, "Novice"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)

	// Close is idempotent.
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_NilInputs(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventLevelUp, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestInMemoryEventBus_AsyncModeDrainsOnClose(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	handled := 0
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(shared.Event) error {
		// Slow enough that most handlers are still queued behind the
		// two worker slots when Close fires.
		time.Sleep(time.Millisecond)
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	}))

	student := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.NewXPGainedEvent(student, "flashcard_review", 10, 10*(i+1))))
	}

	// Close waits for in-flight handlers.
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, handled)
}

func TestEventBusMetrics_Snapshot(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { return nil }))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error {
		return errors.New("boom")
	}))

	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("1b4e28ba-2fa1-11d2-883f-0016d3cca427", 1, 2, "Novice")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.InDelta(t, 0.5, snap.HandlerSuccessRate, 1e-9)
}
