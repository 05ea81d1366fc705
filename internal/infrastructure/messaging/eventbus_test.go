package messaging

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqyl-hub/aqyl-learning-hub/internal/domain/shared"
)

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(Config{AsyncMode: false})
}

func testEvent() shared.Event {
	return shared.NewWorldCompletedEvent(shared.SessionID(uuid.New().String()), 1, 80, 80, 10_000, 80)
}

func TestPublishToSubscribers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var got []shared.Event
	require.NoError(t, bus.Subscribe(shared.EventWorldCompleted, func(e shared.Event) error {
		got = append(got, e)
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventWorldUnlocked, func(e shared.Event) error {
		t.Fatal("wrong subscription invoked")
		return nil
	}))

	require.NoError(t, bus.Publish(testEvent()))
	assert.Len(t, got, 1)
	assert.Equal(t, shared.EventWorldCompleted, got[0].EventType())
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	count := 0
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		count++
		return nil
	}))

	id := shared.SessionID(uuid.New().String())
	require.NoError(t, bus.Publish(shared.NewWorldUnlockedEvent(id, 2)))
	require.NoError(t, bus.Publish(shared.NewAchievementUnlockedEvent(id, "first_world")))
	assert.Equal(t, 2, count)
}

func TestHandlerErrorDoesNotPropagate(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventWorldCompleted, func(e shared.Event) error {
		return errors.New("analytics backend down")
	}))

	assert.NoError(t, bus.Publish(testEvent()))

	snapshot := bus.Metrics()
	assert.Equal(t, int64(1), snapshot.Failed)
}

func TestAsyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(Config{AsyncMode: true, WorkerPoolSize: 4})

	var wg sync.WaitGroup
	wg.Add(10)
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		wg.Done()
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(testEvent()))
	}

	wg.Wait()
	require.NoError(t, bus.Close())

	snapshot := bus.Metrics()
	assert.Equal(t, int64(10), snapshot.Published[shared.EventWorldCompleted])
}

func TestClosedBusRefusesPublish(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(testEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventWorldCompleted, func(e shared.Event) error { return nil }), ErrEventBusClosed)

	// Closing twice is safe.
	assert.NoError(t, bus.Close())
}
