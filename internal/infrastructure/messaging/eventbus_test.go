package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
	"github.com/learnledger/attendance-hub/pkg/logger"
)

type recordingHandler struct {
	mu     sync.Mutex
	name   string
	events []shared.Event
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, event shared.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

func testEvent(eventType shared.EventType) shared.Event {
	return shared.TenantSwitchedEvent{
		BaseEvent: shared.NewBaseEvent(eventType, "actor-1"),
	}
}

func TestPublish_DeliversToSubscribedHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(WithLogger(quietLogger()))

	matched := &recordingHandler{name: "matched"}
	other := &recordingHandler{name: "other"}
	bus.Subscribe(shared.EventTenantSwitched, matched)
	bus.Subscribe(shared.EventSessionRecorded, other)

	err := bus.Publish(context.Background(), testEvent(shared.EventTenantSwitched))
	require.NoError(t, err)

	assert.Equal(t, 1, matched.count())
	assert.Equal(t, 0, other.count())
}

func TestPublish_WildcardReceivesEverything(t *testing.T) {
	bus := NewInMemoryEventBus(WithLogger(quietLogger()))

	wildcard := &recordingHandler{name: "wildcard"}
	bus.SubscribeAll(wildcard)

	require.NoError(t, bus.Publish(context.Background(), testEvent(shared.EventTenantSwitched)))
	require.NoError(t, bus.Publish(context.Background(), testEvent(shared.EventSessionRecorded)))

	assert.Equal(t, 2, wildcard.count())
}

func TestPublish_NoHandlersIsNotAnError(t *testing.T) {
	bus := NewInMemoryEventBus(WithLogger(quietLogger()))
	assert.NoError(t, bus.Publish(context.Background(), testEvent(shared.EventEntityArchived)))
}

func TestPublish_SyncReturnsHandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(WithLogger(quietLogger()))

	boom := errors.New("boom")
	failing := &recordingHandler{name: "failing", err: boom}
	after := &recordingHandler{name: "after"}
	bus.Subscribe(shared.EventTenantSwitched, failing)
	bus.Subscribe(shared.EventTenantSwitched, after)

	err := bus.Publish(context.Background(), testEvent(shared.EventTenantSwitched))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")

	// Sync dispatch stops at the first failure.
	assert.Equal(t, 0, after.count())
}

func TestPublish_AsyncDoesNotPropagateErrors(t *testing.T) {
	bus := NewInMemoryEventBus(WithLogger(quietLogger()), WithAsyncMode(2))

	failing := &recordingHandler{name: "failing", err: errors.New("boom")}
	bus.Subscribe(shared.EventTenantSwitched, failing)

	require.NoError(t, bus.Publish(context.Background(), testEvent(shared.EventTenantSwitched)))
	require.NoError(t, bus.Close())

	assert.Equal(t, 1, failing.count())
}

func TestClose_WaitsForInFlightHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(WithLogger(quietLogger()), WithAsyncMode(4))

	slow := &slowHandler{done: make(chan struct{})}
	bus.Subscribe(shared.EventTenantSwitched, slow)

	require.NoError(t, bus.Publish(context.Background(), testEvent(shared.EventTenantSwitched)))
	require.NoError(t, bus.Close())

	select {
	case <-slow.done:
	default:
		t.Fatal("Close returned before the handler finished")
	}
}

func TestClose_DrainsEventsQueuedBehindTheWorkerPool(t *testing.T) {
	// One worker and several published events: most dispatches are still
	// waiting for a slot when Close fires. Every accepted event must be
	// handled before Close returns.
	bus := NewInMemoryEventBus(WithLogger(quietLogger()), WithAsyncMode(1))

	handler := &recordingHandler{name: "drain"}
	bus.Subscribe(shared.EventTenantSwitched, handler)

	const published = 8
	for i := 0; i < published; i++ {
		require.NoError(t, bus.Publish(context.Background(), testEvent(shared.EventTenantSwitched)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, published, handler.count())
}

type slowHandler struct {
	done chan struct{}
}

func (h *slowHandler) Handle(context.Context, shared.Event) error {
	time.Sleep(20 * time.Millisecond)
	close(h.done)
	return nil
}

func (h *slowHandler) Name() string { return "slow" }

func TestPublish_AfterCloseFails(t *testing.T) {
	bus := NewInMemoryEventBus(WithLogger(quietLogger()))
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), testEvent(shared.EventTenantSwitched))
	assert.Error(t, err)
}
