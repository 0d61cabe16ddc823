// Package messaging provides the in-process event bus used to decouple
// command handlers from their side effects.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/learnledger/attendance-hub/internal/domain/shared"
	"github.com/learnledger/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers domain events to subscribed handlers inside the
// same process. It implements shared.EventBus.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler

	log *logger.Logger

	// asyncMode dispatches handlers on goroutines through a bounded
	// worker pool instead of inline.
	asyncMode  bool
	workerPool chan struct{}

	closed bool
	wg     sync.WaitGroup
}

// EventBusOption configures the bus.
type EventBusOption func(*InMemoryEventBus)

// WithAsyncMode enables asynchronous dispatch with the given number of
// concurrent workers.
func WithAsyncMode(workers int) EventBusOption {
	return func(b *InMemoryEventBus) {
		if workers <= 0 {
			workers = 4
		}
		b.asyncMode = true
		b.workerPool = make(chan struct{}, workers)
	}
}

// WithLogger sets the bus logger.
func WithLogger(log *logger.Logger) EventBusOption {
	return func(b *InMemoryEventBus) {
		b.log = log
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(opts ...EventBusOption) *InMemoryEventBus {
	bus := &InMemoryEventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		log:      logger.Default().With(logger.Component("eventbus")),
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.log.Debug("handler subscribed",
		logger.String("event_type", string(eventType)),
		logger.String("handler", handler.Name()),
	)
}

// SubscribeAll registers a handler that receives every published event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.allHandlers = append(b.allHandlers, handler)
	b.log.Debug("wildcard handler subscribed", logger.String("handler", handler.Name()))
}

// Publish delivers an event to all matching handlers. In sync mode the
// first handler error is returned; in async mode errors are logged and
// Publish returns immediately.
func (b *InMemoryEventBus) Publish(ctx context.Context, event shared.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("event bus is closed")
	}
	typed := b.handlers[event.EventType()]
	targets := make([]shared.EventHandler, 0, len(typed)+len(b.allHandlers))
	targets = append(targets, typed...)
	targets = append(targets, b.allHandlers...)
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.log.Debug("no handlers for event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	if b.asyncMode {
		b.dispatchAsync(event, targets)
		return nil
	}
	return b.dispatchSync(ctx, event, targets)
}

func (b *InMemoryEventBus) dispatchSync(ctx context.Context, event shared.Event, targets []shared.EventHandler) error {
	for _, handler := range targets {
		start := time.Now()
		if err := handler.Handle(ctx, event); err != nil {
			b.log.Error("event handler failed",
				logger.String("event_type", string(event.EventType())),
				logger.String("handler", handler.Name()),
				logger.Err(err),
			)
			return fmt.Errorf("handler %s: %w", handler.Name(), err)
		}
		b.log.Debug("event handled",
			logger.String("event_type", string(event.EventType())),
			logger.String("handler", handler.Name()),
			logger.Latency(time.Since(start)),
		)
	}
	return nil
}

func (b *InMemoryEventBus) dispatchAsync(event shared.Event, targets []shared.EventHandler) {
	for _, handler := range targets {
		b.wg.Add(1)
		go func(h shared.EventHandler) {
			defer b.wg.Done()

			// Wait for a worker slot unconditionally. An event accepted
			// by Publish must reach its handlers even if Close fires
			// while it queues; Close only stops new publishes.
			b.workerPool <- struct{}{}
			defer func() { <-b.workerPool }()

			// Detached from the publishing request: the command has
			// already committed by the time handlers run.
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := h.Handle(ctx, event); err != nil {
				b.log.Error("async event handler failed",
					logger.String("event_type", string(event.EventType())),
					logger.String("handler", h.Name()),
					logger.Err(err),
				)
			}
		}(handler)
	}
}

// Close stops accepting events and waits for in-flight async handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.log.Info("event bus closed")
	return nil
}
