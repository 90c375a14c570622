package event

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Config holds event bus tuning parameters
type Config struct {
	// BufferSize is the capacity of the dispatch queue
	BufferSize int
	// HandlerTimeout bounds how long a single handler may run per event
	HandlerTimeout time.Duration
}

// DefaultConfig returns sensible defaults for the event bus
func DefaultConfig() Config {
	return Config{
		BufferSize:     256,
		HandlerTimeout: 30 * time.Second,
	}
}

// InMemoryEventBus implements EventBus with in-process pub/sub.
// Events are dispatched asynchronously from a buffered queue so that
// publishing never blocks the request path; when the queue is full or
// the bus is stopped, dispatch falls back to inline execution.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	cfg      Config
	queue    chan shared.DomainEvent
	stopChan chan struct{}
	running  atomic.Bool
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(cfg Config, logger *zap.Logger) *InMemoryEventBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = DefaultConfig().HandlerTimeout
	}
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		cfg:      cfg,
		queue:    make(chan shared.DomainEvent, cfg.BufferSize),
		stopChan: make(chan struct{}),
	}
}

// Publish hands events to the dispatch queue.
// Publishing never fails; handler errors are logged, not returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if event == nil {
			continue
		}
		if !b.running.Load() {
			b.dispatch(event)
			continue
		}
		select {
		case b.queue <- event:
		default:
			b.logger.Warn("event queue full, dispatching inline",
				zap.String("event_type", event.EventType()),
			)
			b.dispatch(event)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the dispatch worker
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	b.wg.Add(1)
	go b.dispatchLoop()
	b.logger.Info("event bus started",
		zap.Int("buffer_size", b.cfg.BufferSize),
		zap.Duration("handler_timeout", b.cfg.HandlerTimeout),
	)
	return nil
}

// Stop drains the queue and stops the dispatch worker
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.running.Store(false)
		close(b.stopChan)
		b.wg.Wait()
		b.logger.Info("event bus stopped")
	})
	return nil
}

func (b *InMemoryEventBus) dispatchLoop() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.queue:
			b.dispatch(event)
		case <-b.stopChan:
			// Drain whatever is still queued before exiting
			for {
				select {
				case event := <-b.queue:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

// dispatch delivers one event to every registered handler.
// The request context may be gone by the time a queued event is
// dispatched, so each handler gets a fresh bounded context.
func (b *InMemoryEventBus) dispatch(event shared.DomainEvent) {
	handlers := b.registry.GetHandlers(event.EventType())

	for _, handler := range handlers {
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.HandlerTimeout)
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)
