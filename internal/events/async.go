package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull        = errors.New("events: delivery queue full")
	ErrDispatcherClosed = errors.New("events: dispatcher closed")
)

// AsyncDispatcher queues published events and delivers them from one
// background goroutine, in publish order. Handlers get a fresh context bounded
// by the handler timeout, never the publisher's.
type AsyncDispatcher struct {
	inner   Dispatcher
	queue   chan Event
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncDispatcher builds a dispatcher holding up to queueSize undelivered
// events. Delivery starts with Run.
func NewAsyncDispatcher(logger *zap.Logger, queueSize int, handlerTimeout time.Duration) *AsyncDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	if handlerTimeout <= 0 {
		handlerTimeout = 10 * time.Second
	}
	return &AsyncDispatcher{
		inner:   NewInMemoryDispatcher(logger),
		queue:   make(chan Event, queueSize),
		timeout: handlerTimeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (d *AsyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

// Publish enqueues the event and returns at once. A full queue drops the
// event; read models still catch up on their next scheduled refresh.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("event dropped, delivery queue full",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
		return ErrQueueFull
	}
}

// Run delivers queued events until Close has been called and the queue is
// drained.
func (d *AsyncDispatcher) Run() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *AsyncDispatcher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	_ = d.inner.Publish(ctx, event)
}

// Close stops accepting events. Events already queued are still delivered;
// Wait blocks until they are.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Wait blocks until Run has returned.
func (d *AsyncDispatcher) Wait() {
	<-d.done
}
