// Package dispatch delivers job events from many producers to handlers, one
// event at a time, in arrival order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dkoosis/startend/pkg/event"
)

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrStopped is returned by Publish once Run has returned.
	ErrStopped = errors.New("dispatcher stopped")
)

// Handler consumes events. Handlers are never called concurrently by a
// Dispatcher.
type Handler interface {
	Handle(ev event.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev event.Event) error

func (f HandlerFunc) Handle(ev event.Event) error { return f(ev) }

// Dispatcher serializes delivery of published events onto the goroutine
// calling Run.
type Dispatcher struct {
	handlers []Handler
	logger   zerolog.Logger

	events chan event.Event
	done   chan struct{}

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// New creates a dispatcher with a queue of the given size.
func New(buffer int, logger zerolog.Logger, handlers ...Handler) *Dispatcher {
	if buffer < 0 {
		buffer = 0
	}
	return &Dispatcher{
		handlers: handlers,
		logger:   logger,
		events:   make(chan event.Event, buffer),
		done:     make(chan struct{}),
	}
}

// Publish queues ev for delivery. It blocks while the queue is full.
func (d *Dispatcher) Publish(ctx context.Context, ev event.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case d.events <- ev:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events. Run delivers what is already queued and
// returns. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.events)
}

// Run delivers events until Close has been called and the queue is drained,
// a handler fails, or ctx ends. The first handler error stops delivery.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.stopOnce.Do(func() { close(d.done) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-d.events:
			if !ok {
				return nil
			}
			if err := d.deliver(ev); err != nil {
				return err
			}
		}
	}
}

func (d *Dispatcher) deliver(ev event.Event) error {
	d.logger.Debug().Stringer("event", ev).Msg("dispatch")
	for _, h := range d.handlers {
		if err := h.Handle(ev); err != nil {
			return fmt.Errorf("handling %s for job %q: %w", ev.Kind, ev.Job, err)
		}
	}
	return nil
}
