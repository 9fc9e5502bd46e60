// Package async decouples event emission from slow sinks through a buffered
// channel drained by one background goroutine.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async: output closed")

var droppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tierlog",
	Subsystem: "output",
	Name:      "async_dropped_total",
	Help:      "Events dropped because the async buffer was full.",
}, []string{"event"})

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithDrainTimeout bounds how long Close waits for buffered events. Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write drop the event when the buffer is full instead
// of blocking.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Async writes events into a channel; a background goroutine drains it to
// the wrapped output. Errors from the inner output go to errFunc.
type Async struct {
	inner        output.Output
	ch           chan model.Event
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	drainTimeout time.Duration
	dropOnFull   bool

	mu        sync.RWMutex // guards closed against sends on a closed channel
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

var _ output.Output = (*Async)(nil)

// New wraps inner. The drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bufSize < 0 {
		a.bufSize = 0
	}
	a.ch = make(chan model.Event, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues the event. It blocks while the buffer is full unless
// WithDropOnFull is set, and gives up when ctx is done.
func (a *Async) Write(ctx context.Context, event model.Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	if a.dropOnFull {
		select {
		case a.ch <- event:
		default:
			droppedEvents.WithLabelValues(event.Name).Inc()
			slog.Warn("async output buffer full, dropping event", "event", event.Name, "id", event.ID)
		}
		return nil
	}
	select {
	case a.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, waits for the drain goroutine (bounded by
// the drain timeout) and closes the inner output. Later calls return the
// first result.
func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()

		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out", "pending", len(a.ch))
		}
		a.closeErr = a.inner.Close()
	})
	return a.closeErr
}

func (a *Async) drain() {
	defer close(a.done)
	for event := range a.ch {
		if err := a.inner.Write(context.Background(), event); err != nil {
			a.errFunc(err)
		}
	}
}
