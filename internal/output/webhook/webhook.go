// Package webhook batches emitted events and POSTs them to a collector
// endpoint as a JSON array.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/httpclient"
	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
)

const (
	defaultBatchSize     = 50
	defaultFlushInterval = 5 * time.Second
)

// Option configures a webhook Output.
type Option func(*Output)

// WithBatchSize sets the number of events accumulated before a flush. Default: 50.
func WithBatchSize(n int) Option {
	return func(o *Output) { o.batchSize = n }
}

// WithFlushInterval sets the maximum time between flushes. Default: 5s.
func WithFlushInterval(d time.Duration) Option {
	return func(o *Output) { o.flushInterval = d }
}

// WithVerbosity applies output.FormatEvent before events are queued.
// Default: standard.
func WithVerbosity(v output.Verbosity) Option {
	return func(o *Output) { o.verbosity = v }
}

// WithClientOptions passes options to the underlying collector client.
func WithClientOptions(opts ...httpclient.Option) Option {
	return func(o *Output) { o.clientOpts = append(o.clientOpts, opts...) }
}

// WithOnError sets a callback invoked when a timer-triggered flush fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(o *Output) { o.errFunc = f }
}

// Output queues events and flushes them when batchSize is reached or
// flushInterval elapses after the first queued event.
type Output struct {
	client        *httpclient.Client
	clientOpts    []httpclient.Option
	batchSize     int
	flushInterval time.Duration
	verbosity     output.Verbosity
	errFunc       func(error)

	mu      sync.Mutex
	pending []model.Event
	timer   *time.Timer
}

var _ output.Output = (*Output)(nil)

// New creates a webhook output targeting url.
func New(url string, opts ...Option) *Output {
	o := &Output{
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		verbosity:     output.Standard,
		errFunc:       func(err error) { slog.Warn("webhook flush error", "error", err) },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.batchSize < 1 {
		o.batchSize = 1
	}
	o.client = httpclient.New(url, o.clientOpts...)
	return o
}

// Write queues an event. A full batch is flushed synchronously and its error
// returned.
func (o *Output) Write(ctx context.Context, event model.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, output.FormatEvent(event, o.verbosity))
	if len(o.pending) >= o.batchSize {
		return o.flushLocked(ctx)
	}

	if len(o.pending) == 1 {
		o.timer = time.AfterFunc(o.flushInterval, func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if err := o.flushLocked(context.Background()); err != nil {
				o.errFunc(err)
			}
		})
	}
	return nil
}

// Close stops the timer and flushes any remaining events.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flushLocked(context.Background())
}

// flushLocked posts the pending batch. Caller must hold o.mu.
func (o *Output) flushLocked(ctx context.Context) error {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if len(o.pending) == 0 {
		return nil
	}

	batch := o.pending
	o.pending = nil

	body, err := json.Marshal(batch)
	if err != nil {
		return errors.Wrap(err, "webhook: marshal")
	}
	if err := o.client.PostJSON(ctx, "", body); err != nil {
		return errors.Wrapf(err, "webhook: post %d events", len(batch))
	}
	return nil
}
