// Package file appends emitted events to a local NDJSON file.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
)

const (
	defaultBufSize    = 64 * 1024
	defaultMaxRotated = 10 // oldest kept file is {path}.10
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("file output: closed")

var rotations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tierlog",
	Subsystem: "output",
	Name:      "file_rotations_total",
	Help:      "Event files rotated because they reached their size limit.",
})

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size in bytes at which the file is rotated.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithMaxRotated sets how many rotated files ({path}.1 ... {path}.n) are
// kept. Default: 10.
func WithMaxRotated(n int) Option {
	return func(o *Output) { o.maxRotated = n }
}

// WithBufSize sets the write buffer size. Default: 64KB.
func WithBufSize(bytes int) Option {
	return func(o *Output) { o.bufSize = bytes }
}

// WithFlushEach flushes the buffer after every event, so each concluded
// session is on disk when Write returns.
func WithFlushEach() Option {
	return func(o *Output) { o.flushEach = true }
}

// Output appends events as NDJSON to a file, one event per line.
// Safe for concurrent use.
type Output struct {
	path       string
	verbosity  output.Verbosity
	maxSize    int64
	maxRotated int
	bufSize    int
	flushEach  bool

	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	size   int64 // bytes in the current file, buffered included
	closed bool
}

var _ output.Output = (*Output)(nil)

// New opens path for appending, creating it and its directory if needed.
func New(path string, verbosity output.Verbosity, opts ...Option) (*Output, error) {
	o := &Output{
		path:       path,
		verbosity:  verbosity,
		bufSize:    defaultBufSize,
		maxRotated: defaultMaxRotated,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxRotated < 1 {
		o.maxRotated = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "file output: create directory for %s", path)
	}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write appends one event line. When the line would push the file past its
// size limit the file is rotated first; an oversized line still goes into a
// fresh file on its own.
func (o *Output) Write(_ context.Context, event model.Event) error {
	line, err := json.Marshal(output.FormatEvent(event, o.verbosity))
	if err != nil {
		return errors.Wrapf(err, "file output: encode event %s", event.Name)
	}
	line = append(line, '\n')

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	if o.maxSize > 0 && o.size > 0 && o.size+int64(len(line)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return errors.Wrapf(err, "file output: rotate %s", o.path)
		}
	}

	n, err := o.w.Write(line)
	o.size += int64(n)
	if err != nil {
		return errors.Wrapf(err, "file output: write %s", o.path)
	}
	if o.flushEach {
		if err := o.w.Flush(); err != nil {
			return errors.Wrapf(err, "file output: flush %s", o.path)
		}
	}
	return nil
}

// Close flushes buffered events and closes the file. Later calls are no-ops.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	flushErr := o.w.Flush()
	closeErr := o.f.Close()
	if flushErr != nil {
		return errors.Wrapf(flushErr, "file output: flush %s", o.path)
	}
	return errors.Wrapf(closeErr, "file output: close %s", o.path)
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "file output: open %s", o.path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "file output: stat %s", o.path)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, o.bufSize)
	o.size = info.Size()
	return nil
}

// rotate closes the current file, moves it to {path}.1 after shifting the
// older generations up by one, and opens a fresh file. Caller holds o.mu.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	if err := os.Remove(o.generation(o.maxRotated)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for gen := o.maxRotated - 1; gen >= 1; gen-- {
		if err := os.Rename(o.generation(gen), o.generation(gen+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.Rename(o.path, o.generation(1)); err != nil {
		return err
	}
	rotations.Inc()
	return o.open()
}

func (o *Output) generation(n int) string {
	return o.path + "." + strconv.Itoa(n)
}
