package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/recording"
	"github.com/crimson-sun/tierlog/internal/sessionlog"
)

var tracer = otel.Tracer("tierlog.pipeline")

// errorField carries the mismatch message when a finished session is
// concluded as an exception instead.
var errorField = eventlog.StringField("error")

// Pipeline replays recorded sessions through a session scheme, driving each
// session's logger the way a live session engine would.
type Pipeline struct {
	scheme  *sessionlog.Scheme[any]
	workers int
}

// counters accumulate the outcome of one run across workers.
type counters struct {
	finished      atomic.Int64
	startFailures atomic.Int64
	exceptions    atomic.Int64
	mismatches    atomic.Int64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers replays up to n sessions concurrently. Default: 1, which keeps
// events in recording order.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New creates a Pipeline for scheme.
func New(scheme *sessionlog.Scheme[any], opts ...Option) *Pipeline {
	p := &Pipeline{scheme: scheme, workers: 1}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats summarizes a replay. Every replayed session is concluded exactly
// once; Mismatches counts finished sessions whose tree did not fit the scheme
// and were concluded as exceptions.
type Stats struct {
	Sessions      int
	Finished      int
	StartFailures int
	Exceptions    int
	Mismatches    int
}

// Replay replays sessions.
func (p *Pipeline) Replay(ctx context.Context, sessions []*recording.Session) (Stats, error) {
	i := 0
	return p.run(ctx, func() (*recording.Session, error) {
		if i == len(sessions) {
			return nil, io.EOF
		}
		s := sessions[i]
		i++
		return s, nil
	})
}

// Stream replays sessions as they are decoded.
func (p *Pipeline) Stream(ctx context.Context, dec *recording.Decoder) (Stats, error) {
	return p.run(ctx, dec.Next)
}

func (p *Pipeline) run(ctx context.Context, next func() (*recording.Session, error)) (Stats, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Replay")
	defer span.End()

	c := &counters{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	var readErr error
	for gctx.Err() == nil {
		s, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = errors.Wrap(err, "pipeline: read session")
			break
		}
		g.Go(func() error { return p.replay(gctx, s, c) })
	}
	err := g.Wait()
	if err == nil {
		err = readErr
	}
	if err == nil {
		err = ctx.Err()
	}

	stats := c.stats()
	span.SetAttributes(
		attribute.String("tierlog.event", p.scheme.Name()),
		attribute.Int("tierlog.sessions", stats.Sessions),
		attribute.Int("tierlog.mismatches", stats.Mismatches),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	span.SetStatus(codes.Ok, "")
	slog.Debug("replay complete", "event", p.scheme.Name(), "sessions", stats.Sessions, "mismatches", stats.Mismatches)
	return stats, nil
}

// replay drives one session: its before-start pairs, then the recorded
// conclusion. A finished session whose tree does not fit the scheme is
// concluded as an exception carrying the mismatch, so it still emits once.
func (p *Pipeline) replay(ctx context.Context, s *recording.Session, c *counters) error {
	l := p.scheme.NewLogger()
	if err := l.BeforeStarted(s.Before...); err != nil {
		return errors.Wrapf(err, "pipeline: session %s", s.ID)
	}

	var err error
	switch s.Outcome {
	case recording.StartFailure:
		if err = l.StartFailure(ctx, s.Analysis...); err == nil {
			c.startFailures.Add(1)
		}
	case recording.Exception:
		if err = l.SessionException(ctx, s.Analysis...); err == nil {
			c.exceptions.Add(1)
		}
	case recording.Finished:
		err = l.Finished(ctx, s.Tree, s.Analysis...)
		switch {
		case err == nil:
			c.finished.Add(1)
		case errors.Is(err, sessionlog.ErrSchemeMismatch):
			slog.Warn("session does not match scheme, concluding as exception",
				"event", p.scheme.Name(), "session", s.ID, "error", err)
			c.mismatches.Add(1)
			pairs := append(append([]eventlog.Pair(nil), s.Analysis...), errorField.With(err.Error()))
			if err = l.SessionException(ctx, pairs...); err == nil {
				c.exceptions.Add(1)
			}
		}
	default:
		err = errors.Newf("unknown outcome %q", s.Outcome)
	}
	if err != nil {
		return errors.Wrapf(err, "pipeline: session %s", s.ID)
	}
	slog.Debug("session replayed", "event", p.scheme.Name(), "session", s.ID, "outcome", s.Outcome)
	return nil
}

func (c *counters) stats() Stats {
	s := Stats{
		Finished:      int(c.finished.Load()),
		StartFailures: int(c.startFailures.Load()),
		Exceptions:    int(c.exceptions.Load()),
		Mismatches:    int(c.mismatches.Load()),
	}
	s.Sessions = s.Finished + s.StartFailures + s.Exceptions
	return s
}
