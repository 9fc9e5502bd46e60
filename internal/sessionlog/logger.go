package sessionlog

import (
	"context"

	"github.com/cockroachdb/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/model"
)

// Status is the lifecycle state of a Logger.
type Status int

const (
	// Open loggers accept session pairs and may still emit.
	Open Status = iota
	// Emitted loggers have written their event and reject further calls.
	Emitted
)

func (s Status) String() string {
	if s == Emitted {
		return "emitted"
	}
	return "open"
}

// Logger collects the pairs of one session and emits its event once, when
// the session concludes. A Logger belongs to a single session and is not
// safe for concurrent use.
//
// Any call after the event was emitted returns an assertion failure
// (errors.IsAssertionFailure) and leaves the logger unchanged. Malformed
// pairs are rejected with eventlog.ErrInvalidPair, also without a change.
type Logger[P any] struct {
	scheme  *Scheme[P]
	status  Status
	session eventlog.Object
}

// Status returns the current lifecycle state.
func (l *Logger[P]) Status() Status { return l.status }

// BeforeStarted adds pairs to the session bag. It may be called any number
// of times before the session concludes. A pair whose name is already in the
// bag replaces the earlier value in place.
func (l *Logger[P]) BeforeStarted(pairs ...eventlog.Pair) error {
	if l.status == Emitted {
		return lifecycleViolation(l.scheme.name, "BeforeStarted")
	}
	if err := checkPairs(pairs); err != nil {
		return err
	}
	l.add(pairs)
	return nil
}

// StartFailure concludes a session that failed to start. The event is
// emitted without a structure. Pairs sharing a field name collapse into one
// entry holding the last value, at its first position.
func (l *Logger[P]) StartFailure(ctx context.Context, pairs ...eventlog.Pair) error {
	if l.status == Emitted {
		return lifecycleViolation(l.scheme.name, "StartFailure")
	}
	if err := checkPairs(pairs); err != nil {
		return err
	}
	_, span := l.startSpan(ctx, "sessionlog.StartFailure", outcomeStartFailure)
	defer span.End()

	l.add(pairs)
	l.emit(outcomeStartFailure, nil)
	span.SetStatus(codes.Ok, "")
	return nil
}

// SessionException concludes a session that ended with an exception. The
// event is emitted without a structure. Repeated pair names collapse as in
// StartFailure.
func (l *Logger[P]) SessionException(ctx context.Context, pairs ...eventlog.Pair) error {
	if l.status == Emitted {
		return lifecycleViolation(l.scheme.name, "SessionException")
	}
	if err := checkPairs(pairs); err != nil {
		return err
	}
	_, span := l.startSpan(ctx, "sessionlog.SessionException", outcomeException)
	defer span.End()

	l.add(pairs)
	l.emit(outcomeException, nil)
	span.SetStatus(codes.Ok, "")
	return nil
}

// Finished concludes a completed session. It builds the structure from tree
// and emits the event with it.
//
// When tree does not fit the scheme the error is returned (marked
// ErrSchemeMismatch), nothing is emitted, pairs are discarded and the logger
// stays open so the session can still be concluded with SessionException.
func (l *Logger[P]) Finished(ctx context.Context, tree model.Node[P], pairs ...eventlog.Pair) error {
	if l.status == Emitted {
		return lifecycleViolation(l.scheme.name, "Finished")
	}
	if err := checkPairs(pairs); err != nil {
		return err
	}
	_, span := l.startSpan(ctx, "sessionlog.Finished", outcomeFinished)
	defer span.End()

	structure, err := l.scheme.BuildStructure(tree)
	if err != nil {
		structureBuildFailures.WithLabelValues(l.scheme.name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	l.add(pairs)
	l.emit(outcomeFinished, structure)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (l *Logger[P]) startSpan(ctx context.Context, name, outcome string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("tierlog.event", l.scheme.name),
			attribute.String("tierlog.outcome", outcome),
			attribute.Int("tierlog.depth", l.scheme.depth),
		),
	)
}

// checkPairs rejects malformed session pairs before they reach the bag, so
// a concluded session is never dropped by the event sink.
func checkPairs(pairs []eventlog.Pair) error {
	for _, p := range pairs {
		if err := p.Check(); err != nil {
			return errors.Wrapf(err, "sessionlog: session pair %q", p.Field.Name)
		}
	}
	return nil
}

func (l *Logger[P]) add(pairs []eventlog.Pair) {
	for _, p := range pairs {
		replaced := false
		for i := range l.session {
			if l.session[i].Field.Name == p.Field.Name {
				l.session[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			l.session = append(l.session, p)
		}
	}
}

func (l *Logger[P]) emit(outcome string, structure eventlog.Object) {
	l.status = Emitted
	pairs := make([]eventlog.Pair, 0, 2)
	if structure != nil {
		pairs = append(pairs, l.scheme.structure.With(structure))
	}
	session := l.session
	if session == nil {
		session = eventlog.Object{}
	}
	pairs = append(pairs, l.scheme.session.With(session))
	l.scheme.emitter.Log(pairs...)
	sessionsConcluded.WithLabelValues(l.scheme.name, outcome).Inc()
}
