// Package sessionlog logs one ML session as a single structured event.
//
// A Scheme is built once from per-level declarations, outermost level first.
// It registers an event with two fields: "structure", the nested record of
// the session tree, and "session", an open bag of session-level pairs. Each
// session gets its own Logger, which emits that event exactly once.
package sessionlog

import (
	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/model"
)

const (
	fieldStructure = "structure"
	fieldSession   = "session"
)

// Declaration describes a session event.
type Declaration[P any] struct {
	// Event is the registered event name.
	Event string
	// Levels are the level schemes, outermost first. At least one is required.
	Levels []model.LevelScheme
	// Prediction is the kind of the value Transform produces.
	Prediction model.ValueKind
	// Transform maps the raw prediction to its logged value. Nil means Identity.
	Transform PredictionTransform[P]
}

// Scheme is the registered layout of a session event. It is immutable and
// safe for concurrent use.
type Scheme[P any] struct {
	name      string
	depth     int
	root      sessionFields[P]
	structure eventlog.Field
	session   eventlog.Field
	emitter   eventlog.Emitter
}

// New builds the nested layout for decl and registers its event with reg.
func New[P any](reg eventlog.Registrar, decl Declaration[P]) (*Scheme[P], error) {
	if decl.Event == "" {
		return nil, errors.New("sessionlog: event name is required")
	}
	if len(decl.Levels) == 0 {
		return nil, ErrNoLevels
	}
	if !decl.Prediction.IsPrimitive() {
		return nil, errors.Newf("sessionlog: prediction kind %s is not primitive", decl.Prediction)
	}
	transform := decl.Transform
	if transform == nil {
		transform = Identity[P]()
	}

	root, err := newSessionFields(decl.Levels, 1, decl.Prediction, transform)
	if err != nil {
		return nil, errors.Wrapf(err, "sessionlog: %s", decl.Event)
	}
	s := &Scheme[P]{
		name:      decl.Event,
		depth:     depthOf[P](root),
		root:      root,
		structure: eventlog.ObjectField(fieldStructure, root.objectDescription()).AsNullable(),
		session:   eventlog.ObjectField(fieldSession, eventlog.OpenObject()),
	}
	if s.emitter, err = reg.Register(decl.Event, s.structure, s.session); err != nil {
		return nil, errors.Wrapf(err, "sessionlog: register %s", decl.Event)
	}
	return s, nil
}

// Name returns the registered event name.
func (s *Scheme[P]) Name() string { return s.name }

// Depth returns the number of declared levels.
func (s *Scheme[P]) Depth() int { return s.depth }

// Fields returns the top-level event fields: structure, then session.
func (s *Scheme[P]) Fields() []eventlog.Field {
	return []eventlog.Field{s.structure, s.session}
}

// BuildStructure walks tree and returns the structure record. It fails with
// ErrSchemeMismatch when the tree does not fit the declared levels.
func (s *Scheme[P]) BuildStructure(tree model.Node[P]) (eventlog.Object, error) {
	return buildLevel[P](s.root, tree, newInstanceIDs(), 1)
}

// NewLogger returns the logger for one session.
func (s *Scheme[P]) NewLogger() *Logger[P] {
	return &Logger[P]{scheme: s}
}
