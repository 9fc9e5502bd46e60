package eventlog

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
)

// Emitter logs one registered event.
type Emitter interface {
	Log(pairs ...Pair)
}

// Registrar registers events and hands back their emitters.
type Registrar interface {
	Register(name string, fields ...Field) (Emitter, error)
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithClock overrides the timestamp source. Default: time.Now.
func WithClock(now func() time.Time) GroupOption {
	return func(g *Group) { g.now = now }
}

// WithIDs overrides the event ID source. Default: random UUIDs.
func WithIDs(next func() string) GroupOption {
	return func(g *Group) { g.nextID = next }
}

// Group is a versioned namespace of events that share one output sink.
// Safe for concurrent use when the sink is.
type Group struct {
	id      string
	version int
	out     output.Output
	now     func() time.Time
	nextID  func() string

	mu     sync.Mutex
	events map[string]*Event
}

var _ Registrar = (*Group)(nil)

// NewGroup creates a group writing its events to out.
func NewGroup(id string, version int, out output.Output, opts ...GroupOption) *Group {
	g := &Group{
		id:      id,
		version: version,
		out:     out,
		now:     time.Now,
		nextID:  func() string { return uuid.NewString() },
		events:  make(map[string]*Event),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ID returns the group identifier.
func (g *Group) ID() string { return g.id }

// Version returns the group version.
func (g *Group) Version() int { return g.version }

// Register declares an event with the given fields, in order. Registering
// the same name twice fails with ErrAlreadyRegistered.
func (g *Group) Register(name string, fields ...Field) (Emitter, error) {
	return g.RegisterEvent(name, fields...)
}

// RegisterEvent is Register returning the concrete *Event.
func (g *Group) RegisterEvent(name string, fields ...Field) (*Event, error) {
	if name == "" {
		return nil, errors.New("eventlog: event name is required")
	}
	desc, err := NewObjectDescription(fields...)
	if err != nil {
		return nil, errors.Wrapf(err, "eventlog: register %s", name)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.events[name]; dup {
		return nil, errors.Wrapf(ErrAlreadyRegistered, "%s.%s", g.id, name)
	}
	e := &Event{group: g, name: name, desc: desc}
	g.events[name] = e
	return e, nil
}

// Event returns the registered event called name.
func (g *Group) Event(name string) (*Event, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.events[name]
	return e, ok
}

// Events returns all registered events sorted by name.
func (g *Group) Events() []*Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Event, 0, len(g.events))
	for _, e := range g.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Event is a registered event handle.
type Event struct {
	group *Group
	name  string
	desc  *ObjectDescription
}

// Name returns the event name.
func (e *Event) Name() string { return e.name }

// Fields returns the declared top-level fields in order.
func (e *Event) Fields() []Field { return e.desc.Fields() }

// Build validates pairs and assembles the event without writing it.
func (e *Event) Build(pairs ...Pair) (model.Event, error) {
	if err := e.desc.validate(pairs); err != nil {
		return model.Event{}, errors.Wrapf(err, "eventlog: %s.%s", e.group.id, e.name)
	}
	return model.Event{
		ID:           e.group.nextID(),
		Group:        e.group.id,
		GroupVersion: e.group.version,
		Name:         e.name,
		Timestamp:    e.group.now(),
		Data:         toRecord(pairs),
	}, nil
}

// Log builds the event and writes it to the group's sink. Invalid pairs and
// sink failures are logged and counted, not returned.
func (e *Event) Log(pairs ...Pair) {
	ev, err := e.Build(pairs...)
	if err != nil {
		slog.Error("event rejected", "group", e.group.id, "event", e.name, "error", err)
		eventsRejected.WithLabelValues(e.group.id, e.name, "invalid").Inc()
		return
	}
	if err := e.group.out.Write(context.Background(), ev); err != nil {
		slog.Warn("event sink write failed", "group", e.group.id, "event", e.name, "error", err)
		eventsRejected.WithLabelValues(e.group.id, e.name, "sink").Inc()
		return
	}
	eventsLogged.WithLabelValues(e.group.id, e.name).Inc()
}
