package tierlog

import (
	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/manifest"
	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/output"
	"github.com/crimson-sun/tierlog/internal/sessionlog"
)

// Declarations and runtime session data.
type (
	Tier                 = model.Tier
	TierInstance         = model.TierInstance
	ValueKind            = model.ValueKind
	FeatureDeclaration   = model.FeatureDeclaration
	Feature              = model.Feature
	MainTierScheme       = model.MainTierScheme
	AdditionalTierScheme = model.AdditionalTierScheme
	LevelScheme          = model.LevelScheme
	MainTierData         = model.MainTierData
	AdditionalTierData   = model.AdditionalTierData
	Level                = model.Level
)

// Emitted events and session pairs.
type (
	Event  = model.Event
	Record = model.Record
	Entry  = model.Entry
	Field  = eventlog.Field
	Pair   = eventlog.Pair
	Output = output.Output
	Status = sessionlog.Status
)

type (
	Node[P any]                = model.Node[P]
	PredictionNode[P any]      = model.PredictionNode[P]
	NestableNode[P any]        = model.NestableNode[P]
	Declaration[P any]         = sessionlog.Declaration[P]
	Scheme[P any]              = sessionlog.Scheme[P]
	Logger[P any]              = sessionlog.Logger[P]
	PredictionTransform[P any] = sessionlog.PredictionTransform[P]
)

const (
	KindBool       = model.KindBool
	KindInt        = model.KindInt
	KindFloat      = model.KindFloat
	KindString     = model.KindString
	KindStringList = model.KindStringList
)

const (
	Open    = sessionlog.Open
	Emitted = sessionlog.Emitted
)

var (
	ErrNoLevels             = sessionlog.ErrNoLevels
	ErrNoMainTiers          = sessionlog.ErrNoMainTiers
	ErrDuplicateDeclaration = sessionlog.ErrDuplicateDeclaration
	ErrSchemeMismatch       = sessionlog.ErrSchemeMismatch
	ErrInvalidPair          = eventlog.ErrInvalidPair
	ErrAlreadyRegistered    = eventlog.ErrAlreadyRegistered
)

func NewTier(name string) Tier                         { return model.NewTier(name) }
func NewInstance(tier Tier, value any) *TierInstance   { return model.NewInstance(tier, value) }
func ParseValueKind(s string) (ValueKind, error)       { return model.ParseValueKind(s) }
func BoolField(name string) Field                      { return eventlog.BoolField(name) }
func IntField(name string) Field                       { return eventlog.IntField(name) }
func FloatField(name string) Field                     { return eventlog.FloatField(name) }
func StringField(name string) Field                    { return eventlog.StringField(name) }
func StringListField(name string) Field                { return eventlog.StringListField(name) }
func Threshold(t float64) PredictionTransform[float64] { return sessionlog.Threshold(t) }
func Identity[P any]() PredictionTransform[P]          { return sessionlog.Identity[P]() }

// Infer pairs a primitive value with a field of the matching kind.
func Infer(name string, v any) (Pair, error) { return eventlog.Infer(name, v) }

// NewPrediction returns the deepest level of a session tree, carrying the
// session's prediction.
func NewPrediction[P any](level Level, prediction P) *PredictionNode[P] {
	return model.NewPrediction(level, prediction)
}

// NewAbsentPrediction returns the deepest level of a session tree that
// produced no prediction.
func NewAbsentPrediction[P any](level Level) *PredictionNode[P] {
	return model.NewAbsentPrediction[P](level)
}

// NewNestable returns an inner level of a session tree with its children.
func NewNestable[P any](level Level, children ...Node[P]) *NestableNode[P] {
	return model.NewNestable[P](level, children...)
}

// Registry owns an event group and its output sink.
type Registry struct {
	group *eventlog.Group
	out   output.Output
}

// New creates a Registry. Without options events are written as JSON lines
// to stdout under group "tierlog" version 1.
func New(opts ...Option) (*Registry, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	out, err := o.buildOutput()
	if err != nil {
		return nil, err
	}
	return &Registry{
		group: eventlog.NewGroup(o.group, o.groupVersion, out, o.groupOpts...),
		out:   out,
	}, nil
}

// Declare registers the session event described by decl.
func Declare[P any](r *Registry, decl Declaration[P]) (*Scheme[P], error) {
	return sessionlog.New(r.group, decl)
}

// Open registers the session event declared by a YAML or TOML level manifest.
func (r *Registry) Open(manifestPath string) (*Scheme[any], error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	decl, err := m.Declaration()
	if err != nil {
		return nil, err
	}
	return sessionlog.New(r.group, decl)
}

// Close flushes and closes the output sink.
func (r *Registry) Close() error {
	return r.out.Close()
}
