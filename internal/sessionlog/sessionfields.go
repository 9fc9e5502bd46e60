package sessionlog

import (
	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/model"
)

const (
	fieldMain       = "main"
	fieldAdditional = "additional"
	fieldPrediction = "prediction"
	fieldNested     = "nested"
)

// sessionFields is the layout of one level of the session structure. It is
// either *predictionSessionFields (the deepest level) or
// *nestableSessionFields (an inner level wrapping the next one).
type sessionFields[P any] interface {
	objectDescription() *eventlog.ObjectDescription
	sessionFields()
}

// levelFields are the main and additional tier sets every level carries.
type levelFields struct {
	main            *tierSet[model.MainTierData]
	additional      *tierSet[model.AdditionalTierData]
	mainField       eventlog.Field
	additionalField eventlog.Field
}

func newLevelFields(level model.LevelScheme) (levelFields, error) {
	if len(level.Main) == 0 {
		return levelFields{}, ErrNoMainTiers
	}
	main, err := newMainTierSet(level.Main)
	if err != nil {
		return levelFields{}, err
	}
	additional, err := newAdditionalTierSet(level.Additional)
	if err != nil {
		return levelFields{}, err
	}
	return levelFields{
		main:            main,
		additional:      additional,
		mainField:       eventlog.ObjectField(fieldMain, main.desc),
		additionalField: eventlog.ObjectField(fieldAdditional, additional.desc),
	}, nil
}

// build returns the {main, additional} pairs of one level. Both are always
// present, empty when the level has no instances.
func (f levelFields) build(ids *instanceIDs, level *model.Level) (eventlog.Object, error) {
	main, err := f.main.build(ids, level.Main)
	if err != nil {
		return nil, err
	}
	additional, err := f.additional.build(ids, level.Additional)
	if err != nil {
		return nil, err
	}
	return eventlog.Object{f.mainField.With(main), f.additionalField.With(additional)}, nil
}

type predictionSessionFields[P any] struct {
	levelFields
	prediction eventlog.Field
	transform  PredictionTransform[P]
	desc       *eventlog.ObjectDescription
}

func (f *predictionSessionFields[P]) objectDescription() *eventlog.ObjectDescription { return f.desc }
func (*predictionSessionFields[P]) sessionFields()                                   {}

type nestableSessionFields[P any] struct {
	levelFields
	nested eventlog.Field
	child  sessionFields[P]
	desc   *eventlog.ObjectDescription
}

func (f *nestableSessionFields[P]) objectDescription() *eventlog.ObjectDescription { return f.desc }
func (*nestableSessionFields[P]) sessionFields()                                   {}

// newSessionFields builds the layout chain for levels, outermost first. The
// last level is terminal; every level before it nests the rest.
func newSessionFields[P any](levels []model.LevelScheme, depth int, prediction model.ValueKind, transform PredictionTransform[P]) (sessionFields[P], error) {
	lf, err := newLevelFields(levels[0])
	if err != nil {
		return nil, errors.Wrapf(err, "level %d", depth)
	}

	if len(levels) == 1 {
		f := &predictionSessionFields[P]{
			levelFields: lf,
			prediction:  eventlog.PrimitiveField(fieldPrediction, prediction).AsNullable(),
			transform:   transform,
		}
		if f.desc, err = eventlog.NewObjectDescription(lf.mainField, lf.additionalField, f.prediction); err != nil {
			return nil, err
		}
		return f, nil
	}

	child, err := newSessionFields(levels[1:], depth+1, prediction, transform)
	if err != nil {
		return nil, err
	}
	f := &nestableSessionFields[P]{
		levelFields: lf,
		nested:      eventlog.ObjectListField(fieldNested, child.objectDescription()),
		child:       child,
	}
	if f.desc, err = eventlog.NewObjectDescription(lf.mainField, lf.additionalField, f.nested); err != nil {
		return nil, err
	}
	return f, nil
}

// buildLevel walks one node of the session tree with its matching layout.
func buildLevel[P any](fields sessionFields[P], node model.Node[P], ids *instanceIDs, depth int) (eventlog.Object, error) {
	if node == nil {
		return nil, mismatchf("level %d: missing session node", depth)
	}
	switch f := fields.(type) {
	case *predictionSessionFields[P]:
		n, ok := node.(*model.PredictionNode[P])
		if !ok {
			return nil, mismatchf("level %d is declared terminal but the session node has children", depth)
		}
		if n == nil {
			return nil, mismatchf("level %d: nil session node", depth)
		}
		obj, err := f.levelFields.build(ids, &n.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "level %d", depth)
		}
		v, ok := f.transform(n.Prediction, n.HasPrediction)
		if !ok || v == nil {
			return obj, nil
		}
		if !f.prediction.Kind.Accepts(v) {
			return nil, mismatchf("level %d: prediction is declared %s, transform produced %T", depth, f.prediction.Kind, v)
		}
		return append(obj, f.prediction.With(v)), nil

	case *nestableSessionFields[P]:
		n, ok := node.(*model.NestableNode[P])
		if !ok {
			return nil, mismatchf("level %d is declared nestable but the session node is terminal", depth)
		}
		if n == nil {
			return nil, mismatchf("level %d: nil session node", depth)
		}
		obj, err := f.levelFields.build(ids, &n.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "level %d", depth)
		}
		children := make([]eventlog.Object, 0, len(n.Children))
		for i, child := range n.Children {
			rec, err := buildLevel[P](f.child, child, ids, depth+1)
			if err != nil {
				return nil, errors.Wrapf(err, "child %d", i)
			}
			children = append(children, rec)
		}
		return append(obj, f.nested.With(children)), nil

	default:
		return nil, errors.AssertionFailedf("sessionlog: unknown session fields %T", fields)
	}
}

// depthOf returns the number of levels in the layout chain.
func depthOf[P any](fields sessionFields[P]) int {
	depth := 1
	for {
		n, ok := fields.(*nestableSessionFields[P])
		if !ok {
			return depth
		}
		fields = n.child
		depth++
	}
}
