package eventlog

import (
	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/model"
)

// Pair is a field together with its logged value.
// Object fields take an Object value, object-list fields take []Object.
type Pair struct {
	Field Field
	Value any
}

// Object is an ordered list of pairs forming one nested record.
type Object []Pair

// Infer builds a pair for an open record, choosing the field kind from the
// Go type of v. Integers, floats, bools, strings and string slices are
// supported.
func Infer(name string, v any) (Pair, error) {
	for _, k := range []model.ValueKind{model.KindBool, model.KindInt, model.KindFloat, model.KindString, model.KindStringList} {
		if k.Accepts(v) {
			return PrimitiveField(name, k).With(v), nil
		}
	}
	return Pair{}, errors.Wrapf(ErrInvalidPair, "cannot infer a field kind for %q from %T", name, v)
}

// Check reports whether the pair's value fits its own field. It is the
// check an open record applies to each pair.
func (p Pair) Check() error {
	return checkValue(p.Field, p.Value)
}

// validate checks pairs against d. Declared fields must match by name and
// kind; open descriptions only check that each pair is self-consistent.
func (d *ObjectDescription) validate(pairs []Pair) error {
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if _, dup := seen[p.Field.Name]; dup {
			return errors.Wrapf(ErrInvalidPair, "field %q given twice", p.Field.Name)
		}
		seen[p.Field.Name] = struct{}{}

		f := p.Field
		if !d.open {
			declared, ok := d.Field(p.Field.Name)
			if !ok {
				return errors.Wrapf(ErrInvalidPair, "field %q is not declared", p.Field.Name)
			}
			if declared.Kind != p.Field.Kind {
				return errors.Wrapf(ErrInvalidPair, "field %q is %s, got a %s pair",
					p.Field.Name, declared.Kind, p.Field.Kind)
			}
			f = declared
		}
		if err := checkValue(f, p.Value); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(f Field, v any) error {
	if v == nil {
		if f.Nullable {
			return nil
		}
		return errors.Wrapf(ErrInvalidPair, "field %q is not nullable", f.Name)
	}
	if (f.Kind == model.KindObject || f.Kind == model.KindObjectList) && f.Object == nil {
		return errors.Wrapf(ErrInvalidPair, "object field %q has no description", f.Name)
	}
	switch f.Kind {
	case model.KindObject:
		obj, ok := v.(Object)
		if !ok {
			return errors.Wrapf(ErrInvalidPair, "field %q wants an Object, got %T", f.Name, v)
		}
		return errors.Wrapf(f.Object.validate(obj), "in %q", f.Name)
	case model.KindObjectList:
		list, ok := v.([]Object)
		if !ok {
			return errors.Wrapf(ErrInvalidPair, "field %q wants []Object, got %T", f.Name, v)
		}
		for i, obj := range list {
			if err := f.Object.validate(obj); err != nil {
				return errors.Wrapf(err, "in %q[%d]", f.Name, i)
			}
		}
		return nil
	default:
		if !f.Kind.Accepts(v) {
			return errors.Wrapf(ErrInvalidPair, "field %q is %s, got %T", f.Name, f.Kind, v)
		}
		return nil
	}
}

// toRecord converts a validated object into the sink payload form.
func toRecord(obj Object) model.Record {
	r := make(model.Record, 0, len(obj))
	for _, p := range obj {
		r = append(r, model.Entry{Key: p.Field.Name, Value: toValue(p.Value)})
	}
	return r
}

func toValue(v any) any {
	switch v := v.(type) {
	case Object:
		return toRecord(v)
	case []Object:
		out := make([]model.Record, 0, len(v))
		for _, obj := range v {
			out = append(out, toRecord(obj))
		}
		return out
	default:
		return v
	}
}
