package sessionlog

import (
	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/model"
)

const (
	fieldUsed    = "used"
	fieldNotUsed = "not_used"
)

// featureSet is the closed vocabulary of features declared for one tier slot.
// It encodes realized features either flat (name -> value) or partitioned
// into used values and names of declared features that were not computed.
type featureSet struct {
	declared []model.FeatureDeclaration
	index    map[string]int

	values  *eventlog.ObjectDescription // one field per declared feature
	used    eventlog.Field
	notUsed eventlog.Field
	// partitioned describes the {used, not_used} record.
	partitioned *eventlog.ObjectDescription
}

func newFeatureSet(decls []model.FeatureDeclaration) (*featureSet, error) {
	s := &featureSet{
		declared: decls,
		index:    make(map[string]int, len(decls)),
	}
	fields := make([]eventlog.Field, 0, len(decls))
	for i, d := range decls {
		if _, dup := s.index[d.Name]; dup {
			return nil, errors.Wrapf(ErrDuplicateDeclaration, "feature %q", d.Name)
		}
		if !d.Kind.IsPrimitive() {
			return nil, errors.Newf("sessionlog: feature %q has non-primitive kind %s", d.Name, d.Kind)
		}
		s.index[d.Name] = i
		fields = append(fields, eventlog.PrimitiveField(d.Name, d.Kind))
	}

	var err error
	if s.values, err = eventlog.NewObjectDescription(fields...); err != nil {
		return nil, err
	}
	s.used = eventlog.ObjectField(fieldUsed, s.values)
	s.notUsed = eventlog.StringListField(fieldNotUsed)
	if s.partitioned, err = eventlog.NewObjectDescription(s.used, s.notUsed); err != nil {
		return nil, err
	}
	return s, nil
}

// collect validates features against the declaration and returns the used
// values in declaration order plus which declared slots were filled.
func (s *featureSet) collect(features []model.Feature) (eventlog.Object, []bool, error) {
	present := make([]bool, len(s.declared))
	values := make([]any, len(s.declared))
	for _, f := range features {
		i, ok := s.index[f.Name]
		if !ok {
			return nil, nil, mismatchf("feature %q is not declared", f.Name)
		}
		if present[i] {
			return nil, nil, mismatchf("feature %q is given twice", f.Name)
		}
		if d := s.declared[i]; !d.Kind.Accepts(f.Value) {
			return nil, nil, mismatchf("feature %q is declared %s, got %T", f.Name, d.Kind, f.Value)
		}
		present[i] = true
		values[i] = f.Value
	}

	obj := make(eventlog.Object, 0, len(features))
	for i, d := range s.declared {
		if present[i] {
			obj = append(obj, eventlog.PrimitiveField(d.Name, d.Kind).With(values[i]))
		}
	}
	return obj, present, nil
}

// encodeFlat returns the realized features as one record.
func (s *featureSet) encodeFlat(features []model.Feature) (eventlog.Object, error) {
	obj, _, err := s.collect(features)
	return obj, err
}

// encodePartitioned returns {used: {...}, not_used: [...]}.
func (s *featureSet) encodePartitioned(features []model.Feature) (eventlog.Object, error) {
	used, present, err := s.collect(features)
	if err != nil {
		return nil, err
	}
	notUsed := make([]string, 0, len(s.declared)-len(used))
	for i, d := range s.declared {
		if !present[i] {
			notUsed = append(notUsed, d.Name)
		}
	}
	return eventlog.Object{s.used.With(used), s.notUsed.With(notUsed)}, nil
}
