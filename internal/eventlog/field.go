// Package eventlog is a small in-process analytics event registry.
//
// Events are registered once per group with an ordered list of typed fields.
// Logging an event validates the supplied pairs against that declaration,
// converts them to an ordered model.Record and writes a model.Event to an
// output sink. Logging is fire-and-forget: failures are logged and counted,
// never returned.
package eventlog

import (
	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/model"
)

var (
	// ErrDuplicateField is returned when an object declares a field name twice.
	ErrDuplicateField = errors.New("eventlog: duplicate field")
	// ErrInvalidPair is returned when a logged pair does not fit its declaration.
	ErrInvalidPair = errors.New("eventlog: invalid pair")
	// ErrAlreadyRegistered is returned when an event name is registered twice in a group.
	ErrAlreadyRegistered = errors.New("eventlog: event already registered")
)

// Field is a named, typed slot of an event or object.
type Field struct {
	Name string
	Kind model.ValueKind
	// Object describes the nested record for object and object-list kinds.
	Object *ObjectDescription
	// Nullable marks fields that may be absent from a logged event.
	Nullable bool
}

// BoolField returns a bool field.
func BoolField(name string) Field {
	return Field{Name: name, Kind: model.KindBool}
}

// IntField returns an int field.
func IntField(name string) Field {
	return Field{Name: name, Kind: model.KindInt}
}

// FloatField returns a float field.
func FloatField(name string) Field {
	return Field{Name: name, Kind: model.KindFloat}
}

// StringField returns a string field.
func StringField(name string) Field {
	return Field{Name: name, Kind: model.KindString}
}

// StringListField returns a string list field.
func StringListField(name string) Field {
	return Field{Name: name, Kind: model.KindStringList}
}

// PrimitiveField returns a field of a primitive kind.
func PrimitiveField(name string, kind model.ValueKind) Field {
	return Field{Name: name, Kind: kind}
}

// ObjectField returns a field holding one nested record described by desc.
func ObjectField(name string, desc *ObjectDescription) Field {
	return Field{Name: name, Kind: model.KindObject, Object: desc}
}

// ObjectListField returns a field holding an ordered list of records
// described by desc.
func ObjectListField(name string, desc *ObjectDescription) Field {
	return Field{Name: name, Kind: model.KindObjectList, Object: desc}
}

// AsNullable returns a copy of f marked nullable.
func (f Field) AsNullable() Field {
	f.Nullable = true
	return f
}

// With pairs the field with a value.
func (f Field) With(value any) Pair {
	return Pair{Field: f, Value: value}
}

// ObjectDescription is the ordered field layout of a nested record.
// An open description accepts any well-formed pair.
type ObjectDescription struct {
	fields []Field
	index  map[string]int
	open   bool
}

// NewObjectDescription declares a record with the given fields, in order.
// Field names must be unique.
func NewObjectDescription(fields ...Field) (*ObjectDescription, error) {
	d := &ObjectDescription{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if _, dup := d.index[f.Name]; dup {
			return nil, errors.Wrapf(ErrDuplicateField, "field %q", f.Name)
		}
		if (f.Kind == model.KindObject || f.Kind == model.KindObjectList) && f.Object == nil {
			return nil, errors.Newf("eventlog: object field %q has no description", f.Name)
		}
		d.index[f.Name] = len(d.fields)
		d.fields = append(d.fields, f)
	}
	return d, nil
}

// OpenObject returns a description that accepts any pair.
func OpenObject() *ObjectDescription {
	return &ObjectDescription{index: map[string]int{}, open: true}
}

// Fields returns the declared fields in order.
func (d *ObjectDescription) Fields() []Field {
	return d.fields
}

// Field returns the declared field called name.
func (d *ObjectDescription) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// Open reports whether d accepts undeclared fields.
func (d *ObjectDescription) Open() bool {
	return d.open
}
