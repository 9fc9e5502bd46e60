package model

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// ValueKind is the declared type of a feature slot or event field.
type ValueKind int

const (
	KindBool ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindStringList
	KindObject     // nested record
	KindObjectList // ordered list of nested records
)

var kindNames = map[ValueKind]string{
	KindBool:       "bool",
	KindInt:        "int",
	KindFloat:      "float",
	KindString:     "string",
	KindStringList: "string_list",
	KindObject:     "object",
	KindObjectList: "object_list",
}

func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IsPrimitive reports whether k holds a scalar or string list rather than
// nested records. Only primitive kinds may be used for features.
func (k ValueKind) IsPrimitive() bool {
	return k >= KindBool && k <= KindStringList
}

// ParseValueKind converts a kind name ("bool", "int", "float", "string",
// "string_list") to a primitive ValueKind. Matching is case-insensitive.
func ParseValueKind(s string) (ValueKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bool", "boolean":
		return KindBool, nil
	case "int", "integer", "long":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "string_list", "strings":
		return KindStringList, nil
	default:
		return 0, errors.Newf("model: unknown value kind %q", s)
	}
}

// Accepts reports whether v is a valid value for a primitive kind.
// Floats accept integer values; object kinds are never accepted here.
func (k ValueKind) Accepts(v any) bool {
	switch k {
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		return isInteger(v)
	case KindFloat:
		switch v.(type) {
		case float32, float64:
			return true
		}
		return isInteger(v)
	case KindString:
		_, ok := v.(string)
		return ok
	case KindStringList:
		_, ok := v.([]string)
		return ok
	default:
		return false
	}
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}
