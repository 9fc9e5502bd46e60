package model

import (
	"encoding/json"
	"testing"
)

func TestRecordMarshalKeepsOrder(t *testing.T) {
	r := Record{
		{Key: "zeta", Value: 1},
		{Key: "alpha", Value: Record{{Key: "b", Value: true}, {Key: "a", Value: "x"}}},
		{Key: "list", Value: []Record{{}, {{Key: "k", Value: 2.5}}}},
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"zeta":1,"alpha":{"b":true,"a":"x"},"list":[{},{"k":2.5}]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestEmptyRecordMarshalsToObject(t *testing.T) {
	var r Record
	data, err := json.Marshal(Event{Data: r})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if _, ok := m["data"].(map[string]any); !ok {
		t.Errorf("data = %#v, want empty object", m["data"])
	}
}

func TestRecordGetAndWithout(t *testing.T) {
	r := Record{{Key: "structure", Value: 1}, {Key: "session", Value: 2}}
	if v, ok := r.Get("session"); !ok || v != 2 {
		t.Errorf("Get(session) = %v, %v", v, ok)
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) reported a value")
	}
	trimmed := r.Without("structure")
	if len(trimmed) != 1 || trimmed[0].Key != "session" {
		t.Errorf("Without(structure) = %v", trimmed)
	}
	if len(r) != 2 {
		t.Errorf("Without mutated the receiver: %v", r)
	}
}

func TestParseValueKind(t *testing.T) {
	tests := []struct {
		input string
		want  ValueKind
	}{
		{"bool", KindBool},
		{"BOOLEAN", KindBool},
		{"int", KindInt},
		{"long", KindInt},
		{"float", KindFloat},
		{"double", KindFloat},
		{"string", KindString},
		{" string_list ", KindStringList},
	}
	for _, tt := range tests {
		got, err := ParseValueKind(tt.input)
		if err != nil {
			t.Errorf("ParseValueKind(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseValueKind(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
	if _, err := ParseValueKind("object"); err == nil {
		t.Error("ParseValueKind(object) should fail: objects are not feature kinds")
	}
}

func TestValueKindAccepts(t *testing.T) {
	tests := []struct {
		kind ValueKind
		v    any
		want bool
	}{
		{KindBool, true, true},
		{KindBool, 1, false},
		{KindInt, 3, true},
		{KindInt, int64(3), true},
		{KindInt, 3.0, false},
		{KindFloat, 0.5, true},
		{KindFloat, 2, true},
		{KindString, "x", true},
		{KindString, []string{"x"}, false},
		{KindStringList, []string{"a"}, true},
		{KindObject, Record{}, false},
	}
	for _, tt := range tests {
		if got := tt.kind.Accepts(tt.v); got != tt.want {
			t.Errorf("%v.Accepts(%#v) = %v, want %v", tt.kind, tt.v, got, tt.want)
		}
	}
}

func TestNodeConstructors(t *testing.T) {
	leaf := NewPrediction(Level{}, true)
	if !leaf.HasPrediction || !leaf.Prediction {
		t.Errorf("NewPrediction = %+v", leaf)
	}
	absent := NewAbsentPrediction[bool](Level{})
	if absent.HasPrediction {
		t.Error("NewAbsentPrediction has a prediction")
	}
	root := NewNestable[bool](Level{}, leaf, absent)
	if len(root.Children) != 2 || root.Children[0] != Node[bool](leaf) {
		t.Errorf("NewNestable children = %v", root.Children)
	}
	if root.LevelData() != &root.Level {
		t.Error("LevelData does not point at the embedded level")
	}
}
