package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// Event is one emitted analytics event, as handed to output sinks.
type Event struct {
	ID           string    `json:"id"`
	Group        string    `json:"group"`
	GroupVersion int       `json:"group_version"`
	Name         string    `json:"event"`
	Timestamp    time.Time `json:"timestamp"`
	Data         Record    `json:"data"`
}

// Entry is one key/value pair of a Record.
type Entry struct {
	Key   string
	Value any // primitive, []string, Record or []Record
}

// Record is an ordered structured payload. It marshals to a JSON object whose
// keys keep insertion order.
type Record []Entry

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Without returns a copy of r with key removed.
func (r Record) Without(key string) Record {
	out := make(Record, 0, len(r))
	for _, e := range r {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}

// MarshalJSON encodes r as a JSON object in entry order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
