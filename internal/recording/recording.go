// Package recording decodes recorded sessions so they can be replayed
// through a session scheme.
//
// A recording is a YAML document stream with one session per document:
//
//	id: s-1
//	before: {attempt: 1}
//	outcome: finished
//	analysis: {duration_ms: 12}
//	tree:
//	  main: [{tier: document, ref: d1, description: {lines: 3}, analysis: {accepted: true}}]
//	  prediction: 0.7
//
// Mapping order is kept for pairs and features. Tier entries sharing a ref
// within one session resolve to the same instance.
package recording

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/model"
)

// Outcome is how a recorded session concluded.
type Outcome string

const (
	Finished     Outcome = "finished"
	StartFailure Outcome = "start_failure"
	Exception    Outcome = "exception"
)

// Session is one recorded session.
type Session struct {
	ID      string
	Outcome Outcome
	// Before holds the pairs logged before the session started.
	Before []eventlog.Pair
	// Analysis holds the pairs passed to the concluding call.
	Analysis []eventlog.Pair
	// Tree is the session tree. Only set for Finished sessions.
	Tree model.Node[any]
}

// Decoder reads sessions from a YAML stream.
type Decoder struct {
	dec *yaml.Decoder
	n   int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: yaml.NewDecoder(r)}
}

// Next returns the next session, or io.EOF when the stream is exhausted.
func (d *Decoder) Next() (*Session, error) {
	for {
		var doc yaml.Node
		if err := d.dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, errors.Wrap(err, "recording: decode")
		}
		if len(doc.Content) == 0 || doc.Content[0].Tag == "!!null" {
			continue
		}
		d.n++
		s, err := decodeSession(doc.Content[0], d.n)
		if err != nil {
			return nil, errors.Wrapf(err, "recording: session %d", d.n)
		}
		return s, nil
	}
}

// ReadAll decodes every session in r.
func ReadAll(r io.Reader) ([]*Session, error) {
	d := NewDecoder(r)
	var sessions []*Session
	for {
		s, err := d.Next()
		if errors.Is(err, io.EOF) {
			return sessions, nil
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
}

// Load reads all sessions from the file at path.
func Load(path string) ([]*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "recording: open")
	}
	defer f.Close()
	return ReadAll(f)
}

func decodeSession(n *yaml.Node, seq int) (*Session, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errors.Newf("line %d: session must be a mapping", n.Line)
	}
	s := &Session{ID: fmt.Sprintf("session-%d", seq)}
	refs := make(map[string]*model.TierInstance)
	var tree *yaml.Node

	err := eachEntry(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "id":
			err = v.Decode(&s.ID)
		case "outcome":
			err = v.Decode(&s.Outcome)
		case "before":
			s.Before, err = decodePairs(v)
		case "analysis":
			s.Analysis, err = decodePairs(v)
		case "tree":
			tree = v
		default:
			err = errors.Newf("line %d: unknown key %q", v.Line, key)
		}
		return errors.Wrapf(err, "%s", key)
	})
	if err != nil {
		return nil, err
	}

	switch s.Outcome {
	case Finished:
		if tree == nil {
			return nil, errors.Newf("%s: finished session has no tree", s.ID)
		}
		if s.Tree, err = decodeNode(tree, refs); err != nil {
			return nil, errors.Wrapf(err, "%s: tree", s.ID)
		}
	case StartFailure, Exception:
	case "":
		return nil, errors.Newf("%s: outcome is required", s.ID)
	default:
		return nil, errors.Newf("%s: unknown outcome %q", s.ID, s.Outcome)
	}
	return s, nil
}

// decodeNode builds one level of the session tree. A node with "nested" is
// nestable; any other node is terminal.
func decodeNode(n *yaml.Node, refs map[string]*model.TierInstance) (model.Node[any], error) {
	if n.Kind != yaml.MappingNode {
		return nil, errors.Newf("line %d: tree node must be a mapping", n.Line)
	}
	var (
		level      model.Level
		prediction any
		hasPred    bool
		nested     *yaml.Node
	)
	err := eachEntry(n, func(key string, v *yaml.Node) error {
		switch key {
		case "main":
			return eachItem(v, func(item *yaml.Node) error {
				e, err := decodeTierEntry(item, refs, true)
				if err != nil {
					return err
				}
				level.Main = append(level.Main, model.MainTierData{Instance: e.instance, Description: e.description, Analysis: e.analysis})
				return nil
			})
		case "additional":
			return eachItem(v, func(item *yaml.Node) error {
				e, err := decodeTierEntry(item, refs, false)
				if err != nil {
					return err
				}
				level.Additional = append(level.Additional, model.AdditionalTierData{Instance: e.instance, Description: e.description})
				return nil
			})
		case "prediction":
			if v.Tag == "!!null" {
				return nil
			}
			val, err := scalarValue(v)
			if err != nil {
				return errors.Wrap(err, "prediction")
			}
			prediction, hasPred = val, true
			return nil
		case "nested":
			nested = v
			return nil
		default:
			return errors.Newf("line %d: unknown tree key %q", v.Line, key)
		}
	})
	if err != nil {
		return nil, err
	}

	if nested == nil {
		if !hasPred {
			return model.NewAbsentPrediction[any](level), nil
		}
		return model.NewPrediction[any](level, prediction), nil
	}
	if hasPred {
		return nil, errors.Newf("line %d: node has both prediction and nested", n.Line)
	}
	var children []model.Node[any]
	err = eachItem(nested, func(item *yaml.Node) error {
		child, err := decodeNode(item, refs)
		if err != nil {
			return errors.Wrapf(err, "nested[%d]", len(children))
		}
		children = append(children, child)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model.NewNestable[any](level, children...), nil
}

type tierEntry struct {
	instance    *model.TierInstance
	description []model.Feature
	analysis    []model.Feature
}

func decodeTierEntry(n *yaml.Node, refs map[string]*model.TierInstance, main bool) (tierEntry, error) {
	if n.Kind != yaml.MappingNode {
		return tierEntry{}, errors.Newf("line %d: tier entry must be a mapping", n.Line)
	}
	var (
		e    tierEntry
		tier string
		ref  string
	)
	err := eachEntry(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "tier":
			err = v.Decode(&tier)
		case "ref":
			err = v.Decode(&ref)
		case "description":
			e.description, err = decodeFeatures(v)
		case "analysis":
			if !main {
				return errors.Newf("line %d: additional tiers have no analysis", v.Line)
			}
			e.analysis, err = decodeFeatures(v)
		default:
			err = errors.Newf("line %d: unknown tier key %q", v.Line, key)
		}
		return err
	})
	if err != nil {
		return tierEntry{}, err
	}
	if tier == "" {
		return tierEntry{}, errors.Newf("line %d: tier entry without a tier", n.Line)
	}
	e.instance, err = intern(refs, model.NewTier(tier), ref)
	if err != nil {
		return tierEntry{}, errors.Wrapf(err, "line %d", n.Line)
	}
	return e, nil
}

// intern returns the instance for ref, creating it on first use. An empty
// ref always makes a fresh instance.
func intern(refs map[string]*model.TierInstance, tier model.Tier, ref string) (*model.TierInstance, error) {
	if ref == "" {
		return model.NewInstance(tier, nil), nil
	}
	if inst, ok := refs[ref]; ok {
		if inst.Tier != tier {
			return nil, errors.Newf("ref %q is a %s instance, not %s", ref, inst.Tier, tier)
		}
		return inst, nil
	}
	inst := model.NewInstance(tier, ref)
	refs[ref] = inst
	return inst, nil
}

func decodeFeatures(n *yaml.Node) ([]model.Feature, error) {
	var fs []model.Feature
	err := eachEntry(n, func(key string, v *yaml.Node) error {
		val, err := scalarValue(v)
		if err != nil {
			return errors.Wrapf(err, "feature %q", key)
		}
		fs = append(fs, model.Feature{Name: key, Value: val})
		return nil
	})
	return fs, err
}

func decodePairs(n *yaml.Node) ([]eventlog.Pair, error) {
	var pairs []eventlog.Pair
	err := eachEntry(n, func(key string, v *yaml.Node) error {
		val, err := scalarValue(v)
		if err != nil {
			return errors.Wrapf(err, "pair %q", key)
		}
		p, err := eventlog.Infer(key, val)
		if err != nil {
			return err
		}
		pairs = append(pairs, p)
		return nil
	})
	return pairs, err
}

// scalarValue decodes a scalar or a sequence of strings.
func scalarValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case yaml.SequenceNode:
		list := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return nil, errors.Newf("line %d: lists may only hold strings", item.Line)
			}
			list = append(list, item.Value)
		}
		return list, nil
	default:
		return nil, errors.Newf("line %d: expected a scalar or a string list", n.Line)
	}
}

func eachEntry(n *yaml.Node, fn func(key string, v *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return errors.Newf("line %d: expected a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func eachItem(n *yaml.Node, fn func(item *yaml.Node) error) error {
	if n.Kind != yaml.SequenceNode {
		return errors.Newf("line %d: expected a list", n.Line)
	}
	for _, item := range n.Content {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}
