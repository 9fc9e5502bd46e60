// Package manifest loads session event declarations from YAML or TOML files.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/tierlog/internal/model"
	"github.com/crimson-sun/tierlog/internal/sessionlog"
)

// Format is the encoding of a manifest file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.Newf("manifest: unsupported file extension %q", filepath.Ext(path))
	}
}

// Manifest declares one session event.
type Manifest struct {
	Event      string     `yaml:"event" toml:"event"`
	Prediction Prediction `yaml:"prediction" toml:"prediction"`
	Levels     []Level    `yaml:"levels" toml:"levels"`
}

// Prediction declares the raw prediction of terminal levels. When Threshold
// is set the prediction is a score and the logged value is score >= Threshold.
type Prediction struct {
	Kind      string   `yaml:"kind" toml:"kind"`
	Threshold *float64 `yaml:"threshold,omitempty" toml:"threshold,omitempty"`
}

// Level declares the tiers of one level, outermost level first.
type Level struct {
	Main       []MainTier       `yaml:"main" toml:"main"`
	Additional []AdditionalTier `yaml:"additional" toml:"additional"`
}

type MainTier struct {
	Tier        string    `yaml:"tier" toml:"tier"`
	Description []Feature `yaml:"description" toml:"description"`
	Analysis    []Feature `yaml:"analysis" toml:"analysis"`
}

type AdditionalTier struct {
	Tier        string    `yaml:"tier" toml:"tier"`
	Description []Feature `yaml:"description" toml:"description"`
}

type Feature struct {
	Name string `yaml:"name" toml:"name"`
	Kind string `yaml:"kind" toml:"kind"`
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "manifest: read")
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest: %s", path)
	}
	return m, nil
}

// Parse decodes and validates a manifest.
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(err, "manifest: decode yaml")
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(err, "manifest: decode toml")
		}
	default:
		return nil, errors.Newf("manifest: unknown format %q", format)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names and kinds. Duplicate tiers and features are left to
// sessionlog.New, which reports them with ErrDuplicateDeclaration.
func (m *Manifest) Validate() error {
	if m.Event == "" {
		return errors.New("manifest: event name is required")
	}
	if len(m.Levels) == 0 {
		return errors.Wrap(sessionlog.ErrNoLevels, "manifest")
	}
	if _, err := m.PredictionKind(); err != nil {
		return err
	}
	_, err := m.LevelSchemes()
	return err
}

// PredictionKind returns the kind of the logged prediction value.
func (m *Manifest) PredictionKind() (model.ValueKind, error) {
	if m.Prediction.Threshold != nil {
		return model.KindBool, nil
	}
	if m.Prediction.Kind == "" {
		return 0, errors.New("manifest: prediction kind is required")
	}
	k, err := model.ParseValueKind(m.Prediction.Kind)
	if err != nil {
		return 0, errors.Wrap(err, "manifest: prediction")
	}
	return k, nil
}

// LevelSchemes converts the declared levels, preserving order.
func (m *Manifest) LevelSchemes() ([]model.LevelScheme, error) {
	levels := make([]model.LevelScheme, 0, len(m.Levels))
	for i, l := range m.Levels {
		var ls model.LevelScheme
		for _, t := range l.Main {
			if t.Tier == "" {
				return nil, errors.Newf("manifest: level %d: main tier without a name", i+1)
			}
			desc, err := features(t.Description)
			if err != nil {
				return nil, errors.Wrapf(err, "manifest: level %d: tier %q description", i+1, t.Tier)
			}
			analysis, err := features(t.Analysis)
			if err != nil {
				return nil, errors.Wrapf(err, "manifest: level %d: tier %q analysis", i+1, t.Tier)
			}
			ls.Main = append(ls.Main, model.MainTierScheme{Tier: model.NewTier(t.Tier), Description: desc, Analysis: analysis})
		}
		for _, t := range l.Additional {
			if t.Tier == "" {
				return nil, errors.Newf("manifest: level %d: additional tier without a name", i+1)
			}
			desc, err := features(t.Description)
			if err != nil {
				return nil, errors.Wrapf(err, "manifest: level %d: tier %q description", i+1, t.Tier)
			}
			ls.Additional = append(ls.Additional, model.AdditionalTierScheme{Tier: model.NewTier(t.Tier), Description: desc})
		}
		levels = append(levels, ls)
	}
	return levels, nil
}

func features(fs []Feature) ([]model.FeatureDeclaration, error) {
	out := make([]model.FeatureDeclaration, 0, len(fs))
	for _, f := range fs {
		if f.Name == "" {
			return nil, errors.New("feature without a name")
		}
		k, err := model.ParseValueKind(f.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "feature %q", f.Name)
		}
		out = append(out, model.FeatureDeclaration{Name: f.Name, Kind: k})
	}
	return out, nil
}

// Transform returns the prediction transform. With a threshold, numeric
// predictions become booleans; anything else passes through unchanged so the
// scheme reports the kind mismatch.
func (m *Manifest) Transform() sessionlog.PredictionTransform[any] {
	if m.Prediction.Threshold == nil {
		return sessionlog.Identity[any]()
	}
	t := *m.Prediction.Threshold
	return func(p any, present bool) (any, bool) {
		if !present || p == nil {
			return nil, false
		}
		score, ok := toFloat(p)
		if !ok {
			return p, true
		}
		return score >= t, true
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Declaration returns the sessionlog declaration for the manifest.
func (m *Manifest) Declaration() (sessionlog.Declaration[any], error) {
	levels, err := m.LevelSchemes()
	if err != nil {
		return sessionlog.Declaration[any]{}, err
	}
	kind, err := m.PredictionKind()
	if err != nil {
		return sessionlog.Declaration[any]{}, err
	}
	return sessionlog.Declaration[any]{
		Event:      m.Event,
		Levels:     levels,
		Prediction: kind,
		Transform:  m.Transform(),
	}, nil
}
