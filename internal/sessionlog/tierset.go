package sessionlog

import (
	"github.com/cockroachdb/errors"

	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/model"
)

// tierSet holds the declared tiers of one kind (main or additional) on a
// level. It declares one object field per tier, named after the tier, and at
// build time turns the level's instances into (tier field, record) pairs.
type tierSet[D tierData] struct {
	kind   string // "main" or "additional", for messages
	order  []model.Tier
	fields map[model.Tier]eventlog.Field
	tiers  map[model.Tier]tierFields[D]
	desc   *eventlog.ObjectDescription
}

func newTierSet[D tierData](kind string, tiers []model.Tier, layouts []tierFields[D]) (*tierSet[D], error) {
	s := &tierSet[D]{
		kind:   kind,
		order:  tiers,
		fields: make(map[model.Tier]eventlog.Field, len(tiers)),
		tiers:  make(map[model.Tier]tierFields[D], len(tiers)),
	}
	fields := make([]eventlog.Field, 0, len(tiers))
	for i, tier := range tiers {
		if _, dup := s.tiers[tier]; dup {
			return nil, errors.Wrapf(ErrDuplicateDeclaration, "%s tier %q", kind, tier.Name)
		}
		field := eventlog.ObjectField(tier.Name, layouts[i].objectDescription())
		s.fields[tier] = field
		s.tiers[tier] = layouts[i]
		fields = append(fields, field)
	}
	var err error
	if s.desc, err = eventlog.NewObjectDescription(fields...); err != nil {
		return nil, errors.Wrapf(err, "%s tiers", kind)
	}
	return s, nil
}

func newMainTierSet(schemes []model.MainTierScheme) (*tierSet[model.MainTierData], error) {
	tiers := make([]model.Tier, 0, len(schemes))
	layouts := make([]tierFields[model.MainTierData], 0, len(schemes))
	for _, sc := range schemes {
		f, err := newMainTierFields(sc)
		if err != nil {
			return nil, errors.Wrapf(err, "main tier %q", sc.Tier.Name)
		}
		tiers = append(tiers, sc.Tier)
		layouts = append(layouts, f)
	}
	return newTierSet[model.MainTierData]("main", tiers, layouts)
}

func newAdditionalTierSet(schemes []model.AdditionalTierScheme) (*tierSet[model.AdditionalTierData], error) {
	tiers := make([]model.Tier, 0, len(schemes))
	layouts := make([]tierFields[model.AdditionalTierData], 0, len(schemes))
	for _, sc := range schemes {
		f, err := newAdditionalTierFields(sc)
		if err != nil {
			return nil, errors.Wrapf(err, "additional tier %q", sc.Tier.Name)
		}
		tiers = append(tiers, sc.Tier)
		layouts = append(layouts, f)
	}
	return newTierSet[model.AdditionalTierData]("additional", tiers, layouts)
}

// build emits one pair per instance present on the level. Declared tiers
// without an instance contribute nothing.
func (s *tierSet[D]) build(ids *instanceIDs, level []D) (eventlog.Object, error) {
	obj := make(eventlog.Object, 0, len(level))
	seen := make(map[model.Tier]struct{}, len(level))
	for _, data := range level {
		inst := data.TierInstance()
		if inst == nil {
			return nil, mismatchf("%s tier data without an instance", s.kind)
		}
		layout, ok := s.tiers[inst.Tier]
		if !ok {
			return nil, mismatchf("%s tier %q is not declared on this level", s.kind, inst.Tier.Name)
		}
		if _, dup := seen[inst.Tier]; dup {
			return nil, mismatchf("%s tier %q has more than one instance on this level", s.kind, inst.Tier.Name)
		}
		seen[inst.Tier] = struct{}{}

		record, err := layout.build(ids, data)
		if err != nil {
			return nil, errors.Wrapf(err, "%s tier %q", s.kind, inst.Tier.Name)
		}
		obj = append(obj, s.fields[inst.Tier].With(record))
	}
	return obj, nil
}
