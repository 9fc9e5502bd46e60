package sessionlog

import (
	"github.com/crimson-sun/tierlog/internal/eventlog"
	"github.com/crimson-sun/tierlog/internal/model"
)

const (
	fieldID          = "id"
	fieldDescription = "description"
	fieldAnalysis    = "analysis"
)

// tierData is the runtime data of one tier instance on a level.
type tierData interface {
	model.MainTierData | model.AdditionalTierData
	TierInstance() *model.TierInstance
}

// tierFields is the per-tier record layout: {id, description} for
// additional tiers and {id, description, analysis} for main tiers.
type tierFields[D tierData] interface {
	objectDescription() *eventlog.ObjectDescription
	build(ids *instanceIDs, data D) (eventlog.Object, error)
}

// instanceIDs numbers tier instances in order of first appearance while one
// event is built. The same instance keeps its number across levels.
type instanceIDs struct {
	next int
	ids  map[*model.TierInstance]int
}

func newInstanceIDs() *instanceIDs {
	return &instanceIDs{ids: make(map[*model.TierInstance]int)}
}

func (s *instanceIDs) of(inst *model.TierInstance) int {
	if id, ok := s.ids[inst]; ok {
		return id
	}
	s.next++
	s.ids[inst] = s.next
	return s.next
}

type additionalTierFields struct {
	id          eventlog.Field
	description eventlog.Field
	features    *featureSet
	desc        *eventlog.ObjectDescription
}

func newAdditionalTierFields(scheme model.AdditionalTierScheme) (*additionalTierFields, error) {
	features, err := newFeatureSet(scheme.Description)
	if err != nil {
		return nil, err
	}
	f := &additionalTierFields{
		id:          eventlog.IntField(fieldID),
		description: eventlog.ObjectField(fieldDescription, features.partitioned),
		features:    features,
	}
	if f.desc, err = eventlog.NewObjectDescription(f.id, f.description); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *additionalTierFields) objectDescription() *eventlog.ObjectDescription { return f.desc }

func (f *additionalTierFields) build(ids *instanceIDs, data model.AdditionalTierData) (eventlog.Object, error) {
	description, err := f.features.encodePartitioned(data.Description)
	if err != nil {
		return nil, err
	}
	return eventlog.Object{
		f.id.With(ids.of(data.Instance)),
		f.description.With(description),
	}, nil
}

type mainTierFields struct {
	id          eventlog.Field
	description eventlog.Field
	analysis    eventlog.Field
	described   *featureSet
	analyzed    *featureSet
	desc        *eventlog.ObjectDescription
}

func newMainTierFields(scheme model.MainTierScheme) (*mainTierFields, error) {
	described, err := newFeatureSet(scheme.Description)
	if err != nil {
		return nil, err
	}
	analyzed, err := newFeatureSet(scheme.Analysis)
	if err != nil {
		return nil, err
	}
	f := &mainTierFields{
		id:          eventlog.IntField(fieldID),
		description: eventlog.ObjectField(fieldDescription, described.partitioned),
		analysis:    eventlog.ObjectField(fieldAnalysis, analyzed.values),
		described:   described,
		analyzed:    analyzed,
	}
	if f.desc, err = eventlog.NewObjectDescription(f.id, f.description, f.analysis); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *mainTierFields) objectDescription() *eventlog.ObjectDescription { return f.desc }

func (f *mainTierFields) build(ids *instanceIDs, data model.MainTierData) (eventlog.Object, error) {
	description, err := f.described.encodePartitioned(data.Description)
	if err != nil {
		return nil, err
	}
	analysis, err := f.analyzed.encodeFlat(data.Analysis)
	if err != nil {
		return nil, err
	}
	return eventlog.Object{
		f.id.With(ids.of(data.Instance)),
		f.description.With(description),
		f.analysis.With(analysis),
	}, nil
}
