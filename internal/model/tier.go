package model

// Tier identifies a conceptual decision unit such as "document" or "symbol".
// Tiers are comparable and used as map keys.
type Tier struct {
	Name string
}

// NewTier returns the tier with the given name.
func NewTier(name string) Tier {
	return Tier{Name: name}
}

func (t Tier) String() string {
	return t.Name
}

// TierInstance is one concrete occurrence of a Tier during a session.
// Its identity is the pointer: two instances with equal values are still
// distinct unless they share the same *TierInstance.
type TierInstance struct {
	Tier  Tier
	Value any // opaque object the instance stands for
}

// NewInstance creates an instance of tier wrapping value.
func NewInstance(tier Tier, value any) *TierInstance {
	return &TierInstance{Tier: tier, Value: value}
}

// FeatureDeclaration is a named, typed feature slot declared for a tier.
type FeatureDeclaration struct {
	Name string
	Kind ValueKind
}

// Feature is a realized feature value computed during a session.
type Feature struct {
	Name  string
	Value any
}

// MainTierScheme declares a main tier: description features and analysis
// features (the outcome data gathered once the session has run).
type MainTierScheme struct {
	Tier        Tier
	Description []FeatureDeclaration
	Analysis    []FeatureDeclaration
}

// AdditionalTierScheme declares a contextual tier that is described but not
// analyzed.
type AdditionalTierScheme struct {
	Tier        Tier
	Description []FeatureDeclaration
}

// LevelScheme is the static declaration of one level of the session tree.
// Declaration order is preserved in the emitted event.
type LevelScheme struct {
	Main       []MainTierScheme
	Additional []AdditionalTierScheme
}
