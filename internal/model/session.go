package model

// MainTierData is the realized data of one main tier instance on a level.
type MainTierData struct {
	Instance    *TierInstance
	Description []Feature
	Analysis    []Feature
}

// TierInstance returns the instance the data belongs to.
func (d MainTierData) TierInstance() *TierInstance { return d.Instance }

// AdditionalTierData is the realized description of one additional tier
// instance on a level.
type AdditionalTierData struct {
	Instance    *TierInstance
	Description []Feature
}

// TierInstance returns the instance the data belongs to.
func (d AdditionalTierData) TierInstance() *TierInstance { return d.Instance }

// Level holds the tier instances realized on one level of a session.
type Level struct {
	Main       []MainTierData
	Additional []AdditionalTierData
}

// Node is one level of a concrete session tree. It is either a
// *PredictionNode (the deepest level, carrying the prediction) or a
// *NestableNode (an inner level with ordered children).
type Node[P any] interface {
	LevelData() *Level
	node()
}

// PredictionNode is a terminal level. HasPrediction is false when the
// session produced no prediction.
type PredictionNode[P any] struct {
	Level
	Prediction    P
	HasPrediction bool
}

func (n *PredictionNode[P]) LevelData() *Level { return &n.Level }
func (*PredictionNode[P]) node()               {}

// NestableNode is an inner level whose children are one level deeper.
type NestableNode[P any] struct {
	Level
	Children []Node[P]
}

func (n *NestableNode[P]) LevelData() *Level { return &n.Level }
func (*NestableNode[P]) node()               {}

// NewPrediction returns a terminal node carrying prediction.
func NewPrediction[P any](level Level, prediction P) *PredictionNode[P] {
	return &PredictionNode[P]{Level: level, Prediction: prediction, HasPrediction: true}
}

// NewAbsentPrediction returns a terminal node with no prediction.
func NewAbsentPrediction[P any](level Level) *PredictionNode[P] {
	return &PredictionNode[P]{Level: level}
}

// NewNestable returns an inner node with the given children, in order.
func NewNestable[P any](level Level, children ...Node[P]) *NestableNode[P] {
	return &NestableNode[P]{Level: level, Children: children}
}
