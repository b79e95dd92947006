package classify

import "github.com/Iron-Ham/crescendo/internal/graph"

// RelationType is the classified relationship between two work items.
type RelationType string

const (
	// RelationSynergistic marks items that benefit from coordinated
	// execution; candidates for strategy clustering.
	RelationSynergistic RelationType = "synergistic"

	// RelationSequential marks items with a natural ordering.
	RelationSequential RelationType = "sequential"

	// RelationConflicting marks items contending for the same scarce
	// resource.
	RelationConflicting RelationType = "conflicting"

	// RelationIndependent marks items with no meaningful coupling.
	RelationIndependent RelationType = "independent"
)

// String returns the string representation of the relation type.
func (r RelationType) String() string {
	return string(r)
}

// TemporalRelation is the rule-table outcome over horizons and
// deadlines.
type TemporalRelation string

const (
	// TemporalAEnablesB means item A naturally precedes item B.
	TemporalAEnablesB TemporalRelation = "sequential_a_enables_b"

	// TemporalBEnablesA means item B naturally precedes item A.
	TemporalBEnablesA TemporalRelation = "sequential_b_enables_a"

	// TemporalSameHorizon means both items play out over the same
	// horizon, a precondition for weak synergy.
	TemporalSameHorizon TemporalRelation = "same_horizon_potential_synergy"

	// TemporalIndependent means the items' timelines are too far
	// apart to couple.
	TemporalIndependent TemporalRelation = "temporal_independent"
)

// Sequential reports whether the relation implies an ordering.
func (t TemporalRelation) Sequential() bool {
	return t == TemporalAEnablesB || t == TemporalBEnablesA
}

// Flip mirrors the relation for the reversed item pair.
func (t TemporalRelation) Flip() TemporalRelation {
	switch t {
	case TemporalAEnablesB:
		return TemporalBEnablesA
	case TemporalBEnablesA:
		return TemporalAEnablesB
	}
	return t
}

// CompetitionLevel grades resource contention between two items.
type CompetitionLevel string

const (
	CompetitionNone   CompetitionLevel = "none"
	CompetitionLow    CompetitionLevel = "low"
	CompetitionMedium CompetitionLevel = "medium"
	CompetitionHigh   CompetitionLevel = "high"
)

// String returns the string representation of the competition level.
func (c CompetitionLevel) String() string {
	return string(c)
}

// Signals is the raw per-signal breakdown behind a classification.
type Signals struct {
	// Cosine is the embedding cosine similarity.
	Cosine float64 `json:"cosine"`

	// ConceptOverlap is the Jaccard overlap of description tokens.
	ConceptOverlap float64 `json:"concept_overlap"`

	// ResourceAlignment is the Jaccard overlap of required
	// specialties.
	ResourceAlignment float64 `json:"resource_alignment"`

	// DeliverableCompat scores how compatible the two deliverable
	// types are.
	DeliverableCompat float64 `json:"deliverable_compat"`

	// Semantic is the weighted combination of the four similarity
	// components.
	Semantic float64 `json:"semantic"`

	// Temporal is the rule-table outcome, oriented A-to-B.
	Temporal TemporalRelation `json:"temporal"`

	// Competition is the resource-contention grade.
	Competition CompetitionLevel `json:"competition"`
}

// Result is a full classification of an item pair. Type and Confidence
// are symmetric in the pair; Signals.Temporal carries the direction.
type Result struct {
	// ItemA and ItemB identify the classified pair in call order.
	ItemA string `json:"item_a"`
	ItemB string `json:"item_b"`

	// Type is the classified relationship.
	Type RelationType `json:"type"`

	// Confidence is the classifier's confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// LowConfidence flags a result that fell below the confidence
	// floor and defaulted to independent.
	LowConfidence bool `json:"low_confidence,omitempty"`

	// Signals is the raw breakdown the policy decided on.
	Signals Signals `json:"signals"`
}

// Edge maps the classification to a graph edge, oriented by the
// temporal direction for sequential results. Returns false for
// independent results, which produce no edge.
func (r Result) Edge() (from, to string, edgeType graph.EdgeType, ok bool) {
	switch r.Type {
	case RelationSynergistic:
		return r.ItemA, r.ItemB, graph.EdgeSynergizesWith, true
	case RelationConflicting:
		return r.ItemA, r.ItemB, graph.EdgeCompetesWith, true
	case RelationSequential:
		if r.Signals.Temporal == TemporalBEnablesA {
			return r.ItemB, r.ItemA, graph.EdgeEnables, true
		}
		return r.ItemA, r.ItemB, graph.EdgeEnables, true
	}
	return "", "", "", false
}
