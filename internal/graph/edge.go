package graph

import "time"

// EdgeType classifies the relationship an edge encodes between two
// work items.
type EdgeType string

const (
	// EdgeBlocks means the target cannot start until the source
	// completes. Participates in the acyclicity invariant.
	EdgeBlocks EdgeType = "blocks"

	// EdgeEnables means the source's completion unlocks or improves
	// the target without strictly gating it. Participates in the
	// acyclicity invariant.
	EdgeEnables EdgeType = "enables"

	// EdgeFeedsInto means the source's output is an input to the
	// target.
	EdgeFeedsInto EdgeType = "feeds_into"

	// EdgeParallelOK means the two items are known-safe to run
	// concurrently.
	EdgeParallelOK EdgeType = "parallel_ok"

	// EdgeSynergizesWith marks a detected beneficial relationship,
	// candidate for strategy clustering.
	EdgeSynergizesWith EdgeType = "synergizes_with"

	// EdgeCompetesWith marks two items contending for the same scarce
	// resource.
	EdgeCompetesWith EdgeType = "competes_with"
)

// String returns the string representation of the edge type.
func (t EdgeType) String() string {
	return string(t)
}

// Ordering reports whether this edge type participates in the
// topological ordering subgraph, which must stay acyclic.
func (t EdgeType) Ordering() bool {
	return t == EdgeBlocks || t == EdgeEnables
}

// Symmetric reports whether the relationship is undirected in
// meaning. Symmetric edges are stored once in canonical direction.
func (t EdgeType) Symmetric() bool {
	switch t {
	case EdgeParallelOK, EdgeSynergizesWith, EdgeCompetesWith:
		return true
	}
	return false
}

// IsValid returns true if t is a recognized edge type.
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeBlocks, EdgeEnables, EdgeFeedsInto, EdgeParallelOK,
		EdgeSynergizesWith, EdgeCompetesWith:
		return true
	}
	return false
}

// Edge is a typed dependency between two work items.
type Edge struct {
	// From is the source item ID.
	From string `json:"from"`

	// To is the target item ID.
	To string `json:"to"`

	// Type classifies the relationship.
	Type EdgeType `json:"type"`

	// Weight carries the classifier's confidence for detected edges,
	// or 1.0 for explicit ones.
	Weight float64 `json:"weight"`

	// Source records how the edge came to exist: "explicit",
	// "semantic", or "inferred".
	Source string `json:"source"`

	// CreatedAt is when the edge was inserted.
	CreatedAt time.Time `json:"created_at"`
}
