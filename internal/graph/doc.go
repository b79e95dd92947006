// Package graph implements the dependency graph at the heart of the
// engine: an arena of WorkItems indexed by ID plus adjacency lists of
// typed edges.
//
// The graph owns item status. Every mutation goes through the
// workitem transition table under a single mutex, which is what makes
// the claim operation an atomic compare-and-set: "claim if status is
// ready" either wins or observes a benign duplicate-claim rejection.
// Ordering edges (blocks, enables) are kept acyclic by a DFS check on
// insertion; an edge that would create a cycle is refused and the
// graph is left untouched.
//
// All read operations return deep clones so callers can never alias
// internal state.
package graph
