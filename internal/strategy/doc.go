// Package strategy clusters synergistic work items and synthesizes
// phased strategies for them.
//
// Clustering is connected components over the synergizes_with edges,
// computed with a union-find. Each cluster of two or more items gets a
// strategy: a named pattern matched by keyword heuristics when one
// fits, otherwise a generic three-phase template (integrated planning,
// parallel execution, consolidation). Phases order by the ascending
// time horizon of the member items, fastest path first.
//
// Pattern templates can be supplied as a YAML file which is watched
// and hot-reloaded on change. Proposed strategies stay in draft until
// confirmed, unless auto-activation is configured.
package strategy
