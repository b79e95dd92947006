// Package conflict detects and resolves contention between active
// work items.
//
// Three conflict types are recognized: resource (two items compete for
// an overloaded specialist or the remaining budget), temporal (shared
// specialists with deadlines in the same window), and strategic (one
// item framed for quick wins, the other for long-term positioning).
// Each detected conflict carries a resolution menu. Resolutions marked
// auto-safe (priority boosts) can be applied without confirmation when
// the resolver is configured for it; everything else is surfaced and
// waits for an explicit choice. Accepted resolutions become
// competes_with or blocks edges, pauses, or priority mutations on the
// dependency graph.
package conflict
