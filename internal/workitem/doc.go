// Package workitem defines the WorkItem entity and its status state
// machine. A WorkItem unifies "task" and "goal": it carries a
// description, an embedding vector for similarity classification, a
// priority weight, a time horizon, cost estimates, and merge pointers.
//
// WorkItems are owned by the dependency graph and must only be mutated
// through operations that go through a validated status transition.
// The transition table lives here so every component agrees on which
// moves are legal; the graph package enforces it atomically.
package workitem
