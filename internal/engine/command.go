package engine

import "github.com/Iron-Ham/crescendo/internal/graph"

// Command is a typed mutation produced by an external interpreter.
type Command interface {
	isCommand()
}

// SetPriority changes an item's priority weight.
type SetPriority struct {
	ItemID string
	Weight float64
}

// AddExplicitEdge inserts a user-stated dependency edge.
type AddExplicitEdge struct {
	From string
	To   string
	Type graph.EdgeType
}

// PauseItem suspends an item.
type PauseItem struct {
	ItemID string
}

// ResumeItem returns a paused item to scheduling.
type ResumeItem struct {
	ItemID string
}

// CancelItem aborts an item and unblocks its successors.
type CancelItem struct {
	ItemID string
}

func (SetPriority) isCommand() {}

func (AddExplicitEdge) isCommand() {}

func (PauseItem) isCommand() {}

func (ResumeItem) isCommand() {}

func (CancelItem) isCommand() {}
