package workitem

import (
	"fmt"

	"github.com/Iron-Ham/crescendo/internal/errors"
)

// transitions is the authoritative state machine: for each status, the
// set of statuses it may move to. Terminal states have no entries —
// completed, aborted, and merged items never change again.
var transitions = map[Status]map[Status]bool{
	StatusDraft: {
		StatusPending: true,
		StatusAborted: true,
	},
	StatusPending: {
		StatusBlocked: true,
		StatusReady:   true,
		StatusPaused:  true,
		StatusAborted: true,
		StatusMerged:  true,
	},
	StatusBlocked: {
		StatusReady:   true,
		StatusPaused:  true,
		StatusAborted: true,
		StatusMerged:  true,
	},
	StatusReady: {
		// A new blocks edge can demote a ready item back to blocked.
		StatusBlocked:    true,
		StatusInProgress: true,
		StatusPaused:     true,
		StatusAborted:    true,
		StatusMerged:     true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusAborted:   true,
		// Stale-claim recovery releases the item back into the ready set.
		StatusReady: true,
	},
	StatusPaused: {
		StatusPending: true,
		StatusAborted: true,
	},
}

// CanTransition reports whether moving from one status to another is
// legal under the state machine.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// ValidateTransition returns nil if the move is legal, or an error
// wrapping errors.ErrInvalidTransition describing the rejected move.
// Invalid transitions are always rejected with an error, never
// silently ignored.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return errors.NewGraphError(
		fmt.Sprintf("cannot transition from %s to %s", from, to),
		errors.ErrInvalidTransition,
	)
}

// Validate checks the item's fields for structural problems. It does
// not consult the graph; edge-level invariants are enforced there.
func (w *WorkItem) Validate() error {
	if w.ID == "" {
		return errors.NewValidationError("id", "must not be empty")
	}
	if w.Description == "" {
		return errors.NewValidationError("description", "must not be empty")
	}
	if !w.Status.IsValid() {
		return errors.NewValidationError("status", fmt.Sprintf("unknown status %q", w.Status))
	}
	if w.PriorityWeight < 0 || w.PriorityWeight > 1 {
		return errors.NewValidationError("priority_weight", "must be within [0,1]")
	}
	if !w.Horizon.IsValid() {
		return errors.NewValidationError("horizon", fmt.Sprintf("unknown horizon %q", w.Horizon))
	}
	if w.EstimatedCost < 0 {
		return errors.NewValidationError("estimated_cost", "must be non-negative")
	}
	return nil
}
