package engine

import (
	"github.com/Iron-Ham/crescendo/internal/conflict"
	"github.com/Iron-Ham/crescendo/internal/strategy"
)

// Notifier is the notification port: it receives structured payloads
// for external rendering. Implementations format and deliver; the
// engine only reports.
type Notifier interface {
	// ProgressUpdated reports an item's new completion percentage.
	ProgressUpdated(itemID string, percent float64)

	// ConflictProposed surfaces a conflict and its resolution menu.
	ConflictProposed(c *conflict.Conflict)

	// StrategyProposed surfaces a synthesized strategy awaiting
	// confirmation.
	StrategyProposed(s *strategy.Strategy)

	// Escalated surfaces a condition recovery could not resolve.
	Escalated(itemID, reason, errMsg string)
}

// nopNotifier drops every payload.
type nopNotifier struct{}

func (nopNotifier) ProgressUpdated(string, float64) {}

func (nopNotifier) ConflictProposed(*conflict.Conflict) {}

func (nopNotifier) StrategyProposed(*strategy.Strategy) {}

func (nopNotifier) Escalated(string, string, string) {}
