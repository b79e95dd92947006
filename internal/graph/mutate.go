package graph

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Complete records a successful terminal result for an in_progress
// item, then re-evaluates every direct ordering successor. Returns the
// IDs of successors promoted to ready by this completion.
func (g *Graph) Complete(id string, result *workitem.Result) ([]string, error) {
	return g.finish(id, workitem.StatusCompleted, result)
}

// Abort records a failed terminal result for an in_progress item.
// Successors are still re-evaluated: a terminal predecessor no longer
// gates them.
func (g *Graph) Abort(id string, result *workitem.Result) ([]string, error) {
	return g.finish(id, workitem.StatusAborted, result)
}

func (g *Graph) finish(id string, terminal workitem.Status, result *workitem.Result) ([]string, error) {
	g.mu.Lock()

	item, ok := g.items[id]
	if !ok {
		g.mu.Unlock()
		return nil, errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	if err := workitem.ValidateTransition(item.Status, terminal); err != nil {
		g.mu.Unlock()
		return nil, err
	}

	events := g.setStatusLocked(item, terminal)
	item.ClaimedAt = nil
	item.StartedAt = nil
	if result != nil {
		r := *result
		if r.CompletedAt.IsZero() {
			r.CompletedAt = time.Now()
		}
		item.Result = &r
	}

	var cost float64
	var degraded bool
	var output string
	if item.Result != nil {
		cost = item.Result.Cost
		degraded = item.Result.Degraded
		output = item.Result.Output
	}
	events = append(events, event.NewItemCompletedEvent(
		id, terminal == workitem.StatusCompleted, degraded, cost, output,
	))

	promoted, promoEvents := g.promoteSuccessorsLocked(id)
	events = append(events, promoEvents...)
	g.mu.Unlock()

	g.logger.Info("item finished",
		"item_id", id, "status", terminal.String(), "promoted", len(promoted))
	g.publish(events)
	return promoted, nil
}

// promoteSuccessorsLocked re-evaluates every direct ordering successor
// of a newly terminal item and reports which became ready.
func (g *Graph) promoteSuccessorsLocked(id string) ([]string, []event.Event) {
	var promoted []string
	var events []event.Event
	for _, e := range g.out[id] {
		if !e.Type.Ordering() {
			continue
		}
		successor, ok := g.items[e.To]
		if !ok {
			continue
		}
		before := successor.Status
		events = append(events, g.evaluateLocked(e.To)...)
		if before != workitem.StatusReady && successor.Status == workitem.StatusReady {
			promoted = append(promoted, e.To)
		}
	}
	return promoted, events
}

// Pause suspends a schedulable item. Paused items are skipped by the
// ready set until resumed.
func (g *Graph) Pause(id string) error {
	return g.transition(id, workitem.StatusPaused)
}

// Resume returns a paused item to pending and immediately re-evaluates
// it, so an unblocked item comes back as ready.
func (g *Graph) Resume(id string) error {
	g.mu.Lock()

	item, ok := g.items[id]
	if !ok {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	if err := workitem.ValidateTransition(item.Status, workitem.StatusPending); err != nil {
		g.mu.Unlock()
		return err
	}

	events := g.setStatusLocked(item, workitem.StatusPending)
	events = append(events, g.evaluateLocked(id)...)
	g.mu.Unlock()

	g.publish(events)
	return nil
}

// Cancel aborts an item from any non-terminal state and re-evaluates
// its ordering successors, since a terminal predecessor no longer
// gates them.
func (g *Graph) Cancel(id string) error {
	g.mu.Lock()

	item, ok := g.items[id]
	if !ok {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	if err := workitem.ValidateTransition(item.Status, workitem.StatusAborted); err != nil {
		g.mu.Unlock()
		return err
	}

	events := g.setStatusLocked(item, workitem.StatusAborted)
	item.ClaimedAt = nil
	item.StartedAt = nil
	_, promoEvents := g.promoteSuccessorsLocked(id)
	events = append(events, promoEvents...)
	g.mu.Unlock()

	g.logger.Info("item cancelled", "item_id", id)
	g.publish(events)
	return nil
}

// transition applies a single validated status change.
func (g *Graph) transition(id string, to workitem.Status) error {
	g.mu.Lock()

	item, ok := g.items[id]
	if !ok {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	if err := workitem.ValidateTransition(item.Status, to); err != nil {
		g.mu.Unlock()
		return err
	}

	events := g.setStatusLocked(item, to)
	g.mu.Unlock()

	g.publish(events)
	return nil
}

// SetPriority updates an item's priority weight, clamped to [0,1].
// Takes effect on the next scheduling pass.
func (g *Graph) SetPriority(id string, weight float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	item, ok := g.items[id]
	if !ok {
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	item.PriorityWeight = workitem.ClampPriority(weight)
	item.UpdatedAt = time.Now()
	return nil
}

// UpdateEmbedding attaches an embedding vector to an item.
func (g *Graph) UpdateEmbedding(id string, vec []float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	item, ok := g.items[id]
	if !ok {
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	item.Embedding = append([]float64(nil), vec...)
	item.UpdatedAt = time.Now()
	return nil
}

// UpdateAllocatedCost records the budget currently reserved for an
// item. Zero clears the allocation.
func (g *Graph) UpdateAllocatedCost(id string, amount float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	item, ok := g.items[id]
	if !ok {
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	item.AllocatedCost = amount
	item.UpdatedAt = time.Now()
	return nil
}

// Merge absorbs the source item into the target. The source becomes
// terminal (merged) with its MergedInto pointer set; the target
// records the absorption in MergedFrom. In-progress items cannot be
// merged.
func (g *Graph) Merge(sourceID, targetID string) error {
	if sourceID == targetID {
		return errors.NewGraphError(
			"cannot merge an item into itself", errors.ErrInvalidInput,
		).WithItemID(sourceID)
	}

	g.mu.Lock()

	source, ok := g.items[sourceID]
	if !ok {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", sourceID), errors.ErrItemNotFound,
		).WithItemID(sourceID)
	}
	target, ok := g.items[targetID]
	if !ok {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", targetID), errors.ErrItemNotFound,
		).WithItemID(targetID)
	}
	if err := workitem.ValidateTransition(source.Status, workitem.StatusMerged); err != nil {
		g.mu.Unlock()
		return err
	}

	events := g.setStatusLocked(source, workitem.StatusMerged)
	source.MergedInto = targetID
	target.MergedFrom = append(target.MergedFrom, sourceID)
	target.UpdatedAt = time.Now()

	_, promoEvents := g.promoteSuccessorsLocked(sourceID)
	events = append(events, promoEvents...)
	g.mu.Unlock()

	g.logger.Info("item merged", "source", sourceID, "target", targetID)
	g.publish(events)
	return nil
}
