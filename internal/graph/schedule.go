package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// ReadySet returns clones of all dispatchable items ordered by
// priority weight descending, then creation time ascending, then ID.
// The ordering is deterministic for a fixed graph snapshot.
func (g *Graph) ReadySet() []*workitem.WorkItem {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*workitem.WorkItem
	for _, item := range g.items {
		if item.Status == workitem.StatusReady {
			ready = append(ready, item.Clone())
		}
	}
	sortByPriority(ready)
	return ready
}

func sortByPriority(items []*workitem.WorkItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].PriorityWeight != items[j].PriorityWeight {
			return items[i].PriorityWeight > items[j].PriorityWeight
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// Claim atomically moves a ready item to in_progress. Exactly one of
// N concurrent claims on the same item succeeds; the rest receive an
// error wrapping ErrDuplicateClaim, which is an expected outcome of a
// claim race and not worth logging as a failure.
func (g *Graph) Claim(id string) (*workitem.WorkItem, error) {
	g.mu.Lock()

	item, ok := g.items[id]
	if !ok {
		g.mu.Unlock()
		return nil, errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	if item.Status != workitem.StatusReady {
		status := item.Status
		g.mu.Unlock()
		return nil, errors.NewGraphError(
			fmt.Sprintf("item %s is %s, not ready", id, status), errors.ErrDuplicateClaim,
		).WithItemID(id)
	}

	events := g.setStatusLocked(item, workitem.StatusInProgress)
	now := time.Now()
	item.ClaimedAt = &now
	claimed := item.Clone()
	g.mu.Unlock()

	g.publish(events)
	return claimed, nil
}

// MarkRunning records the dispatched worker's acknowledgment of a
// claim. Exactly one acknowledgment per claim cycle succeeds; a second
// one, or one for an item whose claim was already released, fails with
// ErrDuplicateClaim so the loser knows not to execute.
func (g *Graph) MarkRunning(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	item, ok := g.items[id]
	if !ok {
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	if item.Status != workitem.StatusInProgress || item.StartedAt != nil {
		return errors.NewGraphError(
			fmt.Sprintf("item %s has no unacknowledged claim", id), errors.ErrDuplicateClaim,
		).WithItemID(id)
	}
	now := time.Now()
	item.StartedAt = &now
	return nil
}

// ReleaseStaleClaims returns claimed items whose worker never
// acknowledged the claim within maxAge to the ready set, and reports
// the released IDs. Acknowledged claims are left alone however long
// they run; the dispatch timeout bounds those. Covers workers that
// died between claiming and starting.
func (g *Graph) ReleaseStaleClaims(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	g.mu.Lock()
	var released []string
	var events []event.Event
	for _, item := range g.items {
		if item.Status != workitem.StatusInProgress || item.ClaimedAt == nil {
			continue
		}
		if item.StartedAt != nil {
			continue
		}
		if item.ClaimedAt.After(cutoff) {
			continue
		}
		item.ClaimedAt = nil
		events = append(events, g.setStatusLocked(item, workitem.StatusReady)...)
		released = append(released, item.ID)
	}
	g.mu.Unlock()

	g.publish(events)
	if len(released) > 0 {
		g.logger.Warn("released stale claims", "count", len(released))
	}
	sort.Strings(released)
	return released
}

// TopologicalSort returns every item ID in an order consistent with
// the ordering subgraph (blocks, enables), breaking ties by priority
// descending then creation time. The acyclicity invariant guarantees
// this always succeeds for a graph built through AddEdge.
func (g *Graph) TopologicalSort() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	indegree := make(map[string]int, len(g.items))
	for id := range g.items {
		indegree[id] = 0
	}
	for _, edges := range g.out {
		for _, e := range edges {
			if e.Type.Ordering() {
				indegree[e.To]++
			}
		}
	}

	frontier := make([]*workitem.WorkItem, 0, len(g.items))
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, g.items[id])
		}
	}

	order := make([]string, 0, len(g.items))
	for len(frontier) > 0 {
		sortByPriority(frontier)
		next := frontier[0]
		frontier = frontier[1:]
		order = append(order, next.ID)

		for _, e := range g.out[next.ID] {
			if !e.Type.Ordering() {
				continue
			}
			indegree[e.To]--
			if indegree[e.To] == 0 {
				frontier = append(frontier, g.items[e.To])
			}
		}
	}
	return order
}
