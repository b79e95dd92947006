package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Graph is the arena of WorkItems plus typed adjacency lists. All
// operations are safe for concurrent use; status mutations happen
// under one mutex so claims behave as atomic compare-and-set.
type Graph struct {
	mu    sync.RWMutex
	items map[string]*workitem.WorkItem
	out   map[string][]Edge // edges keyed by source item
	in    map[string][]Edge // reverse index keyed by target item

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithBus attaches an event bus. Lifecycle events are published after
// the triggering mutation's lock is released.
func WithBus(bus *event.Bus) Option {
	return func(g *Graph) {
		g.bus = bus
	}
}

// WithLogger attaches a logger for graph mutations.
func WithLogger(logger *logging.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		items:  make(map[string]*workitem.WorkItem),
		out:    make(map[string][]Edge),
		in:     make(map[string][]Edge),
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// publish sends events after the caller has dropped the graph lock.
// The bus is synchronous, so publishing under the lock would deadlock
// any handler that reads the graph back.
func (g *Graph) publish(events []event.Event) {
	if g.bus == nil {
		return
	}
	for _, e := range events {
		g.bus.Publish(e)
	}
}

// Add admits a draft item into the graph. The item transitions to
// pending and is immediately evaluated against its dependencies, so
// an unblocked item is ready in the same call.
func (g *Graph) Add(item *workitem.WorkItem) error {
	if item == nil {
		return errors.NewValidationError("item", "must not be nil")
	}
	if err := item.Validate(); err != nil {
		return err
	}

	g.mu.Lock()
	if _, exists := g.items[item.ID]; exists {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s already exists", item.ID), errors.ErrInvalidInput,
		).WithItemID(item.ID)
	}
	if err := workitem.ValidateTransition(item.Status, workitem.StatusPending); err != nil {
		g.mu.Unlock()
		return err
	}

	stored := item.Clone()
	stored.Status = workitem.StatusPending
	stored.UpdatedAt = time.Now()
	g.items[stored.ID] = stored

	events := []event.Event{
		event.NewItemCreatedEvent(stored.ID, stored.Description, stored.PriorityWeight),
	}
	events = append(events, g.evaluateLocked(stored.ID)...)
	g.mu.Unlock()

	g.logger.Debug("item admitted", "item_id", stored.ID, "status", g.statusOf(stored.ID))
	g.publish(events)
	return nil
}

// Get returns a clone of the item, or ErrItemNotFound.
func (g *Graph) Get(id string) (*workitem.WorkItem, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	item, ok := g.items[id]
	if !ok {
		return nil, errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	return item.Clone(), nil
}

// Items returns clones of every item, ordered by creation time then ID
// for determinism.
func (g *Graph) Items() []*workitem.WorkItem {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*workitem.WorkItem, 0, len(g.items))
	for _, item := range g.items {
		out = append(out, item.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ActiveItems returns clones of items currently participating in
// scheduling: pending, blocked, ready, or in progress.
func (g *Graph) ActiveItems() []*workitem.WorkItem {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*workitem.WorkItem
	for _, item := range g.items {
		if item.Status.IsActive() {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of items in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.items)
}

// StatusCounts returns the number of items in each status.
func (g *Graph) StatusCounts() map[workitem.Status]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	counts := make(map[workitem.Status]int)
	for _, item := range g.items {
		counts[item.Status]++
	}
	return counts
}

func (g *Graph) statusOf(id string) workitem.Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if item, ok := g.items[id]; ok {
		return item.Status
	}
	return ""
}

// AddEdge inserts a typed edge between two existing items. Ordering
// edges (blocks, enables) are checked for cycles first; an insertion
// that would create one is rejected with ErrCycleDetected and the
// graph is unchanged. A blocks edge immediately re-evaluates the
// target, demoting it from ready if the new predecessor is unmet.
func (g *Graph) AddEdge(from, to string, edgeType EdgeType, opts ...EdgeOption) error {
	if !edgeType.IsValid() {
		return errors.NewGraphError(
			fmt.Sprintf("unknown edge type %q", edgeType), errors.ErrInvalidInput,
		).WithEdge(edgeType.String())
	}
	if from == to {
		return errors.NewGraphError(
			"self edges are not allowed", errors.ErrInvalidInput,
		).WithItemID(from).WithEdge(edgeType.String())
	}

	edge := Edge{
		From:      from,
		To:        to,
		Type:      edgeType,
		Weight:    1.0,
		Source:    "explicit",
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&edge)
	}

	g.mu.Lock()
	if _, ok := g.items[from]; !ok {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", from), errors.ErrItemNotFound,
		).WithItemID(from)
	}
	if _, ok := g.items[to]; !ok {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("item %s not found", to), errors.ErrItemNotFound,
		).WithItemID(to)
	}
	if g.hasEdgeLocked(from, to, edgeType) {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("edge %s -[%s]-> %s already exists", from, edgeType, to),
			errors.ErrEdgeExists,
		).WithEdge(edgeType.String())
	}
	if edgeType.Ordering() && g.wouldCreateCycleLocked(from, to) {
		g.mu.Unlock()
		return errors.NewGraphError(
			fmt.Sprintf("edge %s -[%s]-> %s would create a cycle", from, edgeType, to),
			errors.ErrCycleDetected,
		).WithEdge(edgeType.String())
	}

	g.out[from] = append(g.out[from], edge)
	g.in[to] = append(g.in[to], edge)

	events := []event.Event{
		event.NewEdgeAddedEvent(from, to, edgeType.String(), edge.Source, edge.Weight),
	}
	if edgeType == EdgeBlocks {
		events = append(events, g.evaluateLocked(to)...)
	}
	g.mu.Unlock()

	g.logger.Debug("edge added", "from", from, "to", to, "type", edgeType.String())
	g.publish(events)
	return nil
}

// EdgeOption configures an edge on insertion.
type EdgeOption func(*Edge)

// WithWeight sets the edge weight, typically a classifier confidence.
func WithWeight(w float64) EdgeOption {
	return func(e *Edge) {
		e.Weight = w
	}
}

// WithSource records how the edge was detected.
func WithSource(source string) EdgeOption {
	return func(e *Edge) {
		e.Source = source
	}
}

// hasEdgeLocked reports whether an equivalent edge already exists.
// Symmetric edge types match in either direction.
func (g *Graph) hasEdgeLocked(from, to string, edgeType EdgeType) bool {
	for _, e := range g.out[from] {
		if e.To == to && e.Type == edgeType {
			return true
		}
	}
	if edgeType.Symmetric() {
		for _, e := range g.out[to] {
			if e.To == from && e.Type == edgeType {
				return true
			}
		}
	}
	return false
}

// wouldCreateCycleLocked reports whether adding an ordering edge
// from -> to would close a cycle, by walking ordering edges from "to"
// looking for "from". Iterative DFS keeps the check bounded on deep
// graphs.
func (g *Graph) wouldCreateCycleLocked(from, to string) bool {
	visited := make(map[string]bool)
	stack := []string{to}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == from {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, e := range g.out[current] {
			if e.Type.Ordering() {
				stack = append(stack, e.To)
			}
		}
	}
	return false
}

// Edges returns a copy of every edge in the graph.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Edge
	for _, edges := range g.out {
		out = append(out, edges...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// EdgesFrom returns copies of the edges leaving an item.
func (g *Graph) EdgesFrom(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.out[id]...)
}

// EdgesTo returns copies of the edges arriving at an item.
func (g *Graph) EdgesTo(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Edge(nil), g.in[id]...)
}

// unmetBlocksLocked counts blocks predecessors that have not reached a
// terminal state. Terminal predecessors (completed, aborted, merged)
// no longer gate their successors; keeping aborted predecessors as
// gates would deadlock the rest of a finite graph.
func (g *Graph) unmetBlocksLocked(id string) int {
	unmet := 0
	for _, e := range g.in[id] {
		if e.Type != EdgeBlocks {
			continue
		}
		pred, ok := g.items[e.From]
		if !ok {
			continue
		}
		if !pred.Status.IsTerminal() {
			unmet++
		}
	}
	return unmet
}

// evaluateLocked recomputes a schedulable item's position in the
// pending/blocked/ready lattice and applies the resulting transition.
// Returns status-change events for the caller to publish after
// unlocking.
func (g *Graph) evaluateLocked(id string) []event.Event {
	item, ok := g.items[id]
	if !ok {
		return nil
	}

	var target workitem.Status
	switch item.Status {
	case workitem.StatusPending, workitem.StatusBlocked, workitem.StatusReady:
		if g.unmetBlocksLocked(id) > 0 {
			target = workitem.StatusBlocked
		} else {
			target = workitem.StatusReady
		}
	default:
		return nil
	}
	if target == item.Status {
		return nil
	}
	return g.setStatusLocked(item, target)
}

// setStatusLocked applies a validated transition and returns the
// corresponding events. The caller must hold the write lock and must
// have checked legality; an illegal move here panics in tests via the
// returned nil.
func (g *Graph) setStatusLocked(item *workitem.WorkItem, to workitem.Status) []event.Event {
	from := item.Status
	if !workitem.CanTransition(from, to) {
		return nil
	}
	item.Status = to
	item.UpdatedAt = time.Now()
	return []event.Event{event.NewItemStatusChangedEvent(item.ID, from.String(), to.String())}
}
