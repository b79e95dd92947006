package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// MemoryStore keeps all records in process memory. Safe for concurrent
// use; values are cloned on the way in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*workitem.WorkItem
	edges []graph.Edge
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*workitem.WorkItem),
	}
}

// SaveItem inserts or replaces the item record.
func (m *MemoryStore) SaveItem(_ context.Context, item *workitem.WorkItem) error {
	if item == nil || item.ID == "" {
		return errors.NewValidationError("item", "must have an ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item.Clone()
	return nil
}

// LoadItem returns a clone of the stored item.
func (m *MemoryStore) LoadItem(_ context.Context, id string) (*workitem.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok {
		return nil, errors.NewGraphError(
			fmt.Sprintf("item %s not found", id), errors.ErrItemNotFound,
		).WithItemID(id)
	}
	return item.Clone(), nil
}

// LoadItems returns clones of all matching items ordered by creation
// time then ID.
func (m *MemoryStore) LoadItems(_ context.Context, filter Filter) ([]*workitem.WorkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*workitem.WorkItem
	for _, item := range m.items {
		if filter.Match(item) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveEdge records the edge, ignoring exact duplicates.
func (m *MemoryStore) SaveEdge(_ context.Context, edge graph.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.edges {
		if e.From == edge.From && e.To == edge.To && e.Type == edge.Type {
			return nil
		}
	}
	m.edges = append(m.edges, edge)
	return nil
}

// LoadEdges returns a copy of all recorded edges.
func (m *MemoryStore) LoadEdges(_ context.Context) ([]graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]graph.Edge(nil), m.edges...), nil
}

// Similar ranks stored items by cosine similarity to the query vector.
func (m *MemoryStore) Similar(_ context.Context, vec []float64, k int) ([]Scored, error) {
	m.mu.RLock()
	items := make([]*workitem.WorkItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item.Clone())
	}
	m.mu.RUnlock()

	return rankBySimilarity(items, vec, k), nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
