package store

import (
	"context"
	"sort"

	"github.com/Iron-Ham/crescendo/internal/embed"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Filter narrows a LoadItems query. Zero-valued fields match
// everything.
type Filter struct {
	// Statuses restricts results to the given statuses.
	Statuses []workitem.Status

	// Specialty restricts results to items requiring the specialty.
	Specialty string

	// MinPriority restricts results to items at or above the weight.
	MinPriority float64
}

// Match reports whether an item satisfies the filter.
func (f Filter) Match(item *workitem.WorkItem) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if item.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Specialty != "" {
		found := false
		for _, s := range item.RequiredSpecialties {
			if s == f.Specialty {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.MinPriority > 0 && item.PriorityWeight < f.MinPriority {
		return false
	}
	return true
}

// Scored pairs an item with its similarity to a query vector.
type Scored struct {
	Item       *workitem.WorkItem
	Similarity float64
}

// Store is the persistence port for graph state.
type Store interface {
	// SaveItem inserts or updates an item record.
	SaveItem(ctx context.Context, item *workitem.WorkItem) error

	// LoadItem returns the item with the given ID.
	LoadItem(ctx context.Context, id string) (*workitem.WorkItem, error)

	// LoadItems returns all items matching the filter, ordered by
	// creation time then ID.
	LoadItems(ctx context.Context, filter Filter) ([]*workitem.WorkItem, error)

	// SaveEdge inserts an edge record. Saving the same edge twice is
	// a no-op.
	SaveEdge(ctx context.Context, edge graph.Edge) error

	// LoadEdges returns all edge records.
	LoadEdges(ctx context.Context) ([]graph.Edge, error)

	// Similar returns up to k stored items ranked by cosine
	// similarity to the query vector, most similar first. Items
	// without embeddings are skipped.
	Similar(ctx context.Context, vec []float64, k int) ([]Scored, error)

	// Close releases any underlying resources.
	Close() error
}

// rankBySimilarity is the shared top-k implementation: both stores
// hold small enough graphs that scoring every embedded item is cheaper
// than maintaining an index.
func rankBySimilarity(items []*workitem.WorkItem, vec []float64, k int) []Scored {
	var scored []Scored
	for _, item := range items {
		if len(item.Embedding) == 0 {
			continue
		}
		scored = append(scored, Scored{
			Item:       item,
			Similarity: embed.Cosine(vec, item.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Item.ID < scored[j].Item.ID
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
