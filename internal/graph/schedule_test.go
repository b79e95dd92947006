package graph

import (
	"testing"
	"time"

	"github.com/Iron-Ham/crescendo/internal/workitem"
)

func TestReadySet_Ordering(t *testing.T) {
	g := New()
	base := time.Now()

	low := workitem.New("low", workitem.WithID("low"), workitem.WithPriority(0.2))
	high := workitem.New("high", workitem.WithID("high"), workitem.WithPriority(0.9))
	older := workitem.New("older", workitem.WithID("older"), workitem.WithPriority(0.5))
	newer := workitem.New("newer", workitem.WithID("newer"), workitem.WithPriority(0.5))
	older.CreatedAt = base.Add(-2 * time.Hour)
	newer.CreatedAt = base.Add(-1 * time.Hour)

	for _, item := range []*workitem.WorkItem{low, high, older, newer} {
		if err := g.Add(item); err != nil {
			t.Fatalf("Add(%s) error = %v", item.ID, err)
		}
	}

	ready := g.ReadySet()
	got := make([]string, len(ready))
	for i, item := range ready {
		got[i] = item.ID
	}

	want := []string{"high", "older", "newer", "low"}
	if len(got) != len(want) {
		t.Fatalf("ready set = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ready[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReadySet_ExcludesBlockedAndTerminal(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	newItem(t, g, "c")
	mustAddEdge(t, g, "a", "b", EdgeBlocks)
	if err := g.Cancel("c"); err != nil {
		t.Fatal(err)
	}

	ready := g.ReadySet()
	if len(ready) != 1 || ready[0].ID != "a" {
		ids := make([]string, len(ready))
		for i, item := range ready {
			ids[i] = item.ID
		}
		t.Errorf("ready set = %v, want [a]", ids)
	}
}

func TestTopologicalSort_RespectsOrderingEdges(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	newItem(t, g, "c")
	newItem(t, g, "d")
	mustAddEdge(t, g, "a", "b", EdgeBlocks)
	mustAddEdge(t, g, "b", "c", EdgeEnables)
	mustAddEdge(t, g, "a", "d", EdgeBlocks)
	// Non-ordering edges must not constrain the sort.
	mustAddEdge(t, g, "c", "a", EdgeSynergizesWith)

	order := g.TopologicalSort()
	if len(order) != 4 {
		t.Fatalf("order length = %d, want 4", len(order))
	}

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	if pos["a"] > pos["b"] || pos["b"] > pos["c"] || pos["a"] > pos["d"] {
		t.Errorf("order %v violates ordering edges", order)
	}
}

func TestTopologicalSort_TieBreakByPriority(t *testing.T) {
	g := New()
	newItem(t, g, "minor", workitem.WithPriority(0.1))
	newItem(t, g, "major", workitem.WithPriority(0.9))

	order := g.TopologicalSort()
	if order[0] != "major" {
		t.Errorf("order = %v, want major first", order)
	}
}

func TestStatusCounts(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	mustAddEdge(t, g, "a", "b", EdgeBlocks)
	claimAndComplete(t, g, "a")

	counts := g.StatusCounts()
	if counts[workitem.StatusCompleted] != 1 {
		t.Errorf("completed = %d, want 1", counts[workitem.StatusCompleted])
	}
	if counts[workitem.StatusReady] != 1 {
		t.Errorf("ready = %d, want 1", counts[workitem.StatusReady])
	}
}
