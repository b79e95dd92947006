package executor

import (
	"testing"

	"github.com/Iron-Ham/crescendo/internal/graph"
)

func TestAdvisor_RecommendsForBacklog(t *testing.T) {
	g := graph.New()
	for _, id := range []string{"w1", "w2", "w3"} {
		addItem(t, g, id, "writer", 0.5)
	}
	addItem(t, g, "d1", "designer", 0.5)

	pool := NewPool(1)
	advisor := NewAdvisor(g, pool)

	recs := advisor.Evaluate()
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d, want only the contended specialty", len(recs))
	}
	rec := recs[0]
	if rec.Specialty != "writer" || rec.Backlog != 3 || rec.Capacity != 1 || rec.Suggested != 3 {
		t.Errorf("recommendation = %+v, want writer backlog 3 suggesting 3", rec)
	}
}

func TestAdvisor_QuietWhenCapacityAbsorbs(t *testing.T) {
	g := graph.New()
	addItem(t, g, "w1", "writer", 0.5)
	addItem(t, g, "w2", "writer", 0.5)

	pool := NewPool(3)
	if got := NewAdvisor(g, pool).Evaluate(); len(got) != 0 {
		t.Errorf("recommendations = %v, want none under spare capacity", got)
	}
}

func TestAdvisor_CountsOccupiedSlots(t *testing.T) {
	g := graph.New()
	addItem(t, g, "w1", "writer", 0.5)

	pool := NewPool(2)
	pool.Acquire("writer")
	pool.Acquire("writer")

	recs := NewAdvisor(g, pool).Evaluate()
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d, want 1 when all slots busy", len(recs))
	}
	if recs[0].InUse != 2 || recs[0].Suggested != 3 {
		t.Errorf("recommendation = %+v, want 2 in use suggesting 3", recs[0])
	}
}
