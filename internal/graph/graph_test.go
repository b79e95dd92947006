package graph

import (
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

func newItem(t *testing.T, g *Graph, id string, opts ...workitem.Option) *workitem.WorkItem {
	t.Helper()
	opts = append([]workitem.Option{workitem.WithID(id)}, opts...)
	item := workitem.New("work for "+id, opts...)
	if err := g.Add(item); err != nil {
		t.Fatalf("Add(%s) error = %v", id, err)
	}
	return item
}

func status(t *testing.T, g *Graph, id string) workitem.Status {
	t.Helper()
	item, err := g.Get(id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	return item.Status
}

func TestAdd_UnblockedItemBecomesReady(t *testing.T) {
	g := New()
	newItem(t, g, "a")

	if got := status(t, g, "a"); got != workitem.StatusReady {
		t.Errorf("status = %s, want %s", got, workitem.StatusReady)
	}
}

func TestAdd_Duplicate(t *testing.T) {
	g := New()
	newItem(t, g, "a")

	err := g.Add(workitem.New("again", workitem.WithID("a")))
	if err == nil {
		t.Fatal("Add() of duplicate ID succeeded")
	}
}

func TestAddEdge_BlocksDemotesTarget(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")

	if err := g.AddEdge("a", "b", EdgeBlocks); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}

	if got := status(t, g, "b"); got != workitem.StatusBlocked {
		t.Errorf("target status = %s, want %s", got, workitem.StatusBlocked)
	}
	if got := status(t, g, "a"); got != workitem.StatusReady {
		t.Errorf("source status = %s, want %s", got, workitem.StatusReady)
	}
}

func TestAddEdge_CycleRejectedGraphUnchanged(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	newItem(t, g, "c")

	mustAddEdge(t, g, "a", "b", EdgeBlocks)
	mustAddEdge(t, g, "b", "c", EdgeEnables)

	before := len(g.Edges())
	err := g.AddEdge("c", "a", EdgeBlocks)
	if err == nil {
		t.Fatal("cycle-closing edge accepted")
	}
	if !errors.Is(err, errors.ErrCycleDetected) {
		t.Errorf("error does not wrap ErrCycleDetected: %v", err)
	}
	if got := len(g.Edges()); got != before {
		t.Errorf("edge count changed from %d to %d after rejected insert", before, got)
	}
}

func TestAddEdge_SelfCycle(t *testing.T) {
	g := New()
	newItem(t, g, "a")

	if err := g.AddEdge("a", "a", EdgeBlocks); err == nil {
		t.Fatal("self edge accepted")
	}
}

func TestAddEdge_NonOrderingEdgesSkipCycleCheck(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")

	mustAddEdge(t, g, "a", "b", EdgeBlocks)
	// A back-edge of a non-ordering type is fine.
	if err := g.AddEdge("b", "a", EdgeFeedsInto); err != nil {
		t.Errorf("feeds_into back-edge rejected: %v", err)
	}
}

func TestAddEdge_DuplicateAndSymmetricDuplicate(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")

	mustAddEdge(t, g, "a", "b", EdgeSynergizesWith)

	if err := g.AddEdge("a", "b", EdgeSynergizesWith); !errors.Is(err, errors.ErrEdgeExists) {
		t.Errorf("duplicate edge error = %v, want ErrEdgeExists", err)
	}
	if err := g.AddEdge("b", "a", EdgeSynergizesWith); !errors.Is(err, errors.ErrEdgeExists) {
		t.Errorf("reversed symmetric duplicate error = %v, want ErrEdgeExists", err)
	}
	// Directed types may exist in both directions.
	mustAddEdge(t, g, "a", "b", EdgeFeedsInto)
	if err := g.AddEdge("b", "a", EdgeFeedsInto); err != nil {
		t.Errorf("reversed directed edge rejected: %v", err)
	}
}

func mustAddEdge(t *testing.T, g *Graph, from, to string, edgeType EdgeType) {
	t.Helper()
	if err := g.AddEdge(from, to, edgeType); err != nil {
		t.Fatalf("AddEdge(%s, %s, %s) error = %v", from, to, edgeType, err)
	}
}

func TestComplete_PromotesBlockedSuccessor(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	mustAddEdge(t, g, "a", "b", EdgeBlocks)

	if _, err := g.Claim("a"); err != nil {
		t.Fatalf("Claim(a) error = %v", err)
	}
	promoted, err := g.Complete("a", &workitem.Result{Success: true, Cost: 2})
	if err != nil {
		t.Fatalf("Complete(a) error = %v", err)
	}

	if len(promoted) != 1 || promoted[0] != "b" {
		t.Errorf("promoted = %v, want [b]", promoted)
	}
	if got := status(t, g, "b"); got != workitem.StatusReady {
		t.Errorf("successor status = %s, want %s", got, workitem.StatusReady)
	}
}

func TestComplete_WaitsForAllBlockers(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	newItem(t, g, "c")
	mustAddEdge(t, g, "a", "c", EdgeBlocks)
	mustAddEdge(t, g, "b", "c", EdgeBlocks)

	claimAndComplete(t, g, "a")
	if got := status(t, g, "c"); got != workitem.StatusBlocked {
		t.Fatalf("status after one of two blockers = %s, want blocked", got)
	}

	claimAndComplete(t, g, "b")
	if got := status(t, g, "c"); got != workitem.StatusReady {
		t.Errorf("status after all blockers = %s, want ready", got)
	}
}

func claimAndComplete(t *testing.T, g *Graph, id string) {
	t.Helper()
	if _, err := g.Claim(id); err != nil {
		t.Fatalf("Claim(%s) error = %v", id, err)
	}
	if _, err := g.Complete(id, &workitem.Result{Success: true}); err != nil {
		t.Fatalf("Complete(%s) error = %v", id, err)
	}
}

func TestCancel_UnblocksSuccessors(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	mustAddEdge(t, g, "a", "b", EdgeBlocks)

	if err := g.Cancel("a"); err != nil {
		t.Fatalf("Cancel(a) error = %v", err)
	}

	if got := status(t, g, "a"); got != workitem.StatusAborted {
		t.Errorf("cancelled status = %s, want aborted", got)
	}
	if got := status(t, g, "b"); got != workitem.StatusReady {
		t.Errorf("successor status = %s, want ready (terminal predecessor no longer gates)", got)
	}
}

func TestClaim_ExactlyOneWinner(t *testing.T) {
	g := New()
	newItem(t, g, "contested")

	const claimers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, rejects := 0, 0

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Claim("contested")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, errors.ErrDuplicateClaim):
				rejects++
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if rejects != claimers-1 {
		t.Errorf("duplicate rejections = %d, want %d", rejects, claimers-1)
	}
}

func TestClaim_BlockedItemRejected(t *testing.T) {
	g := New()
	newItem(t, g, "a")
	newItem(t, g, "b")
	mustAddEdge(t, g, "a", "b", EdgeBlocks)

	if _, err := g.Claim("b"); !errors.Is(err, errors.ErrDuplicateClaim) {
		t.Errorf("claiming blocked item error = %v, want ErrDuplicateClaim", err)
	}
}

func TestPauseResume(t *testing.T) {
	g := New()
	newItem(t, g, "a")

	if err := g.Pause("a"); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if got := status(t, g, "a"); got != workitem.StatusPaused {
		t.Fatalf("status = %s, want paused", got)
	}
	if len(g.ReadySet()) != 0 {
		t.Error("paused item still in ready set")
	}

	if err := g.Resume("a"); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if got := status(t, g, "a"); got != workitem.StatusReady {
		t.Errorf("status after resume = %s, want ready", got)
	}
}

func TestMerge(t *testing.T) {
	g := New()
	newItem(t, g, "dup")
	newItem(t, g, "keeper")

	if err := g.Merge("dup", "keeper"); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	source, _ := g.Get("dup")
	if source.Status != workitem.StatusMerged {
		t.Errorf("source status = %s, want merged", source.Status)
	}
	if source.MergedInto != "keeper" {
		t.Errorf("MergedInto = %s, want keeper", source.MergedInto)
	}
	target, _ := g.Get("keeper")
	if len(target.MergedFrom) != 1 || target.MergedFrom[0] != "dup" {
		t.Errorf("MergedFrom = %v, want [dup]", target.MergedFrom)
	}

	// Terminal: further merging is rejected.
	if err := g.Merge("dup", "keeper"); !errors.Is(err, errors.ErrInvalidTransition) {
		t.Errorf("re-merge error = %v, want ErrInvalidTransition", err)
	}
}

func TestGet_ReturnsClone(t *testing.T) {
	g := New()
	newItem(t, g, "a", workitem.WithSpecialties("research"))

	first, _ := g.Get("a")
	first.RequiredSpecialties[0] = "mutated"
	first.Status = workitem.StatusAborted

	second, _ := g.Get("a")
	if second.RequiredSpecialties[0] != "research" {
		t.Error("Get() exposes internal specialty slice")
	}
	if second.Status != workitem.StatusReady {
		t.Error("Get() exposes internal status")
	}
}

func TestGet_NotFound(t *testing.T) {
	g := New()
	if _, err := g.Get("ghost"); !errors.Is(err, errors.ErrItemNotFound) {
		t.Errorf("error = %v, want ErrItemNotFound", err)
	}
}

func TestReleaseStaleClaims(t *testing.T) {
	g := New()
	newItem(t, g, "fresh")
	newItem(t, g, "stale")
	newItem(t, g, "running")

	for _, id := range []string{"fresh", "stale", "running"} {
		if _, err := g.Claim(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.MarkRunning("running"); err != nil {
		t.Fatal(err)
	}

	// Backdate the unacknowledged and the acknowledged claim directly
	// through the arena.
	g.mu.Lock()
	old := time.Now().Add(-time.Hour)
	g.items["stale"].ClaimedAt = &old
	g.items["running"].ClaimedAt = &old
	g.mu.Unlock()

	released := g.ReleaseStaleClaims(10 * time.Minute)
	if len(released) != 1 || released[0] != "stale" {
		t.Fatalf("released = %v, want [stale]", released)
	}
	if got := status(t, g, "stale"); got != workitem.StatusReady {
		t.Errorf("released status = %s, want ready", got)
	}
	if got := status(t, g, "fresh"); got != workitem.StatusInProgress {
		t.Errorf("fresh claim status = %s, want in_progress", got)
	}
	// An acknowledged claim is a live worker; releasing it would let
	// the item dispatch a second time.
	if got := status(t, g, "running"); got != workitem.StatusInProgress {
		t.Errorf("acknowledged claim status = %s, want in_progress", got)
	}
}

func TestMarkRunning_SingleAcknowledgment(t *testing.T) {
	g := New()
	newItem(t, g, "a")

	if err := g.MarkRunning("a"); !errors.Is(err, errors.ErrDuplicateClaim) {
		t.Errorf("unclaimed MarkRunning error = %v, want ErrDuplicateClaim", err)
	}
	if _, err := g.Claim("a"); err != nil {
		t.Fatal(err)
	}
	if err := g.MarkRunning("a"); err != nil {
		t.Fatalf("MarkRunning() error = %v", err)
	}
	if err := g.MarkRunning("a"); !errors.Is(err, errors.ErrDuplicateClaim) {
		t.Errorf("second MarkRunning error = %v, want ErrDuplicateClaim", err)
	}

	item, err := g.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if item.StartedAt == nil {
		t.Error("StartedAt not recorded by acknowledgment")
	}

	if _, err := g.Complete("a", &workitem.Result{Success: true}); err != nil {
		t.Fatal(err)
	}
	item, _ = g.Get("a")
	if item.StartedAt != nil || item.ClaimedAt != nil {
		t.Error("claim timestamps not cleared on completion")
	}
}
