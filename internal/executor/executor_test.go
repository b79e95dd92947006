package executor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

type stubDelegator struct {
	mu         sync.Mutex
	dispatched []string
	fail       map[string]bool
}

func (d *stubDelegator) Dispatch(_ context.Context, item *workitem.WorkItem) (*workitem.Result, error) {
	d.mu.Lock()
	d.dispatched = append(d.dispatched, item.ID)
	shouldFail := d.fail[item.ID]
	d.mu.Unlock()

	if shouldFail {
		return nil, errors.New("worker crashed")
	}
	return &workitem.Result{Success: true, Output: "done", Cost: 1}, nil
}

func (d *stubDelegator) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dispatched)
}

type stubTeam struct {
	mu    sync.Mutex
	items []string
}

func (s *stubTeam) Execute(_ context.Context, item *workitem.WorkItem) (*workitem.Result, error) {
	s.mu.Lock()
	s.items = append(s.items, item.ID)
	s.mu.Unlock()
	return &workitem.Result{Success: true, Output: "team done", Cost: 5}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func newExecutor(g *graph.Graph, pool *Pool, solo Delegator, opts ...Option) *Executor {
	cfg := config.Default().Executor
	cfg.PassIntervalMs = 10
	return New(cfg, g, pool, solo, opts...)
}

func addItem(t *testing.T, g *graph.Graph, id, specialty string, priority float64) {
	t.Helper()
	err := g.Add(workitem.New("work on "+id,
		workitem.WithID(id),
		workitem.WithPriority(priority),
		workitem.WithSpecialties(specialty),
	))
	if err != nil {
		t.Fatalf("Add(%s) error = %v", id, err)
	}
}

func TestPass_RespectsSpecialtyCapacity(t *testing.T) {
	g := graph.New()
	addItem(t, g, "high", "writer", 0.9)
	addItem(t, g, "low", "writer", 0.2)

	bus := event.NewBus()
	var pass event.SchedulePassEvent
	bus.Subscribe("schedule.pass", func(e event.Event) {
		pass = e.(event.SchedulePassEvent)
	})

	pool := NewPool(1)
	solo := &stubDelegator{fail: map[string]bool{}}
	e := newExecutor(g, pool, solo, WithBus(bus))

	dispatched := e.Pass(context.Background())
	if dispatched != 1 {
		t.Fatalf("dispatched = %d, want 1 (capacity bound)", dispatched)
	}
	if pass.Ready != 2 || pass.Dispatched != 1 || pass.Deferred != 1 {
		t.Errorf("pass event = %d/%d/%d, want 2/1/1", pass.Ready, pass.Dispatched, pass.Deferred)
	}

	waitFor(t, "high-priority item to finish", func() bool {
		item, err := g.Get("high")
		return err == nil && item.Status == workitem.StatusCompleted
	})
	if solo.count() != 1 || solo.dispatched[0] != "high" {
		t.Errorf("dispatched = %v, want the higher-priority item first", solo.dispatched)
	}
}

func TestPass_CompletionPromotesBlockedSuccessor(t *testing.T) {
	g := graph.New()
	addItem(t, g, "a", "writer", 0.8)
	addItem(t, g, "b", "writer", 0.8)
	if err := g.AddEdge("a", "b", graph.EdgeBlocks); err != nil {
		t.Fatal(err)
	}

	pool := NewPool(3)
	solo := &stubDelegator{fail: map[string]bool{}}
	e := newExecutor(g, pool, solo)

	if got := e.Pass(context.Background()); got != 1 {
		t.Fatalf("first pass dispatched = %d, want only the unblocked item", got)
	}
	waitFor(t, "predecessor completion", func() bool {
		item, err := g.Get("a")
		return err == nil && item.Status == workitem.StatusCompleted
	})

	// Completion promoted the successor; the next pass picks it up.
	item, err := g.Get("b")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != workitem.StatusReady {
		t.Fatalf("successor status = %s, want ready after predecessor completed", item.Status)
	}
	if got := e.Pass(context.Background()); got != 1 {
		t.Fatalf("second pass dispatched = %d, want the promoted successor", got)
	}
}

func TestRun_ComplexItemsGoToTeam(t *testing.T) {
	g := graph.New()
	// Three specialties and a 100-unit estimate push complexity past
	// the routing threshold.
	err := g.Add(workitem.New("launch the product",
		workitem.WithID("complex"),
		workitem.WithSpecialties("writer", "designer", "marketer"),
		workitem.WithEstimatedCost(100),
	))
	if err != nil {
		t.Fatal(err)
	}
	addItem(t, g, "simple", "writer", 0.5)

	pool := NewPool(3)
	solo := &stubDelegator{fail: map[string]bool{}}
	team := &stubTeam{}
	e := newExecutor(g, pool, solo, WithTeamRunner(team))

	e.Pass(context.Background())
	waitFor(t, "both items to finish", func() bool {
		a, errA := g.Get("complex")
		b, errB := g.Get("simple")
		return errA == nil && errB == nil &&
			a.Status == workitem.StatusCompleted && b.Status == workitem.StatusCompleted
	})

	team.mu.Lock()
	defer team.mu.Unlock()
	if len(team.items) != 1 || team.items[0] != "complex" {
		t.Errorf("team items = %v, want only the complex item", team.items)
	}
	if solo.count() != 1 || solo.dispatched[0] != "simple" {
		t.Errorf("solo items = %v, want only the simple item", solo.dispatched)
	}
}

func TestRun_FailureAbortsItem(t *testing.T) {
	g := graph.New()
	addItem(t, g, "doomed", "writer", 0.5)

	pool := NewPool(1)
	solo := &stubDelegator{fail: map[string]bool{"doomed": true}}
	e := newExecutor(g, pool, solo)

	e.Pass(context.Background())
	waitFor(t, "item to abort", func() bool {
		item, err := g.Get("doomed")
		return err == nil && item.Status == workitem.StatusAborted
	})

	if got := pool.Spare("writer"); got != 1 {
		t.Errorf("pool spare = %d, want the slot released after failure", got)
	}
}

// slowDelegator holds each dispatch long enough for several scheduling
// passes to run over the claim.
type slowDelegator struct {
	delay time.Duration

	mu         sync.Mutex
	dispatches map[string]int
}

func (d *slowDelegator) Dispatch(ctx context.Context, item *workitem.WorkItem) (*workitem.Result, error) {
	d.mu.Lock()
	if d.dispatches == nil {
		d.dispatches = make(map[string]int)
	}
	d.dispatches[item.ID]++
	d.mu.Unlock()

	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &workitem.Result{Success: true, Output: "done", Cost: 1}, nil
}

func (d *slowDelegator) count(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatches[id]
}

func TestStart_SlowDispatchIsNotRedispatched(t *testing.T) {
	g := graph.New()
	addItem(t, g, "slow", "writer", 0.5)

	// A zero stale window makes every pass try to reclaim anything not
	// yet acknowledged, so a worker that outlives the window must not
	// be dispatched a second time.
	cfg := config.Default().Executor
	cfg.PassIntervalMs = 10
	cfg.StaleClaimSec = 0

	solo := &slowDelegator{delay: 150 * time.Millisecond}
	e := New(cfg, g, NewPool(1), solo)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer e.Stop()

	waitFor(t, "the slow item to finish", func() bool {
		item, err := g.Get("slow")
		return err == nil && item.Status == workitem.StatusCompleted
	})
	if got := solo.count("slow"); got != 1 {
		t.Errorf("dispatch count = %d, want exactly 1", got)
	}
}

func TestStart_FiniteDAGDrains(t *testing.T) {
	g := graph.New()
	// Diamond: root blocks mid1/mid2, both block leaf.
	for _, id := range []string{"root", "mid1", "mid2", "leaf"} {
		addItem(t, g, id, "writer", 0.5)
	}
	for _, e := range [][2]string{{"root", "mid1"}, {"root", "mid2"}, {"mid1", "leaf"}, {"mid2", "leaf"}} {
		if err := g.AddEdge(e[0], e[1], graph.EdgeBlocks); err != nil {
			t.Fatal(err)
		}
	}

	bus := event.NewBus()
	pool := NewPool(3)
	solo := &stubDelegator{fail: map[string]bool{}}
	e := newExecutor(g, pool, solo, WithBus(bus))

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer e.Stop()

	waitFor(t, "the whole DAG to drain", func() bool {
		for _, id := range []string{"root", "mid1", "mid2", "leaf"} {
			item, err := g.Get(id)
			if err != nil || !item.Status.IsTerminal() {
				return false
			}
		}
		return true
	})
}
