package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/conflict"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/store"
	"github.com/Iron-Ham/crescendo/internal/strategy"
	"github.com/Iron-Ham/crescendo/internal/team"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// vecEmbedder returns a fixed vector per description so similarity is
// fully deterministic in tests.
type vecEmbedder struct {
	vectors map[string][]float64
}

func (v *vecEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if vec, ok := v.vectors[text]; ok {
		return vec, nil
	}
	return []float64{0, 0, 0, 1}, nil
}

func (v *vecEmbedder) Dimensions() int { return 4 }

type soloStub struct {
	mu         sync.Mutex
	dispatched []string
}

func (s *soloStub) Dispatch(_ context.Context, item *workitem.WorkItem) (*workitem.Result, error) {
	s.mu.Lock()
	s.dispatched = append(s.dispatched, item.ID)
	s.mu.Unlock()
	return &workitem.Result{Success: true, Output: "done", Cost: 1}, nil
}

type workerStub struct{}

func (workerStub) Execute(_ context.Context, task team.Task) (team.Output, error) {
	return team.Output{Content: task.Specialty + " done", Score: 0.8, Cost: 1}, nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	strategies []*strategy.Strategy
	conflicts  []*conflict.Conflict
}

func (n *recordingNotifier) ProgressUpdated(string, float64) {}

func (n *recordingNotifier) ConflictProposed(c *conflict.Conflict) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conflicts = append(n.conflicts, c)
}

func (n *recordingNotifier) StrategyProposed(s *strategy.Strategy) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.strategies = append(n.strategies, s)
}

func (n *recordingNotifier) Escalated(string, string, string) {}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Enabled = false
	cfg.Executor.PassIntervalMs = 10
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config, solo *soloStub, opts ...Option) *Engine {
	t.Helper()
	opts = append(opts, WithStore(store.NewMemoryStore()))
	e, err := New(cfg, workerStub{}, solo, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
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

// Two near-identical newsletter items: identical embeddings, shared
// specialty, overlapping vocabulary, same document deliverable.
func synergyRequests() ([]Request, *vecEmbedder) {
	descA := "write the spring newsletter draft"
	descB := "write the spring newsletter outline"
	em := &vecEmbedder{vectors: map[string][]float64{
		descA: {1, 0, 0, 0},
		descB: {1, 0, 0, 0},
	}}
	reqs := []Request{
		{Description: descA, Specialties: []string{"writer"}},
		{Description: descB, Specialties: []string{"writer"}},
	}
	return reqs, em
}

func TestSubmit_SynergisticPairProposesStrategy(t *testing.T) {
	reqs, em := synergyRequests()
	e := newEngine(t, testConfig(), &soloStub{}, WithEmbedder(em))

	resp, err := e.Submit(context.Background(), reqs)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(resp.Created) != 2 {
		t.Fatalf("created = %d items, want 2", len(resp.Created))
	}
	if len(resp.Synergies) != 1 {
		t.Fatalf("synergies = %d, want 1", len(resp.Synergies))
	}
	if got := resp.Synergies[0]; got.Similarity < 0.9 || got.Confidence < 0.9 {
		t.Errorf("synergy = %+v, want similarity and confidence above 0.9", got)
	}

	var found bool
	for _, edge := range e.Edges() {
		if edge.Type == graph.EdgeSynergizesWith {
			found = true
			if edge.Source != "semantic" {
				t.Errorf("edge source = %q, want semantic", edge.Source)
			}
		}
	}
	if !found {
		t.Error("no synergizes_with edge recorded")
	}

	if len(resp.Proposals) != 1 {
		t.Fatalf("proposals = %d, want 1", len(resp.Proposals))
	}
	st := resp.Proposals[0]
	if st.Status != strategy.StatusDraft {
		t.Errorf("proposal status = %s, want draft pending confirmation", st.Status)
	}
	if len(st.ComponentItems) != 2 {
		t.Errorf("component items = %d, want both cluster members", len(st.ComponentItems))
	}
	if len(st.Phases) < 2 || len(st.Phases) > testConfig().Strategy.MaxPhases {
		t.Errorf("phases = %d, want between 2 and the configured cap", len(st.Phases))
	}
}

func TestSubmit_RepeatClusterProposesOnce(t *testing.T) {
	reqs, em := synergyRequests()
	e := newEngine(t, testConfig(), &soloStub{}, WithEmbedder(em))

	first, err := e.Submit(context.Background(), reqs[:1])
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Proposals) != 0 {
		t.Fatalf("single item produced %d proposals, want none", len(first.Proposals))
	}

	second, err := e.Submit(context.Background(), reqs[1:])
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Proposals) != 1 {
		t.Fatalf("pair completion produced %d proposals, want 1", len(second.Proposals))
	}

	// Re-running a scan over the same membership must not re-propose.
	third, err := e.Submit(context.Background(), []Request{
		{Description: "research backlink strategies", Specialties: []string{"analyst"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range third.Proposals {
		if len(p.ComponentItems) == 2 {
			t.Errorf("existing cluster re-proposed: %+v", p)
		}
	}
}

func TestSubmit_DeadlinesProduceSequentialEdge(t *testing.T) {
	descA := "draft quarterly investor report"
	descB := "build billing reconciliation service"
	em := &vecEmbedder{vectors: map[string][]float64{
		descA: {1, 0, 0, 0},
		descB: {0, 1, 0, 0},
	}}
	soon := time.Now().Add(72 * time.Hour)
	later := time.Now().Add(240 * time.Hour)

	e := newEngine(t, testConfig(), &soloStub{}, WithEmbedder(em))
	resp, err := e.Submit(context.Background(), []Request{
		{Description: descA, Specialties: []string{"writer"}, Deadline: &soon},
		{Description: descB, Specialties: []string{"developer"}, Deadline: &later},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	edges := e.Edges()
	if len(edges) != 1 {
		t.Fatalf("edges = %d, want exactly the ordering edge", len(edges))
	}
	edge := edges[0]
	if edge.Type != graph.EdgeEnables {
		t.Errorf("edge type = %s, want enables", edge.Type)
	}
	if edge.From != resp.Created[0].ID || edge.To != resp.Created[1].ID {
		t.Errorf("edge %s -> %s, want earlier deadline first", edge.From, edge.To)
	}
	if len(resp.Synergies) != 0 {
		t.Errorf("synergies = %d, want none for a sequential pair", len(resp.Synergies))
	}
}

func TestSubmit_RejectsEmptyDescription(t *testing.T) {
	e := newEngine(t, testConfig(), &soloStub{})
	if _, err := e.Submit(context.Background(), []Request{{Description: "   "}}); err == nil {
		t.Fatal("Submit() accepted a blank description")
	}
	if _, err := e.Submit(context.Background(), nil); err == nil {
		t.Fatal("Submit() accepted an empty batch")
	}
}

func TestApply_Commands(t *testing.T) {
	e := newEngine(t, testConfig(), &soloStub{})
	resp, err := e.Submit(context.Background(), []Request{
		{Description: "research pricing models", Specialties: []string{"analyst"}},
		{Description: "redesign onboarding flow", Specialties: []string{"designer"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	a, b := resp.Created[0].ID, resp.Created[1].ID

	if err := e.Apply(SetPriority{ItemID: a, Weight: 2.5}); err != nil {
		t.Fatalf("SetPriority error = %v", err)
	}
	item, _ := e.Item(a)
	if item.PriorityWeight != 1.0 {
		t.Errorf("priority = %v, want clamped to 1.0", item.PriorityWeight)
	}

	if err := e.Apply(AddExplicitEdge{From: a, To: b, Type: graph.EdgeBlocks}); err != nil {
		t.Fatalf("AddExplicitEdge error = %v", err)
	}
	var edge graph.Edge
	for _, candidate := range e.Edges() {
		if candidate.Type == graph.EdgeBlocks {
			edge = candidate
		}
	}
	if edge.Source != "explicit" || edge.Weight != 1 {
		t.Errorf("explicit edge = %+v, want source explicit at weight 1", edge)
	}

	if err := e.Apply(PauseItem{ItemID: b}); err != nil {
		t.Fatalf("Pause error = %v", err)
	}
	item, _ = e.Item(b)
	if item.Status != workitem.StatusPaused {
		t.Errorf("status after pause = %s", item.Status)
	}
	if err := e.Apply(ResumeItem{ItemID: b}); err != nil {
		t.Fatalf("Resume error = %v", err)
	}

	if err := e.Apply(CancelItem{ItemID: a}); err != nil {
		t.Fatalf("Cancel error = %v", err)
	}
	item, _ = e.Item(a)
	if item.Status != workitem.StatusAborted {
		t.Errorf("status after cancel = %s", item.Status)
	}

	aborted := e.ItemsByStatus(workitem.StatusAborted)
	if len(aborted) != 1 || aborted[0].ID != a {
		t.Errorf("ItemsByStatus(aborted) = %v, want only the cancelled item", aborted)
	}
}

func TestScanConflicts_AutoResolveAppliesSafeOption(t *testing.T) {
	descA := "edit the conference keynote"
	descB := "edit the workshop handout"
	em := &vecEmbedder{vectors: map[string][]float64{
		descA: {1, 0, 0, 0},
		descB: {0, 1, 0, 0},
	}}
	// Same specialty with deadlines an hour apart: temporal contention,
	// whose prioritize option is auto-safe.
	soon := time.Now().Add(24 * time.Hour)
	near := soon.Add(time.Hour)

	cfg := testConfig()
	cfg.Conflict.AutoResolve = true
	e := newEngine(t, cfg, &soloStub{}, WithEmbedder(em))

	resp, err := e.Submit(context.Background(), []Request{
		{Description: descA, Specialties: []string{"writer"}, Priority: 0.9, Deadline: &soon},
		{Description: descB, Specialties: []string{"writer"}, Priority: 0.4, Deadline: &near},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	detected, err := e.ScanConflicts(context.Background())
	if err != nil {
		t.Fatalf("ScanConflicts() error = %v", err)
	}
	if len(detected) != 1 || detected[0].Type != conflict.TypeTemporal {
		t.Fatalf("detected = %+v, want one temporal conflict", detected)
	}

	if open := e.Conflicts(); len(open) != 0 {
		t.Errorf("auto-safe resolution left %d conflicts open", len(open))
	}

	boosted, err := e.Item(resp.Created[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if boosted.PriorityWeight != 1.0 {
		t.Errorf("priority = %v, want the higher item boosted to 1.0", boosted.PriorityWeight)
	}

	competes := false
	for _, edge := range e.Edges() {
		if edge.Type == graph.EdgeCompetesWith {
			competes = true
		}
	}
	if !competes {
		t.Error("no competes_with edge recorded for the resolved contention")
	}
}

func TestStart_DrainsAndPersists(t *testing.T) {
	descA := "draft landing page copy"
	descB := "implement signup endpoint"
	em := &vecEmbedder{vectors: map[string][]float64{
		descA: {1, 0, 0, 0},
		descB: {0, 1, 0, 0},
	}}
	backing := store.NewMemoryStore()
	solo := &soloStub{}
	cfg := testConfig()
	e, err := New(cfg, workerStub{}, solo, WithEmbedder(em), WithStore(backing))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := e.Submit(context.Background(), []Request{
		{Description: descA, Specialties: []string{"writer"}},
		{Description: descB, Specialties: []string{"developer"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "both items to complete", func() bool {
		for _, created := range resp.Created {
			item, err := e.Item(created.ID)
			if err != nil || item.Status != workitem.StatusCompleted {
				return false
			}
		}
		return true
	})
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	snap := e.Snapshot()
	if snap.Completed != 2 || snap.Percent != 1 {
		t.Errorf("snapshot = %d completed at %v, want 2 at 1.0", snap.Completed, snap.Percent)
	}

	// Terminal status reached the store through the event wiring.
	stored, err := backing.LoadItem(context.Background(), resp.Created[0].ID)
	if err != nil {
		t.Fatalf("LoadItem error = %v", err)
	}
	if stored.Status != workitem.StatusCompleted {
		t.Errorf("stored status = %s, want completed", stored.Status)
	}
}

func TestStart_RoutesStrategyProposalsToNotifier(t *testing.T) {
	reqs, em := synergyRequests()
	notifier := &recordingNotifier{}
	e := newEngine(t, testConfig(), &soloStub{}, WithEmbedder(em), WithNotifier(notifier))

	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer e.Stop()

	if _, err := e.Submit(context.Background(), reqs); err != nil {
		t.Fatal(err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.strategies) != 1 {
		t.Fatalf("notifier received %d strategies, want 1", len(notifier.strategies))
	}
	if len(notifier.strategies[0].ComponentItems) != 2 {
		t.Errorf("notified strategy has %d items, want 2", len(notifier.strategies[0].ComponentItems))
	}
}

func TestStrategyLifecycle(t *testing.T) {
	reqs, em := synergyRequests()
	e := newEngine(t, testConfig(), &soloStub{}, WithEmbedder(em))

	resp, err := e.Submit(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Proposals) != 1 {
		t.Fatalf("proposals = %d, want 1", len(resp.Proposals))
	}
	id := resp.Proposals[0].ID

	if err := e.ActivateStrategy(id); err != nil {
		t.Fatalf("ActivateStrategy error = %v", err)
	}
	st, err := e.AdvanceStrategy(id)
	if err != nil {
		t.Fatalf("AdvanceStrategy error = %v", err)
	}
	if st.CurrentPhase != 1 {
		t.Errorf("current phase = %d, want 1", st.CurrentPhase)
	}

	for st.Status == strategy.StatusActive {
		st, err = e.AdvanceStrategy(id)
		if err != nil {
			t.Fatalf("AdvanceStrategy error = %v", err)
		}
	}
	if st.Status != strategy.StatusCompleted {
		t.Errorf("final status = %s, want completed", st.Status)
	}
}
