package team

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/crescendo/internal/budget"
	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/recovery"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// stubWorker is a deterministic delegation port for tests.
type stubWorker struct {
	mu      sync.Mutex
	fail    map[string]error  // member ID -> forced failure
	block   map[string]bool   // specialty -> hang until the sub-task deadline
	outputs map[string]Output // member ID -> canned output
	tasks   []Task
}

func (w *stubWorker) Execute(ctx context.Context, task Task) (Output, error) {
	w.mu.Lock()
	w.tasks = append(w.tasks, task)
	blocked := w.block[task.Specialty]
	w.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return Output{}, ctx.Err()
	}
	if err, ok := w.fail[task.MemberID]; ok {
		return Output{Cost: 1}, err
	}
	if out, ok := w.outputs[task.MemberID]; ok {
		return out, nil
	}
	return Output{Content: task.Specialty + " done", Score: 0.8, Cost: 2}, nil
}

func (w *stubWorker) taskIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, len(w.tasks))
	for i, task := range w.tasks {
		ids[i] = task.MemberID
	}
	return ids
}

type fixture struct {
	coordinator *Coordinator
	worker      *stubWorker
	enforcer    *budget.Enforcer
	bus         *event.Bus
}

func newFixture(ledgerTotal float64, mutate func(*config.Config)) *fixture {
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	bus := event.NewBus()
	enforcer := budget.NewEnforcer(budget.NewLedger(ledgerTotal, cfg.Budget.HardStop), cfg.Team)
	rec := recovery.NewManager(cfg.Recovery, recovery.WithBus(bus))
	worker := &stubWorker{fail: map[string]error{}, block: map[string]bool{}, outputs: map[string]Output{}}
	return &fixture{
		coordinator: NewCoordinator(cfg.Team, enforcer, rec, worker, WithBus(bus)),
		worker:      worker,
		enforcer:    enforcer,
		bus:         bus,
	}
}

func teamItem(id string, cost float64, specialties ...string) *workitem.WorkItem {
	return workitem.New("build the launch campaign",
		workitem.WithID(id),
		workitem.WithEstimatedCost(cost),
		workitem.WithSpecialties(specialties...),
	)
}

func TestExecute_FullTeamCompletes(t *testing.T) {
	f := newFixture(1000, nil)
	item := teamItem("it1", 100, "writer", "designer", "researcher")

	var completed event.TeamCompletedEvent
	f.bus.Subscribe("team.completed", func(e event.Event) {
		completed = e.(event.TeamCompletedEvent)
	})

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success || result.Degraded {
		t.Errorf("result = success %v degraded %v, want clean success", result.Success, result.Degraded)
	}
	for _, want := range []string{"writer done", "designer done", "researcher done"} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("output missing %q: %q", want, result.Output)
		}
	}
	if result.Cost != 6 {
		t.Errorf("cost = %v, want 6 (three members at 2)", result.Cost)
	}
	if completed.MembersDone != 3 || completed.MembersLost != 0 {
		t.Errorf("completed event done/lost = %d/%d, want 3/0", completed.MembersDone, completed.MembersLost)
	}

	// The reservation is fully released: only actual spend left the ledger.
	if got := f.enforcer.Remaining(); got != 994 {
		t.Errorf("ledger remaining = %v, want 994", got)
	}
}

func TestExecute_NonCriticalLossCompletesDegraded(t *testing.T) {
	f := newFixture(1000, nil)
	item := teamItem("it1", 100, "writer", "designer", "researcher")
	// The lead covers the primary specialty, so losing the writer member
	// is non-critical.
	f.worker.fail["it1-m1"] = errors.New("sub-task crashed")

	var completed event.TeamCompletedEvent
	f.bus.Subscribe("team.completed", func(e event.Event) {
		completed = e.(event.TeamCompletedEvent)
	})

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatal("team with a non-critical loss should still complete")
	}
	if !result.Degraded {
		t.Error("result not flagged degraded after member loss")
	}
	if strings.Contains(result.Output, "writer done") {
		t.Errorf("failed member's output aggregated: %q", result.Output)
	}
	for _, want := range []string{"designer done", "researcher done"} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("surviving output missing %q: %q", want, result.Output)
		}
	}
	if completed.MembersDone != 2 || completed.MembersLost != 1 {
		t.Errorf("completed event done/lost = %d/%d, want 2/1", completed.MembersDone, completed.MembersLost)
	}
}

func TestExecute_CriticalLossRecruitsReplacement(t *testing.T) {
	f := newFixture(1000, nil)
	item := teamItem("it1", 100, "writer", "designer")
	// The designer is critical: nobody else covers that specialty.
	f.worker.fail["it1-m2"] = errors.New("sub-task crashed")

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatal("replacement should rescue the team")
	}
	if !result.Degraded {
		t.Error("result not flagged degraded after a replacement")
	}
	if !strings.Contains(result.Output, "designer done") {
		t.Errorf("replacement output missing: %q", result.Output)
	}

	found := false
	for _, id := range f.worker.taskIDs() {
		if id == "it1-m2-r1" {
			found = true
		}
	}
	if !found {
		t.Error("no replacement sub-task dispatched")
	}
}

func TestExecute_BudgetAuthorizationFallsBackToSolo(t *testing.T) {
	// Ledger can fund the 40% lead share but not the full team.
	f := newFixture(45, nil)
	item := teamItem("it1", 100, "writer", "designer", "researcher", "analyst", "marketer")

	teamFormed := false
	f.bus.Subscribe("team.formed", func(event.Event) { teamFormed = true })

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success || !result.Degraded {
		t.Errorf("result = success %v degraded %v, want degraded success", result.Success, result.Degraded)
	}
	if teamFormed {
		t.Error("team assignment persisted despite authorization failure")
	}
	ids := f.worker.taskIDs()
	if len(ids) != 1 || ids[0] != "it1-solo" {
		t.Errorf("dispatched tasks = %v, want only the solo fallback", ids)
	}
}

func TestExecute_OpenBreakerDegradesToSolo(t *testing.T) {
	f := newFixture(1000, nil)
	item := teamItem("it1", 100, "writer")

	breaker := f.coordinator.recovery.Breaker()
	for i := 0; i < 3; i++ {
		breaker.RecordFailure()
	}

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Degraded {
		t.Error("result not flagged degraded under an open breaker")
	}
	ids := f.worker.taskIDs()
	if len(ids) != 1 || ids[0] != "it1-solo" {
		t.Errorf("dispatched tasks = %v, want only the solo fallback", ids)
	}
}

func TestExecute_AllMembersFailedDegradesToSolo(t *testing.T) {
	f := newFixture(1000, nil)
	item := teamItem("it1", 100, "writer")
	f.worker.fail["it1-m1"] = errors.New("sub-task crashed")

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success || !result.Degraded {
		t.Errorf("result = success %v degraded %v, want degraded success via solo fallback", result.Success, result.Degraded)
	}
	ids := f.worker.taskIDs()
	if ids[len(ids)-1] != "it1-solo" {
		t.Errorf("last dispatched task = %v, want the solo fallback", ids[len(ids)-1])
	}
}

func TestExecute_HungTeamBelowFractionEscalates(t *testing.T) {
	f := newFixture(1000, func(cfg *config.Config) {
		cfg.Team.MemberTimeoutSec = 1
		cfg.Recovery.MaxReplacementAttempts = 0
		cfg.Recovery.PartialResultFraction = 0.75
	})
	item := teamItem("it1", 100, "writer", "designer", "researcher", "analyst")
	// Three of four members hang until their sub-task deadline; only
	// the writer finishes, well under the required fraction.
	f.worker.block["designer"] = true
	f.worker.block["researcher"] = true
	f.worker.block["analyst"] = true

	var escalations []event.EscalationEvent
	f.bus.Subscribe("recovery.escalated", func(e event.Event) {
		escalations = append(escalations, e.(event.EscalationEvent))
	})

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Success {
		t.Error("hung team below the partial-result fraction must not succeed")
	}
	if !result.Degraded {
		t.Error("hung-team outcome not flagged degraded")
	}

	hungEscalated := false
	for _, esc := range escalations {
		if esc.Reason == "hung team with too few finished members" {
			hungEscalated = true
		}
	}
	if !hungEscalated {
		t.Errorf("no hung-team escalation published, got %v", escalations)
	}

	// The reservation is released; only the writer's spend left the ledger.
	if got := f.enforcer.Remaining(); got != 998 {
		t.Errorf("ledger remaining = %v, want 998", got)
	}
}

func TestExecute_HungTeamAboveFractionProceedsPartial(t *testing.T) {
	f := newFixture(1000, func(cfg *config.Config) {
		cfg.Team.MemberTimeoutSec = 1
		cfg.Recovery.MaxReplacementAttempts = 0
		cfg.Recovery.PartialResultFraction = 0.25
	})
	item := teamItem("it1", 100, "writer", "designer", "researcher", "analyst")
	f.worker.block["analyst"] = true

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatal("three of four members clears the fraction, the team should proceed")
	}
	if !result.Degraded {
		t.Error("partial outcome not flagged degraded")
	}
	for _, want := range []string{"writer done", "designer done", "researcher done"} {
		if !strings.Contains(result.Output, want) {
			t.Errorf("output missing %q: %q", want, result.Output)
		}
	}
	if strings.Contains(result.Output, "analyst done") {
		t.Errorf("hung member's output aggregated: %q", result.Output)
	}
}

func TestExecute_LeadFailurePromotesMember(t *testing.T) {
	f := newFixture(1000, func(cfg *config.Config) {
		cfg.Team.DefaultAggregation = "hierarchical"
	})
	item := teamItem("it1", 100, "writer", "designer")
	f.worker.fail["it1-lead"] = errors.New("lead crashed")
	f.worker.outputs["it1-m2"] = Output{Content: "designer done", Score: 0.9, Cost: 2}
	f.worker.outputs["it1-m2-promoted"] = Output{Content: "promoted integration", Score: 0.9, Cost: 3}

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success {
		t.Fatal("promotion should rescue the integration")
	}
	if result.Output != "promoted integration" {
		t.Errorf("output = %q, want the promoted member's integration", result.Output)
	}

	promoted := false
	for _, id := range f.worker.taskIDs() {
		if id == "it1-m2-promoted" {
			promoted = true
		}
	}
	if !promoted {
		t.Error("highest-scoring member not promoted to lead")
	}
	// Two members at 2, the failed lead attempt at 1, the promoted
	// integration at 3.
	if result.Cost != 8 {
		t.Errorf("cost = %v, want 8", result.Cost)
	}
}

func TestFanOut_RecordsMemberOutcomes(t *testing.T) {
	f := newFixture(1000, nil)
	item := teamItem("it1", 100, "writer", "designer")
	f.worker.fail["it1-m2"] = errors.New("sub-task crashed")
	if err := f.enforcer.Reserve("it1", 100); err != nil {
		t.Fatal(err)
	}

	assignment := f.coordinator.form(item)
	results := f.coordinator.fanOut(context.Background(), item, assignment, 10)
	if len(results) != 2 {
		t.Fatalf("result count = %d, want 2", len(results))
	}

	if got := assignment.Members[0]; got.State != MemberCompleted || got.Cost != 2 {
		t.Errorf("member 0 = %s at cost %v, want completed at 2", got.State, got.Cost)
	}
	if got := assignment.Members[1]; got.State != MemberFailed || got.Error == "" {
		t.Errorf("member 1 = %s (error %q), want failed with the error recorded", got.State, got.Error)
	}
}

func TestExecute_SoloFallbackElevatesPriority(t *testing.T) {
	// Ledger can fund the lead share but not the full team, forcing the
	// individual fallback.
	f := newFixture(45, nil)
	item := teamItem("it1", 100, "writer", "designer", "researcher", "analyst", "marketer")

	if _, err := f.coordinator.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	f.worker.mu.Lock()
	defer f.worker.mu.Unlock()
	last := f.worker.tasks[len(f.worker.tasks)-1]
	if last.MemberID != "it1-solo" {
		t.Fatalf("last task = %s, want the solo fallback", last.MemberID)
	}
	if last.Priority != 0.7 {
		t.Errorf("solo priority = %v, want 0.7 (item priority 0.5 elevated by 0.2)", last.Priority)
	}
}

func TestExecute_HierarchicalLeadIntegration(t *testing.T) {
	f := newFixture(1000, func(cfg *config.Config) {
		cfg.Team.DefaultAggregation = "hierarchical"
	})
	item := teamItem("it1", 100, "writer", "designer")
	f.worker.outputs["it1-lead"] = Output{Content: "integrated deliverable", Score: 0.9, Cost: 3}

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Output != "integrated deliverable" {
		t.Errorf("output = %q, want the lead's integration", result.Output)
	}
	if result.Cost != 7 {
		t.Errorf("cost = %v, want 7 (two members at 2 plus lead at 3)", result.Cost)
	}
}

func TestExecute_ConsensusBelowThresholdFails(t *testing.T) {
	f := newFixture(1000, func(cfg *config.Config) {
		cfg.Team.DefaultAggregation = "consensus"
	})
	item := teamItem("it1", 100, "writer", "designer")
	f.worker.outputs["it1-m2"] = Output{Content: "half-finished", Score: 0.2, Cost: 2}

	result, err := f.coordinator.Execute(context.Background(), item)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Success {
		t.Error("consensus aggregation passed despite a low member score")
	}
}
