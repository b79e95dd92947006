package workitem

import (
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	item := New("research funding options")

	if item.ID == "" {
		t.Error("New() did not assign an ID")
	}
	if item.Status != StatusDraft {
		t.Errorf("Status = %s, want %s", item.Status, StatusDraft)
	}
	if item.PriorityWeight != 0.5 {
		t.Errorf("PriorityWeight = %v, want 0.5", item.PriorityWeight)
	}
	if item.Horizon != HorizonMedium {
		t.Errorf("Horizon = %s, want %s", item.Horizon, HorizonMedium)
	}
	if item.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestNew_Options(t *testing.T) {
	deadline := time.Now().Add(24 * time.Hour)
	item := New("ship the beta",
		WithID("wi-42"),
		WithPriority(1.7),
		WithHorizon(HorizonImmediate),
		WithDeadline(deadline),
		WithSpecialties("engineering", "design"),
		WithEstimatedCost(25),
	)

	if item.ID != "wi-42" {
		t.Errorf("ID = %s, want wi-42", item.ID)
	}
	if item.PriorityWeight != 1.0 {
		t.Errorf("PriorityWeight = %v, want clamped to 1.0", item.PriorityWeight)
	}
	if item.Horizon != HorizonImmediate {
		t.Errorf("Horizon = %s, want %s", item.Horizon, HorizonImmediate)
	}
	if item.Deadline == nil || !item.Deadline.Equal(deadline) {
		t.Errorf("Deadline = %v, want %v", item.Deadline, deadline)
	}
	if len(item.RequiredSpecialties) != 2 {
		t.Errorf("RequiredSpecialties = %v, want 2 entries", item.RequiredSpecialties)
	}
	if item.EstimatedCost != 25 {
		t.Errorf("EstimatedCost = %v, want 25", item.EstimatedCost)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusDraft, false},
		{StatusPending, false},
		{StatusBlocked, false},
		{StatusReady, false},
		{StatusInProgress, false},
		{StatusPaused, false},
		{StatusCompleted, true},
		{StatusAborted, true},
		{StatusMerged, true},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_IsActive(t *testing.T) {
	active := []Status{StatusPending, StatusBlocked, StatusReady, StatusInProgress}
	for _, s := range active {
		if !s.IsActive() {
			t.Errorf("%s.IsActive() = false, want true", s)
		}
	}
	inactive := []Status{StatusDraft, StatusPaused, StatusCompleted, StatusAborted, StatusMerged}
	for _, s := range inactive {
		if s.IsActive() {
			t.Errorf("%s.IsActive() = true, want false", s)
		}
	}
}

func TestHorizon_Rank(t *testing.T) {
	if HorizonImmediate.Rank() >= HorizonShort.Rank() {
		t.Error("immediate should rank before short")
	}
	if HorizonShort.Rank() >= HorizonMedium.Rank() {
		t.Error("short should rank before medium")
	}
	if HorizonMedium.Rank() >= HorizonLong.Rank() {
		t.Error("medium should rank before long")
	}
	if Horizon("someday").IsValid() {
		t.Error("unknown horizon reported valid")
	}
}

func TestClone_Independence(t *testing.T) {
	deadline := time.Now()
	item := New("original",
		WithEmbedding([]float64{0.1, 0.2}),
		WithSpecialties("research"),
		WithDeadline(deadline),
	)
	item.MergedFrom = []string{"wi-old"}

	clone := item.Clone()
	clone.Embedding[0] = 9.9
	clone.RequiredSpecialties[0] = "mutated"
	clone.MergedFrom[0] = "mutated"
	*clone.Deadline = deadline.Add(time.Hour)

	if item.Embedding[0] != 0.1 {
		t.Error("Clone() shares the embedding slice")
	}
	if item.RequiredSpecialties[0] != "research" {
		t.Error("Clone() shares the specialties slice")
	}
	if item.MergedFrom[0] != "wi-old" {
		t.Error("Clone() shares the merged-from slice")
	}
	if !item.Deadline.Equal(deadline) {
		t.Error("Clone() shares the deadline pointer")
	}
}

func TestUrgent(t *testing.T) {
	urgent := New("fix it now", WithPriority(0.9), WithHorizon(HorizonImmediate))
	if !urgent.Urgent() {
		t.Error("high-priority immediate item not urgent")
	}
	calm := New("eventually", WithPriority(0.9), WithHorizon(HorizonLong))
	if calm.Urgent() {
		t.Error("long-horizon item reported urgent")
	}
}

func TestComplexity_Bounds(t *testing.T) {
	simple := New("small thing", WithHorizon(HorizonImmediate))
	complex := New("big thing",
		WithSpecialties("a", "b", "c", "d"),
		WithEstimatedCost(500),
		WithHorizon(HorizonLong),
	)

	if s := simple.Complexity(); s < 0 || s > 1 {
		t.Errorf("Complexity() = %v, want within [0,1]", s)
	}
	if c := complex.Complexity(); c < 0 || c > 1 {
		t.Errorf("Complexity() = %v, want within [0,1]", c)
	}
	if simple.Complexity() >= complex.Complexity() {
		t.Error("simple item scored at least as complex as a heavyweight item")
	}
}
