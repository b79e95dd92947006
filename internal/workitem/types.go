package workitem

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current lifecycle state of a WorkItem.
type Status string

const (
	// StatusDraft indicates the item has been created but not yet
	// admitted into the dependency graph.
	StatusDraft Status = "draft"

	// StatusPending indicates the item is in the graph awaiting
	// dependency evaluation.
	StatusPending Status = "pending"

	// StatusBlocked indicates at least one blocks predecessor has not
	// completed.
	StatusBlocked Status = "blocked"

	// StatusReady indicates all blocks predecessors have completed and
	// the item is eligible for dispatch.
	StatusReady Status = "ready"

	// StatusInProgress indicates the item has been claimed by the
	// executor and work is underway.
	StatusInProgress Status = "in_progress"

	// StatusPaused indicates the item was explicitly paused and will
	// not be scheduled until resumed.
	StatusPaused Status = "paused"

	// StatusCompleted indicates the item finished successfully.
	StatusCompleted Status = "completed"

	// StatusAborted indicates the item terminated without success.
	StatusAborted Status = "aborted"

	// StatusMerged indicates the item was absorbed into another item
	// and will never execute on its own.
	StatusMerged Status = "merged"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusAborted || s == StatusMerged
}

// IsActive returns true if the item participates in scheduling and
// conflict detection: admitted to the graph, not paused, not terminal.
func (s Status) IsActive() bool {
	switch s {
	case StatusPending, StatusBlocked, StatusReady, StatusInProgress:
		return true
	}
	return false
}

// IsValid returns true if s is a recognized status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusBlocked, StatusReady,
		StatusInProgress, StatusPaused, StatusCompleted, StatusAborted, StatusMerged:
		return true
	}
	return false
}

// Horizon represents the time horizon a WorkItem is expected to play
// out over. Horizons order scheduling phases: shorter horizons sort
// earlier.
type Horizon string

const (
	// HorizonImmediate is work expected to complete within the current
	// session or day.
	HorizonImmediate Horizon = "immediate"

	// HorizonShort is work on the order of days.
	HorizonShort Horizon = "short"

	// HorizonMedium is work on the order of weeks.
	HorizonMedium Horizon = "medium"

	// HorizonLong is open-ended or multi-month work.
	HorizonLong Horizon = "long"
)

// String returns the string representation of the horizon.
func (h Horizon) String() string {
	return string(h)
}

// Rank returns the horizon's position in ascending order, with
// immediate first. Unknown horizons sort last.
func (h Horizon) Rank() int {
	switch h {
	case HorizonImmediate:
		return 0
	case HorizonShort:
		return 1
	case HorizonMedium:
		return 2
	case HorizonLong:
		return 3
	}
	return 4
}

// IsValid returns true if h is a recognized horizon value.
func (h Horizon) IsValid() bool {
	return h.Rank() < 4
}

// Result captures the terminal outcome of a WorkItem's execution.
type Result struct {
	// Success indicates the work finished with a usable output.
	Success bool `json:"success"`

	// Degraded indicates the output was produced under reduced
	// conditions, such as a team losing a non-critical member.
	Degraded bool `json:"degraded"`

	// Output is the aggregated result payload.
	Output string `json:"output,omitempty"`

	// Cost is the total cost actually spent producing the result.
	Cost float64 `json:"cost"`

	// CompletedAt is when the terminal transition occurred.
	CompletedAt time.Time `json:"completed_at"`
}

// WorkItem is the unified task/goal entity scheduled by the engine.
type WorkItem struct {
	// ID uniquely identifies the item.
	ID string `json:"id"`

	// Description is the natural-language statement of the work.
	Description string `json:"description"`

	// Embedding is the description's embedding vector, used for
	// semantic similarity. May be nil until the classifier pipeline
	// has processed the item.
	Embedding []float64 `json:"embedding,omitempty"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// PriorityWeight orders items within the ready set, in [0,1].
	PriorityWeight float64 `json:"priority_weight"`

	// Horizon is the expected time horizon.
	Horizon Horizon `json:"horizon"`

	// Deadline is an optional hard deadline.
	Deadline *time.Time `json:"deadline,omitempty"`

	// RequiredSpecialties lists the worker specialties this item needs.
	RequiredSpecialties []string `json:"required_specialties,omitempty"`

	// EstimatedCost is the predicted cost to complete the item.
	EstimatedCost float64 `json:"estimated_cost"`

	// AllocatedCost is the budget currently reserved for the item.
	AllocatedCost float64 `json:"allocated_cost"`

	// MergedInto is the ID of the item this one was absorbed into,
	// set when Status is merged.
	MergedInto string `json:"merged_into,omitempty"`

	// MergedFrom lists the IDs of items absorbed into this one.
	MergedFrom []string `json:"merged_from,omitempty"`

	// CreatedAt is when the item was created. Ties in the ready set
	// break on ascending CreatedAt.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the item last changed.
	UpdatedAt time.Time `json:"updated_at"`

	// ClaimedAt is when the executor claimed the item, used to detect
	// stale claims. Cleared when the claim is released.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	// StartedAt is when the dispatched worker acknowledged the claim
	// and began executing. A claim with no acknowledgment is eligible
	// for stale release; an acknowledged one is not.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// Result is the terminal outcome, set on completion or abort.
	Result *Result `json:"result,omitempty"`
}

// Option configures a WorkItem during construction.
type Option func(*WorkItem)

// WithID overrides the generated item ID.
func WithID(id string) Option {
	return func(w *WorkItem) {
		w.ID = id
	}
}

// WithPriority sets the priority weight, clamped to [0,1].
func WithPriority(weight float64) Option {
	return func(w *WorkItem) {
		w.PriorityWeight = ClampPriority(weight)
	}
}

// WithHorizon sets the time horizon.
func WithHorizon(h Horizon) Option {
	return func(w *WorkItem) {
		w.Horizon = h
	}
}

// WithDeadline sets a hard deadline.
func WithDeadline(t time.Time) Option {
	return func(w *WorkItem) {
		w.Deadline = &t
	}
}

// WithSpecialties sets the required worker specialties.
func WithSpecialties(specialties ...string) Option {
	return func(w *WorkItem) {
		w.RequiredSpecialties = specialties
	}
}

// WithEstimatedCost sets the predicted completion cost.
func WithEstimatedCost(cost float64) Option {
	return func(w *WorkItem) {
		w.EstimatedCost = cost
	}
}

// WithEmbedding sets the precomputed embedding vector.
func WithEmbedding(vec []float64) Option {
	return func(w *WorkItem) {
		w.Embedding = vec
	}
}

// New creates a WorkItem in draft status with a generated ID and
// sensible defaults: priority 0.5, medium horizon.
func New(description string, opts ...Option) *WorkItem {
	now := time.Now()
	w := &WorkItem{
		ID:             uuid.NewString(),
		Description:    description,
		Status:         StatusDraft,
		PriorityWeight: 0.5,
		Horizon:        HorizonMedium,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ClampPriority bounds a priority weight to [0,1].
func ClampPriority(weight float64) float64 {
	if weight < 0 {
		return 0
	}
	if weight > 1 {
		return 1
	}
	return weight
}

// Clone returns a deep copy of the item. Callers receive clones from
// the graph so snapshots never alias internal state.
func (w *WorkItem) Clone() *WorkItem {
	if w == nil {
		return nil
	}
	out := *w
	if w.Embedding != nil {
		out.Embedding = make([]float64, len(w.Embedding))
		copy(out.Embedding, w.Embedding)
	}
	if w.RequiredSpecialties != nil {
		out.RequiredSpecialties = make([]string, len(w.RequiredSpecialties))
		copy(out.RequiredSpecialties, w.RequiredSpecialties)
	}
	if w.MergedFrom != nil {
		out.MergedFrom = make([]string, len(w.MergedFrom))
		copy(out.MergedFrom, w.MergedFrom)
	}
	if w.Deadline != nil {
		d := *w.Deadline
		out.Deadline = &d
	}
	if w.ClaimedAt != nil {
		c := *w.ClaimedAt
		out.ClaimedAt = &c
	}
	if w.StartedAt != nil {
		s := *w.StartedAt
		out.StartedAt = &s
	}
	if w.Result != nil {
		r := *w.Result
		out.Result = &r
	}
	return &out
}

// Urgent reports whether the item is both high priority and on the
// immediate horizon. Two urgent items sharing a specialist are treated
// as competing regardless of load.
func (w *WorkItem) Urgent() bool {
	return w.PriorityWeight >= 0.8 && w.Horizon == HorizonImmediate
}

// Complexity scores how demanding the item is in [0,1]. Items whose
// score crosses the executor's team threshold are handed to the team
// coordinator instead of a single worker. The score blends specialty
// breadth, estimated cost, and horizon length.
func (w *WorkItem) Complexity() float64 {
	specialty := float64(len(w.RequiredSpecialties)) / 3.0
	if specialty > 1 {
		specialty = 1
	}
	cost := w.EstimatedCost / 100.0
	if cost > 1 {
		cost = 1
	}
	horizon := float64(w.Horizon.Rank()) / 3.0
	if horizon > 1 {
		horizon = 1
	}
	return 0.4*specialty + 0.35*cost + 0.25*horizon
}
