package team

import (
	"context"
	"time"
)

// AggregationStrategy is how member outputs combine into one result.
type AggregationStrategy string

const (
	// AggregationMerge unions and dedupes all successful contributions.
	AggregationMerge AggregationStrategy = "merge"

	// AggregationVote keeps claims reported by a majority of members.
	AggregationVote AggregationStrategy = "vote"

	// AggregationConsensus requires every member's self-reported score
	// to clear the configured threshold.
	AggregationConsensus AggregationStrategy = "consensus"

	// AggregationHierarchical has the lead author an integration pass
	// over the member outputs.
	AggregationHierarchical AggregationStrategy = "hierarchical"
)

// String returns the string representation of the strategy.
func (a AggregationStrategy) String() string {
	return string(a)
}

// IsValid returns true for a recognized aggregation strategy.
func (a AggregationStrategy) IsValid() bool {
	switch a {
	case AggregationMerge, AggregationVote, AggregationConsensus, AggregationHierarchical:
		return true
	default:
		return false
	}
}

// MemberState is a member's position within one team execution.
type MemberState string

const (
	// MemberPending indicates the sub-task has not been dispatched.
	MemberPending MemberState = "pending"

	// MemberRunning indicates the sub-task is executing.
	MemberRunning MemberState = "running"

	// MemberCompleted indicates the sub-task finished successfully.
	MemberCompleted MemberState = "completed"

	// MemberFailed indicates the sub-task failed or timed out.
	MemberFailed MemberState = "failed"

	// MemberCancelled indicates the sub-task was cancelled.
	MemberCancelled MemberState = "cancelled"
)

// String returns the string representation of the member state.
func (s MemberState) String() string {
	return string(s)
}

// Member is one participant in a team execution.
type Member struct {
	ID        string      `json:"id"`
	Specialty string      `json:"specialty"`
	Role      string      `json:"role"`
	State     MemberState `json:"state"`
	Cost      float64     `json:"cost"`
	Error     string      `json:"error,omitempty"`
}

// Assignment records how a work item was staffed and funded.
type Assignment struct {
	ItemID              string              `json:"item_id"`
	LeadID              string              `json:"lead_id"`
	LeadRole            string              `json:"lead_role"`
	Members             []Member            `json:"members"`
	RequiredSpecialties []string            `json:"required_specialties"`
	Aggregation         AggregationStrategy `json:"aggregation"`
	TotalBudget         float64             `json:"total_budget"`
	ContingencyReserve  float64             `json:"contingency_reserve"`
	CreatedAt           time.Time           `json:"created_at"`
}

// MemberIDs returns the member identifiers in staffing order.
func (a *Assignment) MemberIDs() []string {
	ids := make([]string, len(a.Members))
	for i, m := range a.Members {
		ids[i] = m.ID
	}
	return ids
}

// Task is one delegated unit of work within a team execution.
type Task struct {
	ItemID      string  `json:"item_id"`
	MemberID    string  `json:"member_id"`
	Role        string  `json:"role"`
	Specialty   string  `json:"specialty"`
	Description string  `json:"description"`
	Budget      float64 `json:"budget"`
	Priority    float64 `json:"priority,omitempty"`
}

// Output is what a worker produces for one task. Claims are discrete
// findings used by vote and consensus aggregation; Score is the
// worker's self-reported confidence in [0,1].
type Output struct {
	Content string   `json:"content"`
	Claims  []string `json:"claims,omitempty"`
	Score   float64  `json:"score"`
	Cost    float64  `json:"cost"`
}

// Worker is the delegation port: it executes one task and reports the
// outcome. Implementations are injected; a deterministic stub serves
// tests.
type Worker interface {
	Execute(ctx context.Context, task Task) (Output, error)
}

// memberResult pairs a member with its execution outcome.
type memberResult struct {
	member Member
	output Output
	err    error
}
