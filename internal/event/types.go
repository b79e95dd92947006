package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "item.completed", "team.formed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Work Item Lifecycle Events
// -----------------------------------------------------------------------------

// ItemCreatedEvent is emitted when a work item enters the dependency graph.
type ItemCreatedEvent struct {
	baseEvent
	ItemID      string  // Unique identifier for the work item
	Description string  // Free-text description of the work
	Priority    float64 // Priority weight in [0,1]
}

// NewItemCreatedEvent creates an ItemCreatedEvent.
func NewItemCreatedEvent(itemID, description string, priority float64) ItemCreatedEvent {
	return ItemCreatedEvent{
		baseEvent:   newBaseEvent("item.created"),
		ItemID:      itemID,
		Description: description,
		Priority:    priority,
	}
}

// ItemStatusChangedEvent is emitted on every work item status transition.
type ItemStatusChangedEvent struct {
	baseEvent
	ItemID string // Work item identifier
	From   string // Previous status
	To     string // New status
}

// NewItemStatusChangedEvent creates an ItemStatusChangedEvent.
func NewItemStatusChangedEvent(itemID, from, to string) ItemStatusChangedEvent {
	return ItemStatusChangedEvent{
		baseEvent: newBaseEvent("item.status_changed"),
		ItemID:    itemID,
		From:      from,
		To:        to,
	}
}

// ItemCompletedEvent is emitted when a work item reaches a terminal state.
type ItemCompletedEvent struct {
	baseEvent
	ItemID   string  // Work item identifier
	Success  bool    // True for completed, false for aborted
	Degraded bool    // True when the result was produced by a reduced team
	Cost     float64 // Actual spend recorded against the item
	Result   string  // Result payload delivered by the worker or team
}

// NewItemCompletedEvent creates an ItemCompletedEvent.
func NewItemCompletedEvent(itemID string, success, degraded bool, cost float64, result string) ItemCompletedEvent {
	return ItemCompletedEvent{
		baseEvent: newBaseEvent("item.completed"),
		ItemID:    itemID,
		Success:   success,
		Degraded:  degraded,
		Cost:      cost,
		Result:    result,
	}
}

// -----------------------------------------------------------------------------
// Graph Events
// -----------------------------------------------------------------------------

// EdgeAddedEvent is emitted when a dependency edge is inserted into the graph.
type EdgeAddedEvent struct {
	baseEvent
	FromItem string  // Source work item ID
	ToItem   string  // Target work item ID
	Type     string  // Edge type (blocks, enables, synergizes_with, ...)
	Source   string  // Detection source (semantic, explicit, inferred)
	Weight   float64 // Edge weight
}

// NewEdgeAddedEvent creates an EdgeAddedEvent.
func NewEdgeAddedEvent(fromItem, toItem, edgeType, source string, weight float64) EdgeAddedEvent {
	return EdgeAddedEvent{
		baseEvent: newBaseEvent("edge.added"),
		FromItem:  fromItem,
		ToItem:    toItem,
		Type:      edgeType,
		Source:    source,
		Weight:    weight,
	}
}

// SynergyDetectedEvent is emitted when the classifier finds two items synergistic.
type SynergyDetectedEvent struct {
	baseEvent
	ItemA      string  // First work item ID
	ItemB      string  // Second work item ID
	Similarity float64 // Combined semantic similarity score
	Confidence float64 // Classification confidence
}

// NewSynergyDetectedEvent creates a SynergyDetectedEvent.
func NewSynergyDetectedEvent(itemA, itemB string, similarity, confidence float64) SynergyDetectedEvent {
	return SynergyDetectedEvent{
		baseEvent:  newBaseEvent("synergy.detected"),
		ItemA:      itemA,
		ItemB:      itemB,
		Similarity: similarity,
		Confidence: confidence,
	}
}

// -----------------------------------------------------------------------------
// Scheduling Events
// -----------------------------------------------------------------------------

// SchedulePassEvent is emitted after each executor scheduling pass.
type SchedulePassEvent struct {
	baseEvent
	Ready      int // Items in the ready set at pass start
	Dispatched int // Items dispatched during this pass
	Deferred   int // Ready items deferred for lack of capacity
}

// NewSchedulePassEvent creates a SchedulePassEvent.
func NewSchedulePassEvent(ready, dispatched, deferred int) SchedulePassEvent {
	return SchedulePassEvent{
		baseEvent:  newBaseEvent("schedule.pass"),
		Ready:      ready,
		Dispatched: dispatched,
		Deferred:   deferred,
	}
}

// -----------------------------------------------------------------------------
// Team Events
// -----------------------------------------------------------------------------

// TeamFormedEvent is emitted when a team is assembled for a work item.
type TeamFormedEvent struct {
	baseEvent
	ItemID  string   // Work item the team executes
	LeadID  string   // Lead worker ID
	Members []string // Member worker IDs, excluding the lead
	Budget  float64  // Authorized team budget
}

// NewTeamFormedEvent creates a TeamFormedEvent.
func NewTeamFormedEvent(itemID, leadID string, members []string, budget float64) TeamFormedEvent {
	return TeamFormedEvent{
		baseEvent: newBaseEvent("team.formed"),
		ItemID:    itemID,
		LeadID:    leadID,
		Members:   members,
		Budget:    budget,
	}
}

// TeamMemberFinishedEvent is emitted when a member sub-task reaches a
// terminal state, successful or not.
type TeamMemberFinishedEvent struct {
	baseEvent
	ItemID   string  // Work item the team executes
	MemberID string  // Member worker ID
	Success  bool    // Whether the sub-task succeeded
	Cost     float64 // Spend recorded for this member
	Error    string  // Failure reason when Success is false
}

// NewTeamMemberFinishedEvent creates a TeamMemberFinishedEvent.
func NewTeamMemberFinishedEvent(itemID, memberID string, success bool, cost float64, errMsg string) TeamMemberFinishedEvent {
	return TeamMemberFinishedEvent{
		baseEvent: newBaseEvent("team.member_finished"),
		ItemID:    itemID,
		MemberID:  memberID,
		Success:   success,
		Cost:      cost,
		Error:     errMsg,
	}
}

// TeamDegradedEvent is emitted when a team continues with reduced membership
// or falls back to single-worker execution.
type TeamDegradedEvent struct {
	baseEvent
	ItemID string // Work item the team executes
	Reason string // Why the team degraded (member loss, hung team, budget)
	Solo   bool   // True when degraded all the way to single-worker execution
}

// NewTeamDegradedEvent creates a TeamDegradedEvent.
func NewTeamDegradedEvent(itemID, reason string, solo bool) TeamDegradedEvent {
	return TeamDegradedEvent{
		baseEvent: newBaseEvent("team.degraded"),
		ItemID:    itemID,
		Reason:    reason,
		Solo:      solo,
	}
}

// TeamCompletedEvent is emitted when a team finishes and its result is
// aggregated.
type TeamCompletedEvent struct {
	baseEvent
	ItemID      string  // Work item the team executed
	Success     bool    // Whether the aggregated result is usable
	Degraded    bool    // Whether the result came from a reduced team
	MembersDone int     // Members that finished successfully
	MembersLost int     // Members that failed or were cancelled
	TotalCost   float64 // Total spend across lead and members
}

// NewTeamCompletedEvent creates a TeamCompletedEvent.
func NewTeamCompletedEvent(itemID string, success, degraded bool, done, lost int, totalCost float64) TeamCompletedEvent {
	return TeamCompletedEvent{
		baseEvent:   newBaseEvent("team.completed"),
		ItemID:      itemID,
		Success:     success,
		Degraded:    degraded,
		MembersDone: done,
		MembersLost: lost,
		TotalCost:   totalCost,
	}
}

// -----------------------------------------------------------------------------
// Budget Events
// -----------------------------------------------------------------------------

// BudgetReservedEvent is emitted when a reservation is authorized.
type BudgetReservedEvent struct {
	baseEvent
	ItemID string  // Work item the reservation covers
	Amount float64 // Reserved amount
}

// NewBudgetReservedEvent creates a BudgetReservedEvent.
func NewBudgetReservedEvent(itemID string, amount float64) BudgetReservedEvent {
	return BudgetReservedEvent{
		baseEvent: newBaseEvent("budget.reserved"),
		ItemID:    itemID,
		Amount:    amount,
	}
}

// BudgetReleasedEvent is emitted when an unused reservation is returned.
type BudgetReleasedEvent struct {
	baseEvent
	ItemID string  // Work item the reservation covered
	Amount float64 // Released amount (allocated minus actual spend)
}

// NewBudgetReleasedEvent creates a BudgetReleasedEvent.
func NewBudgetReleasedEvent(itemID string, amount float64) BudgetReleasedEvent {
	return BudgetReleasedEvent{
		baseEvent: newBaseEvent("budget.released"),
		ItemID:    itemID,
		Amount:    amount,
	}
}

// BudgetExhaustedEvent is emitted when spend hits a hard budget limit.
type BudgetExhaustedEvent struct {
	baseEvent
	ItemID    string  // Work item that hit the limit ("" for the global ledger)
	Limit     float64 // The configured hard limit
	Attempted float64 // The spend that was refused
}

// NewBudgetExhaustedEvent creates a BudgetExhaustedEvent.
func NewBudgetExhaustedEvent(itemID string, limit, attempted float64) BudgetExhaustedEvent {
	return BudgetExhaustedEvent{
		baseEvent: newBaseEvent("budget.exhausted"),
		ItemID:    itemID,
		Limit:     limit,
		Attempted: attempted,
	}
}

// -----------------------------------------------------------------------------
// Conflict Events
// -----------------------------------------------------------------------------

// ConflictDetectedEvent is emitted when the resolver records a new conflict.
type ConflictDetectedEvent struct {
	baseEvent
	ConflictID string // Conflict record identifier
	ItemA      string // First conflicting item
	ItemB      string // Second conflicting item
	Type       string // resource, temporal, or strategic
	Severity   string // low, medium, high
}

// NewConflictDetectedEvent creates a ConflictDetectedEvent.
func NewConflictDetectedEvent(conflictID, itemA, itemB, conflictType, severity string) ConflictDetectedEvent {
	return ConflictDetectedEvent{
		baseEvent:  newBaseEvent("conflict.detected"),
		ConflictID: conflictID,
		ItemA:      itemA,
		ItemB:      itemB,
		Type:       conflictType,
		Severity:   severity,
	}
}

// ConflictResolvedEvent is emitted when a conflict resolution is applied.
type ConflictResolvedEvent struct {
	baseEvent
	ConflictID string // Conflict record identifier
	Option     string // The chosen resolution option
	Automatic  bool   // True when applied without external confirmation
}

// NewConflictResolvedEvent creates a ConflictResolvedEvent.
func NewConflictResolvedEvent(conflictID, option string, automatic bool) ConflictResolvedEvent {
	return ConflictResolvedEvent{
		baseEvent:  newBaseEvent("conflict.resolved"),
		ConflictID: conflictID,
		Option:     option,
		Automatic:  automatic,
	}
}

// -----------------------------------------------------------------------------
// Strategy Events
// -----------------------------------------------------------------------------

// StrategyProposedEvent is emitted when the synthesizer produces a Strategy.
type StrategyProposedEvent struct {
	baseEvent
	StrategyID string   // Strategy identifier
	Name       string   // Strategy name (pattern or generic template)
	Items      []string // Component work item IDs
	Phases     int      // Number of phases
}

// NewStrategyProposedEvent creates a StrategyProposedEvent.
func NewStrategyProposedEvent(strategyID, name string, items []string, phases int) StrategyProposedEvent {
	return StrategyProposedEvent{
		baseEvent:  newBaseEvent("strategy.proposed"),
		StrategyID: strategyID,
		Name:       name,
		Items:      items,
		Phases:     phases,
	}
}

// StrategyPhaseEvent is emitted when a strategy activates or advances a phase.
type StrategyPhaseEvent struct {
	baseEvent
	StrategyID string // Strategy identifier
	Phase      string // Name of the phase entered ("" when completing)
	Status     string // Strategy status after the advance
}

// NewStrategyPhaseEvent creates a StrategyPhaseEvent.
func NewStrategyPhaseEvent(strategyID, phase, status string) StrategyPhaseEvent {
	return StrategyPhaseEvent{
		baseEvent:  newBaseEvent("strategy.phase"),
		StrategyID: strategyID,
		Phase:      phase,
		Status:     status,
	}
}

// -----------------------------------------------------------------------------
// Progress Events
// -----------------------------------------------------------------------------

// ProgressUpdatedEvent is emitted when an item's aggregate progress changes.
type ProgressUpdatedEvent struct {
	baseEvent
	ItemID  string  // Work item identifier
	Percent float64 // Completion percentage in [0,100]
}

// NewProgressUpdatedEvent creates a ProgressUpdatedEvent.
func NewProgressUpdatedEvent(itemID string, percent float64) ProgressUpdatedEvent {
	return ProgressUpdatedEvent{
		baseEvent: newBaseEvent("progress.updated"),
		ItemID:    itemID,
		Percent:   percent,
	}
}

// MilestoneAchievedEvent is emitted when all required milestone links complete.
type MilestoneAchievedEvent struct {
	baseEvent
	MilestoneID string   // Milestone identifier
	Name        string   // Milestone name
	Items       []string // Work items the milestone contributes to
}

// NewMilestoneAchievedEvent creates a MilestoneAchievedEvent.
func NewMilestoneAchievedEvent(milestoneID, name string, items []string) MilestoneAchievedEvent {
	return MilestoneAchievedEvent{
		baseEvent:   newBaseEvent("milestone.achieved"),
		MilestoneID: milestoneID,
		Name:        name,
		Items:       items,
	}
}

// -----------------------------------------------------------------------------
// Recovery Events
// -----------------------------------------------------------------------------

// EscalationEvent is emitted when recovery gives up and surfaces a condition
// to an external decision-maker. Escalations are never silently dropped.
type EscalationEvent struct {
	baseEvent
	ItemID string // Work item the escalation concerns
	Reason string // Human-readable cause
	Error  string // Underlying error message
}

// NewEscalationEvent creates an EscalationEvent.
func NewEscalationEvent(itemID, reason, errMsg string) EscalationEvent {
	return EscalationEvent{
		baseEvent: newBaseEvent("recovery.escalated"),
		ItemID:    itemID,
		Reason:    reason,
		Error:     errMsg,
	}
}

// BreakerStateEvent is emitted when the team-formation circuit breaker
// changes state.
type BreakerStateEvent struct {
	baseEvent
	From string // Previous breaker state
	To   string // New breaker state
}

// NewBreakerStateEvent creates a BreakerStateEvent.
func NewBreakerStateEvent(from, to string) BreakerStateEvent {
	return BreakerStateEvent{
		baseEvent: newBaseEvent("breaker.state_changed"),
		From:      from,
		To:        to,
	}
}
