// Package event provides a pub-sub event bus for decoupled inter-component
// communication in Crescendo.
//
// This package enables loose coupling between the executor, team coordinator,
// progress aggregator, and recovery manager by allowing them to communicate
// through events rather than direct method calls. Components can publish
// events without knowing who will receive them, and subscribe to events
// without knowing who will produce them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Work item lifecycle:
//   - [ItemCreatedEvent]: Emitted when a work item enters the graph
//   - [ItemStatusChangedEvent]: Emitted on every status transition
//   - [ItemCompletedEvent]: Emitted when a work item reaches a terminal state
//
// Graph events:
//   - [EdgeAddedEvent]: Emitted when a dependency edge is inserted
//   - [SynergyDetectedEvent]: Emitted when two items classify as synergistic
//
// Team events:
//   - [TeamFormedEvent], [TeamMemberFinishedEvent], [TeamDegradedEvent],
//     [TeamCompletedEvent]
//
// Budget events:
//   - [BudgetReservedEvent], [BudgetReleasedEvent], [BudgetExhaustedEvent]
//
// Coordination events:
//   - [ConflictDetectedEvent], [ConflictResolvedEvent],
//     [StrategyProposedEvent], [StrategyPhaseEvent],
//     [MilestoneAchievedEvent], [ProgressUpdatedEvent],
//     [EscalationEvent], [BreakerStateEvent]
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously and protected
// against panics: a panicking handler is logged and skipped rather than
// taking down the publisher.
package event
