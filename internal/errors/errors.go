// Package errors provides centralized error definitions and error handling
// utilities for the Crescendo codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - GraphError: errors related to the dependency graph and edge insertion
//   - ClassifyError: errors related to pairwise relationship classification
//   - TeamError: errors related to team formation and member execution
//   - BudgetError: errors related to budget reservation and spend
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewGraphError("edge rejected", errors.ErrCycleDetected)
//
//	// With context wrapping
//	err := errors.NewTeamError("member lost", errors.ErrMemberFailure).WithMemberID("m-2")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrCycleDetected) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//	if errors.IsEscalation(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Escalation: conditions that must be surfaced to an external decision-maker
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Graph-related sentinel errors
var (
	// ErrItemNotFound indicates that a work item could not be found.
	ErrItemNotFound = New("work item not found")
	// ErrEdgeExists indicates that an equivalent edge already exists.
	ErrEdgeExists = New("edge already exists")
	// ErrCycleDetected indicates that an edge insertion would close a cycle
	// in the ordering subgraph. The graph is left unchanged.
	ErrCycleDetected = New("ordering cycle detected")
	// ErrInvalidTransition indicates a disallowed status transition.
	ErrInvalidTransition = New("invalid status transition")
	// ErrDuplicateClaim indicates a claim attempt on an item that is no
	// longer ready. This is the expected outcome of a lost claim race and
	// is benign; callers should not log it as an error.
	ErrDuplicateClaim = New("item already claimed")
)

// Classification-related sentinel errors
var (
	// ErrLowConfidence indicates a classification below the confidence
	// floor. Callers fall back to the independent relationship.
	ErrLowConfidence = New("classification confidence below floor")
	// ErrEmbeddingUnavailable indicates the embedding port returned no vector.
	ErrEmbeddingUnavailable = New("embedding unavailable")
)

// Team-related sentinel errors
var (
	// ErrMemberFailure indicates that a team member's sub-task failed.
	ErrMemberFailure = New("team member failed")
	// ErrLeadFailure indicates that a team's lead failed.
	ErrLeadFailure = New("team lead failed")
	// ErrTeamHung indicates no member progress within the liveness window.
	ErrTeamHung = New("team made no progress within liveness window")
	// ErrBreakerOpen indicates team formation is blocked by the circuit breaker.
	ErrBreakerOpen = New("team formation circuit breaker is open")
	// ErrNoSpecialist indicates no worker covers a required specialty.
	ErrNoSpecialist = New("no worker available for specialty")
)

// Budget-related sentinel errors
var (
	// ErrBudgetAuthorization indicates a reservation could not be authorized.
	ErrBudgetAuthorization = New("budget authorization failed")
	// ErrBudgetExceeded indicates a spend would exceed the hard budget.
	// This is a hard stop and must be escalated.
	ErrBudgetExceeded = New("budget exceeded")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrEscalated indicates a condition that recovery could not resolve
	// and that has been surfaced to an external decision-maker.
	ErrEscalated = New("escalated to external decision-maker")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CrescendoError is the base interface for all Crescendo errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type CrescendoError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// GraphError represents errors from the dependency graph.
//
// Example:
//
//	err := errors.NewGraphError("edge rejected", errors.ErrCycleDetected)
//	err = err.WithItemID("wi-12").WithEdge("blocks")
type GraphError struct {
	baseError
	ItemID   string
	EdgeType string
}

// NewGraphError creates a new GraphError.
func NewGraphError(message string, cause error) *GraphError {
	return &GraphError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithItemID adds a work item ID to the error context.
func (e *GraphError) WithItemID(id string) *GraphError {
	e.ItemID = id
	return e
}

// WithEdge adds an edge type to the error context.
func (e *GraphError) WithEdge(edgeType string) *GraphError {
	e.EdgeType = edgeType
	return e
}

// WithSeverity sets the error severity.
func (e *GraphError) WithSeverity(s Severity) *GraphError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *GraphError) Error() string {
	var parts []string
	if e.ItemID != "" {
		parts = append(parts, fmt.Sprintf("item=%s", e.ItemID))
	}
	if e.EdgeType != "" {
		parts = append(parts, fmt.Sprintf("edge=%s", e.EdgeType))
	}
	return formatPrefixed("graph error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *GraphError) Is(target error) bool {
	if _, ok := target.(*GraphError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ClassifyError represents errors from pairwise relationship classification.
type ClassifyError struct {
	baseError
	ItemA      string
	ItemB      string
	Confidence float64
}

// NewClassifyError creates a new ClassifyError.
// Classification errors are warnings: ingestion continues with the
// independent fallback.
func NewClassifyError(message string, cause error) *ClassifyError {
	return &ClassifyError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
	}
}

// WithPair adds the classified item pair to the error context.
func (e *ClassifyError) WithPair(a, b string) *ClassifyError {
	e.ItemA, e.ItemB = a, b
	return e
}

// WithConfidence records the confidence score that triggered the error.
func (e *ClassifyError) WithConfidence(c float64) *ClassifyError {
	e.Confidence = c
	return e
}

// Error returns the formatted error message.
func (e *ClassifyError) Error() string {
	var parts []string
	if e.ItemA != "" || e.ItemB != "" {
		parts = append(parts, fmt.Sprintf("pair=%s/%s", e.ItemA, e.ItemB))
	}
	if e.Confidence > 0 {
		parts = append(parts, fmt.Sprintf("confidence=%.2f", e.Confidence))
	}
	return formatPrefixed("classify error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *ClassifyError) Is(target error) bool {
	if _, ok := target.(*ClassifyError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TeamError represents errors from team formation and member execution.
//
// Example:
//
//	err := errors.NewTeamError("sub-task failed", errors.ErrMemberFailure).
//		WithItemID("wi-4").WithMemberID("analyst-2")
type TeamError struct {
	baseError
	ItemID   string
	MemberID string
}

// NewTeamError creates a new TeamError.
func NewTeamError(message string, cause error) *TeamError {
	return &TeamError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
	}
}

// WithItemID adds a work item ID to the error context.
func (e *TeamError) WithItemID(id string) *TeamError {
	e.ItemID = id
	return e
}

// WithMemberID adds a member ID to the error context.
func (e *TeamError) WithMemberID(id string) *TeamError {
	e.MemberID = id
	return e
}

// WithSeverity sets the error severity.
func (e *TeamError) WithSeverity(s Severity) *TeamError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *TeamError) WithRetryable(r bool) *TeamError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TeamError) Error() string {
	var parts []string
	if e.ItemID != "" {
		parts = append(parts, fmt.Sprintf("item=%s", e.ItemID))
	}
	if e.MemberID != "" {
		parts = append(parts, fmt.Sprintf("member=%s", e.MemberID))
	}
	return formatPrefixed("team error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *TeamError) Is(target error) bool {
	if _, ok := target.(*TeamError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// BudgetError represents errors from budget reservation and spend.
type BudgetError struct {
	baseError
	ItemID    string
	Requested float64
	Remaining float64
}

// NewBudgetError creates a new BudgetError.
func NewBudgetError(message string, cause error) *BudgetError {
	return &BudgetError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithItemID adds a work item ID to the error context.
func (e *BudgetError) WithItemID(id string) *BudgetError {
	e.ItemID = id
	return e
}

// WithAmounts records the requested and remaining amounts.
func (e *BudgetError) WithAmounts(requested, remaining float64) *BudgetError {
	e.Requested = requested
	e.Remaining = remaining
	return e
}

// WithSeverity sets the error severity.
func (e *BudgetError) WithSeverity(s Severity) *BudgetError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *BudgetError) Error() string {
	var parts []string
	if e.ItemID != "" {
		parts = append(parts, fmt.Sprintf("item=%s", e.ItemID))
	}
	if e.Requested > 0 {
		parts = append(parts, fmt.Sprintf("requested=%.2f", e.Requested))
		parts = append(parts, fmt.Sprintf("remaining=%.2f", e.Remaining))
	}
	return formatPrefixed("budget error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *BudgetError) Is(target error) bool {
	if _, ok := target.(*BudgetError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates a resource could not be found.
type NotFoundError struct {
	baseError
	Resource string
	ID       string
}

// NewNotFoundError creates a NotFoundError for the given resource and ID.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s %q not found", resource, id),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Resource: resource,
		ID:       id,
	}
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError indicates invalid input or state.
type ValidationError struct {
	baseError
	Field string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      ErrInvalidInput,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Field: field,
	}
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError indicates an operation exceeded its deadline.
type TimeoutError struct {
	baseError
	Operation string
}

// NewTimeoutError creates a TimeoutError for the given operation.
func NewTimeoutError(operation string) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    fmt.Sprintf("%s timed out", operation),
			cause:      ErrTimeout,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
	}
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error is transient and the operation may
// succeed on retry. Sentinel timeouts and member failures are retryable;
// correctness violations (cycles, invalid transitions, exceeded budgets)
// never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ce CrescendoError
	if errors.As(err, &ce) {
		return ce.IsRetryable()
	}

	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrMemberFailure),
		errors.Is(err, ErrEmbeddingUnavailable):
		return true
	default:
		return false
	}
}

// IsUserFacing returns true if the error message is safe to display to users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var ce CrescendoError
	if errors.As(err, &ce) {
		return ce.IsUserFacing()
	}
	return false
}

// IsEscalation returns true for conditions that must be surfaced to an
// external decision-maker rather than handled with a local fallback.
func IsEscalation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrEscalated) ||
		errors.Is(err, ErrBudgetExceeded) ||
		errors.Is(err, ErrLeadFailure)
}

// SeverityOf returns the severity of an error, defaulting to SeverityError
// for errors that do not implement CrescendoError.
func SeverityOf(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var ce CrescendoError
	if errors.As(err, &ce) {
		return ce.Severity()
	}
	if errors.Is(err, ErrDuplicateClaim) || errors.Is(err, ErrLowConfidence) {
		return SeverityInfo
	}
	if errors.Is(err, ErrBudgetExceeded) {
		return SeverityCritical
	}
	return SeverityError
}

// formatPrefixed renders "<prefix> [k=v, ...]: message: cause".
func formatPrefixed(prefix string, parts []string, message string, cause error) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}
