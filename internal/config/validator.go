package config

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "classifier.synergy_threshold")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateClassifier()...)
	errors = append(errors, c.validateExecutor()...)
	errors = append(errors, c.validateTeam()...)
	errors = append(errors, c.validateBudget()...)
	errors = append(errors, c.validateStrategy()...)
	errors = append(errors, c.validateRecovery()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateClassifier() []ValidationError {
	var errors []ValidationError
	cl := c.Classifier

	weights := map[string]float64{
		"classifier.semantic_weight":    cl.SemanticWeight,
		"classifier.concept_weight":     cl.ConceptWeight,
		"classifier.resource_weight":    cl.ResourceWeight,
		"classifier.deliverable_weight": cl.DeliverableWeight,
	}
	sum := 0.0
	for field, w := range weights {
		if w < 0 || w > 1 {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   w,
				Message: "must be within [0,1]",
			})
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 0.001 {
		errors = append(errors, ValidationError{
			Field:   "classifier",
			Value:   sum,
			Message: "signal weights must sum to 1.0",
		})
	}

	unit := map[string]float64{
		"classifier.synergy_threshold":         cl.SynergyThreshold,
		"classifier.weak_synergy_threshold":    cl.WeakSynergyThreshold,
		"classifier.high_confidence":           cl.HighConfidence,
		"classifier.confidence_floor":          cl.ConfidenceFloor,
		"classifier.specialist_load_threshold": cl.SpecialistLoadThreshold,
	}
	for field, v := range unit {
		if v < 0 || v > 1 {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   v,
				Message: "must be within [0,1]",
			})
		}
	}

	if cl.WeakSynergyThreshold > cl.SynergyThreshold {
		errors = append(errors, ValidationError{
			Field:   "classifier.weak_synergy_threshold",
			Value:   cl.WeakSynergyThreshold,
			Message: "must not exceed synergy_threshold",
		})
	}

	return errors
}

func (c *Config) validateExecutor() []ValidationError {
	var errors []ValidationError
	ex := c.Executor

	if ex.PassIntervalMs < 10 {
		errors = append(errors, ValidationError{
			Field:   "executor.pass_interval_ms",
			Value:   ex.PassIntervalMs,
			Message: "must be at least 10",
		})
	}
	if ex.DefaultCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "executor.default_capacity",
			Value:   ex.DefaultCapacity,
			Message: "must be at least 1",
		})
	}
	if ex.DispatchTimeoutSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "executor.dispatch_timeout_sec",
			Value:   ex.DispatchTimeoutSec,
			Message: "must be at least 1",
		})
	}
	if ex.StaleClaimSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "executor.stale_claim_sec",
			Value:   ex.StaleClaimSec,
			Message: "must be at least 1",
		})
	}
	if ex.TeamComplexityThreshold < 0 || ex.TeamComplexityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "executor.team_complexity_threshold",
			Value:   ex.TeamComplexityThreshold,
			Message: "must be within [0,1]",
		})
	}

	return errors
}

func (c *Config) validateTeam() []ValidationError {
	var errors []ValidationError
	tm := c.Team

	shareSum := tm.LeadShare + tm.MemberShare + tm.ContingencyShare
	if math.Abs(shareSum-1.0) > 0.001 {
		errors = append(errors, ValidationError{
			Field:   "team",
			Value:   shareSum,
			Message: "lead_share + member_share + contingency_share must sum to 1.0",
		})
	}
	if tm.MemberTimeoutSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "team.member_timeout_sec",
			Value:   tm.MemberTimeoutSec,
			Message: "must be at least 1",
		})
	}
	if tm.MaxMembers < 1 {
		errors = append(errors, ValidationError{
			Field:   "team.max_members",
			Value:   tm.MaxMembers,
			Message: "must be at least 1",
		})
	}
	if !slices.Contains(ValidAggregations(), tm.DefaultAggregation) {
		errors = append(errors, ValidationError{
			Field:   "team.default_aggregation",
			Value:   tm.DefaultAggregation,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidAggregations(), ", ")),
		})
	}
	if tm.ConsensusThreshold < 0 || tm.ConsensusThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "team.consensus_threshold",
			Value:   tm.ConsensusThreshold,
			Message: "must be within [0,1]",
		})
	}
	if tm.SingletonTrustThreshold < 0 || tm.SingletonTrustThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "team.singleton_trust_threshold",
			Value:   tm.SingletonTrustThreshold,
			Message: "must be within [0,1]",
		})
	}

	return errors
}

func (c *Config) validateBudget() []ValidationError {
	var errors []ValidationError

	if c.Budget.Total < 0 {
		errors = append(errors, ValidationError{
			Field:   "budget.total",
			Value:   c.Budget.Total,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateStrategy() []ValidationError {
	var errors []ValidationError

	if c.Strategy.MaxPhases < 2 {
		errors = append(errors, ValidationError{
			Field:   "strategy.max_phases",
			Value:   c.Strategy.MaxPhases,
			Message: "must be at least 2",
		})
	}

	return errors
}

func (c *Config) validateRecovery() []ValidationError {
	var errors []ValidationError
	rc := c.Recovery

	if rc.LivenessWindowSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.liveness_window_sec",
			Value:   rc.LivenessWindowSec,
			Message: "must be at least 1",
		})
	}
	if rc.PartialResultFraction < 0 || rc.PartialResultFraction > 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.partial_result_fraction",
			Value:   rc.PartialResultFraction,
			Message: "must be within [0,1]",
		})
	}
	if rc.BreakerFailureThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.breaker_failure_threshold",
			Value:   rc.BreakerFailureThreshold,
			Message: "must be at least 1",
		})
	}
	if rc.BreakerCooldownSec < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.breaker_cooldown_sec",
			Value:   rc.BreakerCooldownSec,
			Message: "must be at least 1",
		})
	}
	if rc.BreakerHalfOpenTrials < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.breaker_half_open_trials",
			Value:   rc.BreakerHalfOpenTrials,
			Message: "must be at least 1",
		})
	}
	if rc.MaxReplacementAttempts < 0 {
		errors = append(errors, ValidationError{
			Field:   "recovery.max_replacement_attempts",
			Value:   rc.MaxReplacementAttempts,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError
	st := c.Store

	if !slices.Contains(ValidDrivers(), st.Driver) {
		errors = append(errors, ValidationError{
			Field:   "store.driver",
			Value:   st.Driver,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidDrivers(), ", ")),
		})
	}
	if st.Driver == "sqlite" && st.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "store.path",
			Value:   st.Path,
			Message: "required when driver is sqlite",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
