package recovery

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/logging"
)

// Action is what the coordinator should do next.
type Action string

const (
	// ActionContinueDegraded keeps the reduced team going and flags
	// the eventual result degraded.
	ActionContinueDegraded Action = "continue_degraded"

	// ActionReplaceMember recruits a same-specialty replacement.
	ActionReplaceMember Action = "replace_member"

	// ActionPromoteMember elevates a remaining member to lead.
	ActionPromoteMember Action = "promote_member"

	// ActionProceedPartial aggregates the finished members' results
	// and flags the outcome degraded.
	ActionProceedPartial Action = "proceed_partial"

	// ActionDegradeToSolo cancels outstanding member sub-tasks and
	// re-delegates to a single worker at elevated priority.
	ActionDegradeToSolo Action = "degrade_to_solo"

	// ActionEscalate surfaces the situation to an external
	// decision-maker.
	ActionEscalate Action = "escalate"
)

// Decision is the outcome of a recovery policy.
type Decision struct {
	// Action is what to do.
	Action Action `json:"action"`

	// Reason explains the decision for logs and escalation payloads.
	Reason string `json:"reason"`

	// Degraded marks outcomes that must carry the degraded flag.
	Degraded bool `json:"degraded"`
}

// Manager applies the recovery policies. It owns the team-formation
// circuit breaker.
type Manager struct {
	cfg     config.RecoveryConfig
	breaker *Breaker

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithBus attaches an event bus for escalation and breaker events.
func WithBus(bus *event.Bus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager and its breaker from config.
func NewManager(cfg config.RecoveryConfig, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.breaker = NewBreaker(
		cfg.BreakerFailureThreshold,
		cfg.BreakerCooldown(),
		cfg.BreakerHalfOpenTrials,
		m.bus,
	)
	return m
}

// Breaker exposes the team-formation circuit breaker.
func (m *Manager) Breaker() *Breaker {
	return m.breaker
}

// LivenessWindow is the no-progress duration after which a team
// counts as hung.
func (m *Manager) LivenessWindow() time.Duration {
	return m.cfg.LivenessWindow()
}

// OnMemberFailure decides how to handle a lost member. Non-critical
// specialties continue with a reduced team; critical ones get a
// replacement attempt while attempts remain, then escalate.
func (m *Manager) OnMemberFailure(itemID, memberID string, critical bool, attemptsSoFar int) Decision {
	logger := m.logger.WithItem(itemID)
	if !critical {
		logger.Warn("member lost, continuing degraded", "member", memberID)
		return Decision{
			Action:   ActionContinueDegraded,
			Reason:   "lost specialty is non-critical",
			Degraded: true,
		}
	}
	if attemptsSoFar < m.cfg.MaxReplacementAttempts {
		logger.Warn("critical member lost, recruiting replacement",
			"member", memberID, "attempt", attemptsSoFar+1)
		return Decision{
			Action: ActionReplaceMember,
			Reason: "critical specialty requires a replacement",
		}
	}
	return Decision{
		Action: ActionEscalate,
		Reason: "replacement attempts exhausted for critical specialty",
	}
}

// OnLeadFailure promotes a remaining member when one exists, otherwise
// escalates.
func (m *Manager) OnLeadFailure(itemID string, remainingMembers int) Decision {
	if remainingMembers > 0 {
		m.logger.WithItem(itemID).Warn("lead lost, promoting member")
		return Decision{
			Action:   ActionPromoteMember,
			Reason:   "most available member takes over as lead",
			Degraded: true,
		}
	}
	return Decision{
		Action: ActionEscalate,
		Reason: "lead lost with no members to promote",
	}
}

// OnHungTeam decides for a team with no progress past the liveness
// window: proceed with partial results when enough members finished,
// otherwise escalate.
func (m *Manager) OnHungTeam(itemID string, finished, total int) Decision {
	if total > 0 && float64(finished)/float64(total) >= m.cfg.PartialResultFraction {
		m.logger.WithItem(itemID).Warn("team hung, proceeding with partial results",
			"finished", finished, "total", total)
		return Decision{
			Action:   ActionProceedPartial,
			Reason:   "enough members finished to aggregate partial results",
			Degraded: true,
		}
	}
	return Decision{
		Action: ActionEscalate,
		Reason: "hung team with too few finished members",
	}
}

// Escalate surfaces a situation to the external decision-maker.
func (m *Manager) Escalate(itemID, reason string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.logger.WithItem(itemID).Error("escalating", "reason", reason, "error", msg)
	if m.bus != nil {
		m.bus.Publish(event.NewEscalationEvent(itemID, reason, msg))
	}
}

// RetryReplacement runs a replacement attempt under exponential
// backoff, bounded by the configured attempt budget and the context.
func (m *Manager) RetryReplacement(ctx context.Context, attempt func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(m.cfg.MaxReplacementAttempts)),
		ctx,
	)
	return backoff.Retry(attempt, policy)
}
