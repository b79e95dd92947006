package team

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/crescendo/internal/budget"
	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/recovery"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Coordinator forms and runs teams for complex work items.
type Coordinator struct {
	cfg      config.TeamConfig
	enforcer *budget.Enforcer
	recovery *recovery.Manager
	router   *Router
	worker   Worker

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBus attaches an event bus for team lifecycle events.
func WithBus(bus *event.Bus) Option {
	return func(c *Coordinator) {
		c.bus = bus
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithRouter replaces the default specialty router.
func WithRouter(router *Router) Option {
	return func(c *Coordinator) {
		c.router = router
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg config.TeamConfig, enforcer *budget.Enforcer, rec *recovery.Manager, worker Worker, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		enforcer: enforcer,
		recovery: rec,
		worker:   worker,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.router == nil {
		c.router = NewRouter(nil)
	}
	return c
}

// Execute runs a work item with a team. The circuit breaker and budget
// authorization gate formation; either refusal degrades the item to
// single-worker execution instead of failing it. The returned result
// carries the aggregated output, total cost, and the degraded flag;
// Success=false results are the caller's signal to abort the item.
func (c *Coordinator) Execute(ctx context.Context, item *workitem.WorkItem) (*workitem.Result, error) {
	logger := c.logger.WithTeam(item.ID)

	if !c.recovery.Breaker().Allow() {
		logger.Warn("team formation blocked by circuit breaker")
		c.publish(event.NewTeamDegradedEvent(item.ID, "formation blocked by circuit breaker", true))
		return c.executeSolo(ctx, item)
	}

	assignment := c.form(item)
	total := budgetFor(item)
	if err := c.enforcer.Reserve(item.ID, total); err != nil {
		// Team assignment is never persisted on authorization failure.
		c.recovery.Breaker().RecordFailure()
		logger.Warn("team budget authorization failed, falling back to individual execution",
			"requested", total, "error", err.Error())
		c.publish(event.NewTeamDegradedEvent(item.ID, "budget authorization failed", true))
		return c.executeSolo(ctx, item)
	}
	c.recovery.Breaker().RecordSuccess()

	split := c.enforcer.Split(total, len(assignment.Members))
	assignment.TotalBudget = split.Total
	assignment.ContingencyReserve = split.Contingency

	logger.Info("team formed",
		"lead", assignment.LeadID, "members", len(assignment.Members),
		"aggregation", assignment.Aggregation.String(), "budget", total)
	c.publish(event.NewTeamFormedEvent(item.ID, assignment.LeadID, assignment.MemberIDs(), total))

	results := c.fanOut(ctx, item, assignment, split.PerMember)
	degraded, lost := c.recoverFailures(ctx, item, assignment, results, split.PerMember)

	successes := successfulOutputs(results)
	if len(successes) == 0 {
		// Ultimate fallback: the whole item degrades to one worker.
		c.enforcer.Release(item.ID)
		logger.Warn("every member failed, degrading to solo execution")
		c.publish(event.NewTeamDegradedEvent(item.ID, "all member sub-tasks failed", true))
		return c.executeSolo(ctx, item)
	}

	// Members still lost to a timeout after recovery mean the team
	// hung. Policy decides whether the finished fraction is enough to
	// aggregate partial results.
	if timedOut(results) > 0 {
		decision := c.recovery.OnHungTeam(item.ID, len(successes), len(results))
		if decision.Action == recovery.ActionEscalate {
			c.enforcer.Release(item.ID)
			c.recovery.Escalate(item.ID, decision.Reason, nil)
			var spent float64
			for _, r := range results {
				spent += r.output.Cost
			}
			c.publish(event.NewTeamCompletedEvent(item.ID, false, true, len(successes), lost, spent))
			return &workitem.Result{Success: false, Degraded: true, Cost: spent}, nil
		}
		degraded = true
	}

	output, leadCost, aggErr := c.aggregate(ctx, item, assignment, successes, split.Lead)
	if leadCost > 0 {
		if err := c.enforcer.Spend(item.ID, leadCost); err != nil {
			c.recovery.Escalate(item.ID, "lead integration spend exceeded the budget", err)
		}
	}
	c.enforcer.Release(item.ID)

	totalCost := leadCost
	for _, r := range results {
		totalCost += r.output.Cost
	}

	success := aggErr == nil
	if aggErr != nil {
		logger.Warn("aggregation failed", "strategy", assignment.Aggregation.String(), "error", aggErr.Error())
	}
	c.publish(event.NewTeamCompletedEvent(item.ID, success, degraded, len(successes), lost, totalCost))

	return &workitem.Result{
		Success:  success,
		Degraded: degraded,
		Output:   output,
		Cost:     totalCost,
	}, nil
}

// form staffs an assignment: the lead role comes from the item's
// primary specialty, members come one per required specialty capped at
// the configured maximum.
func (c *Coordinator) form(item *workitem.WorkItem) *Assignment {
	specialties := item.RequiredSpecialties
	if len(specialties) == 0 {
		specialties = []string{"generalist"}
	}

	members := make([]Member, 0, len(specialties))
	for i, sp := range specialties {
		if c.cfg.MaxMembers > 0 && i >= c.cfg.MaxMembers {
			break
		}
		members = append(members, Member{
			ID:        fmt.Sprintf("%s-m%d", item.ID, i+1),
			Specialty: sp,
			Role:      c.router.RoleFor(sp),
			State:     MemberPending,
		})
	}

	aggregation := AggregationStrategy(c.cfg.DefaultAggregation)
	if !aggregation.IsValid() {
		aggregation = AggregationMerge
	}

	return &Assignment{
		ItemID:              item.ID,
		LeadID:              item.ID + "-lead",
		LeadRole:            c.router.LeadRoleFor(item.RequiredSpecialties),
		Members:             members,
		RequiredSpecialties: append([]string(nil), item.RequiredSpecialties...),
		Aggregation:         aggregation,
		CreatedAt:           time.Now(),
	}
}

// fanOut runs every member sub-task concurrently, each bounded by the
// member timeout. Failures are recorded per member without stopping
// siblings; each slot of the assignment ends up holding the member's
// final state, cost, and error.
func (c *Coordinator) fanOut(ctx context.Context, item *workitem.WorkItem, assignment *Assignment, perMember float64) []memberResult {
	timeout := time.Duration(c.cfg.MemberTimeoutSec) * time.Second
	results := make([]memberResult, len(assignment.Members))

	var wg conc.WaitGroup
	for i := range assignment.Members {
		i := i
		wg.Go(func() {
			assignment.Members[i].State = MemberRunning
			results[i] = c.runMember(ctx, item, assignment.Members[i], perMember, timeout)
			assignment.Members[i] = results[i].member
		})
	}
	wg.Wait()
	return results
}

// runMember executes one sub-task and records its outcome and spend.
func (c *Coordinator) runMember(ctx context.Context, item *workitem.WorkItem, m Member, budget float64, timeout time.Duration) memberResult {
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := c.worker.Execute(mctx, Task{
		ItemID:      item.ID,
		MemberID:    m.ID,
		Role:        m.Role,
		Specialty:   m.Specialty,
		Description: item.Description,
		Budget:      budget,
		Priority:    item.PriorityWeight,
	})
	m.Cost = out.Cost
	if out.Cost > 0 {
		if serr := c.enforcer.Spend(item.ID, out.Cost); serr != nil {
			c.recovery.Escalate(item.ID, "member spend exceeded the budget", serr)
		}
	}

	errMsg := ""
	if err != nil {
		m.State = MemberFailed
		errMsg = err.Error()
		if mctx.Err() != nil {
			m.State = MemberCancelled
		}
		m.Error = errMsg
	} else {
		m.State = MemberCompleted
	}
	c.publish(event.NewTeamMemberFinishedEvent(item.ID, m.ID, err == nil, out.Cost, errMsg))

	return memberResult{member: m, output: out, err: err}
}

// recoverFailures applies the recovery policies to failed members,
// replacing critical specialists in place when a retry succeeds.
// Returns whether the outcome is degraded and how many members stayed
// lost.
func (c *Coordinator) recoverFailures(ctx context.Context, item *workitem.WorkItem, assignment *Assignment, results []memberResult, perMember float64) (degraded bool, lost int) {
	timeout := time.Duration(c.cfg.MemberTimeoutSec) * time.Second
	replacements := 0

	for i := range results {
		if results[i].err == nil {
			continue
		}
		m := results[i].member
		critical := c.criticalLoss(assignment, results, i)
		decision := c.recovery.OnMemberFailure(item.ID, m.ID, critical, replacements)

		switch decision.Action {
		case recovery.ActionReplaceMember:
			replacements++
			replacement := m
			replacement.ID = fmt.Sprintf("%s-r%d", m.ID, replacements)
			replacement.State = MemberPending
			replacement.Error = ""

			var rres memberResult
			err := c.recovery.RetryReplacement(ctx, func() error {
				rres = c.runMember(ctx, item, replacement, perMember, timeout)
				return rres.err
			})
			if err == nil {
				results[i] = rres
				assignment.Members[i] = rres.member
				degraded = true
				continue
			}
			c.recovery.Escalate(item.ID, "replacement attempts exhausted for critical specialty", err)
			degraded = true
			lost++

		case recovery.ActionEscalate:
			c.recovery.Escalate(item.ID, decision.Reason, results[i].err)
			degraded = true
			lost++

		default:
			// Non-critical loss: continue with the reduced team.
			degraded = true
			lost++
		}
	}
	return degraded, lost
}

// criticalLoss reports whether losing member i leaves its specialty
// uncovered. The lead covers the item's primary specialty, and another
// surviving member with the same specialty also counts as cover.
func (c *Coordinator) criticalLoss(assignment *Assignment, results []memberResult, i int) bool {
	sp := results[i].member.Specialty
	if len(assignment.RequiredSpecialties) > 0 && sp == assignment.RequiredSpecialties[0] {
		return false // the lead carries the primary specialty
	}
	for j := range results {
		if j == i {
			continue
		}
		if results[j].err == nil && results[j].member.Specialty == sp {
			return false
		}
	}
	return contains(assignment.RequiredSpecialties, sp)
}

// aggregate combines the surviving outputs per the assignment's
// strategy. Hierarchical aggregation has the lead author an
// integration pass; its cost is returned separately.
func (c *Coordinator) aggregate(ctx context.Context, item *workitem.WorkItem, assignment *Assignment, successes []memberResult, leadBudget float64) (output string, leadCost float64, err error) {
	switch assignment.Aggregation {
	case AggregationVote:
		return voteOutputs(successes, c.cfg), 0, nil
	case AggregationConsensus:
		output, err = consensusOutputs(successes, c.cfg.ConsensusThreshold)
		return output, 0, err
	case AggregationHierarchical:
		return c.leadIntegration(ctx, item, assignment, successes, leadBudget)
	default:
		return mergeOutputs(successes), 0, nil
	}
}

// leadIntegration runs the lead over the member outputs. When the lead
// fails, policy promotes the strongest surviving member to retry the
// integration; if that also fails the member outputs merge plainly
// rather than being discarded.
func (c *Coordinator) leadIntegration(ctx context.Context, item *workitem.WorkItem, assignment *Assignment, successes []memberResult, leadBudget float64) (string, float64, error) {
	var contributions []string
	for _, r := range successes {
		contributions = append(contributions, fmt.Sprintf("[%s] %s", r.member.Specialty, r.output.Content))
	}
	description := item.Description + "\n\nintegrate member contributions:\n" + strings.Join(contributions, "\n")

	lctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.MemberTimeoutSec)*time.Second)
	defer cancel()

	out, err := c.worker.Execute(lctx, Task{
		ItemID:      item.ID,
		MemberID:    assignment.LeadID,
		Role:        assignment.LeadRole,
		Specialty:   "integration",
		Description: description,
		Budget:      leadBudget,
		Priority:    item.PriorityWeight,
	})
	if err == nil {
		return out.Content, out.Cost, nil
	}

	logger := c.logger.WithTeam(item.ID)
	logger.Warn("lead integration failed", "error", err.Error())

	decision := c.recovery.OnLeadFailure(item.ID, len(successes))
	if decision.Action != recovery.ActionPromoteMember {
		c.recovery.Escalate(item.ID, decision.Reason, err)
		return mergeOutputs(successes), out.Cost, nil
	}

	promoted := bestMember(successes)
	logger.Info("promoting member to lead", "member", promoted.ID)
	pctx, pcancel := context.WithTimeout(ctx, time.Duration(c.cfg.MemberTimeoutSec)*time.Second)
	defer pcancel()

	pout, perr := c.worker.Execute(pctx, Task{
		ItemID:      item.ID,
		MemberID:    promoted.ID + "-promoted",
		Role:        assignment.LeadRole,
		Specialty:   "integration",
		Description: description,
		Budget:      leadBudget,
		Priority:    item.PriorityWeight,
	})
	if perr != nil {
		c.recovery.Escalate(item.ID, "promoted lead integration failed", perr)
		return mergeOutputs(successes), out.Cost + pout.Cost, nil
	}
	return pout.Content, out.Cost + pout.Cost, nil
}

// bestMember picks the surviving member with the highest self-reported
// score, staffing order breaking ties.
func bestMember(successes []memberResult) Member {
	best := successes[0]
	for _, r := range successes[1:] {
		if r.output.Score > best.output.Score {
			best = r
		}
	}
	return best.member
}

// timedOut counts members whose sub-task was lost to a timeout rather
// than a plain failure.
func timedOut(results []memberResult) int {
	n := 0
	for _, r := range results {
		if r.err != nil && r.member.State == MemberCancelled {
			n++
		}
	}
	return n
}

// soloPriorityBoost is added to the item's priority when it degrades
// to individual execution, so the retry outranks peer work.
const soloPriorityBoost = 0.2

// executeSolo is the individual-execution fallback: one worker in the
// lead role, funded by the lead share of the item's budget and run at
// elevated priority. The result is always flagged degraded.
func (c *Coordinator) executeSolo(ctx context.Context, item *workitem.WorkItem) (*workitem.Result, error) {
	amount := budgetFor(item) * c.cfg.LeadShare
	if err := c.enforcer.Reserve(item.ID, amount); err != nil {
		c.recovery.Escalate(item.ID, "individual fallback could not be funded", err)
		return nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, time.Duration(c.cfg.MemberTimeoutSec)*time.Second)
	defer cancel()

	out, err := c.worker.Execute(sctx, Task{
		ItemID:      item.ID,
		MemberID:    item.ID + "-solo",
		Role:        c.router.LeadRoleFor(item.RequiredSpecialties),
		Specialty:   firstOr(item.RequiredSpecialties, "generalist"),
		Description: item.Description,
		Budget:      amount,
		Priority:    workitem.ClampPriority(item.PriorityWeight + soloPriorityBoost),
	})
	if out.Cost > 0 {
		if serr := c.enforcer.Spend(item.ID, out.Cost); serr != nil {
			c.recovery.Escalate(item.ID, "solo spend exceeded the budget", serr)
		}
	}
	c.enforcer.Release(item.ID)

	if err != nil {
		c.recovery.Escalate(item.ID, "individual fallback failed", err)
		return &workitem.Result{Success: false, Degraded: true, Cost: out.Cost}, nil
	}
	return &workitem.Result{
		Success:  true,
		Degraded: true,
		Output:   out.Content,
		Cost:     out.Cost,
	}, nil
}

func (c *Coordinator) publish(e event.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

// budgetFor picks the amount to authorize: the allocation when the
// scheduler set one, the estimate otherwise.
func budgetFor(item *workitem.WorkItem) float64 {
	if item.AllocatedCost > 0 {
		return item.AllocatedCost
	}
	return item.EstimatedCost
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstOr(list []string, fallback string) string {
	if len(list) > 0 {
		return list[0]
	}
	return fallback
}
