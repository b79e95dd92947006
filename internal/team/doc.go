// Package team executes a single work item with a lead and specialist
// members working concurrently.
//
// The coordinator selects a lead and members through the specialty
// router, pre-authorizes a split budget (lead, members, contingency)
// through the budget enforcer, fans member sub-tasks out concurrently
// with per-member timeouts, and combines the surviving outputs with a
// configurable aggregation strategy. Member failures are recorded
// without halting siblings; the recovery manager decides whether the
// team continues degraded, recruits a replacement, or escalates. When
// budget authorization or the formation circuit breaker blocks a team,
// the item degrades to single-worker execution instead of failing.
package team
