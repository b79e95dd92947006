// Package budget implements the spend ledger and the enforcer that
// sits between it and the rest of the engine.
//
// The Ledger port is three atomic operations: reserve conditionally
// decrements the shared balance, release is additive, and spend
// converts reservation into recorded cost with an optional hard stop.
// The Enforcer layers per-item bookkeeping on top so that release is
// idempotent per work item, and computes the lead/members/contingency
// split used when pre-authorizing a team.
package budget
