// Package recovery decides what happens when team execution goes
// wrong: member loss, lead loss, hung teams, and repeated formation
// failures.
//
// Decisions are pure policy — the manager returns what to do and the
// team coordinator carries it out. Repeated formation failures trip a
// circuit breaker (closed, open, half-open) that blocks new team
// formation for a cooldown window. Anything the policies cannot
// resolve is escalated to an external decision-maker; nothing is
// silently dropped.
package recovery
