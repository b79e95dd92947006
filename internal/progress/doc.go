// Package progress aggregates completion state across the dependency
// graph. Milestones contribute fractional progress to multiple work
// items at once through weighted links, and a milestone flips to
// achieved once every required linked item has completed. The
// aggregator also estimates time to completion from the observed
// completion rate.
package progress
