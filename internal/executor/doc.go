// Package executor drives the scheduling loop: compute the ready set,
// bucket it by specialty, and dispatch up to each specialty's spare
// capacity in priority order.
//
// Claims go through the graph's atomic compare-and-set so concurrent
// passes never double-dispatch an item. Dispatched work runs
// concurrently; simple items go to the single-worker delegation port,
// items whose complexity clears the configured threshold go to the
// team coordinator. Completions terminalize the item on the graph,
// which promotes blocked successors and wakes the loop for the next
// pass. Dispatch timeouts route to the recovery manager instead of
// retrying silently.
package executor
