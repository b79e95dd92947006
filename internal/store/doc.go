// Package store persists the dependency graph. The Store port covers
// node and edge records, predicate queries, and top-k vector
// similarity; the engine keeps the in-memory graph authoritative and
// writes through to a Store so state survives restarts.
//
// Two implementations ship: an in-memory store for tests and ephemeral
// runs, and an SQLite store (WAL mode, versioned migrations) for
// durable state.
package store
