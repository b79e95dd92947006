// Package embed defines the embedding port used by the relationship
// classifier, plus vector math shared by similarity queries.
//
// The engine never talks to a model directly: components accept an
// Embedder and the wiring layer decides whether that is a real
// provider or the deterministic hashing embedder, which keeps
// classification fully testable offline.
package embed
