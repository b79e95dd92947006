// Package classify implements the relationship classifier: given two
// work items it computes three independent signals — semantic
// similarity, temporal relationship, and resource competition — and
// combines them through a first-match policy into one of four
// relationship types (conflicting, sequential, synergistic,
// independent) with a confidence score and the raw per-signal
// breakdown for auditability.
//
// All thresholds and signal weights come from configuration so they
// can be tuned without code changes. Classification below the
// confidence floor falls back to independent with a low-confidence
// flag; it never blocks item ingestion.
package classify
