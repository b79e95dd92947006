// Package engine is the orchestration facade: it wires the dependency
// graph, classifier, strategy synthesizer, executor, team coordinator,
// budget enforcer, conflict resolver, progress aggregator, and
// recovery manager behind one API.
//
// Submit turns work requests into graph items, classifies every new
// pair, records the detected relationships as edges, and proposes
// phased strategies for synergistic clusters. Typed commands cover
// reprioritization, explicit edges, pause, resume, and cancel;
// natural-language interpretation happens outside the engine. The
// notifier port receives structured payloads (progress, conflict
// proposals, strategy proposals, escalations) for external rendering;
// the engine never formats user-facing text.
package engine
