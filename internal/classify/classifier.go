package classify

import (
	"context"
	"fmt"
	"math"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/embed"
	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// LoadReporter reports a specialist's current load as a fraction of
// capacity in [0,1].
type LoadReporter func(specialty string) float64

// BudgetReporter reports the remaining ledger balance.
type BudgetReporter func() float64

// Classifier computes pairwise work item relationships.
type Classifier struct {
	cfg      config.ClassifierConfig
	embedder embed.Embedder
	load     LoadReporter
	budget   BudgetReporter
	logger   *logging.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLoadReporter wires the specialist-load signal. Without one,
// specialists are assumed idle.
func WithLoadReporter(fn LoadReporter) Option {
	return func(c *Classifier) {
		c.load = fn
	}
}

// WithBudgetReporter wires the remaining-budget signal. Without one,
// budget is assumed unconstrained.
func WithBudgetReporter(fn BudgetReporter) Option {
	return func(c *Classifier) {
		c.budget = fn
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates a Classifier with the given config and embedder.
func New(cfg config.ClassifierConfig, embedder embed.Embedder, opts ...Option) *Classifier {
	c := &Classifier{
		cfg:      cfg,
		embedder: embedder,
		load:     func(string) float64 { return 0 },
		budget:   func() float64 { return math.Inf(1) },
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify computes the relationship between two items. The returned
// type and confidence are symmetric in the pair; the temporal signal
// carries the direction. A result below the confidence floor comes
// back as independent with the low-confidence flag set rather than an
// error, so classification never blocks ingestion.
func (c *Classifier) Classify(ctx context.Context, a, b *workitem.WorkItem) (Result, error) {
	if a == nil || b == nil {
		return Result{}, errors.NewValidationError("pair", "both items are required")
	}

	signals, err := c.signals(ctx, a, b)
	if err != nil {
		return Result{}, err
	}

	result := Result{ItemA: a.ID, ItemB: b.ID, Signals: signals}

	// First match wins.
	switch {
	case signals.Competition == CompetitionHigh:
		result.Type = RelationConflicting
		result.Confidence = c.cfg.HighConfidence + (1-c.cfg.HighConfidence)*signals.ResourceAlignment

	case signals.Temporal.Sequential():
		result.Type = RelationSequential
		result.Confidence = c.cfg.HighConfidence

	case signals.Semantic > c.cfg.SynergyThreshold:
		result.Type = RelationSynergistic
		result.Confidence = signals.Semantic

	case signals.Semantic > c.cfg.WeakSynergyThreshold && signals.Temporal == TemporalSameHorizon:
		result.Type = RelationSynergistic
		result.Confidence = signals.Semantic * 0.8

	default:
		result.Type = RelationIndependent
		result.Confidence = 1 - signals.Semantic
	}

	if result.Confidence < c.cfg.ConfidenceFloor {
		c.logger.Warn("low-confidence classification, defaulting to independent",
			"item_a", a.ID, "item_b", b.ID,
			"type", result.Type.String(), "confidence", result.Confidence)
		result.Type = RelationIndependent
		result.LowConfidence = true
	}

	return result, nil
}

// signals computes the raw per-signal breakdown.
func (c *Classifier) signals(ctx context.Context, a, b *workitem.WorkItem) (Signals, error) {
	vecA, err := c.embeddingFor(ctx, a)
	if err != nil {
		return Signals{}, err
	}
	vecB, err := c.embeddingFor(ctx, b)
	if err != nil {
		return Signals{}, err
	}

	tokensA := embed.Tokenize(a.Description)
	tokensB := embed.Tokenize(b.Description)

	s := Signals{
		Cosine:            embed.Cosine(vecA, vecB),
		ConceptOverlap:    jaccard(tokensA, tokensB),
		ResourceAlignment: jaccard(a.RequiredSpecialties, b.RequiredSpecialties),
		DeliverableCompat: deliverableCompat(DetectDeliverable(a.Description), DetectDeliverable(b.Description)),
		Temporal:          c.temporal(a, b),
	}
	s.Semantic = c.cfg.SemanticWeight*clampUnit(s.Cosine) +
		c.cfg.ConceptWeight*s.ConceptOverlap +
		c.cfg.ResourceWeight*s.ResourceAlignment +
		c.cfg.DeliverableWeight*s.DeliverableCompat
	s.Competition = c.competition(a, b)
	return s, nil
}

func (c *Classifier) embeddingFor(ctx context.Context, item *workitem.WorkItem) ([]float64, error) {
	if len(item.Embedding) > 0 {
		return item.Embedding, nil
	}
	vec, err := c.embedder.Embed(ctx, item.Description)
	if err != nil {
		return nil, errors.NewClassifyError(
			fmt.Sprintf("embedding item %s", item.ID), errors.ErrEmbeddingUnavailable,
		).WithPair(item.ID, "")
	}
	return vec, nil
}

// temporal applies the rule table over horizons and deadlines,
// oriented A-to-B. Deadlines take precedence when both items carry
// one; otherwise adjacent horizons imply sequence, equal horizons
// imply potential synergy, and a gap of two or more ranks means the
// timelines are too far apart to couple.
func (c *Classifier) temporal(a, b *workitem.WorkItem) TemporalRelation {
	if a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline) {
		if a.Deadline.Before(*b.Deadline) {
			return TemporalAEnablesB
		}
		return TemporalBEnablesA
	}

	diff := a.Horizon.Rank() - b.Horizon.Rank()
	switch {
	case diff == 0:
		return TemporalSameHorizon
	case diff == -1:
		return TemporalAEnablesB
	case diff == 1:
		return TemporalBEnablesA
	}
	return TemporalIndependent
}

// competition grades resource contention from three conditions:
// a shared specialist running at or above the load threshold, combined
// estimated cost exceeding the remaining budget, and both items being
// urgent on the immediate horizon.
func (c *Classifier) competition(a, b *workitem.WorkItem) CompetitionLevel {
	sharedOverloaded := false
	shared := false
	for _, sa := range a.RequiredSpecialties {
		for _, sb := range b.RequiredSpecialties {
			if sa != sb {
				continue
			}
			shared = true
			if c.load(sa) >= c.cfg.SpecialistLoadThreshold {
				sharedOverloaded = true
			}
		}
	}

	overBudget := a.EstimatedCost+b.EstimatedCost > c.budget()
	bothUrgent := a.Urgent() && b.Urgent()

	conditions := 0
	for _, hit := range []bool{sharedOverloaded, overBudget, bothUrgent} {
		if hit {
			conditions++
		}
	}

	switch {
	case conditions >= 2:
		return CompetitionHigh
	case sharedOverloaded:
		return CompetitionMedium
	case conditions == 1:
		return CompetitionLow
	case shared:
		return CompetitionLow
	}
	return CompetitionNone
}

// jaccard is set overlap over union for two token slices.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// clampUnit maps cosine's [-1,1] range onto [0,1] for weighting.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
