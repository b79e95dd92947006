package conflict

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/crescendo/internal/classify"
	"github.com/Iron-Ham/crescendo/internal/embed"
	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// quickWords and longTermWords drive the strategic-framing heuristic.
var (
	quickWords    = []string{"quick", "fast", "immediate", "asap", "now", "urgent", "short-term"}
	longTermWords = []string{"long-term", "sustainable", "strategic", "foundation", "lasting", "career", "invest"}
)

// temporalWindow is how close two deadlines must be, with a shared
// specialist, to count as temporal contention.
const temporalWindow = 24 * time.Hour

// Resolver detects conflicts between active items and applies chosen
// resolutions to the dependency graph.
type Resolver struct {
	mu         sync.Mutex
	classifier *classify.Classifier
	graph      *graph.Graph
	conflicts  map[string]*Conflict
	seen       map[string]string // pair+type -> conflict ID, dedupes rescans
	autoApply  bool

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBus attaches an event bus for conflict events.
func WithBus(bus *event.Bus) Option {
	return func(r *Resolver) {
		r.bus = bus
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithAutoApply lets Scan immediately apply the first auto-safe option
// of each detected conflict instead of surfacing it.
func WithAutoApply(enabled bool) Option {
	return func(r *Resolver) {
		r.autoApply = enabled
	}
}

// New creates a Resolver over the given classifier and graph.
func New(classifier *classify.Classifier, g *graph.Graph, opts ...Option) *Resolver {
	r := &Resolver{
		classifier: classifier,
		graph:      g,
		conflicts:  make(map[string]*Conflict),
		seen:       make(map[string]string),
		logger:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scan examines every pair of active items and records newly detected
// conflicts. Auto-safe resolutions are applied immediately when the
// resolver is configured for it; everything else waits for Resolve.
func (r *Resolver) Scan(ctx context.Context) ([]*Conflict, error) {
	items := r.graph.ActiveItems()

	var detected []*Conflict
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			c, err := r.detectPair(ctx, items[i], items[j])
			if err != nil {
				return nil, err
			}
			if c == nil {
				continue
			}
			if registered := r.register(c); registered != nil {
				detected = append(detected, registered)
			}
		}
	}

	if r.autoApply {
		for _, c := range detected {
			for _, opt := range c.Options {
				if opt.AutoSafe {
					if err := r.Resolve(c.ID, opt.ID, true); err != nil {
						return nil, err
					}
					break
				}
			}
		}
	}
	return detected, nil
}

// detectPair checks one pair for resource, temporal, and strategic
// contention, in that order of precedence.
func (r *Resolver) detectPair(ctx context.Context, a, b *workitem.WorkItem) (*Conflict, error) {
	result, err := r.classifier.Classify(ctx, a, b)
	if err != nil {
		return nil, err
	}

	if result.Type == classify.RelationConflicting {
		return &Conflict{
			ItemA:    a.ID,
			ItemB:    b.ID,
			Type:     TypeResource,
			Severity: severityFor(result.Signals.Competition),
			Options:  resourceMenu(),
		}, nil
	}

	if temporalContention(a, b) {
		return &Conflict{
			ItemA:    a.ID,
			ItemB:    b.ID,
			Type:     TypeTemporal,
			Severity: SeverityMedium,
			Options:  temporalMenu(),
		}, nil
	}

	if strategicTension(a, b) {
		return &Conflict{
			ItemA:    a.ID,
			ItemB:    b.ID,
			Type:     TypeStrategic,
			Severity: SeverityLow,
			Options:  strategicMenu(),
		}, nil
	}
	return nil, nil
}

// register stores a new conflict unless the same pair and type is
// already tracked. Returns nil for duplicates.
func (r *Resolver) register(c *Conflict) *Conflict {
	r.mu.Lock()

	key := pairKey(c.ItemA, c.ItemB, c.Type)
	if id, ok := r.seen[key]; ok {
		if existing := r.conflicts[id]; existing != nil && !existing.Resolved {
			r.mu.Unlock()
			return nil
		}
	}

	c.ID = uuid.NewString()
	c.DetectedAt = time.Now()
	r.conflicts[c.ID] = c
	r.seen[key] = c.ID
	clone := c.Clone()
	r.mu.Unlock()

	r.logger.Info("conflict detected",
		"conflict", c.ID, "type", c.Type.String(), "severity", c.Severity.String(),
		"item_a", c.ItemA, "item_b", c.ItemB)
	if r.bus != nil {
		r.bus.Publish(event.NewConflictDetectedEvent(c.ID, c.ItemA, c.ItemB, c.Type.String(), c.Severity.String()))
	}
	return clone
}

// Conflicts returns clones of unresolved conflicts, oldest first.
func (r *Resolver) Conflicts() []*Conflict {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Conflict
	for _, c := range r.conflicts {
		if !c.Resolved {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].DetectedAt.Before(out[j].DetectedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns a clone of one conflict.
func (r *Resolver) Get(id string) (*Conflict, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conflicts[id]
	if !ok {
		return nil, errors.NewNotFoundError("conflict", id)
	}
	return c.Clone(), nil
}

// Resolve applies the chosen option and marks the conflict resolved.
// The automatic flag records whether policy applied it without
// external confirmation.
func (r *Resolver) Resolve(id, optionID string, automatic bool) error {
	r.mu.Lock()
	c, ok := r.conflicts[id]
	if !ok {
		r.mu.Unlock()
		return errors.NewNotFoundError("conflict", id)
	}
	if c.Resolved {
		r.mu.Unlock()
		return errors.NewValidationError("conflict", "already resolved")
	}
	opt, ok := c.Option(optionID)
	if !ok {
		r.mu.Unlock()
		return errors.NewValidationError("option", "not in this conflict's resolution menu")
	}
	snapshot := c.Clone()
	r.mu.Unlock()

	if err := r.apply(snapshot, opt); err != nil {
		return err
	}

	r.mu.Lock()
	c.Resolved = true
	c.ChosenID = opt.ID
	r.mu.Unlock()

	r.logger.Info("conflict resolved", "conflict", id, "option", opt.ID, "automatic", automatic)
	if r.bus != nil {
		r.bus.Publish(event.NewConflictResolvedEvent(id, opt.ID, automatic))
	}
	return nil
}

// apply carries a resolution onto the graph. The higher-priority item
// of the pair is treated as the preferred one.
func (r *Resolver) apply(c *Conflict, opt ResolutionOption) error {
	first, second, err := r.orderByPriority(c.ItemA, c.ItemB)
	if err != nil {
		return err
	}

	switch opt.ID {
	case OptionSequential, OptionQuickFirst:
		// quick-first orders the quick-framed item ahead instead of the
		// higher-priority one.
		if opt.ID == OptionQuickFirst {
			if aq, bq := r.quickness(c.ItemA), r.quickness(c.ItemB); bq > aq {
				first, second = c.ItemB, c.ItemA
			} else {
				first, second = c.ItemA, c.ItemB
			}
		}
		if err := r.graph.AddEdge(first, second, graph.EdgeBlocks, graph.WithSource("inferred")); err != nil && !errors.Is(err, errors.ErrEdgeExists) {
			return err
		}
		return r.markCompetition(c)

	case OptionPrioritize:
		item, err := r.graph.Get(first)
		if err != nil {
			return err
		}
		if err := r.graph.SetPriority(first, item.PriorityWeight+0.1); err != nil {
			return err
		}
		return r.markCompetition(c)

	case OptionAddResources:
		// Capacity changes are operator actions; the conflict record and
		// competes_with edge carry the recommendation.
		return r.markCompetition(c)

	case OptionLongTermOnly:
		quick := c.ItemA
		if r.quickness(c.ItemB) > r.quickness(c.ItemA) {
			quick = c.ItemB
		}
		return r.graph.Pause(quick)

	case OptionHybrid:
		// 80/20 split: the long-term item keeps the bulk of attention.
		long, quick := c.ItemA, c.ItemB
		if r.quickness(c.ItemA) > r.quickness(c.ItemB) {
			long, quick = c.ItemB, c.ItemA
		}
		if err := r.graph.SetPriority(long, 0.8); err != nil {
			return err
		}
		return r.graph.SetPriority(quick, 0.2)

	default:
		return errors.NewValidationError("option", "no applier for "+opt.ID)
	}
}

// markCompetition records the contention as a competes_with edge.
func (r *Resolver) markCompetition(c *Conflict) error {
	err := r.graph.AddEdge(c.ItemA, c.ItemB, graph.EdgeCompetesWith, graph.WithSource("inferred"))
	if err != nil && !errors.Is(err, errors.ErrEdgeExists) {
		return err
	}
	return nil
}

// orderByPriority returns the pair with the higher-priority item first.
func (r *Resolver) orderByPriority(a, b string) (string, string, error) {
	itemA, err := r.graph.Get(a)
	if err != nil {
		return "", "", err
	}
	itemB, err := r.graph.Get(b)
	if err != nil {
		return "", "", err
	}
	if itemB.PriorityWeight > itemA.PriorityWeight {
		return b, a, nil
	}
	return a, b, nil
}

// quickness scores how strongly an item's description uses quick-win
// framing.
func (r *Resolver) quickness(id string) int {
	item, err := r.graph.Get(id)
	if err != nil {
		return 0
	}
	return keywordHits(item.Description, quickWords)
}

func severityFor(level classify.CompetitionLevel) Severity {
	switch level {
	case classify.CompetitionHigh:
		return SeverityHigh
	case classify.CompetitionMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// temporalContention reports deadline contention: a shared specialty
// with both deadlines inside the same window.
func temporalContention(a, b *workitem.WorkItem) bool {
	if a.Deadline == nil || b.Deadline == nil {
		return false
	}
	if !sharesSpecialty(a, b) {
		return false
	}
	gap := a.Deadline.Sub(*b.Deadline)
	if gap < 0 {
		gap = -gap
	}
	return gap <= temporalWindow
}

// strategicTension reports quick-win framing on one item and long-term
// framing on the other.
func strategicTension(a, b *workitem.WorkItem) bool {
	aQuick := keywordHits(a.Description, quickWords) > 0
	aLong := keywordHits(a.Description, longTermWords) > 0
	bQuick := keywordHits(b.Description, quickWords) > 0
	bLong := keywordHits(b.Description, longTermWords) > 0
	return (aQuick && bLong && !aLong) || (bQuick && aLong && !bLong)
}

func keywordHits(description string, words []string) int {
	lowered := strings.ToLower(description)
	tokens := embed.Tokenize(description)
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		set[tok] = true
	}
	hits := 0
	for _, w := range words {
		if strings.Contains(w, "-") {
			if strings.Contains(lowered, w) {
				hits++
			}
			continue
		}
		if set[w] {
			hits++
		}
	}
	return hits
}

func sharesSpecialty(a, b *workitem.WorkItem) bool {
	for _, sa := range a.RequiredSpecialties {
		for _, sb := range b.RequiredSpecialties {
			if sa == sb {
				return true
			}
		}
	}
	return false
}

func resourceMenu() []ResolutionOption {
	return []ResolutionOption{
		{ID: OptionSequential, Description: "order the items so the contested specialist serves one at a time"},
		{ID: OptionPrioritize, Description: "boost the higher-priority item and let scheduling settle the contention", AutoSafe: true},
		{ID: OptionAddResources, Description: "recommend additional specialist capacity"},
	}
}

func temporalMenu() []ResolutionOption {
	return []ResolutionOption{
		{ID: OptionSequential, Description: "order the items by deadline so the shared specialists serialize"},
		{ID: OptionPrioritize, Description: "boost the item with the nearer deadline", AutoSafe: true},
	}
}

func strategicMenu() []ResolutionOption {
	return []ResolutionOption{
		{ID: OptionQuickFirst, Description: "finish the quick win before the long-term effort"},
		{ID: OptionLongTermOnly, Description: "pause the quick win and commit to the long-term effort"},
		{ID: OptionHybrid, Description: "weight attention 80/20 toward the long-term effort"},
	}
}

func pairKey(a, b string, t Type) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b + "|" + string(t)
}
