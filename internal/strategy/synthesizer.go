package strategy

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Synthesizer clusters synergistic items and manages the resulting
// strategies.
type Synthesizer struct {
	mu         sync.RWMutex
	cfg        config.StrategyConfig
	patterns   *PatternSet
	strategies map[string]*Strategy

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithBus attaches an event bus for strategy events.
func WithBus(bus *event.Bus) Option {
	return func(s *Synthesizer) {
		s.bus = bus
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// WithPatterns replaces the default pattern set.
func WithPatterns(ps *PatternSet) Option {
	return func(s *Synthesizer) {
		s.patterns = ps
	}
}

// New creates a Synthesizer.
func New(cfg config.StrategyConfig, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		cfg:        cfg,
		strategies: make(map[string]*Strategy),
		logger:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.patterns == nil {
		s.patterns = NewPatternSet(s.logger)
	}
	return s
}

// Clusters groups items connected by synergizes_with edges using a
// union-find over the undirected similarity graph. Only clusters with
// two or more members are returned, largest first.
func Clusters(items []*workitem.WorkItem, edges []graph.Edge) [][]*workitem.WorkItem {
	byID := make(map[string]*workitem.WorkItem, len(items))
	parent := make(map[string]string, len(items))
	for _, item := range items {
		byID[item.ID] = item
		parent[item.ID] = item.ID
	}

	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id]) // path compression
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, e := range edges {
		if e.Type != graph.EdgeSynergizesWith {
			continue
		}
		if _, okA := byID[e.From]; !okA {
			continue
		}
		if _, okB := byID[e.To]; !okB {
			continue
		}
		union(e.From, e.To)
	}

	groups := make(map[string][]*workitem.WorkItem)
	for _, item := range items {
		root := find(item.ID)
		groups[root] = append(groups[root], item)
	}

	var clusters [][]*workitem.WorkItem
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if members[i].Horizon.Rank() != members[j].Horizon.Rank() {
				return members[i].Horizon.Rank() < members[j].Horizon.Rank()
			}
			return members[i].ID < members[j].ID
		})
		clusters = append(clusters, members)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return clusters[i][0].ID < clusters[j][0].ID
	})
	return clusters
}

// Synthesize builds and registers a draft strategy for a cluster,
// publishing a proposal event. With auto-activation configured the
// strategy activates immediately instead of awaiting confirmation.
func (s *Synthesizer) Synthesize(cluster []*workitem.WorkItem) (*Strategy, error) {
	if len(cluster) < 2 {
		return nil, errors.NewValidationError("cluster", "needs at least two items")
	}

	descriptions := make([]string, len(cluster))
	memberIDs := make([]string, len(cluster))
	specialtySet := make(map[string]bool)
	for i, item := range cluster {
		descriptions[i] = item.Description
		memberIDs[i] = item.ID
		for _, sp := range item.RequiredSpecialties {
			specialtySet[sp] = true
		}
	}
	specialties := make([]string, 0, len(specialtySet))
	for sp := range specialtySet {
		specialties = append(specialties, sp)
	}
	sort.Strings(specialties)

	var phases []Phase
	patternName := "generic"
	if pattern, ok := s.patterns.Match(descriptions); ok {
		patternName = pattern.Name
		for _, tpl := range pattern.Phases {
			phases = append(phases, Phase{
				Name:                tpl.Name,
				Duration:            tpl.Duration,
				Objectives:          append([]string(nil), tpl.Objectives...),
				RequiredSpecialties: phaseSpecialties(tpl.Specialties, specialties),
			})
		}
	} else {
		phases = genericPhases(descriptions, specialties)
	}
	if max := s.cfg.MaxPhases; max >= 2 && len(phases) > max {
		phases = phases[:max]
	}

	st := &Strategy{
		ID:             uuid.NewString(),
		Name:           fmt.Sprintf("%s (%d items)", patternName, len(cluster)),
		Pattern:        patternName,
		Status:         StatusDraft,
		ComponentItems: memberIDs,
		Phases:         phases,
		CreatedAt:      time.Now(),
	}

	s.mu.Lock()
	s.strategies[st.ID] = st
	s.mu.Unlock()

	s.logger.Info("strategy proposed",
		"strategy", st.ID, "pattern", patternName, "items", len(cluster), "phases", len(phases))
	if s.bus != nil {
		s.bus.Publish(event.NewStrategyProposedEvent(st.ID, st.Name, memberIDs, len(phases)))
	}

	if s.cfg.AutoActivate {
		if err := s.Activate(st.ID); err != nil {
			return nil, err
		}
	}
	return s.Get(st.ID)
}

func phaseSpecialties(fromTemplate, fromCluster []string) []string {
	if len(fromTemplate) > 0 {
		return append([]string(nil), fromTemplate...)
	}
	return append([]string(nil), fromCluster...)
}

// genericPhases is the fallback template: integrated planning,
// parallel execution, consolidation.
func genericPhases(descriptions, specialties []string) []Phase {
	return []Phase{
		{
			Name:                "integrated planning",
			Duration:            3 * 24 * time.Hour,
			Objectives:          []string{"align the component efforts into one plan"},
			RequiredSpecialties: append([]string(nil), specialties...),
		},
		{
			Name:                "parallel execution",
			Duration:            10 * 24 * time.Hour,
			Objectives:          append([]string(nil), descriptions...),
			RequiredSpecialties: append([]string(nil), specialties...),
		},
		{
			Name:                "consolidation",
			Duration:            3 * 24 * time.Hour,
			Objectives:          []string{"merge outcomes and capture follow-ups"},
			RequiredSpecialties: append([]string(nil), specialties...),
		},
	}
}

// Get returns a clone of the strategy.
func (s *Synthesizer) Get(id string) (*Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.strategies[id]
	if !ok {
		return nil, errors.NewNotFoundError("strategy", id)
	}
	return st.Clone(), nil
}

// Strategies returns clones of all strategies, newest first.
func (s *Synthesizer) Strategies() []*Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Activate confirms a draft strategy. The phase event publishes after
// the lock is released; a subscriber reading the synthesizer back
// would otherwise deadlock on the synchronous bus.
func (s *Synthesizer) Activate(id string) error {
	s.mu.Lock()
	st, ok := s.strategies[id]
	if !ok {
		s.mu.Unlock()
		return errors.NewNotFoundError("strategy", id)
	}
	if st.Status != StatusDraft {
		s.mu.Unlock()
		return errors.NewValidationError("status",
			fmt.Sprintf("strategy is %s, only drafts activate", st.Status))
	}
	st.Status = StatusActive
	ev := phaseEvent(st)
	s.mu.Unlock()

	s.publish(ev)
	return nil
}

// AdvancePhase moves an active strategy to its next phase, completing
// the strategy after the final one. Like Activate, the phase event
// publishes only after the lock is released.
func (s *Synthesizer) AdvancePhase(id string) (*Strategy, error) {
	s.mu.Lock()
	st, ok := s.strategies[id]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NewNotFoundError("strategy", id)
	}
	if st.Status != StatusActive {
		s.mu.Unlock()
		return nil, errors.NewValidationError("status",
			fmt.Sprintf("strategy is %s, only active strategies advance", st.Status))
	}

	st.CurrentPhase++
	var ev event.Event
	completed := false
	if st.CurrentPhase >= len(st.Phases) {
		st.Status = StatusCompleted
		st.CurrentPhase = len(st.Phases) - 1
		ev = event.NewStrategyPhaseEvent(st.ID, "", StatusCompleted.String())
		completed = true
	} else {
		ev = phaseEvent(st)
	}
	out := st.Clone()
	s.mu.Unlock()

	if completed {
		s.logger.Info("strategy completed", "strategy", out.ID)
	}
	s.publish(ev)
	return out, nil
}

// phaseEvent builds the notification for the strategy's current phase,
// or nil when it has none.
func phaseEvent(st *Strategy) event.Event {
	if len(st.Phases) == 0 {
		return nil
	}
	return event.NewStrategyPhaseEvent(
		st.ID, st.Phases[st.CurrentPhase].Name, st.Status.String())
}

func (s *Synthesizer) publish(ev event.Event) {
	if s.bus != nil && ev != nil {
		s.bus.Publish(ev)
	}
}
