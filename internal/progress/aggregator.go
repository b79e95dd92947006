package progress

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Link ties a milestone to a work item with a progress weight.
type Link struct {
	// ItemID is the linked work item.
	ItemID string `json:"item_id"`

	// Weight is the fraction of the item's progress this milestone
	// carries, relative to the item's other milestone links.
	Weight float64 `json:"weight"`

	// Required marks links that must complete before the milestone
	// can be achieved.
	Required bool `json:"required"`
}

// Milestone is a trackable marker shared across work items.
type Milestone struct {
	// ID uniquely identifies the milestone.
	ID string `json:"id"`

	// Name is the human-readable label.
	Name string `json:"name"`

	// Links are the weighted item connections.
	Links []Link `json:"links"`

	// Achieved is true once the milestone has been reached.
	Achieved bool `json:"achieved"`

	// AchievedAt is when the milestone flipped to achieved.
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
}

// Snapshot summarizes engine-wide progress at a point in time.
type Snapshot struct {
	// Total is the number of items in the graph.
	Total int `json:"total"`

	// Completed is the number of successfully finished items.
	Completed int `json:"completed"`

	// Counts breaks the graph down by status.
	Counts map[string]int `json:"counts"`

	// Percent is overall completion in [0,1], counting fractional
	// milestone progress on unfinished items.
	Percent float64 `json:"percent"`

	// ETA estimates when the remaining items finish, extrapolated
	// from the observed completion rate. Zero when no rate exists yet.
	ETA time.Time `json:"eta,omitempty"`
}

// Aggregator tracks milestones and computes progress over a graph.
type Aggregator struct {
	mu         sync.RWMutex
	graph      *graph.Graph
	milestones map[string]*Milestone
	startedAt  time.Time

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithBus attaches an event bus for milestone and progress events.
func WithBus(bus *event.Bus) Option {
	return func(a *Aggregator) {
		a.bus = bus
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// NewAggregator creates an Aggregator over the given graph.
func NewAggregator(g *graph.Graph, opts ...Option) *Aggregator {
	a := &Aggregator{
		graph:      g,
		milestones: make(map[string]*Milestone),
		startedAt:  time.Now(),
		logger:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddMilestone registers a milestone. A missing ID is generated.
func (a *Aggregator) AddMilestone(m Milestone) (string, error) {
	if m.Name == "" {
		return "", errors.NewValidationError("name", "must not be empty")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.milestones[m.ID]; exists {
		return "", errors.NewValidationError("id", fmt.Sprintf("milestone %s already exists", m.ID))
	}
	stored := m
	stored.Links = append([]Link(nil), m.Links...)
	a.milestones[m.ID] = &stored
	return m.ID, nil
}

// Milestones returns copies of all milestones, ordered by name.
func (a *Aggregator) Milestones() []Milestone {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Milestone, 0, len(a.milestones))
	for _, m := range a.milestones {
		cp := *m
		cp.Links = append([]Link(nil), m.Links...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ItemCompleted re-evaluates milestone achievement after an item
// reaches a terminal state, then publishes updated progress for every
// item linked to a newly achieved milestone.
func (a *Aggregator) ItemCompleted(itemID string) {
	var achieved []*Milestone

	a.mu.Lock()
	for _, m := range a.milestones {
		if m.Achieved || !a.linksItem(m, itemID) {
			continue
		}
		if a.requiredComplete(m) {
			now := time.Now()
			m.Achieved = true
			m.AchievedAt = &now
			achieved = append(achieved, m)
		}
	}
	a.mu.Unlock()

	for _, m := range achieved {
		a.logger.Info("milestone achieved", "milestone", m.Name)
		if a.bus != nil {
			items := make([]string, 0, len(m.Links))
			for _, link := range m.Links {
				items = append(items, link.ItemID)
			}
			a.bus.Publish(event.NewMilestoneAchievedEvent(m.ID, m.Name, items))
			for _, link := range m.Links {
				a.bus.Publish(event.NewProgressUpdatedEvent(link.ItemID, a.ItemProgress(link.ItemID)*100))
			}
		}
	}
}

func (a *Aggregator) linksItem(m *Milestone, itemID string) bool {
	for _, link := range m.Links {
		if link.ItemID == itemID {
			return true
		}
	}
	return false
}

// requiredComplete reports whether every required linked item has
// completed. Milestones without required links never auto-achieve.
func (a *Aggregator) requiredComplete(m *Milestone) bool {
	sawRequired := false
	for _, link := range m.Links {
		if !link.Required {
			continue
		}
		sawRequired = true
		item, err := a.graph.Get(link.ItemID)
		if err != nil || item.Status != workitem.StatusCompleted {
			return false
		}
	}
	return sawRequired
}

// Achieve manually marks a milestone achieved.
func (a *Aggregator) Achieve(milestoneID string) error {
	a.mu.Lock()
	m, ok := a.milestones[milestoneID]
	if !ok {
		a.mu.Unlock()
		return errors.NewNotFoundError("milestone", milestoneID)
	}
	if m.Achieved {
		a.mu.Unlock()
		return nil
	}
	now := time.Now()
	m.Achieved = true
	m.AchievedAt = &now
	cp := *m
	a.mu.Unlock()

	if a.bus != nil {
		items := make([]string, 0, len(cp.Links))
		for _, link := range cp.Links {
			items = append(items, link.ItemID)
		}
		a.bus.Publish(event.NewMilestoneAchievedEvent(cp.ID, cp.Name, items))
	}
	return nil
}

// ItemProgress returns an item's completion fraction in [0,1]:
// 1 for completed items, the weighted fraction of achieved milestone
// links otherwise.
func (a *Aggregator) ItemProgress(itemID string) float64 {
	item, err := a.graph.Get(itemID)
	if err != nil {
		return 0
	}
	if item.Status == workitem.StatusCompleted {
		return 1
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var total, achieved float64
	for _, m := range a.milestones {
		for _, link := range m.Links {
			if link.ItemID != itemID {
				continue
			}
			total += link.Weight
			if m.Achieved {
				achieved += link.Weight
			}
		}
	}
	if total == 0 {
		return 0
	}
	return achieved / total
}

// Overall computes an engine-wide snapshot.
func (a *Aggregator) Overall() Snapshot {
	items := a.graph.Items()

	snap := Snapshot{
		Total:  len(items),
		Counts: make(map[string]int),
	}
	if len(items) == 0 {
		return snap
	}

	var sum float64
	for _, item := range items {
		snap.Counts[item.Status.String()]++
		switch item.Status {
		case workitem.StatusCompleted:
			snap.Completed++
			sum += 1
		case workitem.StatusAborted, workitem.StatusMerged:
			// Terminal but contributing no completion fraction; they
			// still shrink the remaining denominator below.
			sum += 1
		default:
			sum += a.ItemProgress(item.ID)
		}
	}
	snap.Percent = sum / float64(len(items))
	snap.ETA = a.eta(snap)
	return snap
}

// eta extrapolates from the completion rate since the aggregator
// started. Returns the zero time until at least one item completes.
func (a *Aggregator) eta(snap Snapshot) time.Time {
	if snap.Completed == 0 || snap.Percent >= 1 {
		return time.Time{}
	}
	elapsed := time.Since(a.startedAt)
	if elapsed <= 0 {
		return time.Time{}
	}
	rate := float64(snap.Completed) / elapsed.Seconds()
	remaining := float64(snap.Total) * (1 - snap.Percent)
	if rate <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(remaining/rate) * time.Second)
}
