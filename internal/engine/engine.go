package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/crescendo/internal/budget"
	"github.com/Iron-Ham/crescendo/internal/classify"
	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/conflict"
	"github.com/Iron-Ham/crescendo/internal/embed"
	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/executor"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/progress"
	"github.com/Iron-Ham/crescendo/internal/recovery"
	"github.com/Iron-Ham/crescendo/internal/store"
	"github.com/Iron-Ham/crescendo/internal/strategy"
	"github.com/Iron-Ham/crescendo/internal/team"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Request describes one piece of work to ingest.
type Request struct {
	// Description is the natural-language statement of the work.
	Description string `json:"description"`

	// Priority is the initial priority weight in [0,1]; zero means
	// the item default.
	Priority float64 `json:"priority,omitempty"`

	// Horizon is the expected time horizon; empty means medium.
	Horizon workitem.Horizon `json:"horizon,omitempty"`

	// Deadline is an optional hard deadline.
	Deadline *time.Time `json:"deadline,omitempty"`

	// Specialties lists the worker specialties the item needs.
	Specialties []string `json:"specialties,omitempty"`

	// EstimatedCost is the predicted cost to complete the item.
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
}

// Synergy reports one detected synergistic pairing from a submit.
type Synergy struct {
	ItemA      string  `json:"item_a"`
	ItemB      string  `json:"item_b"`
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence"`
}

// SubmitResponse is the outcome of ingesting a batch of requests.
type SubmitResponse struct {
	// Created are the new items in request order.
	Created []*workitem.WorkItem `json:"created"`

	// Synergies are the synergistic pairings detected during
	// classification, involving at least one new item each.
	Synergies []Synergy `json:"synergies,omitempty"`

	// Proposals are draft strategies synthesized for new synergistic
	// clusters, awaiting confirmation unless auto-activation is on.
	Proposals []*strategy.Strategy `json:"proposals,omitempty"`
}

// Engine wires the orchestration components behind one facade.
type Engine struct {
	cfg      *config.Config
	bus      *event.Bus
	logger   *logging.Logger
	store    store.Store
	graph    *graph.Graph
	embedder embed.Embedder

	classifier  *classify.Classifier
	ledger      *budget.AtomicLedger
	enforcer    *budget.Enforcer
	recovery    *recovery.Manager
	pool        *executor.Pool
	advisor     *executor.Advisor
	executor    *executor.Executor
	coordinator *team.Coordinator
	resolver    *conflict.Resolver
	aggregator  *progress.Aggregator
	patterns    *strategy.PatternSet
	synthesizer *strategy.Synthesizer
	notifier    Notifier

	mu       sync.Mutex
	started  bool
	subIDs   []string
	proposed map[string]bool // cluster signatures already turned into proposals
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier attaches the notification sink.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithLogger overrides the logger built from the logging config.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore overrides the store built from the store config.
func WithStore(s store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithEmbedder overrides the default hashing embedder.
func WithEmbedder(em embed.Embedder) Option {
	return func(e *Engine) {
		e.embedder = em
	}
}

// WithBus overrides the internal event bus, letting callers observe
// engine events directly.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

// hashingDims is the embedding width of the default local embedder.
const hashingDims = 256

// New assembles an Engine from configuration. The worker executes team
// sub-tasks; the solo delegator executes single-worker dispatches.
func New(cfg *config.Config, worker team.Worker, solo executor.Delegator, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if solo == nil {
		return nil, errors.NewValidationError("solo", "a solo delegator is required")
	}

	e := &Engine{
		cfg:      cfg,
		notifier: nopNotifier{},
		proposed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.bus == nil {
		e.bus = event.NewBus()
	}
	if e.logger == nil {
		if cfg.Logging.Enabled {
			logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
			if err != nil {
				return nil, err
			}
			e.logger = logger
		} else {
			e.logger = logging.NopLogger()
		}
	}
	if e.embedder == nil {
		e.embedder = embed.NewHashingEmbedder(hashingDims)
	}
	if e.store == nil {
		switch cfg.Store.Driver {
		case "", "memory":
			e.store = store.NewMemoryStore()
		case "sqlite":
			s, err := store.OpenSQLite(cfg.Store.Path)
			if err != nil {
				return nil, err
			}
			e.store = s
		default:
			return nil, errors.NewValidationError("store.driver", "must be one of: "+strings.Join(config.ValidDrivers(), ", "))
		}
	}

	e.graph = graph.New(graph.WithBus(e.bus), graph.WithLogger(e.logger))
	e.ledger = budget.NewLedger(cfg.Budget.Total, cfg.Budget.HardStop)
	e.enforcer = budget.NewEnforcer(e.ledger, cfg.Team,
		budget.WithBus(e.bus), budget.WithLogger(e.logger))
	e.pool = executor.NewPool(cfg.Executor.DefaultCapacity)
	e.classifier = classify.New(cfg.Classifier, e.embedder,
		classify.WithLoadReporter(e.pool.Load),
		classify.WithBudgetReporter(e.enforcer.Remaining),
		classify.WithLogger(e.logger))
	e.recovery = recovery.NewManager(cfg.Recovery,
		recovery.WithBus(e.bus), recovery.WithLogger(e.logger))

	execOpts := []executor.Option{
		executor.WithRecovery(e.recovery),
		executor.WithBus(e.bus),
		executor.WithLogger(e.logger),
	}
	if worker != nil {
		e.coordinator = team.NewCoordinator(cfg.Team, e.enforcer, e.recovery, worker,
			team.WithBus(e.bus), team.WithLogger(e.logger))
		execOpts = append(execOpts, executor.WithTeamRunner(e.coordinator))
	}
	e.executor = executor.New(cfg.Executor, e.graph, e.pool, solo, execOpts...)
	e.advisor = executor.NewAdvisor(e.graph, e.pool)

	e.resolver = conflict.New(e.classifier, e.graph,
		conflict.WithBus(e.bus), conflict.WithLogger(e.logger),
		conflict.WithAutoApply(cfg.Conflict.AutoResolve))
	e.aggregator = progress.NewAggregator(e.graph,
		progress.WithBus(e.bus), progress.WithLogger(e.logger))

	e.patterns = strategy.NewPatternSet(e.logger)
	if cfg.Strategy.PatternsFile != "" {
		if err := e.patterns.Watch(cfg.Strategy.PatternsFile); err != nil {
			return nil, err
		}
	}
	e.synthesizer = strategy.New(cfg.Strategy,
		strategy.WithBus(e.bus), strategy.WithPatterns(e.patterns), strategy.WithLogger(e.logger))

	return e, nil
}

// Bus exposes the engine's event bus for external subscribers.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// Start begins the scheduling loop and routes engine events to the
// store and the notifier.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("engine already started")
	}
	e.started = true
	e.subIDs = []string{
		e.bus.Subscribe("item.completed", func(ev event.Event) {
			done := ev.(event.ItemCompletedEvent)
			e.aggregator.ItemCompleted(done.ItemID)
			e.persistItem(done.ItemID)
		}),
		e.bus.Subscribe("item.status_changed", func(ev event.Event) {
			e.persistItem(ev.(event.ItemStatusChangedEvent).ItemID)
		}),
		e.bus.Subscribe("edge.added", func(ev event.Event) {
			added := ev.(event.EdgeAddedEvent)
			err := e.store.SaveEdge(context.Background(), graph.Edge{
				From:      added.FromItem,
				To:        added.ToItem,
				Type:      graph.EdgeType(added.Type),
				Weight:    added.Weight,
				Source:    added.Source,
				CreatedAt: time.Now(),
			})
			if err != nil {
				e.logger.Warn("edge persistence failed",
					"from", added.FromItem, "to", added.ToItem, "error", err.Error())
			}
		}),
		e.bus.Subscribe("conflict.detected", func(ev event.Event) {
			detected := ev.(event.ConflictDetectedEvent)
			if c, err := e.resolver.Get(detected.ConflictID); err == nil {
				e.notifier.ConflictProposed(c)
			}
		}),
		e.bus.Subscribe("strategy.proposed", func(ev event.Event) {
			proposed := ev.(event.StrategyProposedEvent)
			if st, err := e.synthesizer.Get(proposed.StrategyID); err == nil {
				e.notifier.StrategyProposed(st)
			}
		}),
		e.bus.Subscribe("recovery.escalated", func(ev event.Event) {
			esc := ev.(event.EscalationEvent)
			e.notifier.Escalated(esc.ItemID, esc.Reason, esc.Error)
		}),
		e.bus.Subscribe("progress.updated", func(ev event.Event) {
			upd := ev.(event.ProgressUpdatedEvent)
			e.notifier.ProgressUpdated(upd.ItemID, upd.Percent)
		}),
	}
	e.mu.Unlock()

	return e.executor.Start(ctx)
}

// Stop halts the scheduling loop, detaches event routing, and closes
// the pattern watcher and store.
func (e *Engine) Stop() error {
	e.mu.Lock()
	started := e.started
	e.started = false
	subs := e.subIDs
	e.subIDs = nil
	e.mu.Unlock()

	if started {
		e.executor.Stop()
	}
	for _, id := range subs {
		e.bus.Unsubscribe(id)
	}
	if err := e.patterns.Close(); err != nil {
		e.logger.Warn("pattern watcher close failed", "error", err.Error())
	}
	return e.store.Close()
}

func (e *Engine) persistItem(itemID string) {
	item, err := e.graph.Get(itemID)
	if err != nil {
		return
	}
	if err := e.store.SaveItem(context.Background(), item); err != nil {
		e.logger.Warn("item persistence failed", "item", itemID, "error", err.Error())
	}
}

// Restore rebuilds the in-memory graph from the store. Non-terminal
// items re-enter scheduling, with in-flight claims dropped so the work
// is requeued; paused items stay paused; persisted edges between
// surviving items are reinserted.
func (e *Engine) Restore(ctx context.Context) error {
	items, err := e.store.LoadItems(ctx, store.Filter{})
	if err != nil {
		return err
	}

	var paused []string
	for _, item := range items {
		if item.Status.IsTerminal() {
			continue
		}
		if item.Status == workitem.StatusPaused {
			paused = append(paused, item.ID)
		}
		restored := item.Clone()
		restored.Status = workitem.StatusDraft
		restored.ClaimedAt = nil
		restored.StartedAt = nil
		if err := e.graph.Add(restored); err != nil {
			return err
		}
	}

	edges, err := e.store.LoadEdges(ctx)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		err := e.graph.AddEdge(edge.From, edge.To, edge.Type,
			graph.WithWeight(edge.Weight), graph.WithSource(edge.Source))
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrEdgeExists):
		case errors.Is(err, errors.ErrItemNotFound):
			// An endpoint already reached a terminal state; the edge no
			// longer constrains anything.
		case errors.Is(err, errors.ErrCycleDetected):
			e.logger.Warn("persisted edge would close a cycle, skipped",
				"from", edge.From, "to", edge.To)
		default:
			return err
		}
	}

	for _, id := range paused {
		if err := e.graph.Pause(id); err != nil {
			e.logger.Warn("could not re-pause restored item", "item", id, "error", err.Error())
		}
	}
	e.logger.Info("graph restored", "items", len(items), "edges", len(edges))
	return nil
}

// Submit ingests a batch of requests: each becomes a graph item, every
// new pair against the active set is classified, detected relationships
// land as weighted edges, and new synergistic clusters produce draft
// strategy proposals.
func (e *Engine) Submit(ctx context.Context, requests []Request) (*SubmitResponse, error) {
	if len(requests) == 0 {
		return nil, errors.NewValidationError("requests", "must not be empty")
	}

	existing := e.graph.ActiveItems()

	resp := &SubmitResponse{}
	for _, req := range requests {
		item, err := e.ingest(ctx, req)
		if err != nil {
			return nil, err
		}
		resp.Created = append(resp.Created, item)
	}

	// Classify each new item against every already-active item and the
	// new items before it, so the batch gets pairwise coverage without
	// repeating pairs.
	for i, item := range resp.Created {
		others := make([]*workitem.WorkItem, 0, len(existing)+i)
		others = append(others, existing...)
		others = append(others, resp.Created[:i]...)
		synergies, err := e.relate(ctx, item, others)
		if err != nil {
			return nil, err
		}
		resp.Synergies = append(resp.Synergies, synergies...)
	}

	resp.Proposals = e.propose(resp.Created)
	return resp, nil
}

func (e *Engine) ingest(ctx context.Context, req Request) (*workitem.WorkItem, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, errors.NewValidationError("description", "must not be empty")
	}

	opts := []workitem.Option{
		workitem.WithSpecialties(req.Specialties...),
	}
	if req.Priority > 0 {
		opts = append(opts, workitem.WithPriority(req.Priority))
	}
	if req.Horizon != "" {
		opts = append(opts, workitem.WithHorizon(req.Horizon))
	}
	if req.Deadline != nil {
		opts = append(opts, workitem.WithDeadline(*req.Deadline))
	}
	if req.EstimatedCost > 0 {
		opts = append(opts, workitem.WithEstimatedCost(req.EstimatedCost))
	}

	vec, err := e.embedder.Embed(ctx, req.Description)
	if err != nil {
		e.logger.Warn("embedding unavailable, deferring to classification time",
			"error", err.Error())
	} else {
		opts = append(opts, workitem.WithEmbedding(vec))
	}

	item := workitem.New(req.Description, opts...)
	if err := e.graph.Add(item); err != nil {
		return nil, err
	}
	if err := e.store.SaveItem(ctx, item); err != nil {
		e.logger.Warn("item persistence failed", "item", item.ID, "error", err.Error())
	}
	e.logger.Info("work item ingested",
		"item", item.ID, "horizon", item.Horizon.String(), "specialties", len(item.RequiredSpecialties))
	return item, nil
}

// relate classifies item against others, inserting an edge per
// non-independent result. Duplicate edges are benign; edges that would
// close an ordering cycle are skipped with a warning.
func (e *Engine) relate(ctx context.Context, item *workitem.WorkItem, others []*workitem.WorkItem) ([]Synergy, error) {
	var synergies []Synergy
	for _, other := range others {
		result, err := e.classifier.Classify(ctx, other, item)
		if err != nil {
			return nil, err
		}

		from, to, edgeType, ok := result.Edge()
		if !ok {
			continue
		}
		err = e.graph.AddEdge(from, to, edgeType,
			graph.WithWeight(result.Confidence), graph.WithSource("semantic"))
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrEdgeExists):
		case errors.Is(err, errors.ErrCycleDetected):
			e.logger.Warn("classified edge would close a cycle, skipped",
				"from", from, "to", to, "type", edgeType.String())
			continue
		default:
			return nil, err
		}

		if result.Type == classify.RelationSynergistic {
			e.bus.Publish(event.NewSynergyDetectedEvent(
				result.ItemA, result.ItemB, result.Signals.Semantic, result.Confidence))
			synergies = append(synergies, Synergy{
				ItemA:      result.ItemA,
				ItemB:      result.ItemB,
				Similarity: result.Signals.Semantic,
				Confidence: result.Confidence,
			})
		}
	}
	return synergies, nil
}

// propose synthesizes draft strategies for synergy clusters that
// contain at least one of the new items and have not been proposed in
// this membership before.
func (e *Engine) propose(created []*workitem.WorkItem) []*strategy.Strategy {
	newIDs := make(map[string]bool, len(created))
	for _, item := range created {
		newIDs[item.ID] = true
	}

	var proposals []*strategy.Strategy
	for _, cluster := range strategy.Clusters(e.graph.ActiveItems(), e.graph.Edges()) {
		touchesNew := false
		for _, member := range cluster {
			if newIDs[member.ID] {
				touchesNew = true
				break
			}
		}
		if !touchesNew {
			continue
		}

		sig := clusterSignature(cluster)
		e.mu.Lock()
		seen := e.proposed[sig]
		if !seen {
			e.proposed[sig] = true
		}
		e.mu.Unlock()
		if seen {
			continue
		}

		st, err := e.synthesizer.Synthesize(cluster)
		if err != nil {
			e.logger.Warn("strategy synthesis failed", "cluster", sig, "error", err.Error())
			continue
		}
		proposals = append(proposals, st)
	}
	return proposals
}

func clusterSignature(cluster []*workitem.WorkItem) string {
	ids := make([]string, len(cluster))
	for i, item := range cluster {
		ids[i] = item.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// Item returns a copy of one work item.
func (e *Engine) Item(id string) (*workitem.WorkItem, error) {
	return e.graph.Get(id)
}

// Items returns copies of all work items.
func (e *Engine) Items() []*workitem.WorkItem {
	return e.graph.Items()
}

// ItemsByStatus returns copies of the items in any of the given
// statuses; with none given it behaves like Items.
func (e *Engine) ItemsByStatus(statuses ...workitem.Status) []*workitem.WorkItem {
	all := e.graph.Items()
	if len(statuses) == 0 {
		return all
	}
	var out []*workitem.WorkItem
	for _, item := range all {
		for _, status := range statuses {
			if item.Status == status {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Advise returns capacity recommendations for specialties whose ready
// backlog exceeds their free dispatch slots.
func (e *Engine) Advise() []executor.Recommendation {
	return e.advisor.Evaluate()
}

// Edges returns all relationship edges.
func (e *Engine) Edges() []graph.Edge {
	return e.graph.Edges()
}

// Apply executes one typed command against the graph.
func (e *Engine) Apply(cmd Command) error {
	switch c := cmd.(type) {
	case SetPriority:
		return e.graph.SetPriority(c.ItemID, c.Weight)
	case AddExplicitEdge:
		return e.graph.AddEdge(c.From, c.To, c.Type,
			graph.WithWeight(1), graph.WithSource("explicit"))
	case PauseItem:
		return e.graph.Pause(c.ItemID)
	case ResumeItem:
		return e.graph.Resume(c.ItemID)
	case CancelItem:
		return e.graph.Cancel(c.ItemID)
	}
	return errors.NewValidationError("command", "unrecognized command type")
}

// ScanConflicts runs a detection pass over the active items.
func (e *Engine) ScanConflicts(ctx context.Context) ([]*conflict.Conflict, error) {
	return e.resolver.Scan(ctx)
}

// Conflicts returns the unresolved conflicts, oldest first.
func (e *Engine) Conflicts() []*conflict.Conflict {
	return e.resolver.Conflicts()
}

// ResolveConflict applies a user-chosen resolution option.
func (e *Engine) ResolveConflict(conflictID, optionID string) error {
	return e.resolver.Resolve(conflictID, optionID, false)
}

// Strategies returns all synthesized strategies, newest first.
func (e *Engine) Strategies() []*strategy.Strategy {
	return e.synthesizer.Strategies()
}

// Strategy returns one strategy by ID.
func (e *Engine) Strategy(id string) (*strategy.Strategy, error) {
	return e.synthesizer.Get(id)
}

// ActivateStrategy confirms a draft strategy.
func (e *Engine) ActivateStrategy(id string) error {
	return e.synthesizer.Activate(id)
}

// AdvanceStrategy moves an active strategy to its next phase.
func (e *Engine) AdvanceStrategy(id string) (*strategy.Strategy, error) {
	return e.synthesizer.AdvancePhase(id)
}

// AddMilestone registers a progress milestone.
func (e *Engine) AddMilestone(m progress.Milestone) (string, error) {
	return e.aggregator.AddMilestone(m)
}

// Milestones returns all milestones ordered by name.
func (e *Engine) Milestones() []progress.Milestone {
	return e.aggregator.Milestones()
}

// AchieveMilestone manually marks a milestone achieved.
func (e *Engine) AchieveMilestone(id string) error {
	return e.aggregator.Achieve(id)
}

// Progress returns one item's completion fraction in [0,1].
func (e *Engine) Progress(itemID string) float64 {
	return e.aggregator.ItemProgress(itemID)
}

// Snapshot returns the engine-wide progress summary.
func (e *Engine) Snapshot() progress.Snapshot {
	return e.aggregator.Overall()
}

// Remaining returns the unreserved, unspent ledger balance.
func (e *Engine) Remaining() float64 {
	return e.enforcer.Remaining()
}

// SetCapacity overrides the concurrent dispatch cap for a specialty.
func (e *Engine) SetCapacity(specialty string, capacity int) {
	e.pool.SetCapacity(specialty, capacity)
}
