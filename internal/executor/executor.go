package executor

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/errors"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/Iron-Ham/crescendo/internal/logging"
	"github.com/Iron-Ham/crescendo/internal/recovery"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// Delegator is the single-worker delegation port: dispatch one item,
// get its result back when the work finishes.
type Delegator interface {
	Dispatch(ctx context.Context, item *workitem.WorkItem) (*workitem.Result, error)
}

// TeamRunner executes an item with a team. The team coordinator
// satisfies it.
type TeamRunner interface {
	Execute(ctx context.Context, item *workitem.WorkItem) (*workitem.Result, error)
}

// Executor runs the scheduling loop over the dependency graph.
type Executor struct {
	cfg   config.ExecutorConfig
	graph *graph.Graph
	pool  *Pool
	solo  Delegator
	team  TeamRunner
	rec   *recovery.Manager

	bus    *event.Bus
	logger *logging.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wake    chan struct{}
	wg      sync.WaitGroup
	subID   string
}

// Option configures an Executor.
type Option func(*Executor)

// WithTeamRunner routes complex items to a team coordinator.
func WithTeamRunner(team TeamRunner) Option {
	return func(e *Executor) {
		e.team = team
	}
}

// WithRecovery routes dispatch timeouts to the recovery manager.
func WithRecovery(rec *recovery.Manager) Option {
	return func(e *Executor) {
		e.rec = rec
	}
}

// WithBus attaches an event bus for scheduling events.
func WithBus(bus *event.Bus) Option {
	return func(e *Executor) {
		e.bus = bus
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an Executor.
func New(cfg config.ExecutorConfig, g *graph.Graph, pool *Pool, solo Delegator, opts ...Option) *Executor {
	e := &Executor{
		cfg:    cfg,
		graph:  g,
		pool:   pool,
		solo:   solo,
		logger: logging.NopLogger(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the scheduling loop. The loop wakes on the pass
// timer and on item completions, whichever comes first.
func (e *Executor) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return errors.NewValidationError("executor", "already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true

	if e.bus != nil {
		e.subID = e.bus.Subscribe("item.completed", func(event.Event) {
			select {
			case e.wake <- struct{}{}:
			default:
			}
		})
	}

	e.wg.Add(1)
	go e.loop(ctx)
	return nil
}

// Stop halts the loop and waits for in-flight dispatch goroutines.
func (e *Executor) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	if e.bus != nil && e.subID != "" {
		e.bus.Unsubscribe(e.subID)
		e.subID = ""
	}
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
}

func (e *Executor) loop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PassInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-e.wake:
		}
		e.Pass(ctx)
	}
}

// Pass runs one scheduling pass: release stale claims, compute the
// ready set, bucket by specialty, and dispatch up to each specialty's
// spare capacity in priority order. Returns how many items were
// dispatched.
func (e *Executor) Pass(ctx context.Context) int {
	if released := e.graph.ReleaseStaleClaims(e.cfg.StaleClaimWindow()); len(released) > 0 {
		e.logger.Warn("released stale claims", "items", released)
	}

	ready := e.graph.ReadySet()
	buckets := make(map[string][]*workitem.WorkItem)
	var specialties []string
	for _, item := range ready {
		sp := primarySpecialty(item)
		if _, ok := buckets[sp]; !ok {
			specialties = append(specialties, sp)
		}
		buckets[sp] = append(buckets[sp], item)
	}
	sort.Strings(specialties)

	dispatched := 0
	for _, sp := range specialties {
		// Ready-set order within a bucket is already priority desc.
		for _, item := range buckets[sp] {
			if !e.pool.Acquire(sp) {
				break
			}
			claimed, err := e.graph.Claim(item.ID)
			if err != nil {
				// Duplicate claims are the benign outcome of racing passes.
				e.pool.Release(sp)
				if !errors.Is(err, errors.ErrDuplicateClaim) {
					e.logger.Warn("claim failed", "item", item.ID, "error", err.Error())
				}
				continue
			}
			dispatched++
			e.wg.Add(1)
			go e.run(ctx, claimed, sp)
		}
	}

	deferred := len(ready) - dispatched
	if e.bus != nil {
		e.bus.Publish(event.NewSchedulePassEvent(len(ready), dispatched, deferred))
	}
	return dispatched
}

// run executes one dispatched item to its terminal state. The claim is
// acknowledged before any work happens; if the acknowledgment loses to
// a stale-claim release and re-dispatch, this goroutine backs off so
// the item never executes twice.
func (e *Executor) run(ctx context.Context, item *workitem.WorkItem, specialty string) {
	defer e.wg.Done()
	defer e.pool.Release(specialty)

	logger := e.logger.WithItem(item.ID)

	if err := e.graph.MarkRunning(item.ID); err != nil {
		logger.Warn("claim superseded before start", "error", err.Error())
		return
	}

	dctx, cancel := context.WithTimeout(ctx, e.cfg.DispatchTimeout())
	defer cancel()

	var result *workitem.Result
	var err error
	if e.team != nil && item.Complexity() >= e.cfg.TeamComplexityThreshold {
		logger.Info("dispatching to team", "complexity", item.Complexity())
		result, err = e.team.Execute(dctx, item)
	} else {
		result, err = e.solo.Dispatch(dctx, item)
	}

	switch {
	case err != nil:
		if dctx.Err() == context.DeadlineExceeded && e.rec != nil {
			e.rec.Escalate(item.ID, "dispatch timed out", err)
		}
		logger.Error("dispatch failed", "error", err.Error())
		e.finish(item.ID, &workitem.Result{Success: false})
	case result == nil:
		e.finish(item.ID, &workitem.Result{Success: false})
	default:
		e.finish(item.ID, result)
	}
}

func (e *Executor) finish(itemID string, result *workitem.Result) {
	var err error
	if result.Success {
		_, err = e.graph.Complete(itemID, result)
	} else {
		_, err = e.graph.Abort(itemID, result)
	}
	if err != nil {
		e.logger.WithItem(itemID).Error("terminal transition failed", "error", err.Error())
	}
}

func primarySpecialty(item *workitem.WorkItem) string {
	if len(item.RequiredSpecialties) > 0 {
		return item.RequiredSpecialties[0]
	}
	return "generalist"
}
