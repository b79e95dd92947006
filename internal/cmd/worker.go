package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/conflict"
	"github.com/Iron-Ham/crescendo/internal/engine"
	"github.com/Iron-Ham/crescendo/internal/strategy"
	"github.com/Iron-Ham/crescendo/internal/team"
	"github.com/Iron-Ham/crescendo/internal/workitem"
)

// localWorker is a scripted stand-in for a real execution backend. It
// acknowledges each task with a deterministic summary and a small cost,
// which is enough to exercise scheduling, teams, budgets, and progress
// end to end. A production deployment replaces this with a backend that
// performs the work.
type localWorker struct {
	// delay simulates work so the scheduling loop is observable.
	delay time.Duration
}

func (w *localWorker) Execute(ctx context.Context, task team.Task) (team.Output, error) {
	select {
	case <-time.After(w.delay):
	case <-ctx.Done():
		return team.Output{}, ctx.Err()
	}
	return team.Output{
		Content: fmt.Sprintf("[%s] %s", task.Role, task.Description),
		Score:   0.8,
		Cost:    1,
	}, nil
}

// Dispatch lets the same worker serve solo executions.
func (w *localWorker) Dispatch(ctx context.Context, item *workitem.WorkItem) (*workitem.Result, error) {
	out, err := w.Execute(ctx, team.Task{
		ItemID:      item.ID,
		MemberID:    item.ID + "-solo",
		Role:        "generalist",
		Description: item.Description,
	})
	if err != nil {
		return nil, err
	}
	return &workitem.Result{Success: true, Output: out.Content, Cost: out.Cost}, nil
}

// consoleNotifier renders engine notifications for terminal use.
type consoleNotifier struct{}

func (consoleNotifier) ProgressUpdated(itemID string, percent float64) {
	fmt.Printf("progress: %s at %.0f%%\n", itemID, percent)
}

func (consoleNotifier) ConflictProposed(c *conflict.Conflict) {
	fmt.Printf("conflict %s: %s vs %s (%s, %s severity)\n",
		c.ID, c.ItemA, c.ItemB, c.Type, c.Severity)
	for _, opt := range c.Options {
		fmt.Printf("  [%s] %s\n", opt.ID, opt.Description)
	}
}

func (consoleNotifier) StrategyProposed(s *strategy.Strategy) {
	phases := make([]string, len(s.Phases))
	for i, p := range s.Phases {
		phases[i] = p.Name
	}
	fmt.Printf("strategy proposed %s: %s covering %d items\n  phases: %s\n",
		s.ID, s.Name, len(s.ComponentItems), strings.Join(phases, " -> "))
}

func (consoleNotifier) Escalated(itemID, reason, errMsg string) {
	fmt.Printf("escalation: %s: %s", itemID, reason)
	if errMsg != "" {
		fmt.Printf(" (%s)", errMsg)
	}
	fmt.Println()
}

// buildEngine assembles an engine from the loaded configuration and
// restores any persisted graph state.
func buildEngine(ctx context.Context) (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	worker := &localWorker{delay: 100 * time.Millisecond}
	eng, err := engine.New(cfg, worker, worker, engine.WithNotifier(consoleNotifier{}))
	if err != nil {
		return nil, err
	}
	if err := eng.Restore(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}
