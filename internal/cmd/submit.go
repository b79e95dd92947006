package cmd

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/crescendo/internal/engine"
	"github.com/Iron-Ham/crescendo/internal/workitem"
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit <description>...",
	Short: "Submit work requests",
	Long: `Submit one or more work requests. Each argument becomes a work item;
the engine classifies how the new items relate to existing work and
proposes strategies for synergistic clusters.

The flags apply to every item in the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringSlice("specialty", nil, "required worker specialties")
	submitCmd.Flags().String("horizon", "", "time horizon: immediate, short, medium, or long")
	submitCmd.Flags().String("deadline", "", "hard deadline in RFC 3339 form, e.g. 2026-09-15T17:00:00Z")
	submitCmd.Flags().Float64("priority", 0, "priority weight in [0,1]")
	submitCmd.Flags().Float64("cost", 0, "estimated cost")
	rootCmd.AddCommand(submitCmd)
}

// buildRequests turns the argument list plus shared flags into one
// request per description.
func buildRequests(descriptions, specialties []string, horizon, deadline string, priority, cost float64) ([]engine.Request, error) {
	var due *time.Time
	if deadline != "" {
		parsed, err := time.Parse(time.RFC3339, deadline)
		if err != nil {
			return nil, fmt.Errorf("invalid deadline %q: %w", deadline, err)
		}
		due = &parsed
	}
	if horizon != "" && !workitem.Horizon(horizon).IsValid() {
		return nil, fmt.Errorf("invalid horizon %q", horizon)
	}

	requests := make([]engine.Request, len(descriptions))
	for i, desc := range descriptions {
		requests[i] = engine.Request{
			Description:   desc,
			Priority:      priority,
			Horizon:       workitem.Horizon(horizon),
			Deadline:      due,
			Specialties:   specialties,
			EstimatedCost: cost,
		}
	}
	return requests, nil
}

func runSubmit(cmd *cobra.Command, args []string) error {
	specialties, _ := cmd.Flags().GetStringSlice("specialty")
	horizon, _ := cmd.Flags().GetString("horizon")
	deadline, _ := cmd.Flags().GetString("deadline")
	priority, _ := cmd.Flags().GetFloat64("priority")
	cost, _ := cmd.Flags().GetFloat64("cost")

	requests, err := buildRequests(args, specialties, horizon, deadline, priority, cost)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Stop()

	resp, err := eng.Submit(ctx, requests)
	if err != nil {
		return err
	}

	for _, item := range resp.Created {
		fmt.Printf("created %s (%s): %s\n", item.ID, item.Status, item.Description)
	}
	for _, syn := range resp.Synergies {
		fmt.Printf("synergy: %s <-> %s (similarity %.2f, confidence %.2f)\n",
			syn.ItemA, syn.ItemB, syn.Similarity, syn.Confidence)
	}
	for _, st := range resp.Proposals {
		fmt.Printf("strategy proposed %s: %s (%d phases), confirm with 'crescendo strategy activate %s'\n",
			st.ID, st.Name, len(st.Phases), st.ID)
	}
	return nil
}
