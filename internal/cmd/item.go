package cmd

import (
	"fmt"
	"strconv"

	"github.com/Iron-Ham/crescendo/internal/engine"
	"github.com/Iron-Ham/crescendo/internal/graph"
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <item-id>",
	Short: "Pause a work item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyCommand(cmd, engine.PauseItem{ItemID: args[0]})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <item-id>",
	Short: "Resume a paused work item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyCommand(cmd, engine.ResumeItem{ItemID: args[0]})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <item-id>",
	Short: "Cancel a work item",
	Long:  `Abort a work item. Items it was blocking become eligible to run.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyCommand(cmd, engine.CancelItem{ItemID: args[0]})
	},
}

var prioritizeCmd = &cobra.Command{
	Use:   "prioritize <item-id> <weight>",
	Short: "Set a work item's priority weight",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		weight, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid weight %q: %w", args[1], err)
		}
		return applyCommand(cmd, engine.SetPriority{ItemID: args[0], Weight: weight})
	},
}

var linkCmd = &cobra.Command{
	Use:   "link <from-id> <to-id> <edge-type>",
	Short: "Add an explicit dependency edge",
	Long: `Insert a user-stated edge between two items. Valid edge types:
blocks, enables, feeds_into, parallel_ok, synergizes_with, competes_with.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		edgeType := graph.EdgeType(args[2])
		if !edgeType.IsValid() {
			return fmt.Errorf("invalid edge type %q", args[2])
		}
		return applyCommand(cmd, engine.AddExplicitEdge{From: args[0], To: args[1], Type: edgeType})
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd, resumeCmd, cancelCmd, prioritizeCmd, linkCmd)
}

func applyCommand(cmd *cobra.Command, command engine.Command) error {
	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Stop()
	return eng.Apply(command)
}
