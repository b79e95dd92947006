package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Inspect and manage strategies",
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List synthesized strategies",
	RunE:  runStrategyList,
}

var strategyActivateCmd = &cobra.Command{
	Use:   "activate <strategy-id>",
	Short: "Confirm a draft strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyActivate,
}

var strategyAdvanceCmd = &cobra.Command{
	Use:   "advance <strategy-id>",
	Short: "Move an active strategy to its next phase",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyAdvance,
}

func init() {
	strategyCmd.AddCommand(strategyListCmd, strategyActivateCmd, strategyAdvanceCmd)
	rootCmd.AddCommand(strategyCmd)
}

func runStrategyList(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Stop()

	strategies := eng.Strategies()
	if len(strategies) == 0 {
		fmt.Println("no strategies")
		return nil
	}
	for _, st := range strategies {
		fmt.Printf("%s [%s] %s\n", st.ID, st.Status, st.Name)
		for i, phase := range st.Phases {
			marker := "  "
			if st.Status != "draft" && i == st.CurrentPhase {
				marker = "> "
			}
			fmt.Printf("  %s%d. %s (%s)\n", marker, i+1, phase.Name, phase.Duration)
		}
	}
	return nil
}

func runStrategyActivate(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Stop()

	if err := eng.ActivateStrategy(args[0]); err != nil {
		return err
	}
	fmt.Printf("strategy %s active\n", args[0])
	return nil
}

func runStrategyAdvance(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Stop()

	st, err := eng.AdvanceStrategy(args[0])
	if err != nil {
		return err
	}
	if st.Status == "completed" {
		fmt.Printf("strategy %s completed\n", st.ID)
		return nil
	}
	fmt.Printf("strategy %s now in phase %d: %s\n",
		st.ID, st.CurrentPhase+1, st.Phases[st.CurrentPhase].Name)
	return nil
}
