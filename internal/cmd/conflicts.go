package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Scan for and list unresolved conflicts",
	RunE:  runConflicts,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id> <option-id>",
	Short: "Resolve a conflict with a chosen option",
	Args:  cobra.ExactArgs(2),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(conflictsCmd, resolveCmd)
}

func runConflicts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Stop()

	if _, err := eng.ScanConflicts(ctx); err != nil {
		return err
	}

	conflicts := eng.Conflicts()
	if len(conflicts) == 0 {
		fmt.Println("no unresolved conflicts")
		return nil
	}
	for _, c := range conflicts {
		fmt.Printf("%s: %s vs %s (%s, %s severity)\n", c.ID, c.ItemA, c.ItemB, c.Type, c.Severity)
		for _, opt := range c.Options {
			auto := ""
			if opt.AutoSafe {
				auto = " (auto-safe)"
			}
			fmt.Printf("  [%s] %s%s\n", opt.ID, opt.Description, auto)
		}
	}

	// Capacity pressure informs the add-resources option.
	if recs := eng.Advise(); len(recs) > 0 {
		fmt.Println("\ncapacity recommendations:")
		for _, rec := range recs {
			fmt.Printf("  %s: %d ready for %d slots (%d busy), raise capacity to %d\n",
				rec.Specialty, rec.Backlog, rec.Capacity, rec.InUse, rec.Suggested)
		}
	}
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Stop()

	if err := eng.ResolveConflict(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("conflict %s resolved with %s\n", args[0], args[1])
	return nil
}
