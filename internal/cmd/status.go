package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine-wide progress",
	Long:  `Display overall progress, the status breakdown, and every work item.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Stop()

	snap := eng.Snapshot()
	fmt.Printf("Items: %d  Completed: %d  Progress: %.0f%%\n",
		snap.Total, snap.Completed, snap.Percent*100)
	if !snap.ETA.IsZero() {
		fmt.Printf("ETA: %s\n", snap.ETA.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Budget remaining: %.2f\n\n", eng.Remaining())

	statuses := make([]string, 0, len(snap.Counts))
	for status := range snap.Counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("  %-12s %d\n", status, snap.Counts[status])
	}
	fmt.Println()

	for _, item := range eng.Items() {
		fmt.Printf("%s [%s] p=%.2f %s\n",
			item.ID, item.Status, item.PriorityWeight, item.Description)
		if item.Deadline != nil {
			fmt.Printf("    deadline: %s\n", item.Deadline.Format("2006-01-02 15:04"))
		}
		if len(item.RequiredSpecialties) > 0 {
			fmt.Printf("    specialties: %v\n", item.RequiredSpecialties)
		}
	}
	return nil
}
