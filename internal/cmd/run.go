package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduling loop",
	Long: `Run the engine in the foreground: restore persisted work, start the
scheduling loop, and execute ready items until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}

	snap := eng.Snapshot()
	fmt.Printf("engine running: %d items, %.0f%% complete. Ctrl-C to stop.\n",
		snap.Total, snap.Percent*100)

	<-ctx.Done()
	fmt.Println("shutting down")
	return eng.Stop()
}
