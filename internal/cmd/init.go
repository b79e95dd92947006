package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a starter config.yaml with the default settings to the user
config directory. Existing files are left untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const starterConfig = `# Crescendo configuration. Every key is optional; these are the defaults.

store:
  # "memory" keeps the graph in process; "sqlite" persists it
  driver: memory
  path: ""

budget:
  total: 1000
  hard_stop: true

executor:
  pass_interval_ms: 250
  default_capacity: 3
  dispatch_timeout_sec: 600
  stale_claim_sec: 120
  team_complexity_threshold: 0.7

team:
  lead_share: 0.40
  member_share: 0.50
  contingency_share: 0.10
  member_timeout_sec: 600
  max_members: 4
  default_aggregation: merge
  consensus_threshold: 0.6

strategy:
  auto_activate: false
  patterns_file: ""
  max_phases: 4

conflict:
  auto_resolve: false

recovery:
  liveness_window_sec: 300
  partial_result_fraction: 0.5
  breaker_failure_threshold: 3
  breaker_cooldown_sec: 60
  breaker_half_open_trials: 1
  max_replacement_attempts: 2

logging:
  enabled: true
  level: info
  dir: ""
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := config.ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := config.ConfigFile()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("config already exists at %s\n", path)
		return nil
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Printf("wrote %s\n", filepath.Clean(path))
	return nil
}
