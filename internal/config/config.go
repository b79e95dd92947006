package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Crescendo configuration
type Config struct {
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Team       TeamConfig       `mapstructure:"team"`
	Budget     BudgetConfig     `mapstructure:"budget"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Conflict   ConflictConfig   `mapstructure:"conflict"`
	Recovery   RecoveryConfig   `mapstructure:"recovery"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ClassifierConfig holds the tunable thresholds of the relationship
// classifier. These are configuration, not constants, so operators can
// tune classification sensitivity without a rebuild.
type ClassifierConfig struct {
	// SemanticWeight is the weight of embedding cosine similarity (default: 0.5)
	SemanticWeight float64 `mapstructure:"semantic_weight"`
	// ConceptWeight is the weight of domain/concept Jaccard overlap (default: 0.2)
	ConceptWeight float64 `mapstructure:"concept_weight"`
	// ResourceWeight is the weight of resource-category alignment (default: 0.15)
	ResourceWeight float64 `mapstructure:"resource_weight"`
	// DeliverableWeight is the weight of deliverable-type compatibility (default: 0.15)
	DeliverableWeight float64 `mapstructure:"deliverable_weight"`
	// SynergyThreshold is the combined similarity above which a pair is
	// classified synergistic outright (default: 0.70)
	SynergyThreshold float64 `mapstructure:"synergy_threshold"`
	// WeakSynergyThreshold is the similarity floor for same-horizon synergy
	// (default: 0.40)
	WeakSynergyThreshold float64 `mapstructure:"weak_synergy_threshold"`
	// HighConfidence is the confidence at or above which classifications may
	// be acted on without confirmation (default: 0.75)
	HighConfidence float64 `mapstructure:"high_confidence"`
	// ConfidenceFloor is the confidence below which a classification falls
	// back to independent (default: 0.55)
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
	// SpecialistLoadThreshold is the load fraction at which a shared
	// specialist counts as contended (default: 0.8)
	SpecialistLoadThreshold float64 `mapstructure:"specialist_load_threshold"`
}

// ExecutorConfig controls the scheduling loop
type ExecutorConfig struct {
	// PassIntervalMs is the idle interval between scheduling passes (default: 250)
	PassIntervalMs int `mapstructure:"pass_interval_ms"`
	// DefaultCapacity is the per-specialty concurrent dispatch cap used when
	// a specialty has no explicit capacity (default: 3)
	DefaultCapacity int `mapstructure:"default_capacity"`
	// DispatchTimeoutSec bounds a single dispatched work unit (default: 600)
	DispatchTimeoutSec int `mapstructure:"dispatch_timeout_sec"`
	// StaleClaimSec is how long a claimed item may sit without starting
	// before the claim is released back to ready (default: 120)
	StaleClaimSec int `mapstructure:"stale_claim_sec"`
	// TeamComplexityThreshold is the complexity score at or above which an
	// item is handed to the team coordinator instead of a single worker
	// (default: 0.7)
	TeamComplexityThreshold float64 `mapstructure:"team_complexity_threshold"`
}

// TeamConfig controls team formation and aggregation
type TeamConfig struct {
	// LeadShare is the fraction of the team budget reserved for the lead (default: 0.40)
	LeadShare float64 `mapstructure:"lead_share"`
	// MemberShare is the fraction split evenly across members (default: 0.50)
	MemberShare float64 `mapstructure:"member_share"`
	// ContingencyShare is the fraction held in reserve (default: 0.10)
	ContingencyShare float64 `mapstructure:"contingency_share"`
	// MemberTimeoutSec bounds each member sub-task (default: 600)
	MemberTimeoutSec int `mapstructure:"member_timeout_sec"`
	// MaxMembers caps team size excluding the lead (default: 4)
	MaxMembers int `mapstructure:"max_members"`
	// DefaultAggregation is the aggregation strategy used when the work item
	// does not name one: "merge", "vote", "consensus", or "hierarchical"
	DefaultAggregation string `mapstructure:"default_aggregation"`
	// ConsensusThreshold is the per-member score every contribution must
	// clear under consensus aggregation (default: 0.6)
	ConsensusThreshold float64 `mapstructure:"consensus_threshold"`
	// TrustSingletonClaims allows a single member's novel claim to survive
	// vote aggregation when its self-reported confidence clears
	// SingletonTrustThreshold. The source material leaves this open, so it
	// is a policy knob rather than a rule (default: false)
	TrustSingletonClaims bool `mapstructure:"trust_singleton_claims"`
	// SingletonTrustThreshold is the confidence a singleton claim needs
	// when TrustSingletonClaims is enabled (default: 0.9)
	SingletonTrustThreshold float64 `mapstructure:"singleton_trust_threshold"`
}

// BudgetConfig controls the spend ledger
type BudgetConfig struct {
	// Total is the ledger balance available for reservation (default: 1000)
	Total float64 `mapstructure:"total"`
	// HardStop refuses any spend that would push an item past its
	// allocation plus contingency (default: true)
	HardStop bool `mapstructure:"hard_stop"`
}

// StrategyConfig controls strategy synthesis
type StrategyConfig struct {
	// AutoActivate activates proposed strategies without external
	// confirmation. Off by default; proposals normally await confirmation
	AutoActivate bool `mapstructure:"auto_activate"`
	// PatternsFile is an optional YAML file of strategy pattern templates.
	// When set, the file is watched and hot-reloaded on change
	PatternsFile string `mapstructure:"patterns_file"`
	// MaxPhases caps the number of phases in a synthesized strategy (default: 4)
	MaxPhases int `mapstructure:"max_phases"`
}

// ConflictConfig controls conflict detection and resolution
type ConflictConfig struct {
	// AutoResolve applies the first auto-safe resolution option as soon as
	// a conflict is detected; other conflicts await an explicit choice
	// (default: false)
	AutoResolve bool `mapstructure:"auto_resolve"`
}

// RecoveryConfig controls failure recovery and the formation circuit breaker
type RecoveryConfig struct {
	// LivenessWindowSec is the no-progress window after which a team counts
	// as hung (default: 300)
	LivenessWindowSec int `mapstructure:"liveness_window_sec"`
	// PartialResultFraction is the fraction of members that must have
	// finished for a hung team to proceed with partial results (default: 0.5)
	PartialResultFraction float64 `mapstructure:"partial_result_fraction"`
	// BreakerFailureThreshold is the consecutive formation failures that
	// open the circuit breaker (default: 3)
	BreakerFailureThreshold int `mapstructure:"breaker_failure_threshold"`
	// BreakerCooldownSec is how long the breaker stays open before allowing
	// half-open trials (default: 60)
	BreakerCooldownSec int `mapstructure:"breaker_cooldown_sec"`
	// BreakerHalfOpenTrials is the number of trial formations allowed in
	// the half-open state (default: 1)
	BreakerHalfOpenTrials int `mapstructure:"breaker_half_open_trials"`
	// MaxReplacementAttempts bounds same-specialty replacement recruiting
	// before escalation (default: 2)
	MaxReplacementAttempts int `mapstructure:"max_replacement_attempts"`
}

// StoreConfig controls graph persistence
type StoreConfig struct {
	// Driver selects the graph store backend: "memory" or "sqlite"
	Driver string `mapstructure:"driver"`
	// Path is the SQLite database path when Driver is "sqlite".
	// Supports ~ for home directory expansion
	Path string `mapstructure:"path"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory log files are written to; empty means stderr
	Dir string `mapstructure:"dir"`
}

// PassInterval returns the scheduling pass interval as a duration.
func (c *ExecutorConfig) PassInterval() time.Duration {
	return time.Duration(c.PassIntervalMs) * time.Millisecond
}

// DispatchTimeout returns the dispatch timeout as a duration.
func (c *ExecutorConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSec) * time.Second
}

// StaleClaimWindow returns the stale claim window as a duration.
func (c *ExecutorConfig) StaleClaimWindow() time.Duration {
	return time.Duration(c.StaleClaimSec) * time.Second
}

// MemberTimeout returns the member sub-task timeout as a duration.
func (c *TeamConfig) MemberTimeout() time.Duration {
	return time.Duration(c.MemberTimeoutSec) * time.Second
}

// LivenessWindow returns the hung-team liveness window as a duration.
func (c *RecoveryConfig) LivenessWindow() time.Duration {
	return time.Duration(c.LivenessWindowSec) * time.Second
}

// BreakerCooldown returns the breaker cooldown as a duration.
func (c *RecoveryConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSec) * time.Second
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			SemanticWeight:          0.5,
			ConceptWeight:           0.2,
			ResourceWeight:          0.15,
			DeliverableWeight:       0.15,
			SynergyThreshold:        0.70,
			WeakSynergyThreshold:    0.40,
			HighConfidence:          0.75,
			ConfidenceFloor:         0.55,
			SpecialistLoadThreshold: 0.8,
		},
		Executor: ExecutorConfig{
			PassIntervalMs:          250,
			DefaultCapacity:         3,
			DispatchTimeoutSec:      600,
			StaleClaimSec:           120,
			TeamComplexityThreshold: 0.7,
		},
		Team: TeamConfig{
			LeadShare:               0.40,
			MemberShare:             0.50,
			ContingencyShare:        0.10,
			MemberTimeoutSec:        600,
			MaxMembers:              4,
			DefaultAggregation:      "merge",
			ConsensusThreshold:      0.6,
			TrustSingletonClaims:    false,
			SingletonTrustThreshold: 0.9,
		},
		Budget: BudgetConfig{
			Total:    1000,
			HardStop: true,
		},
		Strategy: StrategyConfig{
			AutoActivate: false,
			PatternsFile: "",
			MaxPhases:    4,
		},
		Conflict: ConflictConfig{
			AutoResolve: false,
		},
		Recovery: RecoveryConfig{
			LivenessWindowSec:       300,
			PartialResultFraction:   0.5,
			BreakerFailureThreshold: 3,
			BreakerCooldownSec:      60,
			BreakerHalfOpenTrials:   1,
			MaxReplacementAttempts:  2,
		},
		Store: StoreConfig{
			Driver: "memory",
			Path:   "",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// SetDefaults registers all default values with viper
func SetDefaults() {
	defaults := Default()

	// Classifier defaults
	viper.SetDefault("classifier.semantic_weight", defaults.Classifier.SemanticWeight)
	viper.SetDefault("classifier.concept_weight", defaults.Classifier.ConceptWeight)
	viper.SetDefault("classifier.resource_weight", defaults.Classifier.ResourceWeight)
	viper.SetDefault("classifier.deliverable_weight", defaults.Classifier.DeliverableWeight)
	viper.SetDefault("classifier.synergy_threshold", defaults.Classifier.SynergyThreshold)
	viper.SetDefault("classifier.weak_synergy_threshold", defaults.Classifier.WeakSynergyThreshold)
	viper.SetDefault("classifier.high_confidence", defaults.Classifier.HighConfidence)
	viper.SetDefault("classifier.confidence_floor", defaults.Classifier.ConfidenceFloor)
	viper.SetDefault("classifier.specialist_load_threshold", defaults.Classifier.SpecialistLoadThreshold)

	// Executor defaults
	viper.SetDefault("executor.pass_interval_ms", defaults.Executor.PassIntervalMs)
	viper.SetDefault("executor.default_capacity", defaults.Executor.DefaultCapacity)
	viper.SetDefault("executor.dispatch_timeout_sec", defaults.Executor.DispatchTimeoutSec)
	viper.SetDefault("executor.stale_claim_sec", defaults.Executor.StaleClaimSec)
	viper.SetDefault("executor.team_complexity_threshold", defaults.Executor.TeamComplexityThreshold)

	// Team defaults
	viper.SetDefault("team.lead_share", defaults.Team.LeadShare)
	viper.SetDefault("team.member_share", defaults.Team.MemberShare)
	viper.SetDefault("team.contingency_share", defaults.Team.ContingencyShare)
	viper.SetDefault("team.member_timeout_sec", defaults.Team.MemberTimeoutSec)
	viper.SetDefault("team.max_members", defaults.Team.MaxMembers)
	viper.SetDefault("team.default_aggregation", defaults.Team.DefaultAggregation)
	viper.SetDefault("team.consensus_threshold", defaults.Team.ConsensusThreshold)
	viper.SetDefault("team.trust_singleton_claims", defaults.Team.TrustSingletonClaims)
	viper.SetDefault("team.singleton_trust_threshold", defaults.Team.SingletonTrustThreshold)

	// Budget defaults
	viper.SetDefault("budget.total", defaults.Budget.Total)
	viper.SetDefault("budget.hard_stop", defaults.Budget.HardStop)

	// Strategy defaults
	viper.SetDefault("strategy.auto_activate", defaults.Strategy.AutoActivate)
	viper.SetDefault("strategy.patterns_file", defaults.Strategy.PatternsFile)
	viper.SetDefault("strategy.max_phases", defaults.Strategy.MaxPhases)

	// Conflict defaults
	viper.SetDefault("conflict.auto_resolve", defaults.Conflict.AutoResolve)

	// Recovery defaults
	viper.SetDefault("recovery.liveness_window_sec", defaults.Recovery.LivenessWindowSec)
	viper.SetDefault("recovery.partial_result_fraction", defaults.Recovery.PartialResultFraction)
	viper.SetDefault("recovery.breaker_failure_threshold", defaults.Recovery.BreakerFailureThreshold)
	viper.SetDefault("recovery.breaker_cooldown_sec", defaults.Recovery.BreakerCooldownSec)
	viper.SetDefault("recovery.breaker_half_open_trials", defaults.Recovery.BreakerHalfOpenTrials)
	viper.SetDefault("recovery.max_replacement_attempts", defaults.Recovery.MaxReplacementAttempts)

	// Store defaults
	viper.SetDefault("store.driver", defaults.Store.Driver)
	viper.SetDefault("store.path", defaults.Store.Path)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "crescendo")
	}
	// Fall back to ~/.config/crescendo
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crescendo"
	}
	return filepath.Join(home, ".config", "crescendo")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidDrivers returns the list of valid store driver values
func ValidDrivers() []string {
	return []string{"memory", "sqlite"}
}

// ValidAggregations returns the list of valid aggregation strategy values
func ValidAggregations() []string {
	return []string{"merge", "vote", "consensus", "hierarchical"}
}
