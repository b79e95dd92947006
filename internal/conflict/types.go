package conflict

import "time"

// Type categorizes a conflict.
type Type string

const (
	// TypeResource marks contention for specialists or budget.
	TypeResource Type = "resource"

	// TypeTemporal marks deadline contention over shared specialists.
	TypeTemporal Type = "temporal"

	// TypeStrategic marks quick-win versus long-term framing tension.
	TypeStrategic Type = "strategic"
)

// String returns the string representation of the conflict type.
func (t Type) String() string {
	return string(t)
}

// Severity grades how urgently a conflict needs resolution.
type Severity string

const (
	// SeverityLow marks conflicts that can wait for a convenient pass.
	SeverityLow Severity = "low"

	// SeverityMedium marks conflicts that degrade throughput.
	SeverityMedium Severity = "medium"

	// SeverityHigh marks conflicts that block correct scheduling.
	SeverityHigh Severity = "high"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Resolution option identifiers.
const (
	OptionSequential   = "sequential"
	OptionPrioritize   = "prioritize"
	OptionAddResources = "add-resources"
	OptionQuickFirst   = "quick-first"
	OptionLongTermOnly = "long-term-only"
	OptionHybrid       = "hybrid-80-20"
)

// ResolutionOption is one entry in a conflict's resolution menu.
type ResolutionOption struct {
	// ID names the option for Resolve calls.
	ID string `json:"id"`

	// Description explains what accepting the option does.
	Description string `json:"description"`

	// AutoSafe marks options that may be applied without external
	// confirmation.
	AutoSafe bool `json:"auto_safe"`
}

// Conflict is a detected contention between two work items.
type Conflict struct {
	ID         string             `json:"id"`
	ItemA      string             `json:"item_a"`
	ItemB      string             `json:"item_b"`
	Type       Type               `json:"type"`
	Severity   Severity           `json:"severity"`
	Options    []ResolutionOption `json:"options"`
	Resolved   bool               `json:"resolved"`
	ChosenID   string             `json:"chosen_id,omitempty"`
	DetectedAt time.Time          `json:"detected_at"`
}

// Clone returns a deep copy of the conflict.
func (c *Conflict) Clone() *Conflict {
	clone := *c
	clone.Options = append([]ResolutionOption(nil), c.Options...)
	return &clone
}

// Option looks up a resolution option by ID.
func (c *Conflict) Option(id string) (ResolutionOption, bool) {
	for _, opt := range c.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return ResolutionOption{}, false
}
