package strategy

import "time"

// Status is a strategy's lifecycle state.
type Status string

const (
	// StatusDraft means the strategy awaits external confirmation.
	StatusDraft Status = "draft"

	// StatusActive means the strategy is being executed.
	StatusActive Status = "active"

	// StatusCompleted means all phases have finished.
	StatusCompleted Status = "completed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Phase is one stage of a strategy.
type Phase struct {
	// Name labels the phase.
	Name string `json:"name" yaml:"name"`

	// Duration is the estimated length of the phase.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Objectives are the outcomes the phase targets.
	Objectives []string `json:"objectives" yaml:"objectives"`

	// RequiredSpecialties are the specialties the phase needs.
	RequiredSpecialties []string `json:"required_specialties" yaml:"required_specialties"`
}

// Strategy is a phased plan unifying a cluster of synergistic items.
type Strategy struct {
	// ID uniquely identifies the strategy.
	ID string `json:"id"`

	// Name combines the pattern name with the cluster's flavor.
	Name string `json:"name"`

	// Pattern is the name of the matched template, or "generic".
	Pattern string `json:"pattern"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// ComponentItems are the member item IDs ordered by ascending
	// time horizon.
	ComponentItems []string `json:"component_items"`

	// Phases are the ordered stages.
	Phases []Phase `json:"phases"`

	// CurrentPhase indexes the phase in progress once active.
	CurrentPhase int `json:"current_phase"`

	// CreatedAt is when the strategy was proposed.
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy.
func (s *Strategy) Clone() *Strategy {
	if s == nil {
		return nil
	}
	out := *s
	out.ComponentItems = append([]string(nil), s.ComponentItems...)
	out.Phases = make([]Phase, len(s.Phases))
	for i, p := range s.Phases {
		cp := p
		cp.Objectives = append([]string(nil), p.Objectives...)
		cp.RequiredSpecialties = append([]string(nil), p.RequiredSpecialties...)
		out.Phases[i] = cp
	}
	return &out
}
