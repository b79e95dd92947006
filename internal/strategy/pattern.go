package strategy

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/crescendo/internal/embed"
	"github.com/Iron-Ham/crescendo/internal/logging"
)

// PhaseTemplate is a phase blueprint inside a pattern.
type PhaseTemplate struct {
	Name        string        `yaml:"name"`
	Duration    time.Duration `yaml:"duration"`
	Objectives  []string      `yaml:"objectives"`
	Specialties []string      `yaml:"specialties"`
}

// Pattern is a named strategy template. A pattern matches a cluster
// when each keyword group is covered by at least one member item's
// description — "earning + community" needs one earning-flavored item
// and one community-flavored item.
type Pattern struct {
	Name          string          `yaml:"name"`
	KeywordGroups [][]string      `yaml:"keyword_groups"`
	Phases        []PhaseTemplate `yaml:"phases"`
}

// Matches reports whether the descriptions collectively cover every
// keyword group.
func (p Pattern) Matches(descriptions []string) bool {
	if len(p.KeywordGroups) == 0 {
		return false
	}
	for _, group := range p.KeywordGroups {
		if !groupCovered(group, descriptions) {
			return false
		}
	}
	return true
}

func groupCovered(group []string, descriptions []string) bool {
	for _, desc := range descriptions {
		for _, token := range embed.Tokenize(desc) {
			for _, kw := range group {
				if strings.HasPrefix(token, kw) {
					return true
				}
			}
		}
	}
	return false
}

// patternFile is the YAML document shape.
type patternFile struct {
	Patterns []Pattern `yaml:"patterns"`
}

// PatternSet holds the active patterns and optionally hot-reloads them
// from a watched YAML file.
type PatternSet struct {
	mu       sync.RWMutex
	patterns []Pattern

	watcher *fsnotify.Watcher
	done    chan struct{}
	logger  *logging.Logger
}

// DefaultPatterns returns the built-in templates.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name: "earning + community",
			KeywordGroups: [][]string{
				{"earn", "revenue", "fund", "monetiz", "sell", "income", "sponsor"},
				{"community", "audience", "newsletter", "member", "social", "network"},
			},
			Phases: []PhaseTemplate{
				{
					Name:       "audience foundation",
					Duration:   7 * 24 * time.Hour,
					Objectives: []string{"establish the community channel", "identify the paying segment"},
				},
				{
					Name:       "offer development",
					Duration:   14 * 24 * time.Hour,
					Objectives: []string{"shape the revenue offer around community needs"},
				},
				{
					Name:       "monetized rollout",
					Duration:   14 * 24 * time.Hour,
					Objectives: []string{"launch the offer to the community", "measure conversion"},
				},
			},
		},
		{
			Name: "learning + building",
			KeywordGroups: [][]string{
				{"learn", "study", "research", "course", "understand", "read"},
				{"build", "implement", "create", "develop", "prototype", "ship"},
			},
			Phases: []PhaseTemplate{
				{
					Name:       "directed study",
					Duration:   5 * 24 * time.Hour,
					Objectives: []string{"cover the concepts the build requires"},
				},
				{
					Name:       "applied build",
					Duration:   10 * 24 * time.Hour,
					Objectives: []string{"apply the material to the working prototype"},
				},
			},
		},
	}
}

// NewPatternSet creates a set seeded with the built-in patterns.
func NewPatternSet(logger *logging.Logger) *PatternSet {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &PatternSet{
		patterns: DefaultPatterns(),
		logger:   logger,
	}
}

// Patterns returns a copy of the active patterns.
func (ps *PatternSet) Patterns() []Pattern {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return append([]Pattern(nil), ps.patterns...)
}

// Match returns the first pattern covering the descriptions.
func (ps *PatternSet) Match(descriptions []string) (Pattern, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, p := range ps.patterns {
		if p.Matches(descriptions) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Load replaces the active patterns with the file's contents. File
// patterns take precedence over the built-ins, which remain as
// fallbacks after them.
func (ps *PatternSet) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read patterns file: %w", err)
	}
	var doc patternFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse patterns file: %w", err)
	}

	ps.mu.Lock()
	ps.patterns = append(append([]Pattern(nil), doc.Patterns...), DefaultPatterns()...)
	ps.mu.Unlock()

	ps.logger.Info("strategy patterns loaded", "path", path, "count", len(doc.Patterns))
	return nil
}

// Watch loads the file and hot-reloads it whenever it changes. Stop
// with Close.
func (ps *PatternSet) Watch(path string) error {
	if err := ps.Load(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	ps.watcher = watcher
	ps.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := ps.Load(path); err != nil {
						ps.logger.Warn("pattern reload failed", "error", err.Error())
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				ps.logger.Warn("pattern watcher error", "error", err.Error())
			case <-ps.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the file watcher if one is running.
func (ps *PatternSet) Close() error {
	if ps.watcher == nil {
		return nil
	}
	close(ps.done)
	err := ps.watcher.Close()
	ps.watcher = nil
	return err
}
