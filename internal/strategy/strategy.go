// Package strategy defines the prompt templates compared by an evaluation.
package strategy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placeholder marks where review text is substituted into a template.
const Placeholder = "{review}"

// Names of the built-in strategies.
const (
	Naive      = "naive"
	Structured = "structured"
	Rubric     = "rubric"
)

//go:embed strategies.yaml
var builtinData []byte

var builtin = mustParse(builtinData)

// Strategy is a named prompt template with exactly one Placeholder.
type Strategy struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Template    string `yaml:"template" json:"template"`
}

type strategyFile struct {
	Strategies []Strategy `yaml:"strategies"`
}

// Validate checks that the strategy has a name and a single review slot.
func (s Strategy) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("strategy name is required")
	}
	if n := strings.Count(s.Template, Placeholder); n != 1 {
		return fmt.Errorf("strategy %q: template must contain exactly one %s slot, found %d", s.Name, Placeholder, n)
	}
	return nil
}

// Format substitutes review into the strategy template.
func (s Strategy) Format(review string) string {
	return Fill(s.Template, review)
}

// Fill substitutes review into the first Placeholder of template.
func Fill(template, review string) string {
	return strings.Replace(template, Placeholder, review, 1)
}

// Builtin returns the built-in strategies in evaluation order.
func Builtin() []Strategy {
	out := make([]Strategy, len(builtin))
	copy(out, builtin)
	return out
}

// Get returns a built-in strategy by name.
func Get(name string) (Strategy, error) {
	for _, s := range builtin {
		if s.Name == name {
			return s, nil
		}
	}
	return Strategy{}, &UnsupportedStrategyError{Name: name}
}

// LoadFile reads additional strategies from a YAML file with a top-level
// "strategies" list.
func LoadFile(path string) ([]Strategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategies file: %w", err)
	}
	strategies, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load strategies from %s: %w", path, err)
	}
	return strategies, nil
}

// Resolve picks strategies by name from the built-ins plus any strategies in
// extraFile (which may override a built-in of the same name). An empty names
// list selects every available strategy in order.
func Resolve(names []string, extraFile string) ([]Strategy, error) {
	available := Builtin()
	if extraFile != "" {
		extra, err := LoadFile(extraFile)
		if err != nil {
			return nil, err
		}
		available = merge(available, extra)
	}

	if len(names) == 0 {
		return available, nil
	}

	selected := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, ok := find(available, name)
		if !ok {
			return nil, &UnsupportedStrategyError{Name: name}
		}
		selected = append(selected, s)
	}
	return selected, nil
}

func parse(data []byte) ([]Strategy, error) {
	var f strategyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse strategies: %w", err)
	}
	if len(f.Strategies) == 0 {
		return nil, fmt.Errorf("no strategies defined")
	}

	seen := make(map[string]bool, len(f.Strategies))
	for _, s := range f.Strategies {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate strategy %q", s.Name)
		}
		seen[s.Name] = true
	}
	return f.Strategies, nil
}

func mustParse(data []byte) []Strategy {
	s, err := parse(data)
	if err != nil {
		panic(fmt.Sprintf("invalid built-in strategies: %v", err))
	}
	return s
}

func merge(base, extra []Strategy) []Strategy {
	out := make([]Strategy, 0, len(base)+len(extra))
	out = append(out, base...)
	for _, s := range extra {
		replaced := false
		for i := range out {
			if out[i].Name == s.Name {
				out[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, s)
		}
	}
	return out
}

func find(list []Strategy, name string) (Strategy, bool) {
	for _, s := range list {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// UnsupportedStrategyError is returned when an unknown strategy is requested.
type UnsupportedStrategyError struct {
	Name string
}

func (e *UnsupportedStrategyError) Error() string {
	return "unsupported prompt strategy: " + e.Name
}
