// Package scenario loads declarative journey files in YAML or JSON and
// compiles them into journeys the sequencer can run.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is one journey loaded from a file.
type Scenario struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Variables   map[string]string `yaml:"variables" json:"variables,omitempty"`
	Steps       []Step            `yaml:"steps" json:"steps"`

	// Source is the file the scenario was read from.
	Source string `yaml:"-" json:"-"`
}

// Step is a single request/assert pair within a scenario.
type Step struct {
	Name    string            `yaml:"name" json:"name"`
	Request Request           `yaml:"request" json:"request"`
	Needs   []string          `yaml:"needs" json:"needs,omitempty"`
	Capture map[string]string `yaml:"capture" json:"capture,omitempty"`
	Assert  *Assert           `yaml:"assert" json:"assert,omitempty"`
}

// Request defines the call a step makes. URL is a path relative to the
// configured base URL.
type Request struct {
	Method string `yaml:"method" json:"method"`
	URL    string `yaml:"url" json:"url"`
	// Auth selects the session token to send: "user", "admin", or empty.
	Auth string `yaml:"auth" json:"auth,omitempty"`
	Body any    `yaml:"body" json:"body,omitempty"`
}

// Assert defines the expected results of a step.
type Assert struct {
	// Status defaults to 200.
	Status       int            `yaml:"status" json:"status,omitempty"`
	BodyContains string         `yaml:"body_contains" json:"body_contains,omitempty"`
	Body         map[string]any `yaml:"body" json:"body,omitempty"`
	// Expect is a boolean expression over status, body and session.
	Expect string `yaml:"expect" json:"expect,omitempty"`
}

func isScenarioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadScenario parses a single YAML or JSON scenario file.
// The format is detected by file extension.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var s Scenario
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format %q (expected .json, .yaml, or .yml)", ext)
	}

	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: at least one step is required", path)
	}
	for i, step := range s.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("scenario %s: step %d: name is required", path, i+1)
		}
		if step.Request.URL == "" {
			return nil, fmt.Errorf("scenario %s: step %q: request url is required", path, step.Name)
		}
	}
	s.Source = path
	return &s, nil
}

// LoadDir loads all .yaml, .yml, and .json scenario files from a directory
// in file name order.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", dir, err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}
		s, err := LoadScenario(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	return scenarios, nil
}

// Load reads path as a directory of scenarios or a single file.
func Load(path string) ([]*Scenario, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	s, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return []*Scenario{s}, nil
}
