package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/skim/internal/config"
)

// DefaultThreads is the worker limit for explored runs when a scenario
// does not set one.
const DefaultThreads = 3

// Scenario is one determinism test case.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Threads is the worker limit of explored runs. 0 selects
	// DefaultThreads. The reference run is always sequential.
	Threads int `yaml:"threads,omitempty"`

	// Options are run options in config file form.
	Options config.File `yaml:"options,omitempty"`

	// Files maps base names to content. Artifact URIs are "mem:///<name>".
	Files map[string]string `yaml:"files"`

	// Rules are the rules to run, built-in or scripted.
	Rules []RuleSpec `yaml:"rules"`

	// Explore bounds the schedules tried.
	Explore Explore `yaml:"explore,omitempty"`

	// Assertions are checked against the reference report.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Explore bounds the controlled runs of a scenario.
type Explore struct {
	// MaxRuns bounds depth-first interleaving exploration. 0 selects
	// DefaultMaxRuns.
	MaxRuns int `yaml:"max_runs,omitempty"`

	// Seeds is how many seeded random schedules to run after exploration.
	Seeds int `yaml:"seeds,omitempty"`
}

// DefaultMaxRuns bounds exploration when a scenario does not.
const DefaultMaxRuns = 100

// RuleSpec is either a built-in rule (Builtin set) or a scripted rule.
type RuleSpec struct {
	// Builtin selects a built-in rule by ID.
	Builtin string `yaml:"builtin,omitempty"`

	// ID, Name and Level describe a scripted rule.
	ID    string `yaml:"id,omitempty"`
	Name  string `yaml:"name,omitempty"`
	Level string `yaml:"level,omitempty"`

	// On lists per-artifact behaviour; the first matching entry applies.
	On []Step `yaml:"on,omitempty"`
}

// Step is what a scripted rule does for artifacts matching Match.
type Step struct {
	// Match is a glob against the artifact base name.
	Match string `yaml:"match"`

	// Yield adds this many scheduling points before acting.
	Yield int `yaml:"yield,omitempty"`

	// Report emits this many results, on lines 1..Report.
	Report  int    `yaml:"report,omitempty"`
	Message string `yaml:"message,omitempty"`

	// Decline declines the artifact with this reason.
	Decline string `yaml:"decline,omitempty"`

	// Panic panics with this value.
	Panic string `yaml:"panic,omitempty"`

	// Fail returns an error with this text.
	Fail string `yaml:"fail,omitempty"`
}

// Assertion validates the reference report.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Rule       string   `yaml:"rule,omitempty"`
	URI        string   `yaml:"uri,omitempty"`
	Line       int      `yaml:"line,omitempty"`
	Descriptor string   `yaml:"descriptor,omitempty"`
	Count      int      `yaml:"count,omitempty"`
	Code       int      `yaml:"code,omitempty"`
	Conditions []string `yaml:"conditions,omitempty"`
}

// Assertion type constants.
const (
	AssertResultCount         = "result_count"
	AssertResultPresent       = "result_present"
	AssertNotificationPresent = "notification_present"
	AssertConditions          = "conditions"
	AssertExitCode            = "exit_code"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, ordered by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	slices.Sort(paths)

	var out []*Scenario
	seen := map[string]string{}
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario name %q used by %s and %s", s.Name, prev, p)
		}
		seen[s.Name] = p
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Files) == 0 {
		return fmt.Errorf("files map is required and must be non-empty")
	}

	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}

	if s.Threads < 0 {
		return fmt.Errorf("threads must not be negative")
	}

	if err := s.Options.Validate(); err != nil {
		return fmt.Errorf("options: %w", err)
	}

	ids := map[string]bool{}
	for i, r := range s.Rules {
		id, err := validateRule(r)
		if err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		if ids[id] {
			return fmt.Errorf("rules[%d]: duplicate rule %s", i, id)
		}
		ids[id] = true
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

func validateRule(r RuleSpec) (string, error) {
	if r.Builtin != "" {
		if r.ID != "" || len(r.On) > 0 {
			return "", fmt.Errorf("builtin %s cannot also be scripted", r.Builtin)
		}
		if _, ok := builtinRule(r.Builtin); !ok {
			return "", fmt.Errorf("unknown builtin rule %q", r.Builtin)
		}
		return r.Builtin, nil
	}
	if r.ID == "" {
		return "", fmt.Errorf("id or builtin is required")
	}
	if _, err := parseLevel(r.Level); err != nil {
		return "", fmt.Errorf("rule %s: %w", r.ID, err)
	}
	for j, st := range r.On {
		if _, err := path.Match(st.Match, ""); err != nil || st.Match == "" {
			return "", fmt.Errorf("rule %s: on[%d]: bad match %q", r.ID, j, st.Match)
		}
		actions := 0
		for _, set := range []bool{st.Report > 0, st.Decline != "", st.Panic != "", st.Fail != ""} {
			if set {
				actions++
			}
		}
		if actions > 1 {
			return "", fmt.Errorf("rule %s: on[%d]: report, decline, panic and fail are exclusive", r.ID, j)
		}
		if st.Report < 0 || st.Yield < 0 {
			return "", fmt.Errorf("rule %s: on[%d]: counts must not be negative", r.ID, j)
		}
	}
	return r.ID, nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertResultCount, AssertConditions, AssertExitCode:
	case AssertResultPresent:
		if a.Rule == "" || a.URI == "" {
			return fmt.Errorf("%s requires rule and uri", a.Type)
		}
	case AssertNotificationPresent:
		if a.Descriptor == "" {
			return fmt.Errorf("%s requires descriptor", a.Type)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// threads is the explored worker limit.
func (s *Scenario) threads() int {
	if s.Threads > 0 {
		return s.Threads
	}
	return DefaultThreads
}

func (s *Scenario) maxRuns() int {
	if s.Explore.MaxRuns > 0 {
		return s.Explore.MaxRuns
	}
	return DefaultMaxRuns
}
