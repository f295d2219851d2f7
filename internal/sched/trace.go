package sched

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Choice is one scheduling decision: Pick out of Options in-flight tasks,
// in admission order.
type Choice struct {
	Options int `yaml:"options"`
	Pick    int `yaml:"pick"`
}

// Trace is the complete decision sequence of one controlled run.
type Trace struct {
	Strategy string   `yaml:"strategy,omitempty"`
	Note     string   `yaml:"note,omitempty"`
	Choices  []Choice `yaml:"choices"`
}

func (t Trace) clone() Trace {
	t.Choices = slices.Clone(t.Choices)
	return t
}

// Save writes the trace as YAML.
func (t Trace) Save(path string) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trace %s: %w", path, err)
	}
	return nil
}

// LoadTrace reads a trace saved with Save. Unknown fields are rejected.
func LoadTrace(path string) (Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Trace{}, fmt.Errorf("read trace %s: %w", path, err)
	}
	var t Trace
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Trace{}, fmt.Errorf("decode trace %s: %w", path, err)
	}
	for i, c := range t.Choices {
		if c.Options < 1 || c.Pick < 0 || c.Pick >= c.Options {
			return Trace{}, fmt.Errorf("trace %s: choice %d: pick %d out of %d options", path, i, c.Pick, c.Options)
		}
	}
	return t, nil
}
