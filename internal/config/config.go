// Package config loads skim configuration files.
//
// A file is YAML (.yaml, .yml) or TOML (.toml). Both decode strictly into
// File; unknown keys are errors. The decoded document is then checked
// against an embedded CUE schema before it is converted to engine.Options.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// File is the on-disk configuration. Pointer fields distinguish "unset"
// from the zero value so that only present keys override defaults.
type File struct {
	Threads           *int           `json:"threads,omitempty" yaml:"threads" toml:"threads"`
	Recurse           *bool          `json:"recurse,omitempty" yaml:"recurse" toml:"recurse"`
	Patterns          []string       `json:"patterns,omitempty" yaml:"patterns" toml:"patterns"`
	FailureLevels     []string       `json:"failure_levels,omitempty" yaml:"failure_levels" toml:"failure_levels"`
	Kinds             []string       `json:"kinds,omitempty" yaml:"kinds" toml:"kinds"`
	MaxFileSizeKB     *int64         `json:"max_file_size_kb,omitempty" yaml:"max_file_size_kb" toml:"max_file_size_kb"`
	Insert            []string       `json:"insert,omitempty" yaml:"insert" toml:"insert"`
	IncompatibleRules string         `json:"incompatible_rules,omitempty" yaml:"incompatible_rules" toml:"incompatible_rules"`
	AutomationID      string         `json:"automation_id,omitempty" yaml:"automation_id" toml:"automation_id"`
	RichExitCode      *bool          `json:"rich_exit_code,omitempty" yaml:"rich_exit_code" toml:"rich_exit_code"`
	Policy            map[string]any `json:"policy,omitempty" yaml:"policy" toml:"policy"`
	Traces            []string       `json:"traces,omitempty" yaml:"traces" toml:"traces"`
	DB                string         `json:"db,omitempty" yaml:"db" toml:"db"`
	CacheDir          string         `json:"cache_dir,omitempty" yaml:"cache_dir" toml:"cache_dir"`
}

// Problem is one schema violation.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every schema violation found in a file.
type ValidationError struct {
	File     string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		if p.Path == "" {
			msgs[i] = p.Message
			continue
		}
		msgs[i] = p.Path + ": " + p.Message
	}
	return fmt.Sprintf("%s: invalid configuration: %s", e.File, strings.Join(msgs, "; "))
}

// Load reads, decodes and validates the file at path.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg *File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = DecodeYAML(f)
	case ".toml":
		cfg, err = DecodeTOML(f)
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q (want .yaml, .yml or .toml)", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.File = path
		}
		return nil, err
	}
	return cfg, nil
}

// DecodeYAML decodes a YAML document, rejecting unknown keys. An empty
// document is an empty configuration.
func DecodeYAML(r io.Reader) (*File, error) {
	var cfg File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &cfg, nil
}

// DecodeTOML decodes a TOML document, rejecting keys that map to no field.
func DecodeTOML(r io.Reader) (*File, error) {
	var cfg File
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return nil, fmt.Errorf("decode toml: unknown keys: %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// Validate checks the configuration against the embedded CUE schema.
func (f *File) Validate() error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	doc := ctx.CompileBytes(data, cue.Filename("config.json"))
	if err := doc.Err(); err != nil {
		return fmt.Errorf("build config value: %w", err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(doc)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{File: "<config>", Problems: problems(err)}
	}
	return nil
}

// problems flattens a CUE error list, sorted by path then message.
func problems(err error) []Problem {
	var out []Problem
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, Problem{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = append(out, Problem{Message: err.Error()})
	}
	slices.SortFunc(out, func(a, b Problem) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Message, b.Message)
	})
	return slices.Compact(out)
}

// Options returns engine.DefaultOptions with every key present in f
// applied on top.
func (f *File) Options() (engine.Options, error) {
	opts := engine.DefaultOptions()
	if err := f.Apply(&opts); err != nil {
		return engine.Options{}, err
	}
	return opts, nil
}

// Apply overwrites the fields of opts that f sets.
func (f *File) Apply(opts *engine.Options) error {
	if f.Threads != nil {
		opts.Threads = *f.Threads
	}
	if f.Recurse != nil {
		opts.Recurse = *f.Recurse
	}
	if len(f.Patterns) > 0 {
		opts.TargetFileSpecifiers = slices.Clone(f.Patterns)
	}
	if len(f.FailureLevels) > 0 {
		levels := make([]ir.Level, 0, len(f.FailureLevels))
		for _, s := range f.FailureLevels {
			l, err := ir.ParseLevel(s)
			if err != nil {
				return fmt.Errorf("failure_levels: %w", err)
			}
			levels = append(levels, l)
		}
		opts.FailureLevels = levels
	}
	if len(f.Kinds) > 0 {
		kinds := make([]ir.ResultKind, 0, len(f.Kinds))
		for _, s := range f.Kinds {
			k, err := ir.ParseResultKind(s)
			if err != nil {
				return fmt.Errorf("kinds: %w", err)
			}
			kinds = append(kinds, k)
		}
		opts.ResultKinds = kinds
	}
	if f.MaxFileSizeKB != nil {
		opts.MaxFileSizeKB = *f.MaxFileSizeKB
	}
	if len(f.Insert) > 0 {
		d, err := ir.ParseOptionallyEmittedData(f.Insert...)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		opts.DataToInsert = d
	}
	if f.IncompatibleRules != "" {
		h, err := ir.ParseIncompatibleRuleHandling(f.IncompatibleRules)
		if err != nil {
			return fmt.Errorf("incompatible_rules: %w", err)
		}
		opts.IncompatibleRules = h
	}
	if f.AutomationID != "" {
		opts.AutomationID = f.AutomationID
	}
	if f.RichExitCode != nil {
		opts.RichExitCode = *f.RichExitCode
	}
	if len(f.Policy) > 0 {
		bag := make(ir.PropertyBag, len(f.Policy))
		for k, raw := range f.Policy {
			v, err := ir.FromGo(raw, false)
			if err != nil {
				return fmt.Errorf("policy %q: %w", k, err)
			}
			bag[k] = v
		}
		opts.Policy = bag
	}
	if len(f.Traces) > 0 {
		opts.Traces = slices.Clone(f.Traces)
	}
	return nil
}
