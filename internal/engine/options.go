package engine

import (
	"errors"
	"fmt"
	"math"
	"path"
	"slices"
	"strings"

	"fortio.org/safecast"
	"github.com/go-playground/validator/v10"

	"github.com/roach88/skim/internal/ir"
)

// DefaultMaxFileSizeKB applies when Options.MaxFileSizeKB is 0.
const DefaultMaxFileSizeKB = 1024

// Options is the immutable configuration of one run. The engine copies it
// at Run start; nothing reads it under a lock.
type Options struct {
	// Threads bounds concurrent artifact analysis. 0 selects GOMAXPROCS.
	Threads int `validate:"gte=0,lte=1024"`

	// Recurse descends into subdirectories during enumeration.
	Recurse bool

	// TargetFileSpecifiers are glob patterns matched against artifact
	// base names. Empty matches every artifact.
	TargetFileSpecifiers []string `validate:"dive,required"`

	// FailureLevels lists the levels of fail results to keep.
	FailureLevels []ir.Level `validate:"dive,gte=0,lte=3"`

	// ResultKinds lists the result kinds to keep.
	ResultKinds []ir.ResultKind `validate:"dive,gte=0,lte=5"`

	// MaxFileSizeKB skips larger artifacts. 0 selects DefaultMaxFileSizeKB.
	MaxFileSizeKB int64 `validate:"gte=0"`

	// DataToInsert selects optional report enrichment.
	DataToInsert ir.OptionallyEmittedData `validate:"lte=15"`

	// IncompatibleRules selects the incompatible-rule policy.
	IncompatibleRules ir.IncompatibleRuleHandling `validate:"gte=0,lte=2"`

	// AutomationID is an optional caller-supplied run label.
	AutomationID string `validate:"omitempty,max=256,printascii"`

	// RichExitCode reports the runtime condition bits as the exit code.
	RichExitCode bool

	// Policy carries rule-specific settings, keyed "<ruleID>.<setting>".
	Policy ir.PropertyBag

	// Traces enables named diagnostic traces that rules may consult.
	Traces []string `validate:"dive,required"`

	// CommandLine is recorded verbatim in the Invocation.
	CommandLine string
}

// DefaultOptions returns the options used when nothing is configured:
// keep error and warning failures, skip artifacts above 1 MB, ignore
// incompatible rules.
func DefaultOptions() Options {
	return Options{
		FailureLevels: []ir.Level{ir.LevelError, ir.LevelWarning},
		ResultKinds:   []ir.ResultKind{ir.KindFail},
		MaxFileSizeKB: DefaultMaxFileSizeKB,
	}
}

var optionsValidate = validator.New()

// Validate checks every field. The returned error is a *RunError with
// ErrCodeInvalidOptions listing each offending field.
func (o Options) Validate() error {
	var problems []string

	if err := optionsValidate.Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &RunError{Code: ErrCodeInvalidOptions, Message: "options validation failed", Err: err}
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}

	for _, spec := range o.TargetFileSpecifiers {
		if _, err := path.Match(spec, ""); err != nil {
			problems = append(problems, fmt.Sprintf("target file specifier %q: %v", spec, err))
		}
	}
	if o.MaxFileSizeKB > math.MaxInt64/1024 {
		problems = append(problems, fmt.Sprintf("max file size %d KB overflows", o.MaxFileSizeKB))
	}
	for k := range o.Policy {
		if !strings.Contains(k, ".") {
			problems = append(problems, fmt.Sprintf("policy key %q is not of the form <ruleID>.<setting>", k))
		}
	}

	if len(problems) > 0 {
		slices.Sort(problems)
		return &RunError{
			Code:    ErrCodeInvalidOptions,
			Message: strings.Join(problems, "; "),
		}
	}
	return nil
}

// maxBytes is the effective per-artifact size limit in bytes.
func (o Options) maxBytes() int64 {
	kb := o.MaxFileSizeKB
	if kb == 0 {
		kb = DefaultMaxFileSizeKB
	}
	return kb * 1024
}

// keepsResult reports whether r passes the kind and failure-level filters.
func (o Options) keepsResult(r ir.Result) bool {
	if !slices.Contains(o.ResultKinds, r.Kind) {
		return false
	}
	if r.Kind == ir.KindFail && !slices.Contains(o.FailureLevels, r.Level) {
		return false
	}
	return true
}

// exitCode maps the final conditions to a process exit code.
func (o Options) exitCode(c ir.RuntimeConditions) int {
	if o.RichExitCode {
		code, err := safecast.Conv[int](uint64(c))
		if err != nil {
			return math.MaxInt32
		}
		return code
	}
	if c.Fatal() {
		return 1
	}
	return 0
}

// clone returns a deep copy so later caller mutation cannot reach a run.
func (o Options) clone() Options {
	o.TargetFileSpecifiers = slices.Clone(o.TargetFileSpecifiers)
	o.FailureLevels = slices.Clone(o.FailureLevels)
	o.ResultKinds = slices.Clone(o.ResultKinds)
	o.Traces = slices.Clone(o.Traces)
	if o.Policy != nil {
		p := make(ir.PropertyBag, len(o.Policy))
		for k, v := range o.Policy {
			p[k] = v
		}
		o.Policy = p
	}
	return o
}
