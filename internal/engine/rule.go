package engine

import (
	"github.com/roach88/skim/internal/ir"
)

// Rule is one pluggable analysis. The engine calls Analyze once per
// artifact from a worker goroutine; a Rule must therefore be safe for
// concurrent use across artifacts.
//
// Findings go through actx.Report. Returning an error wrapping
// ErrIncompatible (see Incompatible) declines the artifact and triggers the
// incompatible-rule policy. Any other error, or a panic, is recorded as a
// rule exception for that artifact and the run continues.
type Rule interface {
	Descriptor() ir.ReportingDescriptor
	Analyze(actx *AnalysisContext) error
}

// RuleFunc adapts a function to Rule.
type RuleFunc struct {
	Desc ir.ReportingDescriptor
	Fn   func(actx *AnalysisContext) error
}

// Descriptor implements Rule.
func (r RuleFunc) Descriptor() ir.ReportingDescriptor {
	return r.Desc
}

// Analyze implements Rule.
func (r RuleFunc) Analyze(actx *AnalysisContext) error {
	return r.Fn(actx)
}
