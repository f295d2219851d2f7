// Package rules holds skim's built-in text rules.
//
// Every rule works line by line on text artifacts and declines anything
// else with engine.Incompatible, so the run's incompatible-rule policy
// decides what happens to binaries. Rules are stateless and safe for
// concurrent use.
package rules

import (
	"bytes"

	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
)

// Rule IDs.
const (
	LongLineID           = "SKIM1001"
	TrailingWhitespaceID = "SKIM1002"
	TaskMarkerID         = "SKIM1003"
	MixedIndentationID   = "SKIM1004"
	FinalNewlineID       = "SKIM1005"
)

// checkpointEvery is how many lines a rule scans between checkpoints.
const checkpointEvery = 256

// Builtin returns every built-in rule, ordered by ID.
func Builtin() []engine.Rule {
	return []engine.Rule{
		LongLine(),
		TrailingWhitespace(),
		TaskMarker(),
		MixedIndentation(),
		FinalNewline(),
	}
}

// lineFunc inspects one line. n is 1-based; line excludes the terminator.
type lineFunc func(actx *engine.AnalysisContext, n int, line []byte)

// textRule builds a rule that feeds each line of a text artifact to fn.
func textRule(desc ir.ReportingDescriptor, fn lineFunc) engine.Rule {
	return engine.RuleFunc{
		Desc: desc,
		Fn: func(actx *engine.AnalysisContext) error {
			if err := requireText(actx); err != nil {
				return err
			}
			return eachLine(actx, func(n int, line []byte) {
				fn(actx, n, line)
			})
		},
	}
}

func requireText(actx *engine.AnalysisContext) error {
	if a := actx.Artifact(); !a.IsText() {
		return engine.Incompatible("not a text artifact: " + a.MIMEType)
	}
	return nil
}

// eachLine splits content on '\n', dropping a trailing '\r' from each
// line, and calls fn for every line. A final empty segment after the last
// newline is not a line.
func eachLine(actx *engine.AnalysisContext, fn func(n int, line []byte)) error {
	content := actx.Content()
	n := 0
	for len(content) > 0 {
		n++
		if n%checkpointEvery == 1 {
			if err := actx.Checkpoint(); err != nil {
				return err
			}
		}
		line := content
		if i := bytes.IndexByte(content, '\n'); i >= 0 {
			line, content = content[:i], content[i+1:]
		} else {
			content = nil
		}
		fn(n, bytes.TrimSuffix(line, []byte{'\r'}))
	}
	return nil
}

// policyStrings reads a string-array policy, falling back to def.
func policyStrings(actx *engine.AnalysisContext, name string, def []string) []string {
	arr, ok := actx.Policy(name).(ir.Array)
	if !ok {
		return def
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(ir.String); ok && s != "" {
			out = append(out, string(s))
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
