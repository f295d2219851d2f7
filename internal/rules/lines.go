package rules

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
)

// DefaultMaxLineLength is SKIM1001's limit when the
// "SKIM1001.maxLineLength" policy is unset.
const DefaultMaxLineLength = 120

// LongLine reports lines longer than the configured number of characters.
func LongLine() engine.Rule {
	return textRule(ir.ReportingDescriptor{
		ID:               LongLineID,
		Name:             "LongLine",
		ShortDescription: "Line exceeds the maximum length.",
		DefaultLevel:     ir.LevelWarning,
	}, func(actx *engine.AnalysisContext, n int, line []byte) {
		limit := actx.PolicyInt("maxLineLength", DefaultMaxLineLength)
		if limit <= 0 {
			limit = DefaultMaxLineLength
		}
		length := utf8.RuneCount(line)
		if int64(length) <= limit {
			return
		}
		actx.Report(ir.Result{
			Message: ir.Message{
				Text:      fmt.Sprintf("Line %d is %d characters long (limit %d).", n, length, limit),
				ID:        "default",
				Arguments: []string{fmt.Sprint(n), fmt.Sprint(length), fmt.Sprint(limit)},
			},
			Locations: []ir.Location{actx.Location(ir.Region{
				StartLine:   n,
				StartColumn: int(limit) + 1,
				EndLine:     n,
				EndColumn:   length + 1,
			})},
			Properties: ir.PropertyBag{"length": ir.Int(length)},
		})
	})
}

// TrailingWhitespace reports lines ending in spaces or tabs.
func TrailingWhitespace() engine.Rule {
	return textRule(ir.ReportingDescriptor{
		ID:               TrailingWhitespaceID,
		Name:             "TrailingWhitespace",
		ShortDescription: "Line ends with whitespace.",
		DefaultLevel:     ir.LevelNote,
	}, func(actx *engine.AnalysisContext, n int, line []byte) {
		trimmed := bytes.TrimRight(line, " \t")
		if len(trimmed) == len(line) {
			return
		}
		start := utf8.RuneCount(trimmed) + 1
		actx.Report(ir.Result{
			Message: ir.NewMessage(fmt.Sprintf("Line %d has trailing whitespace.", n)),
			Locations: []ir.Location{actx.Location(ir.Region{
				StartLine:   n,
				StartColumn: start,
				EndLine:     n,
				EndColumn:   start + len(line) - len(trimmed),
			})},
		})
	})
}

// DefaultTaskMarkers are SKIM1003's markers when the "SKIM1003.markers"
// policy is unset.
var DefaultTaskMarkers = []string{"TODO", "FIXME"}

// TaskMarker reports task markers such as TODO and FIXME. Only the first
// marker on a line is reported.
func TaskMarker() engine.Rule {
	return textRule(ir.ReportingDescriptor{
		ID:               TaskMarkerID,
		Name:             "TaskMarker",
		ShortDescription: "Line contains a task marker.",
		DefaultLevel:     ir.LevelNote,
	}, func(actx *engine.AnalysisContext, n int, line []byte) {
		best, marker := -1, ""
		for _, m := range policyStrings(actx, "markers", DefaultTaskMarkers) {
			if i := bytes.Index(line, []byte(m)); i >= 0 && (best < 0 || i < best) {
				best, marker = i, m
			}
		}
		if best < 0 {
			return
		}
		col := utf8.RuneCount(line[:best]) + 1
		actx.Report(ir.Result{
			Message: ir.NewMessage(fmt.Sprintf("%s marker on line %d.", marker, n)),
			Locations: []ir.Location{actx.Location(ir.Region{
				StartLine:   n,
				StartColumn: col,
				EndLine:     n,
				EndColumn:   col + utf8.RuneCountInString(marker),
			})},
			Properties: ir.PropertyBag{"marker": ir.String(marker)},
		})
	})
}

// MixedIndentation reports lines whose leading whitespace mixes tabs and
// spaces.
func MixedIndentation() engine.Rule {
	return textRule(ir.ReportingDescriptor{
		ID:               MixedIndentationID,
		Name:             "MixedIndentation",
		ShortDescription: "Indentation mixes tabs and spaces.",
		DefaultLevel:     ir.LevelWarning,
	}, func(actx *engine.AnalysisContext, n int, line []byte) {
		indent := line[:len(line)-len(bytes.TrimLeft(line, " \t"))]
		if !bytes.ContainsRune(indent, ' ') || !bytes.ContainsRune(indent, '\t') {
			return
		}
		actx.Report(ir.Result{
			Message: ir.NewMessage(fmt.Sprintf("Line %d indents with both tabs and spaces.", n)),
			Locations: []ir.Location{actx.Location(ir.Region{
				StartLine:   n,
				StartColumn: 1,
				EndLine:     n,
				EndColumn:   len(indent) + 1,
			})},
		})
	})
}

// FinalNewline reports non-empty text artifacts that do not end with a
// newline.
func FinalNewline() engine.Rule {
	return engine.RuleFunc{
		Desc: ir.ReportingDescriptor{
			ID:               FinalNewlineID,
			Name:             "FinalNewline",
			ShortDescription: "File does not end with a newline.",
			DefaultLevel:     ir.LevelNote,
		},
		Fn: func(actx *engine.AnalysisContext) error {
			if err := requireText(actx); err != nil {
				return err
			}
			content := actx.Content()
			if len(content) == 0 || content[len(content)-1] == '\n' {
				return nil
			}
			last := bytes.Count(content, []byte{'\n'}) + 1
			tail := content[bytes.LastIndexByte(content, '\n')+1:]
			actx.Report(ir.Result{
				Message: ir.NewMessage("File does not end with a newline."),
				Locations: []ir.Location{actx.Location(ir.Region{
					StartLine:   last,
					StartColumn: utf8.RuneCount(tail) + 1,
				})},
			})
			return nil
		},
	}
}
