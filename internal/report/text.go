package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/roach88/skim/internal/ir"
)

// TextSink renders a report for a terminal: one line per result and
// notification followed by a summary.
//
//	file:///src/a.go:3:1: warning SKIM1002 Line 3 has trailing whitespace.
type TextSink struct {
	w io.Writer

	errorColor   *color.Color
	warningColor *color.Color
	noteColor    *color.Color
	ruleColor    *color.Color
	dimColor     *color.Color

	runID   string
	results int
	levels  map[ir.Level]int
	notes   int
	inv     ir.Invocation
	failed  error
}

// NewTextSink returns a sink writing to w, with ANSI colour when colorize
// is set.
func NewTextSink(w io.Writer, colorize bool) *TextSink {
	t := &TextSink{
		w:            w,
		errorColor:   color.New(color.FgRed, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		noteColor:    color.New(color.FgBlue),
		ruleColor:    color.New(color.FgCyan),
		dimColor:     color.New(color.Faint),
		levels:       make(map[ir.Level]int),
	}
	for _, c := range []*color.Color{t.errorColor, t.warningColor, t.noteColor, t.ruleColor, t.dimColor} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

// ColorEnabled reports whether f is a terminal that should get colour.
// NO_COLOR disables colour regardless.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (t *TextSink) printf(format string, args ...any) {
	if t.failed != nil {
		return
	}
	if _, err := fmt.Fprintf(t.w, format, args...); err != nil {
		t.failed = err
	}
}

func (t *TextSink) level(l ir.Level) string {
	switch l {
	case ir.LevelError:
		return t.errorColor.Sprint(l.String())
	case ir.LevelWarning:
		return t.warningColor.Sprint(l.String())
	case ir.LevelNote:
		return t.noteColor.Sprint(l.String())
	}
	return t.dimColor.Sprint(l.String())
}

// Initialize implements Sink.
func (t *TextSink) Initialize(runID, _ string) error {
	t.runID = runID
	return nil
}

// WriteTool implements Sink.
func (t *TextSink) WriteTool(tool ir.Tool) error {
	t.printf("%s\n", t.dimColor.Sprintf("%s %s, %d rules", tool.Name, tool.Version, len(tool.Rules)))
	return t.failed
}

// WriteInvocation implements Sink.
func (t *TextSink) WriteInvocation(inv ir.Invocation) error {
	t.inv = inv
	return nil
}

// WriteArtifacts implements Sink. Artifact records are not rendered.
func (t *TextSink) WriteArtifacts([]ir.ArtifactRecord) error {
	return nil
}

// WriteResults implements Sink.
func (t *TextSink) WriteResults(results []ir.Result) error {
	for _, r := range results {
		t.results++
		t.levels[r.Level]++
		t.printf("%s: %s %s %s\n", position(r.Locations), t.level(r.Level), t.ruleColor.Sprint(r.RuleID), r.Message.Text)
		if r.Kind != ir.KindFail {
			t.printf("    %s\n", t.dimColor.Sprintf("kind: %s", r.Kind))
		}
		for _, loc := range r.Locations {
			if pl := loc.PhysicalLocation; pl != nil && pl.Region != nil && pl.Region.Snippet != nil {
				t.printf("    %s\n", t.dimColor.Sprint(strings.TrimRight(pl.Region.Snippet.Text, "\n")))
			}
		}
	}
	return t.failed
}

// WriteNotifications implements Sink.
func (t *TextSink) WriteNotifications(notifications []ir.Notification) error {
	for _, n := range notifications {
		t.notes++
		where := position(n.Locations)
		if where == "" {
			where = "run"
		}
		t.printf("%s: %s %s %s\n", where, t.level(n.Level), t.ruleColor.Sprint(n.DescriptorID), n.Message.Text)
		if n.Exception != nil {
			t.printf("    %s\n", t.dimColor.Sprintf("%s: %s", n.Exception.Kind, n.Exception.Message))
		}
	}
	return t.failed
}

// Close writes the summary line.
func (t *TextSink) Close() error {
	summary := fmt.Sprintf("%d results (%d errors, %d warnings, %d notes), %d notifications",
		t.results, t.levels[ir.LevelError], t.levels[ir.LevelWarning], t.levels[ir.LevelNote], t.notes)
	if t.inv.ExecutionSuccessful {
		t.printf("%s\n", summary)
	} else {
		t.printf("%s %s\n", summary, t.errorColor.Sprint("[run unsuccessful]"))
	}
	if len(t.inv.RuntimeConditions) > 0 {
		t.printf("%s\n", t.dimColor.Sprintf("conditions: %s", strings.Join(t.inv.RuntimeConditions, ", ")))
	}
	return t.failed
}

// position formats the first location as uri:line:column.
func position(locs []ir.Location) string {
	if len(locs) == 0 || locs[0].PhysicalLocation == nil {
		return ""
	}
	pl := locs[0].PhysicalLocation
	var b strings.Builder
	if pl.ArtifactLocation != nil {
		b.WriteString(pl.ArtifactLocation.URI)
	}
	if r := pl.Region; r != nil && r.StartLine > 0 {
		fmt.Fprintf(&b, ":%d", r.StartLine)
		if r.StartColumn > 0 {
			fmt.Fprintf(&b, ":%d", r.StartColumn)
		}
	}
	return b.String()
}
