package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/skim/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the report's findings to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Report   *ir.Report
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Report != nil {
		fmt.Fprintf(&buf, "\nResults:\n")
		for i, r := range e.Report.Results {
			uri, line := resultPlace(r)
			fmt.Fprintf(&buf, "  [%d] %s %s:%d %s\n", i+1, r.RuleID, uri, line, r.Message.Text)
		}
		fmt.Fprintf(&buf, "Notifications:\n")
		for i, n := range e.Report.Notifications {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, n.DescriptorID, n.Message.Text)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(rep *ir.Report, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(rep, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i+1, err))
		}
	}
	return errs
}

func evaluate(rep *ir.Report, a Assertion) error {
	switch a.Type {
	case AssertResultCount:
		return assertResultCount(rep, a)
	case AssertResultPresent:
		return assertResultPresent(rep, a)
	case AssertNotificationPresent:
		return assertNotificationPresent(rep, a)
	case AssertConditions:
		return assertConditions(rep, a)
	case AssertExitCode:
		return assertExitCode(rep, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// resultPlace returns the scenario-relative URI and start line of the
// first location of r.
func resultPlace(r ir.Result) (string, int) {
	if len(r.Locations) == 0 {
		return "", 0
	}
	return locationPlace(r.Locations[0])
}

func locationPlace(l ir.Location) (string, int) {
	pl := l.PhysicalLocation
	if pl == nil || pl.ArtifactLocation == nil {
		return "", 0
	}
	uri := strings.TrimPrefix(pl.ArtifactLocation.URI, uriPrefix)
	if pl.Region == nil {
		return uri, 0
	}
	return uri, pl.Region.StartLine
}

func assertResultCount(rep *ir.Report, a Assertion) error {
	n := 0
	for _, r := range rep.Results {
		if a.Rule == "" || r.RuleID == a.Rule {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	what := "results"
	if a.Rule != "" {
		what = a.Rule + " results"
	}
	return &AssertionError{
		Type:     AssertResultCount,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", n, what),
		Report:   rep,
	}
}

func assertResultPresent(rep *ir.Report, a Assertion) error {
	for _, r := range rep.Results {
		uri, line := resultPlace(r)
		if r.RuleID == a.Rule && uri == a.URI && (a.Line == 0 || line == a.Line) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertResultPresent,
		Expected: fmt.Sprintf("result %s at %s:%d", a.Rule, a.URI, a.Line),
		Actual:   "not found in report",
		Report:   rep,
	}
}

func assertNotificationPresent(rep *ir.Report, a Assertion) error {
	for _, n := range rep.Notifications {
		if n.DescriptorID != a.Descriptor {
			continue
		}
		if a.Rule != "" && n.AssociatedRuleID != a.Rule {
			continue
		}
		if a.URI != "" {
			if len(n.Locations) == 0 {
				continue
			}
			if uri, _ := locationPlace(n.Locations[0]); uri != a.URI {
				continue
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertNotificationPresent,
		Expected: fmt.Sprintf("notification %s (rule %q, uri %q)", a.Descriptor, a.Rule, a.URI),
		Actual:   "not found in report",
		Report:   rep,
	}
}

func assertConditions(rep *ir.Report, a Assertion) error {
	want, err := ir.ParseRuntimeConditions(a.Conditions)
	if err != nil {
		return err
	}
	if rep.Conditions == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertConditions,
		Expected: fmt.Sprintf("%v", want.Names()),
		Actual:   fmt.Sprintf("%v", rep.Conditions.Names()),
	}
}

func assertExitCode(rep *ir.Report, a Assertion) error {
	if rep.Invocation.ExitCode == a.Code {
		return nil
	}
	return &AssertionError{
		Type:     AssertExitCode,
		Expected: fmt.Sprint(a.Code),
		Actual:   fmt.Sprint(rep.Invocation.ExitCode),
	}
}
