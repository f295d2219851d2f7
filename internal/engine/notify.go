package engine

import (
	"fmt"

	"github.com/roach88/skim/internal/ir"
)

// Notification descriptor IDs emitted by the engine.
const (
	NotifyFileSkippedDueToSize   = "WRN997.OneOrMoreFilesSkippedDueToSizeLimits"
	NotifyNoValidAnalysisTargets = "WRN997.NoValidAnalysisTargets"
	NotifyIncompatibleRule       = "ERR997.IncompatibleRuleDetected"
	NotifyExceptionLoadingTarget = "ERR997.ExceptionLoadingAnalysisTarget"
	NotifyNoRulesLoaded          = "ERR997.NoRulesLoaded"
	NotifyExceptionInRule        = "ERR998.ExceptionInRule"
	NotifyExceptionInEngine      = "ERR998.ExceptionInEngine"
)

func artifactLocations(uri string) []ir.Location {
	return []ir.Location{{
		PhysicalLocation: &ir.PhysicalLocation{
			ArtifactLocation: &ir.ArtifactLocation{URI: uri},
		},
	}}
}

func sizeSkippedNotification(a Artifact, maxKB int64) ir.Notification {
	return ir.Notification{
		DescriptorID: NotifyFileSkippedDueToSize,
		Level:        ir.LevelWarning,
		Message: ir.Message{
			Text:      fmt.Sprintf("'%s' was not analyzed as it exceeds the maximum file size of %d KB.", a.URI, maxKB),
			Arguments: []string{a.URI, fmt.Sprint(maxKB)},
		},
		Locations: artifactLocations(a.URI),
	}
}

func noTargetsNotification() ir.Notification {
	return ir.Notification{
		DescriptorID: NotifyNoValidAnalysisTargets,
		Level:        ir.LevelWarning,
		Message:      ir.NewMessage("No valid analysis targets were found."),
	}
}

func noRulesNotification() ir.Notification {
	return ir.Notification{
		DescriptorID: NotifyNoRulesLoaded,
		Level:        ir.LevelError,
		Message:      ir.NewMessage("No analysis rules were loaded."),
	}
}

func incompatibleNotification(a Artifact, ruleID string, reason string, handling ir.IncompatibleRuleHandling) ir.Notification {
	text := fmt.Sprintf("Rule '%s' is incompatible with '%s': %s.", ruleID, a.URI, reason)
	switch handling {
	case ir.IncompatibleDisable:
		text += " The rule was disabled for the remainder of the run."
	case ir.IncompatibleExit:
		text += " Analysis was halted."
	}
	return ir.Notification{
		DescriptorID:     NotifyIncompatibleRule,
		AssociatedRuleID: ruleID,
		Level:            ir.LevelError,
		Message:          ir.Message{Text: text, Arguments: []string{ruleID, a.URI, reason}},
		Locations:        artifactLocations(a.URI),
	}
}

func ruleExceptionNotification(a Artifact, ruleID string, err error) ir.Notification {
	return ir.Notification{
		DescriptorID:     NotifyExceptionInRule,
		AssociatedRuleID: ruleID,
		Level:            ir.LevelError,
		Message: ir.Message{
			Text:      fmt.Sprintf("Rule '%s' failed while analyzing '%s'.", ruleID, a.URI),
			Arguments: []string{ruleID, a.URI},
		},
		Locations: artifactLocations(a.URI),
		Exception: exceptionData(err),
	}
}

func loadFailureNotification(a Artifact, err error) ir.Notification {
	return ir.Notification{
		DescriptorID: NotifyExceptionLoadingTarget,
		Level:        ir.LevelError,
		Message: ir.Message{
			Text:      fmt.Sprintf("'%s' could not be loaded for analysis.", a.URI),
			Arguments: []string{a.URI},
		},
		Locations: artifactLocations(a.URI),
		Exception: exceptionData(err),
	}
}

func engineExceptionNotification(err error) ir.Notification {
	return ir.Notification{
		DescriptorID: NotifyExceptionInEngine,
		Level:        ir.LevelError,
		Message:      ir.NewMessage("The analysis engine failed unexpectedly."),
		Exception:    exceptionData(err),
	}
}

func exceptionData(err error) *ir.ExceptionData {
	if pe, ok := err.(*panicError); ok {
		return &ir.ExceptionData{Kind: "panic", Message: fmt.Sprint(pe.value)}
	}
	return &ir.ExceptionData{Kind: fmt.Sprintf("%T", err), Message: err.Error()}
}
