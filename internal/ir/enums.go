package ir

import (
	"fmt"
	"strings"
)

// Level is the severity of a result or notification.
// The numeric order (none < note < warning < error) is the sort order.
type Level int

const (
	LevelNone Level = iota
	LevelNote
	LevelWarning
	LevelError
)

var levelNames = []string{"none", "note", "warning", "error"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if l < 0 || int(l) >= len(levelNames) {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLevel parses a level name (case-insensitive).
func ParseLevel(s string) (Level, error) {
	for i, n := range levelNames {
		if strings.EqualFold(s, n) {
			return Level(i), nil
		}
	}
	return LevelNone, fmt.Errorf("unknown level %q", s)
}

// AllLevels lists every level in sort order.
func AllLevels() []Level {
	return []Level{LevelNone, LevelNote, LevelWarning, LevelError}
}

// ResultKind classifies a result independently of its level.
type ResultKind int

const (
	KindFail ResultKind = iota
	KindPass
	KindReview
	KindOpen
	KindInformational
	KindNotApplicable
)

var kindNames = []string{"fail", "pass", "review", "open", "informational", "notApplicable"}

func (k ResultKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k ResultKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("invalid result kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ResultKind) UnmarshalText(b []byte) error {
	v, err := ParseResultKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseResultKind parses a result kind name (case-insensitive).
func ParseResultKind(s string) (ResultKind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(s, n) {
			return ResultKind(i), nil
		}
	}
	return KindFail, fmt.Errorf("unknown result kind %q", s)
}

// OptionallyEmittedData selects optional report enrichment.
type OptionallyEmittedData uint32

const (
	InsertHashes OptionallyEmittedData = 1 << iota
	InsertTextFiles
	InsertRegionSnippets
	InsertContextRegionSnippets
)

var insertNames = []struct {
	flag OptionallyEmittedData
	name string
}{
	{InsertHashes, "hashes"},
	{InsertTextFiles, "textFiles"},
	{InsertRegionSnippets, "regionSnippets"},
	{InsertContextRegionSnippets, "contextRegionSnippets"},
}

// Has reports whether every bit of flag is set.
func (d OptionallyEmittedData) Has(flag OptionallyEmittedData) bool {
	return d&flag == flag
}

// Names lists the set flags in declaration order.
func (d OptionallyEmittedData) Names() []string {
	var out []string
	for _, n := range insertNames {
		if d.Has(n.flag) {
			out = append(out, n.name)
		}
	}
	return out
}

// ParseOptionallyEmittedData parses flag names (case-insensitive).
func ParseOptionallyEmittedData(names ...string) (OptionallyEmittedData, error) {
	var d OptionallyEmittedData
	for _, s := range names {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		found := false
		for _, n := range insertNames {
			if strings.EqualFold(s, n.name) {
				d |= n.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown data-to-insert flag %q", s)
		}
	}
	return d, nil
}

// IncompatibleRuleHandling selects what happens when a rule cannot run
// against an analysis target.
type IncompatibleRuleHandling int

const (
	// IncompatibleIgnore skips the rule for that target without a record.
	IncompatibleIgnore IncompatibleRuleHandling = iota
	// IncompatibleDisable records one notification and disables the rule
	// for all later targets.
	IncompatibleDisable
	// IncompatibleExit records one notification and terminates the run.
	IncompatibleExit
)

var handlingNames = []string{"ignore", "disable", "exit"}

func (h IncompatibleRuleHandling) String() string {
	if h < 0 || int(h) >= len(handlingNames) {
		return fmt.Sprintf("handling(%d)", int(h))
	}
	return handlingNames[h]
}

// MarshalText implements encoding.TextMarshaler.
func (h IncompatibleRuleHandling) MarshalText() ([]byte, error) {
	if h < 0 || int(h) >= len(handlingNames) {
		return nil, fmt.Errorf("invalid incompatible-rule handling %d", int(h))
	}
	return []byte(handlingNames[h]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *IncompatibleRuleHandling) UnmarshalText(b []byte) error {
	v, err := ParseIncompatibleRuleHandling(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ParseIncompatibleRuleHandling accepts "ignore", "disable" and "exit", and
// the long forms "disable-and-continue" and "exit-analysis".
func ParseIncompatibleRuleHandling(s string) (IncompatibleRuleHandling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore", "":
		return IncompatibleIgnore, nil
	case "disable", "disable-and-continue", "disableandcontinueanalysis":
		return IncompatibleDisable, nil
	case "exit", "exit-analysis", "exitanalysis":
		return IncompatibleExit, nil
	}
	return IncompatibleIgnore, fmt.Errorf("unknown incompatible-rule handling %q", s)
}
