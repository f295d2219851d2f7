package harness

import (
	"errors"
	"path"

	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/rules"
)

// uriPrefix turns scenario file names into artifact URIs.
const uriPrefix = "mem:///"

func builtinRule(id string) (engine.Rule, bool) {
	for _, r := range rules.Builtin() {
		if r.Descriptor().ID == id {
			return r, true
		}
	}
	return nil, false
}

func parseLevel(s string) (ir.Level, error) {
	if s == "" {
		return ir.LevelWarning, nil
	}
	return ir.ParseLevel(s)
}

// buildRules turns rule specs into engine rules. Specs are assumed valid.
func buildRules(specs []RuleSpec) []engine.Rule {
	out := make([]engine.Rule, 0, len(specs))
	for _, spec := range specs {
		if spec.Builtin != "" {
			r, _ := builtinRule(spec.Builtin)
			out = append(out, r)
			continue
		}
		out = append(out, scripted(spec))
	}
	return out
}

// scripted builds a rule that replays spec.On for each artifact.
func scripted(spec RuleSpec) engine.Rule {
	level, _ := parseLevel(spec.Level)
	return engine.RuleFunc{
		Desc: ir.ReportingDescriptor{ID: spec.ID, Name: spec.Name, DefaultLevel: level},
		Fn: func(actx *engine.AnalysisContext) error {
			name := path.Base(actx.Artifact().URI)
			for _, st := range spec.On {
				if ok, _ := path.Match(st.Match, name); ok {
					return play(actx, spec.ID, st)
				}
			}
			return nil
		},
	}
}

func play(actx *engine.AnalysisContext, id string, st Step) error {
	for i := 0; i < st.Yield; i++ {
		if err := actx.Checkpoint(); err != nil {
			return err
		}
	}

	switch {
	case st.Decline != "":
		return engine.Incompatible(st.Decline)
	case st.Panic != "":
		panic(st.Panic)
	case st.Fail != "":
		return errors.New(st.Fail)
	}

	msg := st.Message
	if msg == "" {
		msg = id + " finding"
	}
	for line := 1; line <= st.Report; line++ {
		if err := actx.Checkpoint(); err != nil {
			return err
		}
		actx.Report(ir.Result{
			Message:   ir.NewMessage(msg),
			Locations: []ir.Location{actx.Location(ir.Region{StartLine: line})},
		})
	}
	return nil
}
