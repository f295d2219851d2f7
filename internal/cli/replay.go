package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/skim/internal/harness"
	"github.com/roach88/skim/internal/report"
	"github.com/roach88/skim/internal/sched"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// ReplayResult holds the outcome of replaying one schedule.
type ReplayResult struct {
	Scenario      string `json:"scenario"`
	Trace         string `json:"trace"`
	Choices       int    `json:"choices"`
	Deterministic bool   `json:"deterministic"`
	Want          string `json:"want,omitempty"`
	Got           string `json:"got,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml> <trace.yaml>",
		Short: "Replay a saved schedule and verify determinism",
		Long: `Replay a schedule saved by "skim test" and compare the report it
produces with the scenario's sequential reference report.

Exit codes:
  0 - The replayed report matches the reference
  1 - The reports differ (the divergence reproduced)
  2 - Command error (unreadable files, schedule does not fit the scenario)

Examples:
  skim replay scenarios/incompatible_exit.yaml traces/incompatible_exit-1.trace.yaml
  skim replay s.yaml t.trace.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, scenarioPath, tracePath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	trace, err := sched.LoadTrace(tracePath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load trace", err)
	}
	formatter.VerboseLog("replaying %d choices (strategy %q) against %s", len(trace.Choices), trace.Strategy, scenario.Name)

	h, err := harness.New(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid scenario", err)
	}
	ref, err := h.Reference(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "reference run failed", err)
	}
	rep, err := h.Replay(ctx, trace)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	want, err := report.Marshal(ref)
	if err != nil {
		return err
	}
	got, err := report.Marshal(rep)
	if err != nil {
		return err
	}

	result := ReplayResult{
		Scenario:      scenario.Name,
		Trace:         tracePath,
		Choices:       len(trace.Choices),
		Deterministic: string(want) == string(got),
	}
	if !result.Deterministic {
		result.Want = string(want)
		result.Got = string(got)
	}

	switch {
	case opts.Format == "json" && result.Deterministic:
		if err := formatter.Success(result); err != nil {
			return err
		}
	case opts.Format == "json":
		if err := formatter.Error(ErrCodeReplayDiverged, "replayed report differs from the reference", result); err != nil {
			return err
		}
	case result.Deterministic:
		fmt.Fprintf(formatter.Writer, "✓ %s: replayed %d choices, report matches the reference\n", scenario.Name, result.Choices)
	default:
		fmt.Fprintf(formatter.Writer, "✗ %s: replayed %d choices, report differs from the reference\n", scenario.Name, result.Choices)
		fmt.Fprintf(formatter.Writer, "  want: %s\n  got:  %s\n", result.Want, result.Got)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replayed report differs from the reference")
	}
	return nil
}
