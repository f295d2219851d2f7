package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/skim/internal/ir"
	"github.com/roach88/skim/internal/report"
	"github.com/roach88/skim/internal/store"
)

// RunsOptions holds flags for the runs and show commands.
type RunsOptions struct {
	*RootOptions
	Database string
	Rule     string // runs: list this rule's results instead of runs
	Delete   string // runs: delete this run
}

// RunRow is one stored run as printed by the runs command.
type RunRow struct {
	RunID         string    `json:"run_id"`
	AutomationID  string    `json:"automation_id,omitempty"`
	StartTime     time.Time `json:"start_time"`
	ExitCode      int       `json:"exit_code"`
	Conditions    []string  `json:"conditions,omitempty"`
	Rules         int       `json:"rules"`
	Results       int       `json:"results"`
	Notifications int       `json:"notifications"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs recorded in a database",
		Long: `List the runs recorded with analyze --db, oldest first.

Examples:
  skim runs --db runs.db
  skim runs --db runs.db --rule SKIM1001
  skim runs --db runs.db --delete 0190b6c2-...
  skim runs --db runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "list every stored result of this rule")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the run with this ID")
	cmd.MarkFlagsMutuallyExclusive("rule", "delete")

	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run",
		Long: `Print a run recorded with analyze --db. With --format json the
output is the canonical report document, byte-identical to the one the
run produced.

Examples:
  skim show --db runs.db 0190b6c2-...
  skim show --db runs.db 0190b6c2-... --format json > report.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// runNotFound reports an unknown run ID. JSON mode also prints an
// E_RUN_NOT_FOUND response.
func runNotFound(out *OutputFormatter, runID string, err error) error {
	msg := "no such run " + runID
	if out.Format == "json" {
		_ = out.Error(ErrCodeRunNotFound, msg, map[string]string{"run_id": runID})
	}
	return WrapExitError(ExitCommandError, msg, err)
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	switch {
	case opts.Delete != "":
		if err := st.DeleteRun(ctx, opts.Delete); err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				return runNotFound(out, opts.Delete, err)
			}
			return WrapExitError(ExitFailure, "failed to delete run", err)
		}
		return out.Success(fmt.Sprintf("Deleted run %s", opts.Delete))

	case opts.Rule != "":
		results, err := st.ResultsByRule(ctx, opts.Rule)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to query results", err)
		}
		if opts.Format == "json" {
			return out.Success(results)
		}
		w := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintf(w, "No stored results for rule %s.\n", opts.Rule)
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(w, "%s: %s %s\n", resultWhere(r), r.Level, r.Message.Text)
		}
		return nil
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}
	rows := make([]RunRow, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, RunRow{
			RunID:         r.RunID,
			AutomationID:  r.AutomationID,
			StartTime:     r.StartTime,
			ExitCode:      r.ExitCode,
			Conditions:    r.Conditions.Names(),
			Rules:         r.Rules,
			Results:       r.Results,
			Notifications: r.Notifications,
		})
	}
	if opts.Format == "json" {
		return out.Success(rows)
	}

	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s  exit=%d  results=%d  notifications=%d",
			r.RunID, r.StartTime.Format(time.RFC3339), r.ExitCode, r.Results, r.Notifications)
		if r.AutomationID != "" {
			fmt.Fprintf(w, "  automation=%s", r.AutomationID)
		}
		if len(r.Conditions) > 0 {
			fmt.Fprintf(w, "  [%s]", strings.Join(r.Conditions, ", "))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func runShow(opts *RunsOptions, runID string, cmd *cobra.Command) error {
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := st.LoadRun(context.Background(), runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return runNotFound(&OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}, runID, err)
		}
		return WrapExitError(ExitFailure, "failed to load run", err)
	}

	var sink report.Sink
	if opts.Format == "json" {
		sink = report.NewJSONSink(cmd.OutOrStdout())
	} else {
		sink = report.NewTextSink(cmd.OutOrStdout(), false)
	}
	if err := report.Emit(sink, rep); err != nil {
		return WrapExitError(ExitFailure, "failed to print run", err)
	}
	return nil
}

// resultWhere renders the first location of r as uri:line.
func resultWhere(r ir.Result) string {
	if len(r.Locations) == 0 || r.Locations[0].PhysicalLocation == nil {
		return "<no location>"
	}
	pl := r.Locations[0].PhysicalLocation
	uri := ""
	if pl.ArtifactLocation != nil {
		uri = pl.ArtifactLocation.URI
	}
	if pl.Region == nil || pl.Region.StartLine == 0 {
		return uri
	}
	return fmt.Sprintf("%s:%d", uri, pl.Region.StartLine)
}
