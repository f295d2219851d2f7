package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/skim/internal/converter"
	"github.com/roach88/skim/internal/report"
	"github.com/roach88/skim/internal/store"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Output   string
	Database string

	// Converter overrides the Fortify converter (for testing).
	Converter *converter.FortifyFPR
}

// NewConvertCommand creates the convert command group.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Import reports produced by other tools",
	}
	cmd.AddCommand(newConvertFortifyCommand(&ConvertOptions{RootOptions: rootOpts}))
	return cmd
}

func newConvertFortifyCommand(opts *ConvertOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fortify <file.fpr>",
		Short: "Convert a Fortify FPR archive",
		Long: `Convert the audit.fvdl document of a Fortify FPR archive into a skim
report: build ID, command line, machine info and analysis errors.

Examples:
  skim convert fortify scan.fpr --output scan.json
  skim convert fortify scan.fpr --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvertFortify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON report to this file (default: stdout)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "also record the report in this SQLite database")

	return cmd
}

func runConvertFortify(opts *ConvertOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	in, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open FPR", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to stat FPR", err)
	}

	var sinks []report.Sink
	switch {
	case opts.Output != "":
		out, err := os.Create(opts.Output)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer out.Close()
		sinks = append(sinks, report.NewJSONSink(out))
	case opts.Format == "json":
		sinks = append(sinks, report.NewJSONSink(cmd.OutOrStdout()))
	default:
		sinks = append(sinks, report.NewTextSink(cmd.OutOrStdout(), false))
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		sinks = append(sinks, st.NewSink(context.Background()))
	}

	conv := opts.Converter
	if conv == nil {
		conv = &converter.FortifyFPR{}
	}
	logger.Info("converting", "file", path, "size", info.Size())
	if err := conv.Convert(in, info.Size(), report.Tee(sinks...)); err != nil {
		return WrapExitError(ExitFailure, "conversion failed", err)
	}
	return nil
}
