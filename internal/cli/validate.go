package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/skim/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	File   string           `json:"file"`
	Valid  bool             `json:"valid"`
	Errors []config.Problem `json:"errors,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with configuration files",
	}
	cmd.AddCommand(newValidateCommand(rootOpts))
	return cmd
}

func newValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a configuration file",
		Long: `Validate a YAML or TOML configuration file against the configuration
schema without running an analysis. Every schema violation is listed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(path)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			return outputValidationErrors(formatter, path, verr.Problems)
		}
		_ = formatter.Error(ErrCodeConfigUnreadable, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot read configuration", err)
	}

	// Keys the schema accepts can still fail to convert (levels, kinds).
	engineOpts, err := cfg.Options()
	if err != nil {
		return outputValidationErrors(formatter, path, []config.Problem{{Message: err.Error()}})
	}
	formatter.VerboseLog("threads=%d recurse=%t patterns=%v incompatible_rules=%s",
		engineOpts.Threads, engineOpts.Recurse, engineOpts.TargetFileSpecifiers, engineOpts.IncompatibleRules)

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{File: path, Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", path)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, path string, problems []config.Problem) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{File: path, Valid: false, Errors: problems},
			Error: &CLIError{
				Code:    ErrCodeConfigInvalid,
				Message: fmt.Sprintf("%d problem(s) in %s", len(problems), path),
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s is invalid\n\n", path)
	for _, p := range problems {
		if p.Path != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", p.Path, p.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", p.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(problems)))
}
