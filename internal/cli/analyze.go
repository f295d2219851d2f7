package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/skim/internal/artifact"
	"github.com/roach88/skim/internal/cache"
	"github.com/roach88/skim/internal/config"
	"github.com/roach88/skim/internal/engine"
	"github.com/roach88/skim/internal/report"
	"github.com/roach88/skim/internal/rules"
	"github.com/roach88/skim/internal/store"
	"github.com/roach88/skim/internal/telemetry"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions

	ConfigPath        string
	Threads           int
	Recurse           bool
	Patterns          []string
	FailureLevels     []string
	Kinds             []string
	MaxFileSizeKB     int64
	Insert            []string
	IncompatibleRules string
	AutomationID      string
	RichExitCode      bool

	Output     string // JSON report file
	Database   string // SQLite run log
	CacheDir   string // outcome cache
	UseCache   bool   // outcome cache in the user cache directory
	ClearCache bool
	Telemetry  string // OpenTelemetry export file

	// RunIDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Engine options appended last (for testing).
	EngineOptions []engine.Option
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	return newAnalyzeCommand(&AnalyzeOptions{RootOptions: rootOpts})
}

func newAnalyzeCommand(opts *AnalyzeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze files with the built-in rules",
		Long: `Analyze files and directories with the built-in text rules.

Artifacts are enumerated from the given paths (default: the current
directory), analyzed on --threads workers and reported in a canonical
order that does not depend on the thread count.

Settings come from --config (YAML or TOML) and are overridden by flags.

Exit codes:
  0 - Analysis succeeded
  1 - Analysis hit a fatal condition (rule exception, halted run, ...)
  2 - Command error (bad flags, unreadable config, missing paths)
  With --rich-exit-code the report records the runtime condition bit
  set as the exit code. The process exits with its low byte, or 255
  when only higher bits are set, so any condition exits nonzero.

With --format json and --output, stdout carries a one-line run status.

Examples:
  skim analyze ./src --recurse
  skim analyze ./src --pattern '*.go' --threads 8 --output report.json
  skim analyze . --config skim.yaml --db runs.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	f.IntVarP(&opts.Threads, "threads", "t", 0, "worker threads (0 = number of CPUs)")
	f.BoolVarP(&opts.Recurse, "recurse", "r", false, "descend into subdirectories")
	f.StringSliceVarP(&opts.Patterns, "pattern", "p", nil, "file name glob to analyze (repeatable)")
	f.StringSliceVar(&opts.FailureLevels, "failure-level", nil, "result levels to report: error, warning, note, none")
	f.StringSliceVar(&opts.Kinds, "kind", nil, "result kinds to report: fail, pass, review, open, notApplicable, informational")
	f.Int64Var(&opts.MaxFileSizeKB, "max-size-kb", 0, "skip files larger than this (0 = 1024)")
	f.StringSliceVar(&opts.Insert, "insert", nil, "optional data to insert: hashes, textFiles, regionSnippets, contextRegionSnippets")
	f.StringVar(&opts.IncompatibleRules, "incompatible-rules", "", "incompatible rule handling: ignore, disable, exit")
	f.StringVar(&opts.AutomationID, "automation-id", "", "label recorded with the run")
	f.BoolVar(&opts.RichExitCode, "rich-exit-code", false, "exit with the runtime condition bits")
	f.StringVarP(&opts.Output, "output", "o", "", "write the JSON report to this file")
	f.StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	f.StringVar(&opts.CacheDir, "cache-dir", "", "reuse per-file outcomes from this cache directory")
	f.BoolVar(&opts.UseCache, "cache", false, "reuse per-file outcomes from the default cache directory")
	f.BoolVar(&opts.ClearCache, "clear-cache", false, "empty the outcome cache before analyzing")
	f.StringVar(&opts.Telemetry, "telemetry", "", "write OpenTelemetry spans and metrics to this file")

	return cmd
}

// loadConfig reads --config, if any, and layers the flags the user set on
// top of it.
func loadConfig(opts *AnalyzeOptions, cmd *cobra.Command) (*config.File, error) {
	cfg := &config.File{}
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("threads") {
		cfg.Threads = &opts.Threads
	}
	if changed("recurse") {
		cfg.Recurse = &opts.Recurse
	}
	if changed("pattern") {
		cfg.Patterns = opts.Patterns
	}
	if changed("failure-level") {
		cfg.FailureLevels = opts.FailureLevels
	}
	if changed("kind") {
		cfg.Kinds = opts.Kinds
	}
	if changed("max-size-kb") {
		cfg.MaxFileSizeKB = &opts.MaxFileSizeKB
	}
	if changed("insert") {
		cfg.Insert = opts.Insert
	}
	if changed("incompatible-rules") {
		cfg.IncompatibleRules = opts.IncompatibleRules
	}
	if changed("automation-id") {
		cfg.AutomationID = opts.AutomationID
	}
	if changed("rich-exit-code") {
		cfg.RichExitCode = &opts.RichExitCode
	}
	if changed("db") {
		cfg.DB = opts.Database
	}
	if changed("cache-dir") {
		cfg.CacheDir = opts.CacheDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runAnalyze(opts *AnalyzeOptions, paths []string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	engineOpts, err := cfg.Options()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	engineOpts.CommandLine = strings.Join(os.Args, " ")

	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return WrapExitError(ExitCommandError, "cannot analyze "+p, err)
		}
	}

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("cleanup failed", "error", err)
			}
		}
	}()

	sinks, err := openSinks(opts, cfg, cmd.OutOrStdout(), logger, &closers)
	if err != nil {
		return err
	}

	options := []engine.Option{
		engine.WithLogger(logger),
		engine.WithSink(report.Tee(sinks...)),
	}
	if opts.RunIDs != nil {
		options = append(options, engine.WithRunIDGenerator(opts.RunIDs))
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" && opts.UseCache {
		if cacheDir, err = cache.DefaultDir(); err != nil {
			return WrapExitError(ExitCommandError, "failed to locate cache directory", err)
		}
	}
	if cacheDir != "" {
		c, err := cache.Open(cacheDir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open cache", err)
		}
		if opts.ClearCache {
			if err := c.Clear(); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear cache", err)
			}
			logger.Debug("outcome cache cleared", "dir", c.Dir())
		}
		logger.Debug("outcome cache enabled", "dir", c.Dir())
		options = append(options, engine.WithCache(c))
	}
	if opts.Telemetry != "" {
		f, err := os.Create(opts.Telemetry)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create telemetry file", err)
		}
		closers = append(closers, f.Close)
		shutdown, err := telemetry.Setup(f)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to set up telemetry", err)
		}
		closers = append(closers, func() error { return shutdown(context.Background()) })
	}
	options = append(options, opts.EngineOptions...)

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	eng := engine.New(artifact.FileSystem{Roots: paths}, rules.Builtin(), engineOpts, options...)

	logger.Info("analysis starting", "paths", paths, "threads", engineOpts.Threads)
	rep, err := eng.Run(ctx)
	if err != nil {
		if engine.IsInvalidOptions(err) || engine.IsEnumerationError(err) {
			return WrapExitError(ExitCommandError, "analysis could not start", err)
		}
		return WrapExitError(ExitFailure, "analysis failed", err)
	}
	logger.Info("analysis finished",
		"run", rep.RunID,
		"results", len(rep.Results),
		"notifications", len(rep.Notifications),
		"conditions", rep.Conditions.String(),
	)

	if opts.Format == "json" && opts.Output != "" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		if err := formatter.RunFinished(rep); err != nil {
			return err
		}
	}

	if rep.Invocation.ExitCode != ExitSuccess {
		return runExitError(rep)
	}
	return nil
}

// openSinks builds the report sinks: the console in --format, the
// --output file and the --db run log.
func openSinks(opts *AnalyzeOptions, cfg *config.File, stdout io.Writer, logger *slog.Logger, closers *[]func() error) ([]report.Sink, error) {
	var sinks []report.Sink

	switch {
	case opts.Format == "json" && opts.Output == "":
		sinks = append(sinks, report.NewJSONSink(stdout))
	case opts.Format == "text":
		colorize := false
		if f, ok := stdout.(*os.File); ok {
			colorize = report.ColorEnabled(f)
		}
		sinks = append(sinks, report.NewTextSink(stdout, colorize))
	}

	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		*closers = append(*closers, f.Close)
		sinks = append(sinks, report.NewJSONSink(f))
	}

	if cfg.DB != "" {
		logger.Debug("opening database", "path", cfg.DB)
		st, err := store.Open(cfg.DB)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		*closers = append(*closers, st.Close)
		sinks = append(sinks, st.NewSink(context.Background()))
	}
	return sinks, nil
}

// signalContext cancels on SIGINT or SIGTERM. The engine turns the
// cancellation into a partial report with analysisCanceled set.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, canceling analysis", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
