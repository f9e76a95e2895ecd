package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ndconvert/internal/config"
	"github.com/roach88/ndconvert/internal/pipeline"
	"github.com/roach88/ndconvert/internal/sink"
)

// RootOptions holds the command's flags.
type RootOptions struct {
	ConfigPath   string
	Mode         string
	TruthSource  string
	Capacity     int
	DataCapacity int
	Workers      int
	Dump         bool
	Verbose      bool
	Format       string // "json" | "text"

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, the pipeline uses UUIDv7Generator.
	RunIDs pipeline.RunIDGenerator
}

// ValidFormats defines the allowed summary formats.
var ValidFormats = []string{"text", "json"}

const banner = "---------------------------------------------------------------"

// NewRootCommand creates the ndconvert command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ndconvert fileList [isData] [useFinalHits] [outputName]",
		Short: "Convert flow files into chunked hit tables with truth",
		Long: `Convert reconstructed flow files into a columnar hit table, attaching
Monte Carlo truth to every hit.

Parameters:
  fileList      [REQUIRED]                          comma separated files, all written to one output
  isData        [OPTIONAL, default 0, MC]           1 = data, otherwise MC
  useFinalHits  [OPTIONAL, default 0, prompt hits]  1 = use final hits, otherwise prompt
  outputName    [OPTIONAL, default input[0]` + config.OutputSuffix + `]  output file name; the default is
                                                    written to the current directory

Example:
  ndconvert run1.flow.db
  ndconvert run1.flow.db,run2.flow.db 0 1 merged.db
  ndconvert --mode nested --workers 4 run1.flow.db
  ndconvert merge run1.flow.db_hits.db`,
		Args:          cobra.RangeArgs(0, 4),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printUsage(cmd, "Must at least pass a file location/name to be converted, usage:")
			}
			return runConvert(cmd, opts, args)
		},
	}

	// Flags shared with merge
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	pf.IntVar(&opts.Capacity, "capacity", 0, "chunk capacity for MC runs")
	pf.IntVar(&opts.DataCapacity, "data-capacity", 0, "chunk capacity for data runs")
	pf.BoolVar(&opts.Dump, "dump", false, "write a text dump to stdout instead of SQLite")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "summary format (json|text)")

	f := cmd.Flags()
	f.StringVar(&opts.Mode, "mode", "", "output shape (flat|nested)")
	f.StringVar(&opts.TruthSource, "truth-source", "", "truth link source (packet|backtrack)")
	f.IntVar(&opts.Workers, "workers", 0, "events processed concurrently")

	cmd.AddCommand(NewMergeCommand(opts))
	// help and h print the same usage text as a bare invocation.
	cmd.SetHelpCommand(&cobra.Command{
		Use:     "help",
		Aliases: []string{"h"},
		Short:   "Print usage",
		Hidden:  true,
		RunE: func(c *cobra.Command, args []string) error {
			return printUsage(cmd, "usage:")
		},
	})

	return cmd
}

func printUsage(cmd *cobra.Command, headline string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, headline)
	fmt.Fprintln(w, banner)
	fmt.Fprintln(w, cmd.Long)
	return nil
}

// parseSwitch reads an isData/useFinalHits positional: 1 enables, any other
// integer disables.
func parseSwitch(name, s string) (bool, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false, NewExitError(ExitCommandError, fmt.Sprintf("%s must be an integer, got %q", name, s))
	}
	return n == 1, nil
}

// splitFiles splits the comma separated fileList, dropping empty entries.
func splitFiles(list string) []string {
	var files []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	return files
}

// resolveConfig layers the config file, the positionals and the changed
// flags, in that order.
func resolveConfig(cmd *cobra.Command, opts *RootOptions, args []string) (config.Config, []string, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return cfg, nil, err
	}

	files := splitFiles(args[0])
	if len(files) == 0 {
		return cfg, nil, NewExitError(ExitCommandError, "fileList names no files")
	}
	if len(args) > 1 {
		v, err := parseSwitch("isData", args[1])
		if err != nil {
			return cfg, nil, err
		}
		cfg.IsData = v
	}
	if len(args) > 2 {
		v, err := parseSwitch("useFinalHits", args[2])
		if err != nil {
			return cfg, nil, err
		}
		cfg.UseFinalHits = v
	}
	if len(args) > 3 {
		cfg.OutputName = args[3]
	}

	f := cmd.Flags()
	if f.Changed("mode") {
		cfg.Mode = opts.Mode
	}
	if f.Changed("truth-source") {
		cfg.TruthSource = opts.TruthSource
	}
	applyCapacities(cmd, opts, &cfg)
	if f.Changed("workers") {
		cfg.Workers = opts.Workers
	}

	if err := cfg.Validate(); err != nil {
		return cfg, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, files, nil
}

// loadConfig returns the config file named by --config, or the defaults.
func loadConfig(opts *RootOptions) (config.Config, error) {
	if opts.ConfigPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

func applyCapacities(cmd *cobra.Command, opts *RootOptions, cfg *config.Config) {
	if cmd.Flags().Changed("capacity") {
		cfg.Capacity = opts.Capacity
	}
	if cmd.Flags().Changed("data-capacity") {
		cfg.DataCapacity = opts.DataCapacity
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func runConvert(cmd *cobra.Command, opts *RootOptions, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, files, err := resolveConfig(cmd, opts, args)
	if err != nil {
		return err
	}
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			return WrapExitError(ExitCommandError, "input not readable", err)
		}
	}

	var (
		out    sink.Sink
		target string
	)
	summaryOut := cmd.OutOrStdout()
	if opts.Dump {
		out = sink.NewText(cmd.OutOrStdout())
		target = "stdout"
		summaryOut = cmd.ErrOrStderr()
	} else {
		target = cfg.OutputPath(files)
		logger.Info("opening output", "path", target)
		db, err := sink.OpenSQLite(target)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open output", err)
		}
		out = db
	}

	ctrl, err := pipeline.New(cfg, nil, out, pipeline.Options{Logger: logger, RunIDs: opts.RunIDs})
	if err != nil {
		out.Close()
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := ctrl.Run(ctx, files)
	if err != nil {
		return WrapExitError(ExitFailure, "conversion failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: summaryOut}
	return formatter.Summary(Summary{
		RunID:   stats.RunID,
		Output:  target,
		Files:   stats.Files,
		Events:  stats.Events,
		Written: stats.Written,
		Batches: stats.Batches,
		Tables:  stats.Tables,
		Skipped: stats.Skipped,
	})
}
