package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ndconvert/internal/pipeline"
	"github.com/roach88/ndconvert/internal/sink"
)

// MergeSuffix replaces the ".db" extension of the input when merge is given
// no output name.
const MergeSuffix = "_events.db"

// MergeOptions holds flags for the merge command.
type MergeOptions struct {
	*RootOptions
	FinalHits bool
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge subevents.db [outputName]",
		Short: "Reassemble flat output into one row per hit",
		Long: `Read the subevents table of a flat conversion, join the sub-event rows of
every event back together and write the nested events table, with spill
truth moved to the mc_particles and mc_interactions tables.

Flat output does not keep hit ids or the spill id, so hit_id and spill are
-999 in the merged tables.

Exit codes:
  0 - Merge complete
  1 - Merge failed (rows out of order, schema mismatch, I/O)
  2 - Command error (bad arguments, input not readable)

Examples:
  ndconvert merge run1.flow.db_hits.db
  ndconvert merge --final-hits run1.flow.db_hits.db run1_final_events.db
  ndconvert merge --dump --format json run1.flow.db_hits.db`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.FinalHits, "final-hits", false, "label merged hits as final hits")

	return cmd
}

// mergeOutputPath returns the default output of merging input: its base
// name with ".db" replaced by MergeSuffix, in the working directory.
func mergeOutputPath(input string) string {
	return strings.TrimSuffix(filepath.Base(input), ".db") + MergeSuffix
}

func runMerge(cmd *cobra.Command, opts *MergeOptions, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	applyCapacities(cmd, opts.RootOptions, &cfg)
	if cmd.Flags().Changed("final-hits") {
		cfg.UseFinalHits = opts.FinalHits
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	input := args[0]
	if _, err := os.Stat(input); err != nil {
		return WrapExitError(ExitCommandError, "input not readable", err)
	}
	target := mergeOutputPath(input)
	if len(args) > 1 {
		target = args[1]
	}
	if !opts.Dump && filepath.Clean(target) == filepath.Clean(input) {
		return NewExitError(ExitCommandError, "output must differ from input")
	}

	src, err := sink.OpenSQLite(input)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer src.Close()

	var out sink.Sink
	summaryOut := cmd.OutOrStdout()
	if opts.Dump {
		out = sink.NewText(cmd.OutOrStdout())
		target = "stdout"
		summaryOut = cmd.ErrOrStderr()
	} else {
		logger.Info("opening output", "path", target)
		db, err := sink.OpenSQLite(target)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open output", err)
		}
		out = db
	}

	m, err := pipeline.NewMerger(cfg, out, pipeline.Options{Logger: logger, RunIDs: opts.RunIDs})
	if err != nil {
		out.Close()
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := m.Merge(ctx, src, input)
	if err != nil {
		return WrapExitError(ExitFailure, "merge failed", err)
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
