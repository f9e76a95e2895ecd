package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/config"
	"github.com/roach88/ndconvert/internal/flowfile"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/resolve"
	"github.com/roach88/ndconvert/internal/schema"
	"github.com/roach88/ndconvert/internal/sink"
	"github.com/roach88/ndconvert/internal/truth"
)

// Opener opens one input file as a flow store.
type Opener func(ctx context.Context, path string) (flowfile.Store, error)

// Options holds optional collaborators. Zero values pick the defaults.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// RunIDs defaults to UUIDv7Generator.
	RunIDs RunIDGenerator
}

// Stats summarizes a run.
type Stats struct {
	RunID   string
	Files   int
	Events  int
	Written int
	Batches int
	// Tables lists the output tables written, in creation order.
	Tables  []string
	Skipped map[string]int
}

// SkippedTotal returns the number of skipped events.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Controller runs one conversion. It is not reusable: Run closes the sink.
type Controller struct {
	cfg     config.Config
	mode    schema.Mode
	kinds   []record.HitKind
	source  resolve.Source
	builder *schema.Builder
	open    Opener
	writer  *sink.Writer
	runIDs  RunIDGenerator
	logger  *slog.Logger
	printer *message.Printer
}

// New consumes cfg and prepares a run writing to s. open defaults to
// flowfile.Open. If New fails the caller still owns s; otherwise the
// Controller does and Run closes it.
func New(cfg config.Config, open Opener, s sink.Sink, opts Options) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := cfg.OutputMode()
	if err != nil {
		return nil, err
	}
	source, err := cfg.Source()
	if err != nil {
		return nil, err
	}
	order, err := cfg.HitKinds()
	if err != nil {
		return nil, err
	}
	builder, err := schema.NewBuilder(schema.Options{
		Mode:     mode,
		IsData:   cfg.IsData,
		Capacity: cfg.ChunkCapacity(),
		HitOrder: order,
	})
	if err != nil {
		return nil, err
	}

	kinds := []record.HitKind{cfg.HitKind()}
	if mode == schema.Nested {
		kinds = builder.HitOrder()
	}

	if open == nil {
		open = flowfile.Open
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RunIDs == nil {
		opts.RunIDs = UUIDv7Generator{}
	}

	return &Controller{
		cfg:     cfg,
		mode:    mode,
		kinds:   kinds,
		source:  source,
		builder: builder,
		open:    open,
		writer:  sink.NewWriter(s),
		runIDs:  opts.RunIDs,
		logger:  opts.Logger,
		printer: message.NewPrinter(language.English),
	}, nil
}

// Columns returns the main table's column set for this run.
func (c *Controller) Columns() []column.Def {
	return c.builder.Columns()
}

// Run converts files in order into the sink and closes it, whatever the
// outcome. On success the run is recorded in sinks that keep run records.
func (c *Controller) Run(ctx context.Context, files []string) (stats Stats, err error) {
	stats = Stats{RunID: c.runIDs.Generate(), Skipped: map[string]int{}}
	defer func() {
		if cerr := c.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
	}()

	c.logger.Info("run starting",
		"run_id", stats.RunID,
		"files", len(files),
		"mode", c.mode.String(),
		"is_data", c.cfg.IsData,
		"truth_source", c.source.String(),
		"capacity", c.cfg.ChunkCapacity(),
		"workers", c.cfg.Workers,
	)

	for i, path := range files {
		c.logger.Info("processing file", "file", path, "index", i+1, "of", len(files))
		if err := c.runFile(ctx, path, &stats); err != nil {
			stats.Batches, stats.Tables = c.writer.Batches(), c.writer.Tables()
			return stats, err
		}
	}
	stats.Batches, stats.Tables = c.writer.Batches(), c.writer.Tables()

	if err := c.writer.RecordRun(ctx, sink.RunInfo{
		ID:      stats.RunID,
		Inputs:  files,
		Mode:    c.mode.String(),
		IsData:  c.cfg.IsData,
		Events:  stats.Events,
		Written: stats.Written,
		Skipped: stats.Skipped,
		Batches: stats.Batches,
	}); err != nil {
		return stats, fmt.Errorf("record run: %w", err)
	}

	c.logger.Info("run complete",
		"run_id", stats.RunID,
		"events", stats.Events,
		"written", stats.Written,
		"skipped", stats.SkippedTotal(),
		"batches", stats.Batches,
		"tables", stats.Tables,
	)
	return stats, nil
}

func (c *Controller) runFile(ctx context.Context, path string, stats *Stats) error {
	st, err := c.open(ctx, path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			c.logger.Error("error closing input", "file", path, "error", cerr)
		}
	}()

	events, err := st.Events(ctx)
	if err != nil {
		return fmt.Errorf("read events of %s: %w", path, err)
	}
	stats.Files++

	p := c.newProcessor(st)
	emit := func(i int, ev record.Event, res result) error {
		c.progress(i, len(events))
		return c.emit(ctx, ev, res, stats)
	}
	if c.cfg.Workers > 1 {
		return c.runWindows(ctx, p, events, emit)
	}
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		batches, err := p.event(ctx, ev)
		if err := emit(i, ev, result{batches: batches, err: err}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) progress(i, n int) {
	if i%c.cfg.ProgressEvery != 0 {
		return
	}
	c.logger.Info("progress", "event", c.printer.Sprintf("%d", i), "of", c.printer.Sprintf("%d", n))
}

func (c *Controller) emit(ctx context.Context, ev record.Event, res result, stats *Stats) error {
	return emitEvent(ctx, c.writer, c.logger, ev, res, stats)
}

// emitEvent writes one event's batches or accounts for its skip.
func emitEvent(ctx context.Context, w *sink.Writer, logger *slog.Logger, ev record.Event, res result, stats *Stats) error {
	stats.Events++
	if res.err != nil {
		reason, ok := SkipReason(res.err)
		if !ok {
			return res.err
		}
		stats.Skipped[reason]++
		if reason == ReasonMisaligned {
			logger.Error("skipping event", "event", ev.ID, "reason", reason, "error", res.err)
		} else {
			logger.Debug("skipping event", "event", ev.ID, "reason", reason)
		}
		return nil
	}

	for _, b := range res.batches {
		if err := w.Write(ctx, b); err != nil {
			return fmt.Errorf("event %d: %w", ev.ID, err)
		}
	}
	stats.Written++
	return nil
}

// result is the outcome of one event.
type result struct {
	batches []*column.Batch
	err     error
}

// processor converts events of one store. agg and spill are nil in data
// mode.
type processor struct {
	res     *resolve.Resolver
	agg     *truth.Aggregator
	spill   *truth.SpillExtractor
	kinds   []record.HitKind
	builder *schema.Builder
	logger  *slog.Logger
}

func (c *Controller) newProcessor(st flowfile.Store) *processor {
	p := &processor{
		res:     resolve.New(st),
		kinds:   c.kinds,
		builder: c.builder,
		logger:  c.logger,
	}
	if !c.cfg.IsData {
		p.agg = truth.NewAggregator(p.res, c.source)
		p.spill = truth.NewSpillExtractor(st)
	}
	return p
}

func (p *processor) event(ctx context.Context, ev record.Event) ([]*column.Batch, error) {
	rec := schema.Record{Event: ev}
	total := 0
	for _, kind := range p.kinds {
		hits, err := p.res.EventHits(ctx, ev.ID, kind)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
		rec.Blocks = append(rec.Blocks, schema.HitBlock{Kind: kind, Hits: hits})
		total += len(hits)
	}
	if total == 0 {
		return nil, &EmptyEventError{EventID: ev.ID}
	}
	if total < MinHits {
		return nil, &InsufficientHitsError{EventID: ev.ID, Hits: total}
	}

	if p.agg != nil {
		if err := p.attachTruth(ctx, &rec); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
	}
	return p.builder.Build(rec)
}

// attachTruth fills per-hit truth for every block and the spill truth of
// the spill the event's first linked segment belongs to.
func (p *processor) attachTruth(ctx context.Context, rec *schema.Record) error {
	var (
		spillID int64
		found   bool
	)
	for i := range rec.Blocks {
		blk := &rec.Blocks[i]
		ids := hitIDs(blk.Hits)
		truths, err := p.agg.Aggregate(ctx, ids, blk.Kind)
		if err != nil {
			return err
		}
		blk.Truth = truths

		if found {
			continue
		}
		seg, ok, err := p.res.FirstSegment(ctx, ids, blk.Kind, p.agg.Source())
		if err != nil {
			return err
		}
		spillID, found = seg.EventID, ok
	}

	st := truth.SpillTruth{}
	if found {
		var err error
		st, err = p.spill.Extract(ctx, spillID)
		if err != nil {
			return err
		}
		for idx, raws := range truth.CompactCollisions(st.VertexIDs()) {
			p.logger.Warn("compacted vertex index collision",
				"event", rec.Event.ID, "spill", spillID, "index", idx, "vertex_ids", raws)
		}
	} else {
		p.logger.Debug("no truth links, spill truth empty", "event", rec.Event.ID)
	}
	rec.Spill = &st
	return nil
}

func hitIDs(hits []record.Hit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}
