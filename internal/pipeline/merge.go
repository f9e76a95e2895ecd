package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ndconvert/internal/chunk"
	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/config"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/schema"
	"github.com/roach88/ndconvert/internal/sink"
)

// Merger reassembles a flat conversion into nested output. The sub-event
// rows of each event are joined back into whole-event arrays and written
// as one row per hit to the events table, with the spill truth moved to
// the companion tables.
//
// Flat output keeps neither hit ids nor the spill id; merged rows carry
// record.SentinelInt in their place.
type Merger struct {
	cfg    config.Config
	kind   record.HitKind
	writer *sink.Writer
	runIDs RunIDGenerator
	logger *slog.Logger

	// Set from the first row read.
	builder *schema.Builder
	isData  bool
}

// NewMerger prepares a merge writing to s. The hits of every event are
// labelled cfg.HitKind(). If NewMerger fails the caller still owns s.
func NewMerger(cfg config.Config, s sink.Sink, opts Options) (*Merger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RunIDs == nil {
		opts.RunIDs = UUIDv7Generator{}
	}
	return &Merger{
		cfg:    cfg,
		kind:   cfg.HitKind(),
		writer: sink.NewWriter(s),
		runIDs: opts.RunIDs,
		logger: opts.Logger,
	}, nil
}

// pending collects the sub-event rows of the event being read.
type pending struct {
	event  record.Event
	chunks []chunk.Chunk
}

// Merge reads the subevents table of src and writes nested batches, then
// closes the output sink. Rows of one event must be contiguous and in
// sub-event order, as a flat run writes them.
func (m *Merger) Merge(ctx context.Context, src sink.Scanner, input string) (stats Stats, err error) {
	stats = Stats{RunID: m.runIDs.Generate(), Files: 1, Skipped: map[string]int{}}
	defer func() {
		if cerr := m.writer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sink: %w", cerr)
		}
	}()

	m.logger.Info("merge starting", "run_id", stats.RunID, "input", input, "hit_kind", m.kind.String())

	var cur *pending
	err = src.Scan(ctx, schema.SubeventsTable, func(b *column.Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := schema.ParseFlatRow(b)
		if err != nil {
			return err
		}
		if err := m.init(row); err != nil {
			return err
		}
		if cur != nil && cur.event.ID != row.Event.ID {
			if err := m.flush(ctx, cur, &stats); err != nil {
				return err
			}
			cur = nil
		}
		if cur == nil {
			cur = &pending{event: row.Event}
		}
		cur.chunks = append(cur.chunks, chunk.Chunk{Index: row.Subevent, Cols: row.Cols})
		return nil
	})
	if err == nil && cur != nil {
		err = m.flush(ctx, cur, &stats)
	}
	stats.Batches, stats.Tables = m.writer.Batches(), m.writer.Tables()
	if err != nil {
		return stats, err
	}

	if err := m.writer.RecordRun(ctx, sink.RunInfo{
		ID:      stats.RunID,
		Inputs:  []string{input},
		Mode:    schema.Nested.String(),
		IsData:  m.isData,
		Events:  stats.Events,
		Written: stats.Written,
		Skipped: stats.Skipped,
		Batches: stats.Batches,
	}); err != nil {
		return stats, fmt.Errorf("record run: %w", err)
	}

	m.logger.Info("merge complete",
		"run_id", stats.RunID,
		"events", stats.Events,
		"written", stats.Written,
		"skipped", stats.SkippedTotal(),
		"batches", stats.Batches,
		"tables", stats.Tables,
	)
	return stats, nil
}

// init creates the builder from the first row, which decides between data
// and MC output. Later rows must agree.
func (m *Merger) init(row schema.FlatRow) error {
	if m.builder != nil {
		if row.HasTruth() == m.isData {
			return fmt.Errorf("event %d: subevents mixes data and MC rows", row.Event.ID)
		}
		return nil
	}

	m.isData = !row.HasTruth()
	capacity := m.cfg.Capacity
	if m.isData {
		capacity = m.cfg.DataCapacity
	}
	b, err := schema.NewBuilder(schema.Options{
		Mode:     schema.Nested,
		IsData:   m.isData,
		Capacity: capacity,
		HitOrder: []record.HitKind{m.kind},
	})
	if err != nil {
		return err
	}
	m.builder = b
	m.logger.Debug("merge output", "is_data", m.isData, "capacity", capacity)
	return nil
}

func (m *Merger) flush(ctx context.Context, p *pending, stats *Stats) error {
	cols, err := chunk.Join(p.chunks)
	if err != nil {
		return fmt.Errorf("event %d: %w", p.event.ID, err)
	}
	rec, err := schema.FlatRecord(p.event, m.kind, cols, m.isData)
	var res result
	if err != nil {
		res.err = fmt.Errorf("event %d: %w", p.event.ID, err)
	} else {
		res.batches, res.err = m.builder.Build(rec)
	}
	return emitEvent(ctx, m.writer, m.logger, p.event, res, stats)
}
