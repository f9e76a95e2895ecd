package schema

import (
	"fmt"

	"github.com/roach88/ndconvert/internal/chunk"
	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/truth"
)

func (b *Builder) buildFlat(rec Record) ([]*column.Batch, error) {
	if len(rec.Blocks) != 1 {
		return nil, fmt.Errorf("flat record has %d hit blocks, want 1", len(rec.Blocks))
	}
	arrays, err := b.flatArrays(rec.Blocks[0], rec.Spill)
	if err != nil {
		return nil, err
	}

	chunks, err := chunk.Split(arrays, b.opts.Capacity)
	if err != nil {
		return nil, err
	}

	batches := make([]*column.Batch, 0, len(chunks))
	for _, ch := range chunks {
		bt := column.NewBatch(SubeventsTable).
			Add("run", column.List[int32]{{0}}).
			Add("subrun", column.List[int32]{{0}}).
			Add("event", column.List[int64]{{rec.Event.ID}}).
			Add("unix_ts", column.List[int64]{{rec.Event.UnixTs}}).
			Add("event_start_t", column.List[int64]{{rec.Event.TsStart}}).
			Add("event_end_t", column.List[int64]{{rec.Event.TsEnd}}).
			Add("subevent", column.List[int32]{{int32(ch.Index)}})
		for _, c := range ch.Cols {
			w, err := column.Wrap(c.Array)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c.Name, err)
			}
			bt.Add(c.Name, w)
		}
		if err := bt.Validate(); err != nil {
			return nil, err
		}
		batches = append(batches, bt)
	}
	return batches, nil
}

// flatArrays returns the event-level arrays in output order: hit
// kinematics, then in MC mode matches, particles, interactions and the
// flattened per-hit truth.
func (b *Builder) flatArrays(blk HitBlock, spill *truth.SpillTruth) ([]column.Named, error) {
	cols := hitColumns(blk.Hits)
	if b.opts.IsData {
		return cols, nil
	}

	if err := checkTruthCount(blk); err != nil {
		return nil, err
	}
	flat := truth.Flatten(blk.Truth)
	hcols := flat.Columns()
	if err := column.CheckAligned("flattened hit truth", hcols...); err != nil {
		return nil, err
	}
	total := 0
	for _, m := range flat.Matches {
		total += int(m)
	}
	if total != flat.Len() {
		return nil, &column.AlignmentError{
			Group:   "matches",
			Lengths: map[string]int{"sum(matches)": total, "hit_packetFrac": flat.Len()},
		}
	}

	var st truth.SpillTruth
	if spill != nil {
		st = *spill
	}

	cols = append(cols, column.Named{Name: "matches", Array: column.Vec[uint16](flat.Matches)})
	cols = append(cols, particleColumns(st.Particles)...)
	cols = append(cols, interactionColumns(st.Interactions)...)
	return append(cols, hcols...), nil
}

func checkTruthCount(blk HitBlock) error {
	if len(blk.Truth) != len(blk.Hits) {
		return &column.AlignmentError{
			Group:   blk.Kind.String() + " hit truth",
			Lengths: map[string]int{"hits": len(blk.Hits), "truth": len(blk.Truth)},
		}
	}
	return truth.CheckAligned(blk.Truth)
}
