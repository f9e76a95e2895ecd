package schema

import (
	"slices"

	"github.com/roach88/ndconvert/internal/chunk"
	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/truth"
)

// subeventPos is where nested batches carry the chunk index: right after
// the event scalars.
const subeventPos = 6

func (b *Builder) buildNested(rec Record) ([]*column.Batch, error) {
	cols, err := b.nestedArrays(rec)
	if err != nil {
		return nil, err
	}

	chunks, err := chunk.Split(cols, b.opts.Capacity)
	if err != nil {
		return nil, err
	}

	var batches []*column.Batch
	for _, ch := range chunks {
		if chunk.Longest(ch.Cols) == 0 {
			continue
		}
		bt := nestedBatch(ch.Cols, ch.Index)
		if err := bt.Validate(); err != nil {
			return nil, err
		}
		batches = append(batches, bt)
	}

	if !b.opts.IsData && rec.Spill != nil {
		batches = append(batches, spillBatches(rec.Event, *rec.Spill)...)
	}
	return batches, nil
}

// nestedArrays lays out one row per hit, blocks in hit order.
func (b *Builder) nestedArrays(rec Record) ([]column.Named, error) {
	var (
		kinds  []int32
		hits   []record.Hit
		truths []truth.HitTruth
	)
	for _, kind := range b.opts.HitOrder {
		for _, blk := range rec.Blocks {
			if blk.Kind != kind {
				continue
			}
			if !b.opts.IsData {
				if err := checkTruthCount(blk); err != nil {
					return nil, err
				}
				truths = append(truths, blk.Truth...)
			}
			for range blk.Hits {
				kinds = append(kinds, int32(kind))
			}
			hits = append(hits, blk.Hits...)
		}
	}

	n := len(hits)
	ev := rec.Event
	ids := make(column.Vec[int64], n)
	for i, h := range hits {
		ids[i] = h.ID
	}

	cols := []column.Named{
		{Name: "run", Array: repeat[int32](0, n)},
		{Name: "subrun", Array: repeat[int32](0, n)},
		{Name: "event", Array: repeat(ev.ID, n)},
		{Name: "unix_ts", Array: repeat(ev.UnixTs, n)},
		{Name: "event_start_t", Array: repeat(ev.TsStart, n)},
		{Name: "event_end_t", Array: repeat(ev.TsEnd, n)},
		{Name: "hit_kind", Array: column.Vec[int32](kinds)},
		{Name: "hit_id", Array: ids},
	}
	cols = append(cols, hitColumns(hits)...)
	if !b.opts.IsData {
		cols = append(cols, truthLists(truths)...)
	}
	return cols, nil
}

func nestedBatch(cols []column.Named, index int) *column.Batch {
	rows := chunk.Longest(cols)
	bt := column.NewBatch(EventsTable)
	bt.Cols = slices.Clone(cols)
	bt.Cols = slices.Insert(bt.Cols, subeventPos, column.Named{Name: "subevent", Array: repeat(int32(index), rows)})
	return bt
}

func truthLists(ts []truth.HitTruth) []column.Named {
	n := len(ts)
	var (
		frac   = make(column.List[float32], n)
		pid    = make(column.List[int64], n)
		pidLoc = make(column.List[int64], n)
		pdg    = make(column.List[int32], n)
		vtx    = make(column.List[int64], n)
		seg    = make(column.List[int64], n)
	)
	for i, t := range ts {
		frac[i] = t.Fractions
		pid[i] = t.ParticleID
		pidLoc[i] = t.ParticleIDLocal
		pdg[i] = t.PDG
		vtx[i] = t.VertexID
		seg[i] = t.SegmentID
	}
	return []column.Named{
		{Name: "hit_packetFrac", Array: frac},
		{Name: "hit_particleID", Array: pid},
		{Name: "hit_particleIDLocal", Array: pidLoc},
		{Name: "hit_pdg", Array: pdg},
		{Name: "hit_vertexID", Array: vtx},
		{Name: "hit_segmentID", Array: seg},
	}
}

// spillBatches writes spill truth to the companion tables, one row per
// trajectory or vertex, tagged with the event and spill ids. Empty tables
// produce no batch.
func spillBatches(ev record.Event, st truth.SpillTruth) []*column.Batch {
	var out []*column.Batch
	if n := len(st.Particles); n > 0 {
		out = append(out, companion(ParticlesTable, ev.ID, st.SpillID, n, particleColumns(st.Particles)))
	}
	if n := len(st.Interactions); n > 0 {
		out = append(out, companion(InteractionsTable, ev.ID, st.SpillID, n, interactionColumns(st.Interactions)))
	}
	return out
}

func companion(table string, eventID, spillID int64, n int, cols []column.Named) *column.Batch {
	bt := column.NewBatch(table).
		Add("event", repeat(eventID, n)).
		Add("spill", repeat(spillID, n))
	bt.Cols = append(bt.Cols, cols...)
	return bt
}

// ParticleColumns returns the column set of the mc_particles table.
func ParticleColumns() []column.Def {
	return companion(ParticlesTable, 0, 0, 0, particleColumns(nil)).Defs()
}

// InteractionColumns returns the column set of the mc_interactions table.
func InteractionColumns() []column.Def {
	return companion(InteractionsTable, 0, 0, 0, interactionColumns(nil)).Defs()
}
