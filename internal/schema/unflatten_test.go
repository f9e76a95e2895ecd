package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndconvert/internal/chunk"
	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/truth"
)

// joinFlat parses every flat batch of one event and joins the windows.
func joinFlat(t *testing.T, batches []*column.Batch) (record.Event, []column.Named) {
	t.Helper()
	var (
		ev     record.Event
		chunks []chunk.Chunk
	)
	for _, bt := range batches {
		row, err := ParseFlatRow(bt)
		require.NoError(t, err)
		ev = row.Event
		chunks = append(chunks, chunk.Chunk{Index: row.Subevent, Cols: row.Cols})
	}
	cols, err := chunk.Join(chunks)
	require.NoError(t, err)
	return ev, cols
}

func TestParseFlatRow(t *testing.T) {
	b := newBuilder(t, Options{Mode: Flat, IsData: true, Capacity: 2})
	batches, err := b.Build(Record{
		Event:  record.Event{ID: 9, TsStart: 1, TsEnd: 2, UnixTs: 3},
		Blocks: []HitBlock{{Kind: record.Prompt, Hits: hits(1, 2, 3)}},
	})
	require.NoError(t, err)
	require.Len(t, batches, 2)

	row, err := ParseFlatRow(batches[1])
	require.NoError(t, err)
	assert.Equal(t, record.Event{ID: 9, TsStart: 1, TsEnd: 2, UnixTs: 3}, row.Event)
	assert.Equal(t, 1, row.Subevent)
	assert.False(t, row.HasTruth())
	require.Len(t, row.Cols, 6)
	assert.Equal(t, "x", row.Cols[0].Name)
	assert.Equal(t, column.Vec[float32]{3}, row.Cols[0].Array)
}

func TestParseFlatRow_Errors(t *testing.T) {
	b := newBuilder(t, Options{Mode: Flat, IsData: true, Capacity: 10})
	batches, err := b.Build(Record{Blocks: []HitBlock{{Hits: hits(1)}}})
	require.NoError(t, err)
	good := batches[0]

	two := &column.Batch{Table: SubeventsTable, Cols: make([]column.Named, len(good.Cols))}
	for i, c := range good.Cols {
		joined, err := column.Concat(c.Array, c.Array)
		require.NoError(t, err)
		two.Cols[i] = column.Named{Name: c.Name, Array: joined}
	}
	_, err = ParseFlatRow(two)
	assert.ErrorContains(t, err, "want 1")

	short := &column.Batch{Table: SubeventsTable, Cols: good.Cols[:3]}
	_, err = ParseFlatRow(short)
	assert.ErrorContains(t, err, "at least 7")

	swapped := &column.Batch{Table: SubeventsTable, Cols: append([]column.Named(nil), good.Cols...)}
	swapped.Cols[2], swapped.Cols[3] = swapped.Cols[3], swapped.Cols[2]
	_, err = ParseFlatRow(swapped)
	assert.ErrorContains(t, err, `"unix_ts" where "event" expected`)
}

func TestFlatRecord_InvertsFlatOutput(t *testing.T) {
	b := newBuilder(t, Options{Mode: Flat, Capacity: 2})
	two := truth.HitTruth{
		Fractions:       []float32{0.5, 0.25},
		PDG:             []int32{13, 2212},
		ParticleID:      []int64{100, 101},
		ParticleIDLocal: []int64{0, 1},
		VertexID:        []int64{7, 7},
		SegmentID:       []int64{0, 1},
	}
	rec := Record{
		Event: record.Event{ID: 4, TsStart: 10, TsEnd: 20, UnixTs: 30},
		Blocks: []HitBlock{{
			Kind:  record.Final,
			Hits:  hits(1, 2, 3),
			Truth: []truth.HitTruth{two, oneLink(2), oneLink(3)},
		}},
		Spill: &truth.SpillTruth{
			SpillID: 5,
			Particles: []truth.Particle{
				{ID: 100, PDG: 13, VertexID: 7, VertexIndex: 1, Energy: 0.5, P: [3]float32{1, 2, 3}},
				{ID: 101, PDG: 2212, Mother: 100, VertexID: 7, VertexIndex: 1, End: [3]float32{4, 5, 6}},
				{ID: 102, PDG: 22, VertexID: 7, VertexIndex: 1},
			},
			Interactions: []truth.Interaction{{VertexID: 7, Index: 1, PDG: 14, Energy: 2, Mode: 1, IsCC: true}},
		},
	}
	batches, err := b.Build(rec)
	require.NoError(t, err)
	require.Len(t, batches, 3)

	ev, cols := joinFlat(t, batches)
	got, err := FlatRecord(ev, record.Final, cols, false)
	require.NoError(t, err)

	want := rec
	want.Blocks = []HitBlock{rec.Blocks[0]}
	want.Blocks[0].Hits = hits(1, 2, 3)
	for i := range want.Blocks[0].Hits {
		want.Blocks[0].Hits[i].ID = record.SentinelInt
	}
	spill := *rec.Spill
	spill.SpillID = record.SentinelInt
	want.Spill = &spill

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FlatRecord mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatRecord_DataMode(t *testing.T) {
	b := newBuilder(t, Options{Mode: Flat, IsData: true, Capacity: 2})
	batches, err := b.Build(Record{Event: record.Event{ID: 2}, Blocks: []HitBlock{{Hits: hits(5, 6, 7, 8)}}})
	require.NoError(t, err)

	ev, cols := joinFlat(t, batches)
	got, err := FlatRecord(ev, record.Prompt, cols, true)
	require.NoError(t, err)
	assert.Nil(t, got.Spill)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, record.Prompt, got.Blocks[0].Kind)
	assert.Nil(t, got.Blocks[0].Truth)
	require.Len(t, got.Blocks[0].Hits, 4)
	assert.Equal(t, float32(8), got.Blocks[0].Hits[3].X)
	assert.Equal(t, record.SentinelInt, got.Blocks[0].Hits[3].ID)
}

func TestFlatRecord_MisalignedColumns(t *testing.T) {
	b := newBuilder(t, Options{Mode: Flat, IsData: true, Capacity: 10})
	batches, err := b.Build(Record{Blocks: []HitBlock{{Hits: hits(1, 2)}}})
	require.NoError(t, err)

	_, cols := joinFlat(t, batches)
	cols[1].Array = column.Vec[float32]{1}
	_, err = FlatRecord(record.Event{}, record.Prompt, cols, true)
	require.Error(t, err)
	assert.True(t, column.IsAlignment(err))
}

func TestFlatRecord_MissingTruthColumn(t *testing.T) {
	b := newBuilder(t, Options{Mode: Flat, IsData: true, Capacity: 10})
	batches, err := b.Build(Record{Blocks: []HitBlock{{Hits: hits(1)}}})
	require.NoError(t, err)

	_, cols := joinFlat(t, batches)
	_, err = FlatRecord(record.Event{}, record.Prompt, cols, false)
	assert.ErrorContains(t, err, `missing column "matches"`)
}
