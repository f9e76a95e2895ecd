package truth

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/flowfile"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/resolve"
	"github.com/roach88/ndconvert/internal/testutil"
)

var wantPromptTruth = []HitTruth{
	{
		Fractions:       []float32{0.75, 0.25},
		PDG:             []int32{13, 2212},
		ParticleID:      []int64{5000001, 5000002},
		ParticleIDLocal: []int64{1, 2},
		VertexID:        []int64{5000000123, 5000000123},
		SegmentID:       []int64{0, 1},
	},
	{
		Fractions:       []float32{1},
		PDG:             []int32{11},
		ParticleID:      []int64{5000003},
		ParticleIDLocal: []int64{3},
		VertexID:        []int64{42},
		SegmentID:       []int64{2},
	},
	sentinelTruth(),
}

func TestAggregate_BothSourcesAgree(t *testing.T) {
	for _, src := range []resolve.Source{resolve.Packets, resolve.Backtrack} {
		t.Run(src.String(), func(t *testing.T) {
			agg := NewAggregator(resolve.New(testutil.SampleFlow()), src)

			got, err := agg.Aggregate(context.Background(), []int64{10, 11, 12}, record.Prompt)
			require.NoError(t, err)
			if diff := cmp.Diff(wantPromptTruth, got); diff != "" {
				t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
			}
			require.NoError(t, CheckAligned(got))
		})
	}
}

func TestAggregate_SentinelIsOneEntryPerColumn(t *testing.T) {
	agg := NewAggregator(resolve.New(testutil.SampleFlow()), resolve.Backtrack)

	got, err := agg.Aggregate(context.Background(), []int64{40, 41}, record.Prompt)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, h := range got {
		assert.True(t, h.IsSentinel())
		for _, c := range h.Columns() {
			assert.Equal(t, 1, c.Len(), c.Name)
		}
		assert.Equal(t, []int64{-999}, h.SegmentID)
		assert.Equal(t, []float32{-999}, h.Fractions)
	}
}

func TestAggregate_FractionsNotRenormalized(t *testing.T) {
	m := testutil.SampleFlow().
		Link(record.Final.Table(), record.Final.BacktrackTable(), 99, 99).
		AddFractions(record.Final.BacktrackTable(),
			flowfile.FractionRow{ID: 99, SegmentIDs: []int64{0, 2, 1}, Fractions: []float32{0.25, 0.25, 0}})

	agg := NewAggregator(resolve.New(m), resolve.Backtrack)
	got, err := agg.Aggregate(context.Background(), []int64{99}, record.Final)
	require.NoError(t, err)
	// (1, 0) is a real segment with zero contribution: dropped
	assert.Equal(t, []float32{0.25, 0.25}, got[0].Fractions)
	assert.Equal(t, []int64{0, 2}, got[0].SegmentID)
}

func TestAggregate_UnknownRelationPropagates(t *testing.T) {
	m := flowfile.NewMemory()
	agg := NewAggregator(resolve.New(m), resolve.Backtrack)

	_, err := agg.Aggregate(context.Background(), []int64{1}, record.Prompt)
	require.Error(t, err)
	assert.True(t, flowfile.IsUnknownRelation(err))
}

func TestFlatten(t *testing.T) {
	f := Flatten(wantPromptTruth)

	assert.Equal(t, []uint16{2, 1, 1}, f.Matches)
	assert.Equal(t, []float32{0.75, 0.25, 1, -999}, f.Fractions)
	assert.Equal(t, []int32{13, 2212, 11, -999}, f.PDG)
	assert.Equal(t, []int64{0, 1, 2, -999}, f.SegmentID)

	total := 0
	for _, m := range f.Matches {
		total += int(m)
	}
	assert.Equal(t, len(f.Fractions), total)
}

func TestCheckAligned_Mismatch(t *testing.T) {
	bad := []HitTruth{{Fractions: []float32{1, 2}, PDG: []int32{1}}}
	err := CheckAligned(bad)
	require.Error(t, err)
	assert.True(t, column.IsAlignment(err))
}

func TestRegroup_InvertsFlatten(t *testing.T) {
	got, err := Regroup(Flatten(wantPromptTruth))
	require.NoError(t, err)
	if diff := cmp.Diff(wantPromptTruth, got); diff != "" {
		t.Errorf("regrouped truth mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, got[2].IsSentinel())
}

func TestRegroup_ZeroMatchesIsEmptyHit(t *testing.T) {
	f := Flatten(wantPromptTruth[:2])
	f.Matches = []uint16{0, 2, 1}

	got, err := Regroup(f)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].Len())
	assert.Equal(t, []float32{0.75, 0.25}, got[1].Fractions)
	assert.Equal(t, []int64{2}, got[2].SegmentID)
}

func TestRegroup_MatchSumMismatch(t *testing.T) {
	f := Flatten(wantPromptTruth)
	f.Matches[0] = 3

	_, err := Regroup(f)
	require.Error(t, err)
	assert.True(t, column.IsAlignment(err))
}

func TestRegroup_RaggedColumns(t *testing.T) {
	f := Flatten(wantPromptTruth)
	f.PDG = f.PDG[:2]

	_, err := Regroup(f)
	require.Error(t, err)
	assert.True(t, column.IsAlignment(err))
}
