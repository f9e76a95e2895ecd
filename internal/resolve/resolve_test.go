package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndconvert/internal/flowfile"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/testutil"
)

func TestResolve_MultiHopFlattens(t *testing.T) {
	r := New(testutil.SampleFlow())

	got, err := r.Resolve(context.Background(), []int64{10, 11, 12}, HitSegments(record.Prompt))
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{0, 1}, {2}, {}}, got)
}

func TestResolve_MissingLinkIsEmpty(t *testing.T) {
	r := New(testutil.SampleFlow())

	got, err := r.Resolve(context.Background(), []int64{testutil.EventEmpty}, EventHits(record.Prompt))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0])
}

func TestResolve_UnknownRelation(t *testing.T) {
	r := New(testutil.SampleFlow())

	_, err := r.Resolve(context.Background(), []int64{1}, Path{record.EventsTable, "charge/nope"})
	require.Error(t, err)
	assert.True(t, flowfile.IsUnknownRelation(err))
	assert.Contains(t, err.Error(), "charge/events -> charge/nope")
}

func TestResolve_UnknownRelationWithNoFrontier(t *testing.T) {
	r := New(testutil.SampleFlow())

	// hit 12 has no segments, the third hop must still be validated
	_, err := r.Resolve(context.Background(), []int64{12},
		Path{record.Prompt.Table(), record.PacketsTable, record.SegmentsTable, "mc_truth/unknown"})
	assert.True(t, flowfile.IsUnknownRelation(err))
}

func TestResolve_ShortPath(t *testing.T) {
	r := New(testutil.SampleFlow())
	_, err := r.Resolve(context.Background(), []int64{1}, Path{record.EventsTable})
	assert.Error(t, err)
}

func TestEventHits(t *testing.T) {
	r := New(testutil.SampleFlow())

	hits, err := r.EventHits(context.Background(), testutil.EventFull, record.Final)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, int64(20), hits[0].ID)
	assert.Equal(t, int64(21), hits[1].ID)
}

func TestHitLinks_Packets(t *testing.T) {
	r := New(testutil.SampleFlow())

	links, err := r.HitLinks(context.Background(), []int64{10, 11, 12}, record.Prompt, Packets)
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Equal(t, []record.Link{{SegmentID: 0, Fraction: 0.75}, {SegmentID: 1, Fraction: 0.25}},
		record.PresentLinks(links[0]))
	assert.Len(t, links[0], 4, "padding positions are kept as Missing slots")
	assert.Equal(t, []record.Link{{SegmentID: 2, Fraction: 1}}, record.PresentLinks(links[1]))
	assert.Empty(t, record.PresentLinks(links[2]))
}

func TestHitLinks_Backtrack(t *testing.T) {
	r := New(testutil.SampleFlow())

	links, err := r.HitLinks(context.Background(), []int64{20, 21}, record.Final, Backtrack)
	require.NoError(t, err)
	assert.Equal(t, []record.Link{{SegmentID: 1, Fraction: 0.5}}, record.PresentLinks(links[0]))
	assert.Empty(t, record.PresentLinks(links[1]))
}

func TestFirstSegment(t *testing.T) {
	r := New(testutil.SampleFlow())
	ctx := context.Background()

	seg, ok, err := r.FirstSegment(ctx, []int64{12, 11}, record.Prompt, Packets)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), seg.ID)
	assert.Equal(t, testutil.SampleSpill, seg.EventID)

	_, ok, err = r.FirstSegment(ctx, []int64{40, 41}, record.Prompt, Backtrack)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("backtrack")
	require.NoError(t, err)
	assert.Equal(t, Backtrack, s)

	s, err = ParseSource("packet")
	require.NoError(t, err)
	assert.Equal(t, Packets, s)

	_, err = ParseSource("segments")
	assert.Error(t, err)
}
