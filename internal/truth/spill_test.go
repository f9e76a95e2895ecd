package truth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndconvert/internal/testutil"
)

func TestExtract_FiltersBySpill(t *testing.T) {
	ex := NewSpillExtractor(testutil.SampleFlow())

	st, err := ex.Extract(context.Background(), testutil.SampleSpill)
	require.NoError(t, err)
	require.Len(t, st.Particles, 3)
	require.Len(t, st.Interactions, 2)

	ids := []int64{st.Particles[0].ID, st.Particles[1].ID, st.Particles[2].ID}
	assert.Equal(t, []int64{5000001, 5000002, 5000003}, ids)

	p := st.Particles[0]
	assert.Equal(t, int64(5000000123), p.VertexID)
	assert.Equal(t, int64(500123), p.VertexIndex)
	assert.InDelta(t, 0.5, p.Energy, 1e-6)
	assert.InDelta(t, 0.1, p.P[0], 1e-6)
	assert.InDelta(t, 0.3, p.P[2], 1e-6)
	assert.Equal(t, [3]float32{1, 2, 3}, p.End)
	assert.Equal(t, int64(-1), p.Mother)

	cc := st.Interactions[0]
	assert.Equal(t, int64(500123), cc.Index)
	assert.Equal(t, ModeQE, cc.Mode)
	assert.True(t, cc.IsCC)
	assert.InDelta(t, 2.0, cc.Energy, 1e-6)

	nc := st.Interactions[1]
	assert.Equal(t, int64(42), nc.Index)
	assert.Equal(t, ModeDIS, nc.Mode)
	assert.False(t, nc.IsCC)
	assert.InDelta(t, 1.0, nc.P[1], 1e-6)
}

func TestExtract_UnknownSpillIsEmpty(t *testing.T) {
	ex := NewSpillExtractor(testutil.SampleFlow())

	st, err := ex.Extract(context.Background(), 12345)
	require.NoError(t, err)
	assert.Empty(t, st.Particles)
	assert.Empty(t, st.Interactions)
}

func TestSpillTruth_VertexIDs(t *testing.T) {
	st, err := NewSpillExtractor(testutil.SampleFlow()).Extract(context.Background(), testutil.SampleSpill)
	require.NoError(t, err)

	assert.Equal(t, []int64{5000000123, 5000000123, 42, 5000000123, 42}, st.VertexIDs())
	assert.Empty(t, CompactCollisions(st.VertexIDs()))
}
