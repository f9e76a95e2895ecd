package flowfile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndconvert/internal/record"
)

func TestMemory_ChildrenPreservesOrder(t *testing.T) {
	m := NewMemory().
		Link("a", "b", 1, 30, 10, 20).
		Link("a", "b", 1, 5)

	got, err := m.Children(context.Background(), "a", "b", []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{30, 10, 20, 5}, {}}, got)
}

func TestMemory_UnknownRelation(t *testing.T) {
	m := NewMemory().Register("a", "b")

	_, err := m.Children(context.Background(), "b", "a", nil)
	require.Error(t, err)
	assert.True(t, IsUnknownRelation(err))
	assert.Equal(t, "unknown relation b -> a", err.Error())

	got, err := m.Children(context.Background(), "a", "b", []int64{1})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{}}, got)
}

func TestMemory_MissingIDIsNotFound(t *testing.T) {
	m := NewMemory().AddHits("h", record.Hit{ID: 1})
	ctx := context.Background()

	_, err := m.Hits(ctx, "h", []int64{1, 2})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = m.Segments(ctx, []int64{0})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = m.Fractions(ctx, "f", []int64{0})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemory_ChildrenResultIsACopy(t *testing.T) {
	m := NewMemory().Link("a", "b", 1, 10)
	got, err := m.Children(context.Background(), "a", "b", []int64{1})
	require.NoError(t, err)
	got[0][0] = 99

	again, err := m.Children(context.Background(), "a", "b", []int64{1})
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, again[0])
}
