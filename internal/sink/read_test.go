package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndconvert/internal/column"
)

func typedBatch(table string) *column.Batch {
	return column.NewBatch(table).
		Add("i32", column.Vec[int32]{-1, 2}).
		Add("i64", column.Vec[int64]{5000000123, 0}).
		Add("f32", column.Vec[float32]{0.1, -999}).
		Add("u16", column.Vec[uint16]{3, 65535}).
		Add("l32", column.List[int32]{{13, 2212}, {}}).
		Add("l64", column.List[int64]{{-999}, {1, 2, 3}}).
		Add("lf", column.List[float32]{{0.25, 1e-7}, {}}).
		Add("lu", column.List[uint16]{{2}, {0}})
}

func collect(t *testing.T, sc Scanner, table string) []*column.Batch {
	t.Helper()
	var rows []*column.Batch
	err := sc.Scan(context.Background(), table, func(b *column.Batch) error {
		rows = append(rows, b)
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestSQLite_ScanReadsBackWrittenRows(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSQLite(t)
	w := NewWriter(s)
	want := typedBatch("t")
	require.NoError(t, w.Write(ctx, want))

	rows := collect(t, s, "t")
	require.Len(t, rows, 2)
	for r, got := range rows {
		assert.Equal(t, want.Defs(), got.Defs())
		assert.Equal(t, want.Row(r), got, "row %d", r)
	}
}

func TestSQLite_ScanUnknownTable(t *testing.T) {
	s, _ := openTestSQLite(t)
	err := s.Scan(context.Background(), "nope", func(*column.Batch) error { return nil })
	assert.ErrorContains(t, err, "table nope not found")
}

func TestSQLite_ScanStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestSQLite(t)
	require.NoError(t, NewWriter(s).Write(ctx, typedBatch("t")))

	stop := errors.New("stop")
	calls := 0
	err := s.Scan(ctx, "t", func(*column.Batch) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestMemory_ScanAfterClose(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	w := NewWriter(mem)
	require.NoError(t, w.Write(ctx, sampleBatch("t")))
	require.NoError(t, w.Write(ctx, sampleBatch("t")))
	require.NoError(t, w.Close())

	rows := collect(t, mem, "t")
	require.Len(t, rows, 4)
	assert.Equal(t, sampleBatch("t").Row(1), rows[3])

	err := mem.Scan(ctx, "missing", func(*column.Batch) error { return nil })
	assert.Error(t, err)
}

func TestWriter_TablesInCreationOrder(t *testing.T) {
	ctx := context.Background()
	w := NewWriter(NewMemory())
	assert.Empty(t, w.Tables())
	for _, table := range []string{"events", "mc_particles", "events", "mc_interactions", "b"} {
		require.NoError(t, w.Write(ctx, sampleBatch(table)))
	}
	assert.Equal(t, []string{"events", "mc_particles", "mc_interactions", "b"}, w.Tables())
}
