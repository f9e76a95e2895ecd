package pipeline

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndconvert/internal/column"
	"github.com/roach88/ndconvert/internal/config"
	"github.com/roach88/ndconvert/internal/flowfile"
	"github.com/roach88/ndconvert/internal/record"
	"github.com/roach88/ndconvert/internal/schema"
	"github.com/roach88/ndconvert/internal/sink"
	"github.com/roach88/ndconvert/internal/testutil"
)

// without returns the batches of table with the named columns removed.
func without(mem *sink.Memory, table string, drop ...string) []*column.Batch {
	var out []*column.Batch
	for _, b := range mem.Batches(table) {
		kept := column.NewBatch(b.Table)
		for _, c := range b.Cols {
			if !slices.Contains(drop, c.Name) {
				kept.Cols = append(kept.Cols, c)
			}
		}
		out = append(out, kept)
	}
	return out
}

func flatRun(t *testing.T, cfg config.Config) *sink.Memory {
	t.Helper()
	mem := sink.NewMemory()
	_, err := newController(t, cfg, sampleOpener, mem).Run(context.Background(), []string{"sample"})
	require.NoError(t, err)
	return mem
}

func newMerger(t *testing.T, cfg config.Config, s sink.Sink) *Merger {
	t.Helper()
	m, err := NewMerger(cfg, s, testOptions())
	require.NoError(t, err)
	return m
}

func TestMerge_MatchesNestedRun(t *testing.T) {
	for _, final := range []bool{false, true} {
		t.Run(map[bool]string{false: "prompt", true: "final"}[final], func(t *testing.T) {
			cfg := config.Default()
			cfg.Capacity = 2
			cfg.UseFinalHits = final
			cfg.TruthSource = "packet"

			flat := flatRun(t, cfg)

			merged := sink.NewMemory()
			stats, err := newMerger(t, cfg, merged).Merge(context.Background(), flat, "sample_hits.db")
			require.NoError(t, err)

			nestedCfg := cfg
			nestedCfg.Mode = "nested"
			nestedCfg.HitOrder = []string{cfg.HitKind().String()}
			nested := sink.NewMemory()
			want, err := newController(t, nestedCfg, sampleOpener, nested).Run(context.Background(), []string{"sample"})
			require.NoError(t, err)

			require.Greater(t, len(flat.Batches(schema.SubeventsTable)), want.Written, "events span several sub-events")
			assert.Equal(t, want.Written, stats.Written)
			assert.Equal(t, stats.Written, stats.Events)
			assert.Empty(t, stats.Skipped)
			assert.Equal(t, nested.Tables(), merged.Tables())
			assert.Equal(t, want.Tables, stats.Tables)
			assert.Equal(t, nested.Columns(schema.EventsTable), merged.Columns(schema.EventsTable))

			for table, drop := range map[string]string{
				schema.EventsTable:       "hit_id",
				schema.ParticlesTable:    "spill",
				schema.InteractionsTable: "spill",
			} {
				if diff := cmp.Diff(without(nested, table, drop), without(merged, table, drop), cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("%s mismatch (-nested +merged):\n%s", table, diff)
				}
			}

			for _, b := range merged.Batches(schema.EventsTable) {
				for _, c := range b.Cols {
					if c.Name == "hit_id" {
						assert.Equal(t, record.SentinelInt, c.At(0))
					}
				}
			}
		})
	}
}

func TestMerge_DataMode(t *testing.T) {
	cfg := config.Default()
	cfg.IsData = true
	cfg.DataCapacity = 1
	flat := flatRun(t, cfg)

	merged := sink.NewMemory()
	stats, err := newMerger(t, cfg, merged).Merge(context.Background(), flat, "sample_hits.db")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, []string{schema.EventsTable}, merged.Tables())
	assert.Equal(t, []int64{testutil.EventFull, testutil.EventFull, testutil.EventFull, testutil.EventNoTruth, testutil.EventNoTruth},
		eventIDs(t, merged.Batches(schema.EventsTable)))
	for _, d := range merged.Columns(schema.EventsTable) {
		assert.NotEqual(t, "hit_packetFrac", d.Name)
	}
	require.Len(t, merged.Runs(), 1)
	assert.True(t, merged.Runs()[0].IsData)
	assert.Equal(t, "nested", merged.Runs()[0].Mode)
	assert.Equal(t, 1, merged.Closes())
}

func TestMerge_OutOfOrderSubeventsAbort(t *testing.T) {
	cfg := config.Default()
	cfg.Capacity = 2
	flat := flatRun(t, cfg)

	batches := flat.Batches(schema.SubeventsTable)
	shuffled := sink.NewMemory()
	w := sink.NewWriter(shuffled)
	ctx := context.Background()
	require.NoError(t, w.Write(ctx, batches[1]))
	require.NoError(t, w.Write(ctx, batches[0]))

	merged := sink.NewMemory()
	_, err := newMerger(t, cfg, merged).Merge(ctx, shuffled, "shuffled")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of order")
	assert.Equal(t, 1, merged.Closes())
	assert.Empty(t, merged.Runs())
}

func TestMerge_MisalignedEventIsSkipped(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	flat := flatRun(t, cfg)

	broken := sink.NewMemory()
	w := sink.NewWriter(broken)
	for i, b := range flat.Batches(schema.SubeventsTable) {
		if i == 0 {
			b = b.Row(0)
			for k, c := range b.Cols {
				if c.Name == "matches" {
					b.Cols[k].Array = column.List[uint16]{{1}}
				}
			}
		}
		require.NoError(t, w.Write(ctx, b))
	}

	merged := sink.NewMemory()
	stats, err := newMerger(t, cfg, merged).Merge(ctx, broken, "broken")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Events)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, map[string]int{ReasonMisaligned: 1}, stats.Skipped)
}

func TestMerge_MissingSubevents(t *testing.T) {
	merged := sink.NewMemory()
	_, err := newMerger(t, config.Default(), merged).Merge(context.Background(), sink.NewMemory(), "empty")
	assert.ErrorContains(t, err, "table subevents not found")
	assert.Equal(t, 1, merged.Closes())
}

func TestMerge_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input := filepath.Join(dir, "sample.flow.db")
	require.NoError(t, flowfile.WriteSQLite(ctx, input, testutil.SampleFlow()))

	cfg := config.Default()
	cfg.Capacity = 2
	flatOut, err := sink.OpenSQLite(filepath.Join(dir, "flat.db"))
	require.NoError(t, err)
	_, err = newController(t, cfg, nil, flatOut).Run(ctx, []string{input})
	require.NoError(t, err)

	src, err := sink.OpenSQLite(filepath.Join(dir, "flat.db"))
	require.NoError(t, err)
	defer src.Close()
	merged := sink.NewMemory()
	stats, err := newMerger(t, cfg, merged).Merge(ctx, src, "flat.db")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Written)

	fromMemory := sink.NewMemory()
	_, err = newMerger(t, cfg, fromMemory).Merge(ctx, flatRun(t, cfg), "flat")
	require.NoError(t, err)
	if diff := cmp.Diff(fromMemory.Batches(schema.EventsTable), merged.Batches(schema.EventsTable), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("events read back from SQLite differ (-memory +sqlite):\n%s", diff)
	}
}
