package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFlat converts the sample into a flat output with small chunks.
func writeFlat(t *testing.T) string {
	t.Helper()
	output := filepath.Join(t.TempDir(), "sample_hits.db")
	cmd, _, _ := newTestCommand("--capacity", "2", writeSample(t), "0", "0", output)
	require.NoError(t, cmd.Execute())
	return output
}

func TestMergeOutputPath(t *testing.T) {
	assert.Equal(t, "run1.flow.db_hits_events.db", mergeOutputPath("dir/run1.flow.db_hits.db"))
	assert.Equal(t, "flat.out_events.db", mergeOutputPath("flat.out"))
}

func TestMerge_WritesEvents(t *testing.T) {
	input := writeFlat(t)
	output := filepath.Join(t.TempDir(), "merged.db")

	cmd, out, _ := newTestCommand("merge", input, output)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Converted 2 events from 1 files into "+output)
	assert.Contains(t, out.String(), "Tables: events, mc_particles, mc_interactions")

	db, err := sql.Open("sqlite3", output)
	require.NoError(t, err)
	defer db.Close()

	var rows, sentinel int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM events").Scan(&rows))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM events WHERE hit_id = -999").Scan(&sentinel))
	assert.Equal(t, 5, rows)
	assert.Equal(t, rows, sentinel)

	var mode, runID string
	require.NoError(t, db.QueryRow("SELECT mode, run_id FROM ndconvert_runs").Scan(&mode, &runID))
	assert.Equal(t, "nested", mode)
	assert.Equal(t, testRunID, runID)
}

func TestMerge_DumpJSONSummary(t *testing.T) {
	input := writeFlat(t)

	cmd, out, errOut := newTestCommand("merge", "--dump", "--format", "json", "--final-hits", input)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "# table events")

	var summary Summary
	lines := bytes.Split(bytes.TrimSpace(errOut.Bytes()), []byte("\n"))
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &summary))
	assert.Equal(t, "stdout", summary.Output)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, []string{"events", "mc_particles", "mc_interactions"}, summary.Tables)
}

func TestMerge_CommandErrors(t *testing.T) {
	input := writeFlat(t)

	cases := map[string][]string{
		"missing input":  {"merge", filepath.Join(t.TempDir(), "missing.db")},
		"same output":    {"merge", input, input},
		"invalid format": {"merge", "--format", "xml", input},
		"no input":       {"merge"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			cmd, _, _ := newTestCommand(args...)
			err := cmd.Execute()
			require.Error(t, err)
			if name != "no input" {
				assert.Equal(t, ExitCommandError, GetExitCode(err))
			}
		})
	}
}

func TestMerge_NotAFlatOutput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "nested.db")
	cmd, _, _ := newTestCommand("--mode", "nested", writeSample(t), "0", "0", output)
	require.NoError(t, cmd.Execute())

	cmd, _, _ = newTestCommand("merge", output, filepath.Join(t.TempDir(), "merged.db"))
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "table subevents not found")
}
