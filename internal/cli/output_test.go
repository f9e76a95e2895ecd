package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad args")))

	wrapped := WrapExitError(ExitFailure, "run failed", errors.New("disk full"))
	assert.Equal(t, "run failed: disk full", wrapped.Error())
	assert.Equal(t, "disk full", errors.Unwrap(wrapped).Error())
}

func TestOutputFormatter_TextSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	err := f.Summary(Summary{
		Output: "in.h5_hits.db", Files: 1, Events: 4, Written: 2, Batches: 2,
		Skipped: map[string]int{"empty_event": 1, "insufficient_hits": 1},
	})
	require.NoError(t, err)
	assert.Equal(t,
		"Converted 4 events from 1 files into in.h5_hits.db (2 written, 2 skipped, 2 batches)\n",
		buf.String())
}

func TestOutputFormatter_TextSummaryListsTables(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Summary(Summary{
		Output: "out.db", Files: 1, Events: 2, Written: 2, Batches: 3,
		Tables: []string{"events", "mc_particles"},
	}))
	assert.Equal(t,
		"Converted 2 events from 1 files into out.db (2 written, 0 skipped, 3 batches)\nTables: events, mc_particles\n",
		buf.String())
}

func TestOutputFormatter_JSONSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Summary(Summary{RunID: "r1", Events: 3, Tables: []string{"subevents"}, Skipped: map[string]int{}}))

	var got Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, 3, got.Events)
	assert.Equal(t, []string{"subevents"}, got.Tables)
}
