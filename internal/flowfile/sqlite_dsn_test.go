package flowfile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowDSN(t *testing.T) {
	dir := t.TempDir()
	dsn, err := flowDSN(filepath.Join(dir, "a?b#c.db"), "ro")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(dsn, "file:///"), dsn)
	assert.True(t, strings.HasSuffix(dsn, "/a%3Fb%23c.db?mode=ro"), dsn)
	assert.Equal(t, 1, strings.Count(dsn, "?"))
	assert.NotContains(t, dsn, "#")
}

func TestFlowDSN_RelativePathIsAbsolute(t *testing.T) {
	dsn, err := flowDSN("in.flow.db", "rwc")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:///"), dsn)
	assert.True(t, strings.HasSuffix(dsn, "/in.flow.db?mode=rwc"), dsn)
}
