package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineWriterTruncatesAndTerminates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warnings.log")
	require.NoError(t, os.WriteFile(path, []byte("stale content from a previous run\n"), 0o644))

	lw, err := CreateLineWriter(path)
	require.NoError(t, err)
	require.NoError(t, lw.WriteLine([]byte("one")))
	require.NoError(t, lw.WriteLine([]byte("")))
	require.NoError(t, lw.WriteLine([]byte("three")))
	assert.Equal(t, 3, lw.Lines())
	assert.Equal(t, path, lw.Path())
	require.NoError(t, lw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\n\nthree\n", string(data))
}

func TestCreateLineWriterMissingDir(t *testing.T) {
	_, err := CreateLineWriter(filepath.Join(t.TempDir(), "missing", "x.log"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
