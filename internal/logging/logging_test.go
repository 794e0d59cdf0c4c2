package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridmeter.log")

	lg, err := New(path, slog.LevelInfo)
	require.NoError(t, err)
	lg.Debug("hidden")
	lg.Info("reading recorded", "subscriber", 7)
	require.NoError(t, lg.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `msg="reading recorded" subscriber=7`)
	assert.NotContains(t, string(data), "hidden")
}

func TestStdoutLogger(t *testing.T) {
	lg, err := New("", slog.LevelWarn)
	require.NoError(t, err)
	assert.NoError(t, lg.Close())

	_, err = New(filepath.Join(t.TempDir(), "missing", "x.log"), slog.LevelInfo)
	assert.Error(t, err)
}
