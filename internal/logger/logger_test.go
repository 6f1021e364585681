package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesLevelFiles(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLogger(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Info("frame %d sent", 1)
	l.Warning("detector slow")
	l.Error("boom: %v", "x")

	info, err := os.ReadFile(FilePath(dir, LevelInfo))
	require.NoError(t, err)
	assert.Contains(t, string(info), "frame 1 sent")
	assert.Contains(t, string(info), "logger_test.go")

	errs, err := os.ReadFile(FilePath(dir, LevelError))
	require.NoError(t, err)
	assert.Contains(t, string(errs), "boom: x")
	assert.NotContains(t, string(errs), "frame 1 sent")
}

func TestCleanLogs(t *testing.T) {
	dir := t.TempDir()

	l, err := NewLogger(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Warning("something")
	require.NoError(t, l.CleanLogs(LevelWarning))

	data, err := os.ReadFile(FilePath(dir, LevelWarning))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored")
	assert.NoError(t, l.CleanLogs(LevelInfo))
	assert.NoError(t, l.Close())
}
