package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_CategoryAppearsInOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	t.Cleanup(func() { SetOutput(os.Stderr, slog.LevelInfo) })

	Info(CatGit, "checkout complete", "branch", "main")

	out := buf.String()
	assert.Contains(t, out, "cat=git")
	assert.Contains(t, out, "checkout complete")
	assert.Contains(t, out, "branch=main")
}

func TestLog_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)
	t.Cleanup(func() { SetOutput(os.Stderr, slog.LevelInfo) })

	Debug(CatDB, "should be filtered")
	Warn(CatDB, "should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestLog_ErrorErrIncludesError(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	t.Cleanup(func() { SetOutput(os.Stderr, slog.LevelInfo) })

	ErrorErr(CatCompile, "compile failed", assert.AnError, "job", "j1")

	out := buf.String()
	assert.Contains(t, out, "compile failed")
	assert.Contains(t, out, assert.AnError.Error())
}

func TestInit_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{Level: slog.LevelDebug, LogDir: dir}))
	t.Cleanup(func() {
		_ = Close()
		SetOutput(os.Stderr, slog.LevelInfo)
	})

	Info(CatConfig, "initialized")

	entries, err := filepath.Glob(filepath.Join(dir, "vellum_*.log"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(entries[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "initialized")
}
