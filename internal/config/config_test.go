package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "git", cfg.GitBin)
	assert.Equal(t, "pdflatex", cfg.Compile.DefaultEngine)
	assert.Equal(t, 5*time.Minute, cfg.Compile.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("explicit file overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
root: /srv/vellum
db_path: /srv/vellum/index.db
compile:
  default_engine: xelatex
  timeout: 90s
log:
  level: debug
watch: true
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/vellum", cfg.Root)
		assert.Equal(t, "/srv/vellum/index.db", cfg.DBPath)
		assert.Equal(t, "git", cfg.GitBin, "unset keys keep defaults")
		assert.Equal(t, "xelatex", cfg.Compile.DefaultEngine)
		assert.Equal(t, 90*time.Second, cfg.Compile.Timeout)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Watch)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid log level is rejected", func(t *testing.T) {
		path := writeConfig(t, "log:\n  level: loud\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "log level")
	})

	t.Run("negative timeout is rejected", func(t *testing.T) {
		path := writeConfig(t, "compile:\n  timeout: -1s\n")
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Root = ""
	require.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.DBPath = ""
	require.Error(t, cfg.Validate())
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vellum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}
