package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CODESYNC_TOKEN", "us_secret")
	t.Setenv("CODESYNC_ORGANIZATION_ID", "org-1")
	t.Setenv("CODESYNC_PROJECT_ID", "proj-1")
	t.Setenv("CODESYNC_WORKSPACE", "/workspace/repo")
}

func TestLoad_EnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "us_secret", cfg.Token)
	assert.Equal(t, "org-1", cfg.OrganizationID)
	assert.Equal(t, "proj-1", cfg.ProjectID)
	assert.Equal(t, "/workspace/repo", cfg.Workspace)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunking.MaxChars)
	assert.Equal(t, 200, cfg.Chunking.MinChars)
	assert.Equal(t, 5, cfg.Chunking.OverlapLines)
	assert.Equal(t, 30, cfg.Remote.TimeoutSeconds)
	assert.Equal(t, 60, cfg.Remote.BatchSize)
	assert.Equal(t, 3, cfg.Remote.MaxRetries)
	assert.Equal(t, 500, cfg.Remote.RetryBaseMs)
	assert.Equal(t, 10, cfg.Scan.Concurrency)
	assert.Equal(t, 100, cfg.Scan.FlushEvery)
	assert.Equal(t, 500, cfg.Watch.DebounceMs)
	assert.True(t, cfg.Watch.Enabled, "watcher is on by default")
	assert.Contains(t, cfg.Scan.Extensions, ".go")
	assert.Contains(t, cfg.Scan.Extensions, ".ts")
	assert.Contains(t, cfg.Scan.ExcludeGlobs, "node_modules/**")
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CODESYNC_REMOTE_BATCH_SIZE", "25")
	t.Setenv("CODESYNC_SCAN_CONCURRENCY", "3")
	t.Setenv("CODESYNC_WATCH_ENABLED", "false")
	t.Setenv("CODESYNC_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Remote.BatchSize)
	assert.Equal(t, 3, cfg.Scan.Concurrency)
	assert.False(t, cfg.Watch.Enabled, "explicit setting turns the watcher off")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
chunking:
  max_chars: 800
  min_chars: 150
watch:
  debounce_ms: 250
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.MaxChars)
	assert.Equal(t, 150, cfg.Chunking.MinChars)
	assert.Equal(t, 250, cfg.Watch.DebounceMs)
	assert.Equal(t, 5, cfg.Chunking.OverlapLines, "unset fields keep defaults")
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CODESYNC_CHUNKING_MAX_CHARS", "2000")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  max_chars: 800\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.Chunking.MaxChars)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "us_secret", cfg.Token)
}

func TestLoad_ValidationFailures(t *testing.T) {
	t.Setenv("CODESYNC_ORGANIZATION_ID", "org-1")
	t.Setenv("CODESYNC_PROJECT_ID", "proj-1")
	t.Setenv("CODESYNC_WORKSPACE", "/workspace/repo")
	// Token deliberately unset.

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestValidate_RelativeWorkspace(t *testing.T) {
	cfg := &Config{
		Token:          "t",
		OrganizationID: "o",
		ProjectID:      "p",
		Workspace:      "relative/path",
	}
	applyDefaults(cfg)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")
}

func TestValidate_ChunkingBounds(t *testing.T) {
	cfg := &Config{
		Token:          "t",
		OrganizationID: "o",
		ProjectID:      "p",
		Workspace:      "/ws",
		Chunking:       ChunkingConfig{MaxChars: 100, MinChars: 500, OverlapLines: 5},
	}
	applyDefaults(cfg)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_chars")
}

func TestTransformEnvKey(t *testing.T) {
	cases := map[string]string{
		"CODESYNC_TOKEN":              "token",
		"CODESYNC_WORKSPACE":          "workspace",
		"CODESYNC_ORGANIZATION_ID":    "organization_id",
		"CODESYNC_PROJECT_ID":         "project_id",
		"CODESYNC_STORAGE_DIR":        "storage_dir",
		"CODESYNC_LOG_LEVEL":          "log.level",
		"CODESYNC_REMOTE_BATCH_SIZE":  "remote.batch_size",
		"CODESYNC_WATCH_ENABLED":      "watch.enabled",
		"CODESYNC_CHUNKING_MAX_CHARS": "chunking.max_chars",
	}
	for in, want := range cases {
		assert.Equal(t, want, transformEnvKey(in), in)
	}
}
