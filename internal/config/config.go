package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the full engine configuration.
type Config struct {
	// Token is the bearer token for the remote indexing service. The
	// token encodes the service region; the base URL is derived from it.
	Token string `koanf:"token"`

	OrganizationID string `koanf:"organization_id"`
	ProjectID      string `koanf:"project_id"`

	// Workspace is the absolute path of the git checkout to index.
	Workspace string `koanf:"workspace"`

	// StorageDir is the host-provided global-storage directory holding
	// the per-branch client cache files. Defaults to
	// ~/.codesync/storage.
	StorageDir string `koanf:"storage_dir"`

	Log      LogConfig      `koanf:"log"`
	Chunking ChunkingConfig `koanf:"chunking"`
	Remote   RemoteConfig   `koanf:"remote"`
	Scan     ScanConfig     `koanf:"scan"`
	Watch    WatchConfig    `koanf:"watch"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ChunkingConfig controls the line chunker.
type ChunkingConfig struct {
	MaxChars     int `koanf:"max_chars"`
	MinChars     int `koanf:"min_chars"`
	OverlapLines int `koanf:"overlap_lines"`
}

// RemoteConfig controls the HTTP client for the indexing service.
type RemoteConfig struct {
	// BaseURL overrides token-derived URL resolution. Normally empty.
	BaseURL string `koanf:"base_url"`

	TimeoutSeconds int `koanf:"timeout_seconds"`

	// BatchSize is the maximum chunks per upsert call.
	BatchSize int `koanf:"batch_size"`

	MaxRetries  int `koanf:"max_retries"`
	RetryBaseMs int `koanf:"retry_base_ms"`

	// RequestsPerSecond smooths upsert bursts against the service. A zero
	// value is replaced by the default (20) when defaults are applied, so
	// rate limiting cannot be turned off through configuration.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// ScanConfig controls the reconciliation pass.
type ScanConfig struct {
	// Concurrency caps simultaneous per-file pipelines.
	Concurrency int `koanf:"concurrency"`

	// FlushEvery flushes the client cache after this many file updates.
	FlushEvery int `koanf:"flush_every"`

	// Extensions is the supported-file allow-list (with leading dots).
	Extensions []string `koanf:"extensions"`

	// ExcludeGlobs are doublestar patterns dropped from enumeration.
	ExcludeGlobs []string `koanf:"exclude_globs"`
}

// WatchConfig controls the filesystem watcher.
type WatchConfig struct {
	Enabled    bool `koanf:"enabled"`
	DebounceMs int  `koanf:"debounce_ms"`
}

// DefaultExtensions is the supported-extension allow-list. It mirrors the
// editor's syntax-targeting set and deliberately excludes binary and
// vendored formats.
var DefaultExtensions = []string{
	".c", ".cc", ".cpp", ".cs", ".css", ".go", ".h", ".hpp", ".html",
	".java", ".js", ".json", ".jsx", ".kt", ".lua", ".md", ".php", ".py",
	".rb", ".rs", ".scala", ".sh", ".sql", ".swift", ".ts", ".tsx",
	".vue", ".yaml", ".yml", ".zig",
}

// DefaultExcludeGlobs drops dependency and build output trees.
var DefaultExcludeGlobs = []string{
	".git/**",
	"node_modules/**",
	"vendor/**",
	"dist/**",
	"build/**",
	"target/**",
	"__pycache__/**",
	".venv/**",
}

// Validate checks that required fields are present and knobs are sane.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("token is required")
	}
	if c.OrganizationID == "" {
		return errors.New("organization_id is required")
	}
	if c.ProjectID == "" {
		return errors.New("project_id is required")
	}
	if c.Workspace == "" {
		return errors.New("workspace is required")
	}
	if !filepath.IsAbs(c.Workspace) {
		return fmt.Errorf("workspace must be an absolute path: %s", c.Workspace)
	}
	if c.Chunking.MinChars > c.Chunking.MaxChars {
		return fmt.Errorf("chunking.min_chars (%d) exceeds chunking.max_chars (%d)",
			c.Chunking.MinChars, c.Chunking.MaxChars)
	}
	if c.Remote.BatchSize <= 0 {
		return errors.New("remote.batch_size must be positive")
	}
	if c.Scan.Concurrency <= 0 {
		return errors.New("scan.concurrency must be positive")
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.StorageDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.StorageDir = filepath.Join(home, ".codesync", "storage")
		}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Chunking.MaxChars == 0 {
		cfg.Chunking.MaxChars = 1000
	}
	if cfg.Chunking.MinChars == 0 {
		cfg.Chunking.MinChars = 200
	}
	if cfg.Chunking.OverlapLines == 0 {
		cfg.Chunking.OverlapLines = 5
	}

	if cfg.Remote.TimeoutSeconds == 0 {
		cfg.Remote.TimeoutSeconds = 30
	}
	if cfg.Remote.BatchSize == 0 {
		cfg.Remote.BatchSize = 60
	}
	if cfg.Remote.MaxRetries == 0 {
		cfg.Remote.MaxRetries = 3
	}
	if cfg.Remote.RetryBaseMs == 0 {
		cfg.Remote.RetryBaseMs = 500
	}
	if cfg.Remote.RequestsPerSecond == 0 {
		cfg.Remote.RequestsPerSecond = 20
	}
	if cfg.Remote.Burst == 0 {
		cfg.Remote.Burst = 10
	}

	if cfg.Scan.Concurrency == 0 {
		cfg.Scan.Concurrency = 10
	}
	if cfg.Scan.FlushEvery == 0 {
		cfg.Scan.FlushEvery = 100
	}
	if len(cfg.Scan.Extensions) == 0 {
		cfg.Scan.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if len(cfg.Scan.ExcludeGlobs) == 0 {
		cfg.Scan.ExcludeGlobs = append([]string(nil), DefaultExcludeGlobs...)
	}

	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 500
	}
}
