// Package config provides configuration loading for codesync.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CODESYNC_"

// Load reads configuration from an optional YAML file, then overrides
// with CODESYNC_* environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CODESYNC_TOKEN, CODESYNC_REMOTE_BATCH_SIZE, ...)
//  2. YAML config file (configPath, skipped when empty or missing)
//  3. Hardcoded defaults
//
// Environment variables map to config keys by lowercasing and splitting on
// the first underscore after the prefix:
//
//	CODESYNC_TOKEN              -> token
//	CODESYNC_REMOTE_BATCH_SIZE  -> remote.batch_size
//	CODESYNC_WATCH_ENABLED      -> watch.enabled
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", transformEnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// watch.enabled defaults to true; the zero value cannot express that,
	// so only an explicit setting can turn the watcher off.
	if !k.Exists("watch.enabled") {
		cfg.Watch.Enabled = true
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// transformEnvKey maps an environment variable name (prefix stripped) to a
// dotted config key. Top-level scalar fields have no section; everything
// else is section.field_name.
func transformEnvKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))

	// Top-level fields that contain underscores themselves.
	switch lower {
	case "token", "workspace":
		return lower
	case "organization_id", "project_id", "storage_dir":
		return lower
	}

	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
