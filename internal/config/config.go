// Package config holds runtime configuration for patternbank. Configuration
// is a single JSON file (patternbank.json in the workspace root) with
// environment-variable overrides; defaults are safe for any codebase.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// FileName is the config file looked up in the workspace root.
const FileName = "patternbank.json"

// Config is the full configuration surface.
type Config struct {
	// ConfidenceThreshold is the minimum confidence a curated pattern
	// needs to be persisted.
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty"`

	// MaxPatterns is the hard safety cap on the persisted pattern count.
	MaxPatterns int `json:"max_patterns,omitempty"`

	// Scan bounds.
	MaxDepth int `json:"max_depth,omitempty"`
	MaxFiles int `json:"max_files,omitempty"`

	// Phase toggles.
	SkipFrameworkPacks  bool `json:"skip_framework_packs,omitempty"`
	SkipAuxiliaryMiners bool `json:"skip_auxiliary_miners,omitempty"`

	// OutputDir receives the persisted artifacts, relative to the
	// workspace unless absolute.
	OutputDir string `json:"output_dir,omitempty"`

	// Content cache budgets.
	CacheMaxEntries int   `json:"cache_max_entries,omitempty"`
	CacheMaxBytes   int64 `json:"cache_max_bytes,omitempty"`

	// Store lock timings.
	LockWait  time.Duration `json:"lock_wait,omitempty"`
	LockStale time.Duration `json:"lock_stale,omitempty"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		ConfidenceThreshold: 0.70,
		MaxPatterns:         2000,
		MaxDepth:            16,
		MaxFiles:            4000,
		OutputDir:           ".patternbank",
		CacheMaxEntries:     512,
		CacheMaxBytes:       64 * 1024 * 1024,
		LockWait:            5 * time.Second,
		LockStale:           30 * time.Second,
	}
}

// Load reads patternbank.json from the workspace root, falling back to
// defaults when the file is absent, then applies environment overrides.
// A present-but-invalid file is an error, not a silent default.
func Load(workspace string) (Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, FileName)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if cfg.MaxPatterns <= 0 {
		cfg.MaxPatterns = def.MaxPatterns
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = def.MaxFiles
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = def.CacheMaxEntries
	}
	if cfg.CacheMaxBytes <= 0 {
		cfg.CacheMaxBytes = def.CacheMaxBytes
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = def.LockWait
	}
	if cfg.LockStale <= 0 {
		cfg.LockStale = def.LockStale
	}
}

// applyEnv overrides config fields from PATTERNBANK_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PATTERNBANK_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("PATTERNBANK_MAX_PATTERNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPatterns = n
		}
	}
	if v := os.Getenv("PATTERNBANK_MAX_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxFiles = n
		}
	}
	if v := os.Getenv("PATTERNBANK_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("PATTERNBANK_SKIP_FRAMEWORK_PACKS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SkipFrameworkPacks = b
		}
	}
	if v := os.Getenv("PATTERNBANK_SKIP_AUX_MINERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SkipAuxiliaryMiners = b
		}
	}
}

// ResolveOutputDir returns the absolute artifact directory for a workspace.
func (c Config) ResolveOutputDir(workspace string) string {
	if filepath.IsAbs(c.OutputDir) {
		return c.OutputDir
	}
	return filepath.Join(workspace, c.OutputDir)
}
