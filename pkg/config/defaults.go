package config

import (
	"strings"

	"github.com/marmos91/dittohandle/pkg/handle"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyClientDefaults(&cfg.Client, &cfg.Store)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command results
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyClientDefaults sets client policy defaults.
//
// With the rest store, an unset handle owner falls back to the REST username,
// which is the owner's "index:handle" as well.
func applyClientDefaults(cfg *ClientConfig, st *StoreConfig) {
	if cfg.AdminPermissions == "" {
		cfg.AdminPermissions = handle.DefaultAdminPermissions
	}
	if cfg.HandleOwner == "" && st.Type == "rest" {
		if username, ok := st.REST["username"].(string); ok {
			cfg.HandleOwner = username
		}
	}
	if cfg.AllowedSearchKeys == nil {
		cfg.AllowedSearchKeys = []string{handle.TypeURL, handle.TypeChecksum}
	}
}

// applyStoreDefaults sets record store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.SQLite == nil {
		cfg.SQLite = make(map[string]any)
	}
	if cfg.REST == nil {
		cfg.REST = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittohandle-badger"
	}
	if _, ok := cfg.SQLite["path"]; !ok {
		cfg.SQLite["path"] = "/tmp/dittohandle.db"
	}
	if _, ok := cfg.REST["https_verify"]; !ok {
		cfg.REST["https_verify"] = true
	}
	if _, ok := cfg.REST["timeout"]; !ok {
		cfg.REST["timeout"] = "30s"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			S3: map[string]any{
				"region":     "us-east-1",
				"bucket":     "",
				"key_prefix": "handles/",
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
