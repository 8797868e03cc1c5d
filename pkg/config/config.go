package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittohandle/pkg/client"
	"github.com/spf13/viper"
)

// Config represents the complete dittohandle configuration.
//
// This structure captures all configurable aspects of the client:
//   - Logging configuration
//   - Client policy (handle owner, HS_ADMIN permissions, TTLs, search keys)
//   - Record store selection and configuration (store-specific)
//   - Metrics collection
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOHANDLE_*)
//  3. Configuration file (YAML, TOML or JSON)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each record store defines its own configuration type and factory function.
// The Store section contains type-specific maps (e.g. store.badger, store.rest)
// and only the map matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Client contains the handle client policy
	Client ClientConfig `mapstructure:"client" yaml:"client"`

	// Store specifies the record store type and type-specific configuration
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ClientConfig holds the handle client policy.
type ClientConfig struct {
	// HandleOwner is the "index:prefix/suffix" written into new HS_ADMIN entries.
	// Empty means 200:0.NA/<prefix>.
	HandleOwner string `mapstructure:"handle_owner" yaml:"handle_owner" validate:"omitempty,owner"`

	// AdminPermissions is the HS_ADMIN permission bit string
	AdminPermissions string `mapstructure:"admin_permissions" yaml:"admin_permissions" validate:"required,bitstring,max=12"`

	// PadAdminPermissions right-pads shorter permission strings to 12 bits
	PadAdminPermissions bool `mapstructure:"pad_admin_permissions" yaml:"pad_admin_permissions"`

	// AllowAdminModification permits changing HS_ADMIN through modify
	AllowAdminModification bool `mapstructure:"allow_admin_modification" yaml:"allow_admin_modification"`

	// DefaultTTL is set on created entries (0 leaves it to the store)
	DefaultTTL int `mapstructure:"default_ttl" yaml:"default_ttl" validate:"gte=0"`

	// AllowedSearchKeys restricts which types may be searched (empty = all)
	AllowedSearchKeys []string `mapstructure:"allowed_search_keys" yaml:"allowed_search_keys" validate:"dive,required"`
}

// StoreConfig specifies record store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type StoreConfig struct {
	// Type specifies which record store implementation to use
	// Valid values: memory, badger, sqlite, rest, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger sqlite rest s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`

	// SQLite contains SQLite-specific configuration
	// Only used when Type = "sqlite"
	SQLite map[string]any `mapstructure:"sqlite" yaml:"sqlite"`

	// REST contains handle server configuration
	// Only used when Type = "rest"
	REST map[string]any `mapstructure:"rest" yaml:"rest"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns on store operation metrics
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is where samples are written at exit, for the node exporter
	// textfile collector. Empty disables the dump.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// ClientOptions converts the client section into client.Config.
func (c *Config) ClientOptions() client.Config {
	return client.Config{
		HandleOwner:            c.Client.HandleOwner,
		AdminPermissions:       c.Client.AdminPermissions,
		PadAdminPermissions:    c.Client.PadAdminPermissions,
		AllowAdminModification: c.Client.AllowAdminModification,
		DefaultTTL:             c.Client.DefaultTTL,
		AllowedSearchKeys:      append([]string(nil), c.Client.AllowedSearchKeys...),
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOHANDLE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: DITTOHANDLE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOHANDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows about
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"client.handle_owner", "client.admin_permissions", "client.default_ttl",
		"store.type", "metrics.enabled", "metrics.textfile",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/dittohandle/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		// An explicit path that does not exist is also fine
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittohandle")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittohandle")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
