package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# dittohandle Configuration File
#
# Values can be overridden with DITTOHANDLE_* environment variables,
# e.g. DITTOHANDLE_LOGGING_LEVEL=DEBUG or DITTOHANDLE_STORE_TYPE=badger.
#
# store.type selects the record store: memory, badger, sqlite, rest or s3.
# Only the section of the selected type is read.

`

// InitConfig writes a default configuration file to the default location.
//
// Returns the path of the written file. An existing file is only replaced
// when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateConfigYAML(GetDefaultConfig())
	if err != nil {
		return err
	}

	// 0600: the file may end up holding store credentials
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func generateConfigYAML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
