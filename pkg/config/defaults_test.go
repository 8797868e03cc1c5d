package config

import (
	"testing"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json", Output: "/var/log/dittohandle.log"},
		Client: ClientConfig{
			AdminPermissions:  "111111111111",
			AllowedSearchKeys: []string{},
		},
		Store: StoreConfig{
			Type:   "sqlite",
			SQLite: map[string]any{"path": "/data/handles.db"},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected normalized level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "/var/log/dittohandle.log" {
		t.Errorf("Expected output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.Client.AdminPermissions != "111111111111" {
		t.Errorf("Expected permissions to be preserved, got %q", cfg.Client.AdminPermissions)
	}
	if len(cfg.Client.AllowedSearchKeys) != 0 {
		t.Errorf("Expected explicit empty search keys to be preserved, got %v", cfg.Client.AllowedSearchKeys)
	}
	if cfg.Store.SQLite["path"] != "/data/handles.db" {
		t.Errorf("Expected sqlite path to be preserved, got %v", cfg.Store.SQLite["path"])
	}
}

func TestApplyDefaults_Store(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.Store.Type)
	}
	for name, m := range map[string]map[string]any{
		"memory": cfg.Store.Memory,
		"badger": cfg.Store.Badger,
		"sqlite": cfg.Store.SQLite,
		"rest":   cfg.Store.REST,
		"s3":     cfg.Store.S3,
	} {
		if m == nil {
			t.Errorf("Expected %s options map to be initialized", name)
		}
	}
	if cfg.Store.REST["https_verify"] != true {
		t.Errorf("Expected https_verify to default to true, got %v", cfg.Store.REST["https_verify"])
	}
	if cfg.Store.REST["timeout"] != "30s" {
		t.Errorf("Expected timeout to default to 30s, got %v", cfg.Store.REST["timeout"])
	}
}

func TestApplyDefaults_OwnerFromRESTUsername(t *testing.T) {
	cfg := &Config{
		Store: StoreConfig{
			Type: "rest",
			REST: map[string]any{"username": "300:21.T12345/USER01"},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Client.HandleOwner != "300:21.T12345/USER01" {
		t.Errorf("Expected handle owner from REST username, got %q", cfg.Client.HandleOwner)
	}

	// Other stores leave the owner empty
	cfg = &Config{Store: StoreConfig{Type: "badger", REST: map[string]any{"username": "300:21.T1/X"}}}
	ApplyDefaults(cfg)
	if cfg.Client.HandleOwner != "" {
		t.Errorf("Expected empty handle owner, got %q", cfg.Client.HandleOwner)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Client.AdminPermissions != "011111110011" {
		t.Errorf("Expected default admin permissions, got %q", cfg.Client.AdminPermissions)
	}
	if len(cfg.Client.AllowedSearchKeys) != 2 || cfg.Client.AllowedSearchKeys[0] != "URL" || cfg.Client.AllowedSearchKeys[1] != "CHECKSUM" {
		t.Errorf("Expected default search keys [URL CHECKSUM], got %v", cfg.Client.AllowedSearchKeys)
	}
	if cfg.Store.S3["region"] != "us-east-1" {
		t.Errorf("Expected sample S3 region, got %v", cfg.Store.S3["region"])
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}
