package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want %q", cfg.Server.Address, ":8080")
	}
	if cfg.Reporting.ActionItemsPerPage != 7 {
		t.Errorf("Reporting.ActionItemsPerPage = %d, want 7", cfg.Reporting.ActionItemsPerPage)
	}
	if cfg.Reporting.HighRiskOverdueDays != 90 {
		t.Errorf("Reporting.HighRiskOverdueDays = %d, want 90", cfg.Reporting.HighRiskOverdueDays)
	}
	if filepath.Base(cfg.Database.Path) != "ctgov.db" {
		t.Errorf("Database.Path = %q, want ctgov.db file", cfg.Database.Path)
	}

	result := cfg.Validate()
	if !result.IsValid() {
		t.Errorf("Default().Validate() errors = %v", result.Errors)
	}
	if result.HasWarnings() {
		t.Errorf("Default().Validate() warnings = %v", result.Warnings)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `server:
  address: "127.0.0.1:9000"
  mode: debug
  read_timeout: 5s
database:
  path: /tmp/test.db
logging:
  level: debug
  format: console
cache:
  enabled: false
reporting:
  action_items_per_page: 10
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if cfg.Server.Address != "127.0.0.1:9000" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Server.Mode != "debug" {
		t.Errorf("Server.Mode = %q, want debug", cfg.Server.Mode)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	// Unset keys keep their defaults
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 30s", cfg.Server.WriteTimeout)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false")
	}
	if cfg.Reporting.ActionItemsPerPage != 10 {
		t.Errorf("Reporting.ActionItemsPerPage = %d, want 10", cfg.Reporting.ActionItemsPerPage)
	}
	if cfg.Reporting.HighRiskOverdueDays != 90 {
		t.Errorf("Reporting.HighRiskOverdueDays = %d, want 90", cfg.Reporting.HighRiskOverdueDays)
	}
}

func TestLoadFile_InvalidFile(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestLoad_FromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.address", ":9999")
	viper.Set("cache.ttl", "90s")
	viper.Set("reporting.high_risk_overdue_days", 30)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Address != ":9999" {
		t.Errorf("Server.Address = %q, want :9999", cfg.Server.Address)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("Cache.TTL = %v, want 90s", cfg.Cache.TTL)
	}
	if cfg.Reporting.HighRiskOverdueDays != 30 {
		t.Errorf("Reporting.HighRiskOverdueDays = %d, want 30", cfg.Reporting.HighRiskOverdueDays)
	}
	if cfg.Reporting.ActionItemsPerPage != 7 {
		t.Errorf("Reporting.ActionItemsPerPage = %d, want default 7", cfg.Reporting.ActionItemsPerPage)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Server.Mode = "test"

	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip = %+v, want %+v", loaded, cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		wantError   string
		wantWarning string
	}{
		{
			name:      "missing address",
			modify:    func(c *Config) { c.Server.Address = "" },
			wantError: "server.address",
		},
		{
			name:      "invalid mode",
			modify:    func(c *Config) { c.Server.Mode = "production" },
			wantError: "server.mode",
		},
		{
			name:        "empty mode",
			modify:      func(c *Config) { c.Server.Mode = "" },
			wantWarning: "server.mode",
		},
		{
			name:      "negative timeout",
			modify:    func(c *Config) { c.Server.ReadTimeout = -time.Second },
			wantError: "server.read_timeout",
		},
		{
			name:        "zero timeout",
			modify:      func(c *Config) { c.Server.WriteTimeout = 0 },
			wantWarning: "server.write_timeout",
		},
		{
			name:        "empty database path",
			modify:      func(c *Config) { c.Database.Path = "" },
			wantWarning: "database.path",
		},
		{
			name:      "invalid log level",
			modify:    func(c *Config) { c.Logging.Level = "verbose" },
			wantError: "logging.level",
		},
		{
			name:      "invalid log format",
			modify:    func(c *Config) { c.Logging.Format = "xml" },
			wantError: "logging.format",
		},
		{
			name:      "cache size zero",
			modify:    func(c *Config) { c.Cache.Size = 0 },
			wantError: "cache.size",
		},
		{
			name:   "cache size ignored when disabled",
			modify: func(c *Config) { c.Cache.Enabled = false; c.Cache.Size = 0 },
		},
		{
			name:        "cache without ttl",
			modify:      func(c *Config) { c.Cache.TTL = 0 },
			wantWarning: "cache.ttl",
		},
		{
			name:      "action items per page zero",
			modify:    func(c *Config) { c.Reporting.ActionItemsPerPage = 0 },
			wantError: "reporting.action_items_per_page",
		},
		{
			name:        "action items per page large",
			modify:      func(c *Config) { c.Reporting.ActionItemsPerPage = 500 },
			wantWarning: "reporting.action_items_per_page",
		},
		{
			name:      "high risk days zero",
			modify:    func(c *Config) { c.Reporting.HighRiskOverdueDays = 0 },
			wantError: "reporting.high_risk_overdue_days",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			result := cfg.Validate()

			if tc.wantError == "" && !result.IsValid() {
				t.Errorf("Validate() errors = %v, want none", result.Errors)
			}
			if tc.wantError != "" && !hasField(result.Errors, tc.wantError) {
				t.Errorf("Validate() errors = %v, want error on %s", result.Errors, tc.wantError)
			}
			if tc.wantWarning != "" && !hasField(result.Warnings, tc.wantWarning) {
				t.Errorf("Validate() warnings = %v, want warning on %s", result.Warnings, tc.wantWarning)
			}
		})
	}
}

func TestValidationResult_Methods(t *testing.T) {
	result := &ValidationResult{}

	if !result.IsValid() {
		t.Error("Empty result should be valid")
	}
	if result.HasWarnings() {
		t.Error("Empty result should not have warnings")
	}

	result.AddWarning("field", "warning message")
	if !result.IsValid() {
		t.Error("Result with only warnings should be valid")
	}
	if !result.HasWarnings() {
		t.Error("Result should have warnings")
	}

	result.AddError("field", "error message")
	if result.IsValid() {
		t.Error("Result with errors should not be valid")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "server.mode", Message: "invalid mode"}
	expected := "server.mode: invalid mode"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}
