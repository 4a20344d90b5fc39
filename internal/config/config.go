package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/ctgov/compliance/internal/paths"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Config is the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server" mapstructure:"server"`
	Database  DatabaseConfig  `yaml:"database" json:"database" mapstructure:"database"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging" mapstructure:"logging"`
	Cache     CacheConfig     `yaml:"cache" json:"cache" mapstructure:"cache"`
	Reporting ReportingConfig `yaml:"reporting" json:"reporting" mapstructure:"reporting"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Address      string        `yaml:"address" json:"address" mapstructure:"address"`
	Mode         string        `yaml:"mode" json:"mode" mapstructure:"mode"` // release, debug or test
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" mapstructure:"write_timeout"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path" mapstructure:"path"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"` // json or console
}

// CacheConfig configures the query cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Size    int           `yaml:"size" json:"size" mapstructure:"size"`
	TTL     time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
}

// ReportingConfig tunes the reporting dashboard
type ReportingConfig struct {
	ActionItemsPerPage  int `yaml:"action_items_per_page" json:"action_items_per_page" mapstructure:"action_items_per_page"`
	HighRiskOverdueDays int `yaml:"high_risk_overdue_days" json:"high_risk_overdue_days" mapstructure:"high_risk_overdue_days"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			Mode:         "release",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: paths.DatabasePath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			Enabled: true,
			Size:    256,
			TTL:     5 * time.Minute,
		},
		Reporting: ReportingConfig{
			ActionItemsPerPage:  7,
			HighRiskOverdueDays: 90,
		},
	}
}

// Load loads configuration from viper on top of the defaults
func Load() (*Config, error) {
	cfg := Default()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads configuration from a yaml file on top of the defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Marshal renders the configuration as yaml
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

var serverModes = map[string]bool{"release": true, "debug": true, "test": true}

// Validate validates the configuration
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	c.validateServer(result)

	if c.Database.Path == "" {
		result.AddWarning("database.path", "path not specified, will use default")
	}

	c.validateLogging(result)
	c.validateCache(result)
	c.validateReporting(result)

	return result
}

func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.Address == "" {
		result.AddError("server.address", "address is required")
	}

	if c.Server.Mode == "" {
		result.AddWarning("server.mode", "mode not specified, assuming release")
	} else if !serverModes[c.Server.Mode] {
		result.AddError("server.mode", fmt.Sprintf("invalid mode %q (must be release, debug or test)", c.Server.Mode))
	}

	for field, d := range map[string]time.Duration{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
	} {
		if d < 0 {
			result.AddError(field, "timeout must not be negative")
		} else if d == 0 {
			result.AddWarning(field, "no timeout set")
		}
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		result.AddError("logging.level", fmt.Sprintf("invalid level %q", c.Logging.Level))
	}

	switch c.Logging.Format {
	case "json", "console":
	case "":
		result.AddWarning("logging.format", "format not specified, will use json")
	default:
		result.AddError("logging.format", fmt.Sprintf("invalid format %q (must be json or console)", c.Logging.Format))
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	if !c.Cache.Enabled {
		return
	}
	if c.Cache.Size < 1 {
		result.AddError("cache.size", "size must be at least 1 when the cache is enabled")
	}
	if c.Cache.TTL < 0 {
		result.AddError("cache.ttl", "ttl must not be negative")
	} else if c.Cache.TTL == 0 {
		result.AddWarning("cache.ttl", "ttl is 0, entries only leave the cache on writes")
	}
}

func (c *Config) validateReporting(result *ValidationResult) {
	if c.Reporting.ActionItemsPerPage < 1 {
		result.AddError("reporting.action_items_per_page", "must be at least 1")
	} else if c.Reporting.ActionItemsPerPage > 100 {
		result.AddWarning("reporting.action_items_per_page", "more than 100 action items per page")
	}

	if c.Reporting.HighRiskOverdueDays < 1 {
		result.AddError("reporting.high_risk_overdue_days", "must be at least 1")
	}
}
