package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/greenlight/internal/models"
)

// Config represents greenlight configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// HistoryDB is the path to the review history database.
	// Empty disables persistent history.
	HistoryDB string `yaml:"history_db"`

	// AuditLog is the path to the append-only audit log (JSON lines).
	// Empty disables the audit log.
	AuditLog string `yaml:"audit_log"`

	// WebhookURL receives escalation notifications when set
	WebhookURL string `yaml:"webhook_url"`

	// WebhookTimeout is the maximum time for one webhook delivery
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`

	// Review contains review loop configuration
	Review models.ReviewConfig `yaml:"review"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		HistoryDB:      ".greenlight/history.db",
		AuditLog:       "",
		WebhookURL:     "",
		WebhookTimeout: 10 * time.Second,
		Review:         models.DefaultReviewConfig(),
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, return defaults (not an error)
		return cfg, nil
	}

	// Read the file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	// Use temporary structs to handle duration parsing
	type yamlReview struct {
		Enabled                 bool    `yaml:"enabled"`
		MaxIterations           int     `yaml:"max_iterations"`
		QualityThreshold        float64 `yaml:"quality_threshold"`
		CompletenessThreshold   float64 `yaml:"completeness_threshold"`
		MaxCriticalGaps         int     `yaml:"max_critical_gaps"`
		EscalateAfterIterations int     `yaml:"escalate_after_iterations"`
		EscalateOnCriticalGaps  bool    `yaml:"escalate_on_critical_gaps"`
		CallTimeout             string  `yaml:"call_timeout"`
	}
	type yamlConfig struct {
		LogLevel       string     `yaml:"log_level"`
		HistoryDB      string     `yaml:"history_db"`
		AuditLog       string     `yaml:"audit_log"`
		WebhookURL     string     `yaml:"webhook_url"`
		WebhookTimeout string     `yaml:"webhook_timeout"`
		Review         yamlReview `yaml:"review"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.WebhookTimeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.WebhookTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook_timeout format %q: %w", yamlCfg.WebhookTimeout, err)
		}
		cfg.WebhookTimeout = timeout
	}

	// The path and URL fields treat an explicit empty string as
	// "disabled", so they merge on key presence rather than on a
	// non-zero value. The same applies to the review section, where
	// zero values like enabled: false must survive the merge.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if _, exists := rawMap["history_db"]; exists {
			cfg.HistoryDB = yamlCfg.HistoryDB
		}
		if _, exists := rawMap["audit_log"]; exists {
			cfg.AuditLog = yamlCfg.AuditLog
		}
		if _, exists := rawMap["webhook_url"]; exists {
			cfg.WebhookURL = yamlCfg.WebhookURL
		}

		if reviewSection, exists := rawMap["review"]; exists && reviewSection != nil {
			review := yamlCfg.Review
			reviewMap, _ := reviewSection.(map[string]interface{})

			if _, exists := reviewMap["enabled"]; exists {
				cfg.Review.Enabled = review.Enabled
			}
			if _, exists := reviewMap["max_iterations"]; exists {
				cfg.Review.MaxIterations = review.MaxIterations
			}
			if _, exists := reviewMap["quality_threshold"]; exists {
				cfg.Review.QualityThreshold = review.QualityThreshold
			}
			if _, exists := reviewMap["completeness_threshold"]; exists {
				cfg.Review.CompletenessThreshold = review.CompletenessThreshold
			}
			if _, exists := reviewMap["max_critical_gaps"]; exists {
				cfg.Review.MaxCriticalGaps = review.MaxCriticalGaps
			}
			if _, exists := reviewMap["escalate_after_iterations"]; exists {
				cfg.Review.EscalateAfterIterations = review.EscalateAfterIterations
			}
			if _, exists := reviewMap["escalate_on_critical_gaps"]; exists {
				cfg.Review.EscalateOnCriticalGaps = review.EscalateOnCriticalGaps
			}
			if _, exists := reviewMap["call_timeout"]; exists {
				timeout, err := time.ParseDuration(review.CallTimeout)
				if err != nil {
					return nil, fmt.Errorf("invalid review.call_timeout format %q: %w", review.CallTimeout, err)
				}
				cfg.Review.CallTimeout = timeout
			}
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from config.yaml in the greenlight home
// directory, so runs from any subdirectory of a repository see the same
// settings. When the file leaves history_db at its default, the path is
// anchored at the home directory too.
func LoadDefault() (*Config, error) {
	home, err := GetGreenlightHome()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(filepath.Join(home, "config.yaml"))
	if err != nil {
		return nil, err
	}
	if cfg.HistoryDB == DefaultConfig().HistoryDB {
		cfg.HistoryDB = filepath.Join(home, "history.db")
	}
	return cfg, nil
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(maxIterations *int, qualityThreshold *float64, historyDB *string, auditLog *string, webhookURL *string) {
	if maxIterations != nil {
		c.Review.MaxIterations = *maxIterations
	}
	if qualityThreshold != nil {
		c.Review.QualityThreshold = *qualityThreshold
	}
	if historyDB != nil {
		c.HistoryDB = *historyDB
	}
	if auditLog != nil {
		c.AuditLog = *auditLog
	}
	if webhookURL != nil {
		c.WebhookURL = *webhookURL
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	// Validate log_level
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// WebhookTimeout can be 0 (library default) or positive, negative is invalid
	if c.WebhookTimeout < 0 {
		return fmt.Errorf("webhook_timeout must be >= 0, got %v", c.WebhookTimeout)
	}

	// Validate review configuration
	if err := c.Review.Validate(); err != nil {
		return fmt.Errorf("review: %w", err)
	}

	return nil
}
