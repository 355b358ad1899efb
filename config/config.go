// Package config provides configuration loading and management for strictgate.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete strictgate configuration
type Config struct {
	Repo       RepoConfig       `yaml:"repo"`
	Guardrails GuardrailsConfig `yaml:"guardrails"`
	Ritual     RitualConfig     `yaml:"ritual"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// RepoConfig configures the repository settings
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty)
	Path string `yaml:"path"`
}

// GuardrailsConfig configures the guardrail validator
type GuardrailsConfig struct {
	// Checks replaces the built-in sqlx guardrails when non-empty
	Checks []CheckConfig `yaml:"checks"`
	// Debounce is how long watch mode waits for more changes before re-running
	Debounce time.Duration `yaml:"debounce"`
}

// CheckConfig declares one file and the literal strings it must contain.
type CheckConfig struct {
	Section  string   `yaml:"section"`
	Label    string   `yaml:"label"`
	Path     string   `yaml:"path"`
	Required []string `yaml:"required"`
}

// RitualConfig configures the strict ritual verifier. Relative paths resolve
// against the repository root.
type RitualConfig struct {
	// ReportDir holds prverify reports (default: .local/prverify)
	ReportDir string `yaml:"report_dir"`
	// ReportPattern selects report files inside ReportDir
	ReportPattern string `yaml:"report_pattern"`
	// ReportScanLimit caps how many of the most recent reports are read
	ReportScanLimit int `yaml:"report_scan_limit"`
	// BundleDir is where review bundles are created and searched for
	BundleDir string `yaml:"bundle_dir"`
	// BundleCommand is the argv prefix of the review bundle tool
	BundleCommand []string `yaml:"bundle_command"`
	// EvidencePrefix is the archive directory the report must appear under
	EvidencePrefix string `yaml:"evidence_prefix"`
}

// MetricsConfig configures metrics export
type MetricsConfig struct {
	// Textfile is a Prometheus textfile-collector path (empty = disabled)
	Textfile string `yaml:"textfile"`
}

// DefaultReportScanLimit is the number of most recent reports inspected when
// looking for one that mentions HEAD.
const DefaultReportScanLimit = 120

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		Guardrails: GuardrailsConfig{
			Checks:   nil, // Built-in sqlx guardrails
			Debounce: 500 * time.Millisecond,
		},
		Ritual: RitualConfig{
			ReportDir:       ".local/prverify",
			ReportPattern:   "prverify_*.md",
			ReportScanLimit: DefaultReportScanLimit,
			BundleDir:       ".local/review-bundles",
			BundleCommand:   []string{"go", "run", "./cmd/reviewbundle"},
			EvidencePrefix:  "review/evidence/prverify/",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Ritual.ReportDir == "" {
		return fmt.Errorf("ritual.report_dir is required")
	}
	if c.Ritual.ReportPattern == "" {
		return fmt.Errorf("ritual.report_pattern is required")
	}
	if c.Ritual.ReportScanLimit <= 0 {
		return fmt.Errorf("ritual.report_scan_limit must be positive")
	}
	if c.Ritual.BundleDir == "" {
		return fmt.Errorf("ritual.bundle_dir is required")
	}
	if len(c.Ritual.BundleCommand) == 0 || c.Ritual.BundleCommand[0] == "" {
		return fmt.Errorf("ritual.bundle_command is required")
	}
	if c.Ritual.EvidencePrefix == "" {
		return fmt.Errorf("ritual.evidence_prefix is required")
	}
	if c.Guardrails.Debounce < 0 {
		return fmt.Errorf("guardrails.debounce must not be negative")
	}
	for i, check := range c.Guardrails.Checks {
		if check.Path == "" {
			return fmt.Errorf("guardrails.checks[%d].path is required", i)
		}
		if len(check.Required) == 0 {
			return fmt.Errorf("guardrails.checks[%d].required must list at least one string", i)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Repo
	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}

	// Guardrails
	if len(other.Guardrails.Checks) > 0 {
		c.Guardrails.Checks = other.Guardrails.Checks
	}
	if other.Guardrails.Debounce != 0 {
		c.Guardrails.Debounce = other.Guardrails.Debounce
	}

	// Ritual
	if other.Ritual.ReportDir != "" {
		c.Ritual.ReportDir = other.Ritual.ReportDir
	}
	if other.Ritual.ReportPattern != "" {
		c.Ritual.ReportPattern = other.Ritual.ReportPattern
	}
	if other.Ritual.ReportScanLimit != 0 {
		c.Ritual.ReportScanLimit = other.Ritual.ReportScanLimit
	}
	if other.Ritual.BundleDir != "" {
		c.Ritual.BundleDir = other.Ritual.BundleDir
	}
	if len(other.Ritual.BundleCommand) > 0 {
		c.Ritual.BundleCommand = other.Ritual.BundleCommand
	}
	if other.Ritual.EvidencePrefix != "" {
		c.Ritual.EvidencePrefix = other.Ritual.EvidencePrefix
	}

	// Metrics
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}
}

// ResolvePath joins a relative path onto the repository root.
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Repo.Path == "" {
		return path
	}
	return filepath.Join(c.Repo.Path, path)
}
