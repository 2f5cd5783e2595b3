// Package config provides configuration loading and management for mriorient.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Detection parameters
	Detection struct {
		// LowConfidencePercent is the threshold, on the 0-100 scale shown to
		// users, below which a result is flagged for manual verification
		LowConfidencePercent float64 `yaml:"lowConfidencePercent"`
	} `yaml:"detection"`

	// Learned classifier artifacts
	Classifier struct {
		// ModelPath is the gob-encoded network produced by the training tooling
		ModelPath string `yaml:"modelPath"`

		// LabelsPath is the class-name file, one label per line, in output order
		LabelsPath string `yaml:"labelsPath"`

		// Enabled controls whether the classifier is loaded at startup
		Enabled bool `yaml:"enabled"`
	} `yaml:"classifier"`

	// Output parameters
	Output struct {
		// SlicesDir is where per-plane PNG slices are written
		SlicesDir string `yaml:"slicesDir"`

		// MiddleSliceDir is where the middle-slice preview is written
		MiddleSliceDir string `yaml:"middleSliceDir"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// LogFormat is "console" or "json"
		LogFormat string `yaml:"logFormat"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detection.LowConfidencePercent = 70

	cfg.Classifier.ModelPath = filepath.Join("model", "model.gob")
	cfg.Classifier.LabelsPath = filepath.Join("model", "class_names.txt")
	cfg.Classifier.Enabled = false

	cfg.Output.SlicesDir = "output_slices"
	cfg.Output.MiddleSliceDir = "."
	cfg.Output.Verbose = false
	cfg.Output.LogFormat = "console"

	return cfg
}

// Validate checks value ranges that would otherwise surface as confusing
// behaviour later on.
func (c *Config) Validate() error {
	if c.Detection.LowConfidencePercent < 0 || c.Detection.LowConfidencePercent > 100 {
		return fmt.Errorf("detection.lowConfidencePercent must be within [0, 100], got %g",
			c.Detection.LowConfidencePercent)
	}
	switch c.Output.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("output.logFormat must be \"console\" or \"json\", got %q", c.Output.LogFormat)
	}
	if c.Classifier.Enabled && (c.Classifier.ModelPath == "" || c.Classifier.LabelsPath == "") {
		return fmt.Errorf("classifier is enabled but modelPath or labelsPath is empty")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
