// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Targets
	URL         string `json:"url,omitempty"`          // Public page URL to audit and remediate
	ProjectPath string `json:"project_path,omitempty"` // Path to a local Angular project
	AppURL      string `json:"app_url,omitempty"`      // URL where the running application is served

	// Dynamic auditing
	InteractionsFile string `json:"interactions_file,omitempty"` // JSON file describing pre-audit interactions
	MultiStateFile   string `json:"multi_state_file,omitempty"`  // JSON file describing multi-state audit scenarios
	DisableDynamic   bool   `json:"disable_dynamic,omitempty"`   // Skip dynamic component analysis

	// Output
	ResultsDir string `json:"results_dir,omitempty"` // Root directory for run artifacts
	CacheDir   string `json:"cache_dir,omitempty"`   // Directory for the media caption cache

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	ServeApp    bool   `json:"serve_app,omitempty"`    // Serve the remediated page when the run finishes
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Validate mutually exclusive fields
	if c.URL != "" && c.ProjectPath != "" {
		return fmt.Errorf("config error: 'url' and 'project_path' are mutually exclusive")
	}

	// Validate file paths exist (if specified)
	if c.InteractionsFile != "" {
		if _, err := os.Stat(c.InteractionsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: interactions file not found: %s", c.InteractionsFile)
		}
	}

	if c.MultiStateFile != "" {
		if _, err := os.Stat(c.MultiStateFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: multi-state file not found: %s", c.MultiStateFile)
		}
	}

	if c.ProjectPath != "" {
		if _, err := os.Stat(c.ProjectPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: project path not found: %s", c.ProjectPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.URL == "" {
		result.URL = defaults.URL
	}
	if result.ProjectPath == "" {
		result.ProjectPath = defaults.ProjectPath
	}
	if result.AppURL == "" {
		result.AppURL = defaults.AppURL
	}
	if result.InteractionsFile == "" {
		result.InteractionsFile = defaults.InteractionsFile
	}
	if result.MultiStateFile == "" {
		result.MultiStateFile = defaults.MultiStateFile
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Directory fields: fall back to the built-in layout
	if result.ResultsDir == "" {
		if defaults.ResultsDir != "" {
			result.ResultsDir = defaults.ResultsDir
		} else {
			result.ResultsDir = "results"
		}
	}
	if result.CacheDir == "" {
		if defaults.CacheDir != "" {
			result.CacheDir = defaults.CacheDir
		} else {
			result.CacheDir = "media_cache"
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
