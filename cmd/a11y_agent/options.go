package main

import (
	"fmt"
	"os"

	"github.com/jonathan/a11y-remediator/internal/config"
)

// loadFlowConfig loads the optional config file shared by the flow commands.
// Flag values are applied on top by each command, so the returned config
// only holds file values.
func loadFlowConfig(path string, verbose bool) (config.Config, error) {
	var cfg config.Config
	if path == "" {
		return cfg, nil
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return cfg, err
	}
	if verbose {
		fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", path)
	}
	return *loaded, nil
}

// resolveSecrets fills the API key and database URL from the environment
// when flags and config left them empty. The model key is required, the
// database stays optional.
func resolveSecrets(cfg *config.Config) error {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return nil
}
