package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/a11y-remediator/internal/config"
	"github.com/jonathan/a11y-remediator/internal/pipeline"
)

var reactCmd = &cobra.Command{
	Use:   "react",
	Short: "Remediate a local React project",
	Long: `Indexes the project's component sources, audits the running dev server,
maps violations back to components, and rewrites them with validated fixes.

The dev server is located automatically from the Vite config, the
package.json scripts, or the common dev ports; pass --app-url to skip
detection.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runReactCmd,
}

var (
	reactConfigPath  string
	reactProject     string
	reactAppURL      string
	reactResultsDir  string
	reactAPIKey      string
	reactDatabaseURL string
	reactVerbose     bool
)

func init() {
	reactCmd.Flags().StringVar(&reactConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	reactCmd.Flags().StringVarP(&reactProject, "project", "p", "", "Path to the React project root")
	reactCmd.Flags().StringVar(&reactAppURL, "app-url", "", "URL where the application is served (detected when empty)")
	reactCmd.Flags().StringVar(&reactResultsDir, "results-dir", "", "Root directory for run artifacts (default \"results\")")
	reactCmd.Flags().StringVar(&reactAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	reactCmd.Flags().StringVar(&reactDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	reactCmd.Flags().BoolVarP(&reactVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(reactCmd)
}

func runReactCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadFlowConfig(reactConfigPath, reactVerbose)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("project") {
		cfg.ProjectPath = reactProject
	}
	if cmd.Flags().Changed("app-url") {
		cfg.AppURL = reactAppURL
	}
	if cmd.Flags().Changed("results-dir") {
		cfg.ResultsDir = reactResultsDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = reactAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = reactDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = reactVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Config{})

	if cfg.ProjectPath == "" {
		return fmt.Errorf("--project must be provided (via flag or config)")
	}
	if err := resolveSecrets(&cfg); err != nil {
		return err
	}

	opts := pipeline.RunOptions{
		ProjectPath: cfg.ProjectPath,
		AppURL:      cfg.AppURL,
		ResultsDir:  cfg.ResultsDir,
		APIKey:      cfg.APIKey,
		DatabaseURL: cfg.DatabaseURL,
		Verbose:     cfg.Verbose,
	}
	return pipeline.RunReact(ctx, opts)
}
