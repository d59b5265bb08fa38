package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/a11y-remediator/internal/config"
	"github.com/jonathan/a11y-remediator/internal/pipeline"
)

var angularCmd = &cobra.Command{
	Use:   "angular",
	Short: "Remediate a local Angular project",
	Long: `Discovers the project's templates, audits the served application, maps
violations back to components, and rewrites them with fixes validated in a
sandbox. Accepted changes are applied to the working tree and the build is
verified afterwards.

The application must be running (ng serve) so it can be audited; pass
--app-url when it is not on http://localhost:4200/.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runAngularCmd,
}

var (
	angularConfigPath  string
	angularProject     string
	angularAppURL      string
	angularResultsDir  string
	angularAPIKey      string
	angularDatabaseURL string
	angularVerbose     bool
)

func init() {
	angularCmd.Flags().StringVar(&angularConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	angularCmd.Flags().StringVarP(&angularProject, "project", "p", "", "Path to the Angular project root")
	angularCmd.Flags().StringVar(&angularAppURL, "app-url", "", "URL where the application is served (default http://localhost:4200/)")
	angularCmd.Flags().StringVar(&angularResultsDir, "results-dir", "", "Root directory for run artifacts (default \"results\")")
	angularCmd.Flags().StringVar(&angularAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	angularCmd.Flags().StringVar(&angularDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	angularCmd.Flags().BoolVarP(&angularVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(angularCmd)
}

func runAngularCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadFlowConfig(angularConfigPath, angularVerbose)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("project") {
		cfg.ProjectPath = angularProject
	}
	if cmd.Flags().Changed("app-url") {
		cfg.AppURL = angularAppURL
	}
	if cmd.Flags().Changed("results-dir") {
		cfg.ResultsDir = angularResultsDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = angularAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = angularDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = angularVerbose
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
	return pipeline.RunAngular(ctx, opts)
}
