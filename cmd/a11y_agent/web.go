package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/a11y-remediator/internal/config"
	"github.com/jonathan/a11y-remediator/internal/pipeline"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Audit and remediate a public web page",
	Long: `Audits a page with the accessibility engine, captions its images, generates
an accessible variant of the rendered markup, and audits the variant to
measure the improvement. Artifacts land in a per-run directory under
--results-dir.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runWebCmd,
}

var (
	webConfigPath   string
	webURL          string
	webInteractions string
	webMultiState   string
	webNoDynamic    bool
	webResultsDir   string
	webCacheDir     string
	webAPIKey       string
	webDatabaseURL  string
	webServeApp     bool
	webVerbose      bool
)

func init() {
	webCmd.Flags().StringVar(&webConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	webCmd.Flags().StringVarP(&webURL, "url", "u", "", "Page URL to audit and remediate")
	webCmd.Flags().StringVar(&webInteractions, "interactions", "", "JSON file with interactions to run before the audit")
	webCmd.Flags().StringVar(&webMultiState, "multi-state", "", "JSON file with page states to audit separately")
	webCmd.Flags().BoolVar(&webNoDynamic, "no-dynamic", false, "Skip overlay dismissal and lazy-content handling before the audit")
	webCmd.Flags().StringVar(&webResultsDir, "results-dir", "", "Root directory for run artifacts (default \"results\")")
	webCmd.Flags().StringVar(&webCacheDir, "cache-dir", "", "Directory for the image caption cache (default \"media_cache\")")
	webCmd.Flags().StringVar(&webAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	webCmd.Flags().StringVar(&webDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	webCmd.Flags().BoolVar(&webServeApp, "serve", false, "Serve the run directory over HTTP when the run finishes")
	webCmd.Flags().BoolVarP(&webVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(webCmd)
}

func runWebCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadFlowConfig(webConfigPath, webVerbose)
	if err != nil {
		return err
	}

	// Command-line args take priority; only override what was set.
	if cmd.Flags().Changed("url") {
		cfg.URL = webURL
	}
	if cmd.Flags().Changed("interactions") {
		cfg.InteractionsFile = webInteractions
	}
	if cmd.Flags().Changed("multi-state") {
		cfg.MultiStateFile = webMultiState
	}
	if cmd.Flags().Changed("no-dynamic") {
		cfg.DisableDynamic = webNoDynamic
	}
	if cmd.Flags().Changed("results-dir") {
		cfg.ResultsDir = webResultsDir
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.CacheDir = webCacheDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = webAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = webDatabaseURL
	}
	if cmd.Flags().Changed("serve") {
		cfg.ServeApp = webServeApp
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = webVerbose
	}
	cfg = cfg.MergeWithDefaults(config.Config{})

	if cfg.URL == "" {
		return fmt.Errorf("--url must be provided (via flag or config)")
	}
	if cfg.InteractionsFile != "" && cfg.MultiStateFile != "" {
		return fmt.Errorf("--interactions and --multi-state are mutually exclusive; provide only one")
	}
	if err := resolveSecrets(&cfg); err != nil {
		return err
	}

	runDir := pipeline.NewRunDir(cfg.ResultsDir, cfg.URL)
	opts := pipeline.RunOptions{
		URL:              cfg.URL,
		RunDir:           runDir,
		ResultsDir:       cfg.ResultsDir,
		CacheDir:         cfg.CacheDir,
		InteractionsFile: cfg.InteractionsFile,
		MultiStateFile:   cfg.MultiStateFile,
		DisableDynamic:   cfg.DisableDynamic,
		APIKey:           cfg.APIKey,
		DatabaseURL:      cfg.DatabaseURL,
		Verbose:          cfg.Verbose,
	}
	if err := pipeline.RunWeb(ctx, opts); err != nil {
		return err
	}

	if cfg.ServeApp {
		return servePreviewDir(runDir)
	}
	return nil
}
