// Package main provides the entry point for the accessibility remediation agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "a11y_agent",
	Short: "Automated web accessibility remediation",
	Long:  "a11y_agent audits web pages and front-end projects with the axe-core engine and rewrites the offending markup into accessible equivalents, via CLI or REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
