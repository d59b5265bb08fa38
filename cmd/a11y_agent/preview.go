package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/a11y-remediator/internal/ports"
)

var previewCmd = &cobra.Command{
	Use:   "preview <run-dir>",
	Short: "Serve a finished run's artifacts over HTTP",
	Long: `Serves a run directory (remediated page, comparison report, screenshots)
on the first free preview port so the results can be inspected in a browser.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
}

func runPreview(_ *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("run directory not found: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return servePreviewDir(dir)
}

// servePreviewDir serves dir on the first free preview port until the
// process is interrupted.
func servePreviewDir(dir string) error {
	listener, port, err := ports.PreviewListener()
	if err != nil {
		return err
	}
	fmt.Printf("Serving %s at http://localhost:%d/ (Ctrl+C to stop)\n", dir, port)
	return http.Serve(listener, http.FileServer(http.Dir(dir)))
}
