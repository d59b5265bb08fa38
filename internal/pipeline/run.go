// Package pipeline provides the high-level orchestration for the accessibility remediation flows.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/jonathan/a11y-remediator/internal/db"
	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/observability"
	"github.com/jonathan/a11y-remediator/internal/report"
	"github.com/jonathan/a11y-remediator/internal/sandbox"
	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
)

// ComparisonFile is the name of the before/after report a run writes into
// its run directory.
const ComparisonFile = "comparison.html"

// runDirTimeFormat names run directories so they sort chronologically.
const runDirTimeFormat = "20060102_150405"

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunOptions holds configuration for running a remediation flow
type RunOptions struct {
	URL         string // web flow: page to audit and rewrite
	ProjectPath string // angular/react flows: project root
	AppURL      string // angular/react flows: where the app is served; detected when empty

	RunID  uuid.UUID // pre-created run row, uuid.Nil when the pipeline owns the row
	RunDir string    // pre-created run directory, derived from ResultsDir when empty

	ResultsDir       string
	CacheDir         string
	InteractionsFile string
	MultiStateFile   string
	DisableDynamic   bool

	APIKey      string
	DatabaseURL string
	DB          *db.DB
	Verbose     bool
	OnProgress  ProgressCallback
}

// logPrefix is used to distinguish concurrent log output
type logPrefix string

const (
	prefixIndex logPrefix = "[Index] "
	prefixAudit logPrefix = "[Audit] "
)

// emitProgress calls the progress callback if configured
func emitProgress(opts *RunOptions, runID uuid.UUID, step, category, message string, content any) {
	if opts.OnProgress == nil {
		return
	}
	event := ProgressEvent{
		Step:     step,
		Category: category,
		Message:  message,
		Content:  content,
	}
	if runID != uuid.Nil {
		event.RunID = runID.String()
	}
	opts.OnProgress(event)
}

// NewRunDir returns the directory a new run writes its artifacts to:
// <resultsDir>/<sanitized target>/<timestamp>. URL targets use their host
// name, project targets their base directory name.
func NewRunDir(resultsDir, target string) string {
	if resultsDir == "" {
		resultsDir = "results"
	}
	name := target
	if u, err := url.Parse(target); err == nil && u.Host != "" {
		name = u.Host
	} else {
		name = filepath.Base(strings.TrimRight(target, "/\\"))
	}
	name = sanitizeRunName(name)
	if name == "" {
		name = "run"
	}
	return filepath.Join(resultsDir, name, time.Now().Format(runDirTimeFormat))
}

// sanitizeRunName replaces every character that is not a letter or digit so
// the result is safe as a single directory component.
func sanitizeRunName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// runContext carries the per-run state the flow phases share: identifiers,
// output locations, the template index and sandbox ledger once built, and
// the collaborators every phase needs. Each run constructs its own; the
// package keeps no mutable state between runs.
type runContext struct {
	runID  uuid.UUID
	runDir string
	root   string // project root, empty for the web flow

	index  *templates.Index
	ledger *sandbox.Ledger
	report *types.RunReport

	client   llm.Client
	printer  *observability.Printer
	database *db.DB
	ownsDB   bool // the pipeline opened the connection and must close it
	hasRun   bool // a run row exists for runID, so per-run writes can land
	ownsRun  bool // the pipeline created the row and must record its outcome
}

// newRunContext prepares everything a flow needs before its first phase:
// the run directory, the database connection (optional), the run row, and
// the model client. Database problems are warnings; a run without
// persistence is still a useful run.
func newRunContext(ctx context.Context, opts *RunOptions, flow, target string) (*runContext, error) {
	rc := &runContext{
		runID:   opts.RunID,
		runDir:  opts.RunDir,
		ledger:  sandbox.NewLedger(),
		printer: observability.NewPrinter(os.Stdout),
	}

	if rc.runDir == "" {
		rc.runDir = NewRunDir(opts.ResultsDir, target)
	}
	if err := os.MkdirAll(rc.runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	rc.database = opts.DB
	if rc.database == nil && opts.DatabaseURL != "" {
		database, err := db.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: Failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without database persistence...\n")
		} else {
			rc.database = database
			rc.ownsDB = true
			if opts.Verbose {
				fmt.Printf("[VERBOSE] Connected to database\n")
			}
		}
	}

	if rc.runID != uuid.Nil {
		rc.hasRun = rc.database != nil
	} else if rc.database != nil {
		runID, err := rc.database.CreateRun(ctx, target, flow, rc.runDir)
		if err != nil {
			fmt.Printf("Warning: Failed to create database run: %v\n", err)
		} else {
			rc.runID = runID
			rc.hasRun = true
			rc.ownsRun = true
			if opts.Verbose {
				fmt.Printf("[VERBOSE] Created database run: %s\n", runID)
			}
		}
	}
	if rc.runID == uuid.Nil {
		// The run summary still needs an identifier.
		rc.runID = uuid.New()
	}

	client, err := llm.NewClient(ctx, llm.ConfigFromEnv(), opts.APIKey)
	if err != nil {
		rc.release()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	rc.client = client

	rc.report = &types.RunReport{
		RunID:     rc.runID.String(),
		StartedAt: time.Now().UTC(),
	}
	return rc, nil
}

// finish records the terminal status for rows this run created itself and
// releases the connections the run opened. The caller's context may already
// be expired, so the final write uses its own deadline.
func (rc *runContext) finish(err error) {
	if rc.database != nil && rc.ownsRun {
		status := db.StatusCompleted
		if err != nil {
			status = db.StatusFailed
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = rc.database.CompleteRun(ctx, rc.runID, status)
		cancel()
	}
	rc.release()
}

func (rc *runContext) release() {
	if rc.client != nil {
		_ = rc.client.Close()
	}
	if rc.ownsDB && rc.database != nil {
		rc.database.Close()
	}
}

// persistReport stamps the report, writes the run summary into the run
// directory, and mirrors it to the database when one is configured.
func (rc *runContext) persistReport(ctx context.Context, name string) {
	rc.report.FinishedAt = time.Now().UTC()
	path := filepath.Join(rc.runDir, name)
	if err := report.WriteSummary(path, rc.report); err != nil {
		fmt.Printf("Warning: Failed to write run summary: %v\n", err)
	} else {
		fmt.Printf("Run summary saved to %s\n", path)
	}
	if rc.database != nil && rc.hasRun {
		_ = rc.database.SaveRunSummary(ctx, rc.runID, rc.report)
	}
}

// saveComponentResult mirrors one artifact outcome to the database.
func (rc *runContext) saveComponentResult(ctx context.Context, res types.ComponentResult) {
	if rc.database != nil && rc.hasRun {
		_ = rc.database.SaveComponentResult(ctx, rc.runID, res)
	}
}

// saveArtifact writes a run artifact (raw reports, page snapshots) into the
// run directory. Failures are warnings; artifacts are evidence, not state.
func (rc *runContext) saveArtifact(name string, data []byte) {
	path := filepath.Join(rc.runDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("Warning: Failed to save %s: %v\n", name, err)
	}
}

// loadScreenshots reads captured viewport images back as inline attachments
// for model calls. Unreadable files are skipped.
func loadScreenshots(paths map[string]string) []llm.Image {
	if len(paths) == 0 {
		return nil
	}
	images := make([]llm.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Warning: Failed to read screenshot %s: %v\n", path, err)
			continue
		}
		images = append(images, llm.Image{Format: "png", Data: data})
	}
	return images
}

// changesByComponent folds ledger entries into the report's change map,
// preserving the order components were processed in.
func changesByComponent(entries []sandbox.Entry) []types.ChangeEntry {
	byComponent := make(map[string]*types.ChangeEntry)
	var order []string
	for _, e := range entries {
		ce, ok := byComponent[e.Component]
		if !ok {
			ce = &types.ChangeEntry{Component: e.Component, Changes: make(map[types.ChangeKind]types.Change)}
			byComponent[e.Component] = ce
			order = append(order, e.Component)
		}
		ce.Changes[e.Change.Kind] = e.Change
	}
	out := make([]types.ChangeEntry, 0, len(order))
	for _, name := range order {
		out = append(out, *byComponent[name])
	}
	return out
}
