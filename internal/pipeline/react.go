package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/a11y-remediator/internal/db"
	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/mapping"
	"github.com/jonathan/a11y-remediator/internal/ports"
	"github.com/jonathan/a11y-remediator/internal/synthesis"
	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
	"github.com/jonathan/a11y-remediator/internal/validation"
)

// defaultReactURL is the classic create-react-app address, used when no dev
// server can be detected.
const defaultReactURL = "http://localhost:3000/"

// RunReact remediates a local React project: locate the running dev server,
// index the component sources, audit the served application, and rewrite the
// components the violations map to. React builds are not verified; the dev
// server recompiles on write and surfaces errors itself.
func RunReact(ctx context.Context, opts RunOptions) error {
	if opts.ProjectPath == "" {
		return fmt.Errorf("project path is required")
	}
	root, err := filepath.Abs(opts.ProjectPath)
	if err != nil {
		return fmt.Errorf("invalid project path: %w", err)
	}
	if _, err := os.Stat(filepath.Join(root, "package.json")); err != nil {
		return fmt.Errorf("package.json not found in %s: not a React project root", opts.ProjectPath)
	}

	rc, err := newRunContext(ctx, &opts, db.FlowReact, opts.ProjectPath)
	if err != nil {
		return err
	}
	rc.root = root

	runErr := runReact(ctx, rc, &opts)
	rc.finish(runErr)
	return runErr
}

func runReact(ctx context.Context, rc *runContext, opts *RunOptions) error {
	fmt.Printf("Step 1/5: Locating the development server...\n")
	appURL := opts.AppURL
	if appURL == "" {
		if port, ok := ports.NewDetector(rc.root).Detect(ctx); ok {
			appURL = fmt.Sprintf("http://localhost:%d/", port)
			fmt.Printf("Found a dev server at %s\n", appURL)
		} else {
			appURL = defaultReactURL
			fmt.Printf("No dev server detected, assuming %s\n", appURL)
		}
	}

	// =========================================================================
	// PARALLEL EXECUTION: Source indexing + Audit
	// =========================================================================
	fmt.Printf("\n🚀 Starting parallel indexing and audit of %s...\n\n", rc.root)

	g, gCtx := errgroup.WithContext(ctx)

	var idx *templates.Index
	var audited *auditOutcome
	var idxMu, audMu sync.Mutex // Protect result assignments

	g.Go(func() error {
		fmt.Printf("%sStep 2a/5: Indexing component sources...\n", prefixIndex)
		result, err := templates.BuildReactIndex(rc.root)
		if err != nil {
			return fmt.Errorf("component indexing failed: %w", err)
		}
		emitProgress(opts, rc.runID, db.StepDiscover, db.CategoryMapping,
			fmt.Sprintf("Indexed %d source artifacts", result.Len()), nil)
		fmt.Printf("%s✅ Indexing complete (%d artifacts).\n", prefixIndex, result.Len())
		idxMu.Lock()
		idx = result
		idxMu.Unlock()
		return nil
	})

	g.Go(func() error {
		result, err := auditServedApp(gCtx, rc, opts, appURL, "Step 2b/5", "react_axe_report.json")
		if err != nil {
			return fmt.Errorf("audit failed: %w", err)
		}
		audMu.Lock()
		audited = result
		audMu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	rc.index = idx

	fmt.Printf("\n✅ Indexing and audit complete. Continuing with mapping...\n\n")
	// =========================================================================

	fmt.Printf("Step 3/5: Mapping violations to components...\n")
	mapped := mapping.NewReactMapper(rc.index).Map(audited.violations)
	rc.report.Stats.Unmapped = len(mapped.Unmapped)
	fmt.Printf("Mapped %d violations to %d artifacts (%d unmapped).\n",
		mapped.MappedCount(), len(mapped.Entries), len(mapped.Unmapped))
	if opts.Verbose {
		rc.printer.PrintMapping(mapped.Entries, len(mapped.Unmapped))
	}
	emitProgress(opts, rc.runID, db.StepMap, db.CategoryMapping,
		fmt.Sprintf("Mapped %d violations to %d artifacts", mapped.MappedCount(), len(mapped.Entries)), mapped.Entries)

	fmt.Printf("Step 4/5: Rewriting %d components in sandbox...\n", len(mapped.Entries))
	fixClient := rc.llmFor(db.CallFixComponent)
	for _, entry := range mapped.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := fixReactComponent(ctx, rc, fixClient, entry, audited.screenshots)
		rc.report.AddComponent(res)
		rc.saveComponentResult(ctx, res)
		fmt.Printf("  %s -> %s\n", res.Path, res.Status)
		emitProgress(opts, rc.runID, db.StepFix, db.CategorySynthesis,
			fmt.Sprintf("%s: %s", res.Path, res.Status), res)
	}
	rc.report.ChangesMap = changesByComponent(rc.ledger.Entries())
	if opts.Verbose {
		for i := range rc.report.ChangesMap {
			rc.printer.PrintChanges(&rc.report.ChangesMap[i])
		}
	}

	fmt.Printf("Step 5/5: Applying %d changes...\n", rc.ledger.Len())
	applied := rc.ledger.Commit(rc.root)
	fmt.Printf("Applied %d of %d changes.\n", applied, rc.ledger.Len())
	for _, failure := range rc.ledger.Failures() {
		fmt.Printf("⚠️ Warning: %s could not be written: %s\n", failure.Path, failure.Message)
	}
	emitProgress(opts, rc.runID, db.StepApply, db.CategoryApply,
		fmt.Sprintf("Applied %d changes", applied), nil)

	rc.persistReport(ctx, "react_summary.json")
	if opts.Verbose {
		rc.printer.PrintRunStats(rc.report)
	}
	emitProgress(opts, rc.runID, db.StepReport, db.CategoryReport, "Run summary written", rc.report.Stats)

	fmt.Printf("Done! %d of %d components updated.\n", rc.report.Stats.Updated, rc.report.Stats.Discovered)
	return nil
}

// fixReactComponent rewrites one mapped source file. React sources carry
// markup and logic together, so the whole file is the unit of change and the
// acceptance checks tolerate non-markup prefixes like imports.
func fixReactComponent(ctx context.Context, rc *runContext, client llm.Client, entry types.MappingEntry, screenshots []llm.Image) types.ComponentResult {
	res := types.ComponentResult{Path: entry.Path, Violations: len(entry.Violations)}

	artifact, ok := rc.index.Get(entry.Path)
	if !ok {
		res.Status = types.StatusError
		res.Reason = "artifact missing from index"
		return res
	}

	req := &synthesis.ComponentRequest{
		Artifact:    artifact,
		Violations:  entry.Violations,
		Screenshots: screenshots,
	}
	corrected, err := synthesis.FixReactComponent(ctx, client, req)
	if err != nil {
		res.Status = types.StatusError
		res.Reason = err.Error()
		return res
	}

	if check := validation.CheckCandidate(artifact.Raw, corrected, types.FrameworkReact); !check.Acceptable {
		res.Status = types.StatusRejected
		res.Reason = check.Reason
		return res
	}
	if validation.IsUnchanged(artifact.Raw, corrected) {
		res.Status = types.StatusUnchanged
		return res
	}

	rc.ledger.Record(componentName(entry.Path), types.Change{
		Path:      entry.Path,
		Original:  artifact.Raw,
		Corrected: corrected,
		Kind:      types.ChangeTemplate,
	})
	res.Status = types.StatusApplied
	return res
}
