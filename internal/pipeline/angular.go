package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/a11y-remediator/internal/audit"
	"github.com/jonathan/a11y-remediator/internal/browser"
	"github.com/jonathan/a11y-remediator/internal/buildcheck"
	"github.com/jonathan/a11y-remediator/internal/db"
	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/mapping"
	"github.com/jonathan/a11y-remediator/internal/repairs"
	"github.com/jonathan/a11y-remediator/internal/styles"
	"github.com/jonathan/a11y-remediator/internal/synthesis"
	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
	"github.com/jonathan/a11y-remediator/internal/validation"
)

// defaultAngularURL is where ng serve listens unless the caller says
// otherwise.
const defaultAngularURL = "http://localhost:4200/"

// auditOutcome holds the outputs of the audit branch
type auditOutcome struct {
	result      *audit.Result
	violations  []types.Violation
	screenshots []llm.Image
	appURL      string
}

// RunAngular remediates a local Angular project end to end: discover the
// project's template artifacts, audit the served application, map violations
// to components, synthesize and validate fixes in a sandbox, then commit the
// changes and verify the build.
func RunAngular(ctx context.Context, opts RunOptions) error {
	if opts.ProjectPath == "" {
		return fmt.Errorf("project path is required")
	}
	root, err := filepath.Abs(opts.ProjectPath)
	if err != nil {
		return fmt.Errorf("invalid project path: %w", err)
	}
	if _, err := os.Stat(filepath.Join(root, "angular.json")); err != nil {
		return fmt.Errorf("angular.json not found in %s: not an Angular project root", opts.ProjectPath)
	}

	rc, err := newRunContext(ctx, &opts, db.FlowAngular, opts.ProjectPath)
	if err != nil {
		return err
	}
	rc.root = root

	runErr := runAngular(ctx, rc, &opts)
	rc.finish(runErr)
	return runErr
}

func runAngular(ctx context.Context, rc *runContext, opts *RunOptions) error {
	appURL := opts.AppURL
	if appURL == "" {
		appURL = defaultAngularURL
	}

	// =========================================================================
	// PARALLEL EXECUTION: Component discovery + Audit
	// =========================================================================
	fmt.Printf("\n🚀 Starting parallel discovery and audit of %s...\n\n", rc.root)

	g, gCtx := errgroup.WithContext(ctx)

	var idx *templates.Index
	var audited *auditOutcome
	var idxMu, audMu sync.Mutex // Protect result assignments

	g.Go(func() error {
		result, err := discoverAngularComponents(rc, opts)
		if err != nil {
			return fmt.Errorf("component discovery failed: %w", err)
		}
		idxMu.Lock()
		idx = result
		idxMu.Unlock()
		return nil
	})

	g.Go(func() error {
		result, err := auditServedApp(gCtx, rc, opts, appURL, "Step 2/5", "angular_axe_report.json")
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

	fmt.Printf("\n✅ Discovery and audit complete. Continuing with mapping...\n\n")
	// =========================================================================

	fmt.Printf("Step 3/5: Mapping violations to components...\n")
	mapped := mapping.NewAngularMapper(rc.index).Map(audited.violations)
	rc.report.Stats.Unmapped = len(mapped.Unmapped)
	fmt.Printf("Mapped %d violations to %d artifacts (%d unmapped).\n",
		mapped.MappedCount(), len(mapped.Entries), len(mapped.Unmapped))
	if opts.Verbose {
		rc.printer.PrintMapping(mapped.Entries, len(mapped.Unmapped))
	}
	emitProgress(opts, rc.runID, db.StepMap, db.CategoryMapping,
		fmt.Sprintf("Mapped %d violations to %d artifacts", mapped.MappedCount(), len(mapped.Entries)), mapped.Entries)

	fmt.Printf("Step 4/5: Synthesizing fixes for %d components in sandbox...\n", len(mapped.Entries))
	fixClient := rc.llmFor(db.CallFixComponent)
	for _, entry := range mapped.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := fixAngularComponent(ctx, rc, fixClient, entry, audited.screenshots)
		rc.report.AddComponent(res)
		rc.saveComponentResult(ctx, res)
		fmt.Printf("  %s -> %s\n", res.Path, res.Status)
		emitProgress(opts, rc.runID, db.StepFix, db.CategorySynthesis,
			fmt.Sprintf("%s: %s", res.Path, res.Status), res)
	}

	// Contrast failures often live in global stylesheet rules no template
	// edit can reach.
	if change := fixGlobalContrast(ctx, rc, fixClient, audited.violations); change != nil {
		rc.ledger.Record("global-styles", *change)
	}
	rc.report.ChangesMap = changesByComponent(rc.ledger.Entries())
	if opts.Verbose {
		for i := range rc.report.ChangesMap {
			rc.printer.PrintChanges(&rc.report.ChangesMap[i])
		}
	}

	fmt.Printf("Step 5/5: Applying %d changes and verifying the build...\n", rc.ledger.Len())
	applied := rc.ledger.Commit(rc.root)
	fmt.Printf("Applied %d of %d changes.\n", applied, rc.ledger.Len())
	for _, failure := range rc.ledger.Failures() {
		fmt.Printf("⚠️ Warning: %s could not be written: %s\n", failure.Path, failure.Message)
	}
	emitProgress(opts, rc.runID, db.StepApply, db.CategoryApply,
		fmt.Sprintf("Applied %d changes", applied), nil)

	verifyCommittedBuild(ctx, rc)
	emitProgress(opts, rc.runID, db.StepVerify, db.CategoryVerify, buildMessage(rc.report.BuildOK), nil)

	rc.persistReport(ctx, "angular_summary.json")
	if opts.Verbose {
		rc.printer.PrintRunStats(rc.report)
	}
	emitProgress(opts, rc.runID, db.StepReport, db.CategoryReport, "Run summary written", rc.report.Stats)

	fmt.Printf("Done! %d of %d components updated.\n", rc.report.Stats.Updated, rc.report.Stats.Discovered)
	return nil
}

// discoverAngularComponents builds the template index for the project:
// external templates, inline templates, and the root static page.
func discoverAngularComponents(rc *runContext, opts *RunOptions) (*templates.Index, error) {
	prefix := prefixIndex
	fmt.Printf("%sStep 1/5: Discovering project components...\n", prefix)

	idx, err := templates.BuildAngularIndex(rc.root)
	if err != nil {
		return nil, err
	}
	if idx.UsedFallback() {
		fmt.Printf("%sNo usable workspace config, indexed the source tree directly.\n", prefix)
	}
	emitProgress(opts, rc.runID, db.StepDiscover, db.CategoryMapping,
		fmt.Sprintf("Indexed %d source artifacts", idx.Len()), nil)

	fmt.Printf("%s✅ Component discovery complete (%d artifacts).\n", prefix, idx.Len())
	return idx, nil
}

// auditServedApp opens a browser session against the served application,
// runs the audit engine, and captures the reference screenshots later model
// calls use to preserve the visual design.
func auditServedApp(ctx context.Context, rc *runContext, opts *RunOptions, appURL, stepLabel, reportName string) (*auditOutcome, error) {
	prefix := prefixAudit
	fmt.Printf("%s%s: Auditing %s...\n", prefix, stepLabel, appURL)

	session, err := browser.NewSession(ctx, sessionOptions(opts))
	if err != nil {
		return nil, err
	}
	defer session.Close()

	script, err := audit.FetchScript(ctx, nil)
	if err != nil {
		return nil, err
	}

	runner := audit.NewRunner(session, script, nil)
	result, err := runner.Run(ctx, appURL)
	if err != nil {
		return nil, err
	}
	fmt.Printf("%sEngine reported %d violations across %d nodes.\n", prefix, result.Report.RuleCount, result.Report.NodeCount)
	rc.saveArtifact(reportName, result.Raw)

	fmt.Printf("%sCapturing reference screenshots...\n", prefix)
	paths, err := session.CaptureViewportScreenshots(filepath.Join(rc.runDir, "screenshots", "before"), "before")
	if err != nil {
		fmt.Printf("%sWarning: Screenshot capture failed: %v\n", prefix, err)
	}

	violations := audit.Prioritize(audit.FilterWCAGAA(result.Report.Violations))
	if opts.Verbose {
		rc.printer.PrintAuditSummary(result.Report)
		rc.printer.PrintViolationQueue(violations)
	}
	emitProgress(opts, rc.runID, db.StepAudit, db.CategoryAudit,
		fmt.Sprintf("Audited %s: %d violations on %d nodes", appURL, result.Report.RuleCount, result.Report.NodeCount),
		audit.ImpactDistribution(result.Report.Violations))

	fmt.Printf("%s✅ Audit complete.\n", prefix)
	return &auditOutcome{
		result:      result,
		violations:  violations,
		screenshots: loadScreenshots(paths),
		appURL:      appURL,
	}, nil
}

// fixAngularComponent runs one mapped artifact through synthesis, mechanical
// repair, and validation, recording accepted changes in the sandbox ledger.
// Every failure is local to the artifact.
func fixAngularComponent(ctx context.Context, rc *runContext, client llm.Client, entry types.MappingEntry, screenshots []llm.Image) types.ComponentResult {
	res := types.ComponentResult{Path: entry.Path, Violations: len(entry.Violations)}

	artifact, ok := rc.index.Get(entry.Path)
	if !ok {
		res.Status = types.StatusError
		res.Reason = "artifact missing from index"
		return res
	}

	templateFindings := validation.AnalyzeTemplate(artifact.Raw)
	req := &synthesis.ComponentRequest{
		Artifact:    artifact,
		Violations:  entry.Violations,
		Findings:    templateFindings,
		Screenshots: screenshots,
	}
	if rel, ok := templates.CompanionPath(entry.Path); ok {
		req.Companion = readArtifact(rc.root, rel, types.ArtifactComponent)
	}
	if rel, ok := templates.StylesheetPath(rc.root, entry.Path); ok {
		req.Stylesheet = readArtifact(rc.root, rel, types.ArtifactStylesheet)
		if req.Stylesheet != nil {
			req.Findings = append(req.Findings, validation.AnalyzeStylesheet(req.Stylesheet.Raw)...)
		}
	}

	candidate, err := synthesis.FixComponent(ctx, client, req)
	if err != nil {
		res.Status = types.StatusError
		res.Reason = err.Error()
		return res
	}

	corrected, repaired := repairs.Run(artifact.Raw, candidate.Template)
	if len(repaired) > 0 {
		log.Printf("[PIPELINE] %s: mechanical repairs applied: %s", entry.Path, strings.Join(repaired, ", "))
	}

	if check := validation.CheckCandidate(artifact.Raw, corrected, types.FrameworkAngular); !check.Acceptable {
		res.Status = types.StatusRejected
		res.Reason = check.Reason
		return res
	}

	decision := validation.Resolve(artifact.Raw, corrected, templateFindings)
	if !decision.Changed {
		res.Status = types.StatusUnchanged
		return res
	}

	name := componentName(entry.Path)
	rc.ledger.Record(name, types.Change{
		Path:      entry.Path,
		Original:  artifact.Raw,
		Corrected: decision.Markup,
		Kind:      types.ChangeTemplate,
	})
	if decision.Forced {
		res.Reason = "statically detected problems fixed mechanically"
	}

	// Companion and stylesheet sections are optional; screen them with the
	// same truncation guard before they ride along.
	if req.Companion != nil && usableSection(req.Companion.Raw, candidate.Companion) {
		rc.ledger.Record(name, types.Change{
			Path:      req.Companion.Path,
			Original:  req.Companion.Raw,
			Corrected: candidate.Companion,
			Kind:      types.ChangeCompanion,
		})
	}
	if req.Stylesheet != nil && usableSection(req.Stylesheet.Raw, candidate.Stylesheet) {
		rc.ledger.Record(name, types.Change{
			Path:      req.Stylesheet.Path,
			Original:  req.Stylesheet.Raw,
			Corrected: candidate.Stylesheet,
			Kind:      types.ChangeStylesheet,
		})
	}

	res.Status = types.StatusApplied
	return res
}

// fixGlobalContrast runs the global stylesheet contrast pass over the run's
// violations. The pass selects the contrast subset itself.
func fixGlobalContrast(ctx context.Context, rc *runContext, client llm.Client, violations []types.Violation) *types.Change {
	change, err := styles.FixGlobalStylesheet(ctx, client, rc.root, violations)
	if err != nil {
		fmt.Printf("Warning: Global stylesheet pass failed: %v\n", err)
		return nil
	}
	return change
}

// verifyCommittedBuild confirms the project still compiles and feeds any
// build errors through the compile-repair path. Committed changes stay in
// place either way.
func verifyCommittedBuild(ctx context.Context, rc *runContext) {
	build := buildcheck.Verify(ctx, rc.root)
	switch {
	case !build.Available:
		fmt.Printf("⚠️ Warning: Build verification unavailable, changes were applied unverified.\n")
	case build.Success:
		fmt.Printf("✅ Project builds after remediation.\n")
		ok := true
		rc.report.BuildOK = &ok
	default:
		fmt.Printf("✗ Build failed with %d errors, attempting self-repair...\n", len(build.Errors))
		repairClient := rc.llmFor(db.CallRepairBuild)
		if fixes := buildcheck.Repair(ctx, repairClient, rc.root, build.Errors); len(fixes) > 0 {
			applied := buildcheck.Apply(rc.root, fixes)
			fmt.Printf("Applied %d compile fixes, re-verifying...\n", applied)
			build = buildcheck.Verify(ctx, rc.root)
		}
		ok := build.Success
		rc.report.BuildOK = &ok
		if build.Success {
			fmt.Printf("✅ Build repaired successfully.\n")
		} else {
			fmt.Printf("⚠️ Warning: Project does not build after remediation (%d errors). Changes are kept for manual review.\n", len(build.Errors))
		}
	}
}

func buildMessage(ok *bool) string {
	switch {
	case ok == nil:
		return "Build verification unavailable"
	case *ok:
		return "Build verified"
	default:
		return "Build failing after changes"
	}
}

// sessionOptions adapts run options to a browser session configuration.
func sessionOptions(opts *RunOptions) *browser.Options {
	o := browser.DefaultOptions()
	o.Verbose = opts.Verbose
	return o
}

// readArtifact loads a project file as a source artifact. A missing file is
// not an error; the fix request just goes out without that section.
func readArtifact(root, rel string, kind types.ArtifactKind) *types.SourceArtifact {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil
	}
	return &types.SourceArtifact{Path: rel, Kind: kind, Raw: string(data)}
}

// usableSection screens an optional response section: present, actually
// different, and not suspiciously truncated.
func usableSection(original, corrected string) bool {
	if strings.TrimSpace(corrected) == "" {
		return false
	}
	if validation.IsUnchanged(original, corrected) {
		return false
	}
	return float64(len(corrected)) >= 0.5*float64(len(original))
}

// componentName derives the display name changes are grouped under.
func componentName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, ".component")
}
