package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonathan/a11y-remediator/internal/audit"
	"github.com/jonathan/a11y-remediator/internal/browser"
	"github.com/jonathan/a11y-remediator/internal/captions"
	"github.com/jonathan/a11y-remediator/internal/db"
	"github.com/jonathan/a11y-remediator/internal/report"
	"github.com/jonathan/a11y-remediator/internal/types"
	"github.com/jonathan/a11y-remediator/internal/webpage"
)

// RunWeb remediates a single rendered web page: audit it, caption its
// images, generate an accessible variant of the rendered markup, then audit
// the variant to measure the improvement.
func RunWeb(ctx context.Context, opts RunOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(opts.URL, "http://") && !strings.HasPrefix(opts.URL, "https://") {
		return fmt.Errorf("url must start with http:// or https:// (got %s)", opts.URL)
	}

	rc, err := newRunContext(ctx, &opts, db.FlowWeb, opts.URL)
	if err != nil {
		return err
	}

	runErr := runWeb(ctx, rc, &opts)
	rc.finish(runErr)
	return runErr
}

func runWeb(ctx context.Context, rc *runContext, opts *RunOptions) error {
	start := time.Now()

	session, err := browser.NewSession(ctx, sessionOptions(opts))
	if err != nil {
		return err
	}
	defer session.Close()

	script, err := audit.FetchScript(ctx, nil)
	if err != nil {
		return err
	}
	runner := audit.NewRunner(session, script, nil)

	fmt.Printf("Step 1/5: Auditing %s...\n", opts.URL)
	initial, violations, err := auditInitial(ctx, rc, opts, session, runner)
	if err != nil {
		return fmt.Errorf("initial audit failed: %w", err)
	}
	fmt.Printf("Found %d violations across %d rules.\n", initial.Report.NodeCount, initial.Report.RuleCount)
	if opts.Verbose {
		rc.printer.PrintAuditSummary(initial.Report)
		rc.printer.PrintViolationQueue(violations)
	}
	emitProgress(opts, rc.runID, db.StepAudit, db.CategoryAudit,
		fmt.Sprintf("Audited %s: %d violations on %d nodes", opts.URL, initial.Report.RuleCount, initial.Report.NodeCount),
		audit.ImpactDistribution(initial.Report.Violations))

	if len(violations) == 0 {
		fmt.Printf("🎉 No actionable violations found, nothing to remediate.\n")
		rc.persistReport(ctx, "web_summary.json")
		return nil
	}

	fmt.Printf("Step 2/5: Capturing the rendered page and describing its images...\n")
	pageHTML, err := session.HTML()
	if err != nil {
		return fmt.Errorf("failed to capture page source: %w", err)
	}
	rc.saveArtifact("original_page.html", []byte(pageHTML))

	shots, err := session.CaptureViewportScreenshots(filepath.Join(rc.runDir, "screenshots", "before"), "before")
	if err != nil {
		fmt.Printf("Warning: Screenshot capture failed: %v\n", err)
	}
	screenshots := loadScreenshots(shots)

	descriptions := describeImages(ctx, rc, opts, pageHTML)
	emitProgress(opts, rc.runID, db.StepCaptions, db.CategoryCaptions,
		fmt.Sprintf("Described %d images", len(descriptions)), nil)

	fmt.Printf("Step 3/5: Generating the accessible page...\n")
	outName := webpage.OutputName(opts.URL)
	fixed := pageHTML
	pageResult := types.ComponentResult{Path: outName, Violations: len(violations)}

	gen, err := webpage.NewGenerator(rc.llmFor(db.CallFixComponent), &webpage.Options{
		PageURL:      opts.URL,
		Descriptions: descriptions,
		Screenshots:  screenshots,
	})
	if err != nil {
		return err
	}
	genResult, err := gen.Generate(ctx, pageHTML, violations)
	if err != nil {
		fmt.Printf("Warning: Page generation failed: %v\nSaving the original markup for comparison.\n", err)
		pageResult.Status = types.StatusError
		pageResult.Reason = err.Error()
	} else {
		fixed = genResult.HTML
		pageResult.Status = types.StatusApplied
		fmt.Printf("Fixed %d violation groups (%d failed), relabeled %d links, absolutized %d paths.\n",
			genResult.Fixed, genResult.Failed, genResult.Relabeled, genResult.Absolutized)
	}

	outPath := filepath.Join(rc.runDir, outName)
	if err := os.WriteFile(outPath, []byte(fixed), 0o644); err != nil {
		return fmt.Errorf("failed to write remediated page: %w", err)
	}
	fmt.Printf("Remediated page saved to %s\n", outPath)
	rc.report.AddComponent(pageResult)
	rc.saveComponentResult(ctx, pageResult)
	emitProgress(opts, rc.runID, db.StepGenerate, db.CategorySynthesis,
		fmt.Sprintf("%s: %s", outName, pageResult.Status), pageResult)

	fmt.Printf("Step 4/5: Auditing the remediated page...\n")
	abs, err := filepath.Abs(outPath)
	if err != nil {
		return fmt.Errorf("failed to resolve remediated page path: %w", err)
	}
	final, err := runner.Run(ctx, "file://"+abs)
	if err != nil {
		return fmt.Errorf("final audit failed: %w", err)
	}
	rc.saveArtifact("final_report.json", final.Raw)
	fmt.Printf("Remediated page has %d violations across %d rules.\n", final.Report.NodeCount, final.Report.RuleCount)
	emitProgress(opts, rc.runID, db.StepFinalAudit, db.CategoryAudit,
		fmt.Sprintf("Final audit: %d violations on %d nodes", final.Report.RuleCount, final.Report.NodeCount),
		audit.ImpactDistribution(final.Report.Violations))

	fmt.Printf("Step 5/5: Writing the comparison report...\n")
	comparison := report.Comparison{
		InitialTotal: initial.Report.NodeCount,
		FinalTotal:   final.Report.NodeCount,
		Elapsed:      time.Since(start),
	}
	comparisonPath := filepath.Join(rc.runDir, ComparisonFile)
	if err := report.WriteComparison(comparisonPath, comparison); err != nil {
		return fmt.Errorf("failed to write comparison report: %w", err)
	}
	fmt.Printf("Comparison report saved to %s\n", comparisonPath)
	fmt.Printf("Violations: %d -> %d (%.1f%% improvement)\n",
		comparison.InitialTotal, comparison.FinalTotal, comparison.ImprovementPercent())

	rc.persistReport(ctx, "web_summary.json")
	emitProgress(opts, rc.runID, db.StepReport, db.CategoryReport, "Run summary written", rc.report.Stats)
	return nil
}

// auditInitial runs the first audit in whichever mode the run asks for:
// configured page states, a scripted interaction pass over the default
// dynamic preparation, or a plain load when dynamic handling is off.
func auditInitial(ctx context.Context, rc *runContext, opts *RunOptions, session *browser.Session, runner *audit.Runner) (*audit.Result, []types.Violation, error) {
	if opts.MultiStateFile != "" {
		return auditStates(ctx, rc, opts, runner)
	}

	var interactions []audit.Interaction
	if opts.InteractionsFile != "" {
		file, err := audit.LoadInteractions(opts.InteractionsFile)
		if err != nil {
			return nil, nil, err
		}
		interactions = file.Interactions
	}

	var result *audit.Result
	var err error
	if opts.DisableDynamic && len(interactions) == 0 {
		result, err = runner.Run(ctx, opts.URL)
	} else {
		result, err = auditPrepared(ctx, opts, session, runner, interactions)
	}
	if err != nil {
		return nil, nil, err
	}
	rc.saveArtifact("initial_report.json", result.Raw)
	return result, audit.Prioritize(audit.FilterWCAGAA(result.Report.Violations)), nil
}

// auditPrepared loads the page, settles its dynamic content, applies any
// scripted interactions, and audits the page as it stands. When the in-place
// audit fails the plain navigate-and-audit path is the fallback.
func auditPrepared(ctx context.Context, opts *RunOptions, session *browser.Session, runner *audit.Runner, interactions []audit.Interaction) (*audit.Result, error) {
	if err := session.Navigate(opts.URL); err != nil {
		return nil, err
	}
	if !opts.DisableDynamic {
		session.DismissOverlays()
		session.TriggerLazyContent()
	}
	if len(interactions) > 0 {
		successful, failed := audit.ExecuteInteractions(session, interactions)
		fmt.Printf("Applied %d interactions (%d failed).\n", successful, failed)
	}

	result, err := runner.Audit(opts.URL)
	if err != nil {
		fmt.Printf("Warning: In-place audit failed (%v), retrying with a plain load.\n", err)
		return runner.Run(ctx, opts.URL)
	}
	return result, nil
}

// auditStates audits every configured page state and merges their violations
// so fixes also cover problems only visible after interaction. The default
// state anchors the before/after comparison.
func auditStates(ctx context.Context, rc *runContext, opts *RunOptions, runner *audit.Runner) (*audit.Result, []types.Violation, error) {
	file, err := audit.LoadInteractions(opts.MultiStateFile)
	if err != nil {
		return nil, nil, err
	}
	if len(file.States) == 0 {
		return nil, nil, fmt.Errorf("no states defined in %s", opts.MultiStateFile)
	}

	results, err := runner.RunStates(ctx, opts.URL, file.States)
	if err != nil {
		return nil, nil, err
	}
	for _, result := range results {
		name := "default"
		if result.State != nil {
			name = result.State.Name
		}
		rc.saveArtifact(fmt.Sprintf("initial_report_%s.json", sanitizeRunName(name)), result.Raw)
		fmt.Printf("State %q: %d violations on %d nodes.\n", name, result.Report.RuleCount, result.Report.NodeCount)
	}

	merged := mergeStateViolations(results)
	return results[0], audit.Prioritize(audit.FilterWCAGAA(merged)), nil
}

// mergeStateViolations unions violations across page states. The same node
// failing the same rule in two states is one problem, not two.
func mergeStateViolations(results []*audit.Result) []types.Violation {
	seen := make(map[string]struct{})
	var merged []types.Violation
	for _, result := range results {
		for _, v := range result.Report.Violations {
			key := v.RuleID + "\x00" + v.PrimarySelector()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, v)
		}
	}
	return merged
}

// describeImages runs the captioning pass over the images on the page. A
// broken cache disables captioning rather than failing the run.
func describeImages(ctx context.Context, rc *runContext, opts *RunOptions, pageHTML string) map[string]string {
	sources := captions.ImageSources(pageHTML)
	if len(sources) == 0 {
		fmt.Printf("No images to describe.\n")
		return nil
	}
	cache, err := captions.OpenCache(opts.CacheDir)
	if err != nil {
		fmt.Printf("Warning: Image cache unavailable (%v), skipping captions.\n", err)
		return nil
	}
	fmt.Printf("Describing %d images...\n", len(sources))
	describer := captions.NewDescriber(rc.llmFor(db.CallDescribeImage), cache)
	return describer.Describe(ctx, opts.URL, sources)
}
