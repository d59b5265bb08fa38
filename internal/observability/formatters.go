// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/a11y-remediator/internal/audit"
	"github.com/jonathan/a11y-remediator/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAuditSummary outputs a human-readable summary of an axe audit.
func (p *Printer) PrintAuditSummary(report *audit.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Affected nodes:  %d\n", report.NodeCount))
	sb.WriteString(fmt.Sprintf("Distinct rules:  %d\n", report.RuleCount))
	sb.WriteString(fmt.Sprintf("WCAG A/AA band:  %d\n", len(audit.FilterWCAGAA(report.Violations))))

	dist := audit.ImpactDistribution(report.Violations)
	if len(dist) > 0 {
		sb.WriteString("\nBy impact:\n")
		for _, impact := range []types.Impact{types.ImpactCritical, types.ImpactSerious, types.ImpactModerate, types.ImpactMinor} {
			if count := dist[impact]; count > 0 {
				sb.WriteString(fmt.Sprintf("  %-9s %d\n", impact, count))
			}
		}
	}

	p.printBox("AUDIT RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintViolationQueue outputs the top of the prioritized violation queue.
func (p *Printer) PrintViolationQueue(violations []types.Violation) {
	if len(violations) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total violations queued: %d\n\n", len(violations)))

	count := min(len(violations), maxItemsToShow)
	for i := 0; i < count; i++ {
		v := violations[i]
		sb.WriteString(fmt.Sprintf("#%d  %s (%s)\n", i+1, v.RuleID, v.Impact))
		if sel := v.PrimarySelector(); sel != "" {
			if len(sel) > 45 {
				sel = sel[:42] + "..."
			}
			sb.WriteString(fmt.Sprintf("    %s\n", sel))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(violations) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more violations", len(violations)-maxItemsToShow))
	}

	p.printBox("PRIORITIZED VIOLATIONS", sb.String())
}

// PrintMapping outputs how violations were attributed to source artifacts.
func (p *Printer) PrintMapping(entries []types.MappingEntry, unmapped int) {
	if len(entries) == 0 && unmapped == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Artifacts with violations: %d\n", len(entries)))
	sb.WriteString(fmt.Sprintf("Unmapped violations:       %d\n\n", unmapped))

	count := min(len(entries), maxItemsToShow)
	for i := 0; i < count; i++ {
		entry := entries[i]
		path := entry.Path
		if len(path) > 42 {
			path = "..." + path[len(path)-39:]
		}
		sb.WriteString(fmt.Sprintf("• %s (%d)\n", path, len(entry.Violations)))
	}

	if len(entries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more artifacts", len(entries)-maxItemsToShow))
	}

	p.printBox("VIOLATION MAPPING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintChanges outputs the sandboxed changes produced for one component.
func (p *Printer) PrintChanges(entry *types.ChangeEntry) {
	if entry == nil || len(entry.Changes) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Component: %s\n\n", entry.Component))

	for _, kind := range []types.ChangeKind{types.ChangeTemplate, types.ChangeCompanion, types.ChangeStylesheet} {
		change, ok := entry.Changes[kind]
		if !ok {
			continue
		}
		path := change.Path
		if len(path) > 38 {
			path = "..." + path[len(path)-35:]
		}
		sb.WriteString(fmt.Sprintf("• %-10s %s\n", kind, path))
	}

	p.printBox("SANDBOXED CHANGES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunStats outputs the final run counters.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintRunStats(report *types.RunReport) {
	if report == nil {
		return
	}

	if report.Stats.Discovered == 0 && report.Stats.Errors == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NOTHING TO REMEDIATE")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Components discovered: %d\n", report.Stats.Discovered))
	sb.WriteString(fmt.Sprintf("Components updated:    %d\n", report.Stats.Updated))
	sb.WriteString(fmt.Sprintf("Errors:                %d\n", report.Stats.Errors))
	if report.Stats.Unmapped > 0 {
		sb.WriteString(fmt.Sprintf("Unmapped violations:   %d\n", report.Stats.Unmapped))
	}
	if report.BuildOK != nil {
		if *report.BuildOK {
			sb.WriteString("Build:                 ✅ passing\n")
		} else {
			sb.WriteString("Build:                 ⚠ failing\n")
		}
	}
	if elapsed := report.Elapsed(); elapsed > 0 {
		sb.WriteString(fmt.Sprintf("Elapsed:               %s\n", elapsed.Round(time.Second)))
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}
