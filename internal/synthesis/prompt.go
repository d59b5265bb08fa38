package synthesis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/a11y-remediator/internal/prompts"
	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
	"github.com/jonathan/a11y-remediator/internal/validation"
)

// fragmentDisplayLimit caps how much of an offending fragment is quoted in a
// prompt. Rendered fragments can be enormous (whole tables, SVGs).
const fragmentDisplayLimit = 200

// buildComponentPrompt assembles the request for one Angular component. With
// no known problems the short review variant is used; otherwise every mapped
// violation and static finding is enumerated so the model has something
// concrete to locate.
func buildComponentPrompt(req *ComponentRequest) string {
	data := map[string]string{
		"ComponentName":     req.name(),
		"TemplatePath":      req.Artifact.Path,
		"Template":          req.Artifact.Raw,
		"TypeScriptSection": artifactSection("TypeScript", "ts", req.Companion),
		"StylesSection":     artifactSection("Styles", "css", req.Stylesheet),
		"ResponseFormat":    prompts.MustGet("synthesis.json", "response-format"),
	}

	key := "component-fix-clean"
	if len(req.Violations) > 0 || len(req.Findings) > 0 {
		key = "component-fix-violations"
		data["ErrorsSection"] = errorsSection(req)
	}

	prompt := prompts.Format(prompts.MustGet("synthesis.json", key), data)
	if len(req.Screenshots) > 0 {
		prompt += "\n\n" + prompts.MustGet("synthesis.json", "screenshot-instructions")
	}
	return prompt
}

// errorsSection renders the audit violations first (they carry rendered-page
// evidence) and the static findings after.
func errorsSection(req *ComponentRequest) string {
	var blocks []string

	if len(req.Violations) > 0 {
		header := prompts.MustGet("synthesis.json", "violations-header")
		blocks = append(blocks, prompts.Format(header, map[string]string{
			"Count": strconv.Itoa(len(req.Violations)),
			"List":  violationList(req.Violations),
		}))
	}

	if len(req.Findings) > 0 {
		blocks = append(blocks, findingsBlock(req.Findings))
	}

	return strings.Join(blocks, "\n\n")
}

func violationList(violations []types.AttributedViolation) string {
	lines := make([]string, 0, len(violations))
	for i, av := range violations {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, formatViolation(av.Violation)))
	}
	return strings.Join(lines, "\n\n")
}

// formatViolation renders one violation as a single pipe-separated line, the
// shape the locate instructions in the prompt refer back to.
func formatViolation(v types.Violation) string {
	parts := []string{fmt.Sprintf("AXE ERROR: %s (%s)", v.RuleID, v.Impact)}

	if sel := v.PrimarySelector(); sel != "" {
		parts = append(parts, "Selector: "+sel)
		if note := materialSelectorNote(sel); note != "" {
			parts = append(parts, note)
		}
	}
	if v.Description != "" {
		parts = append(parts, "Description: "+v.Description)
	}
	if v.Contrast != nil {
		parts = append(parts, "Contrast: "+contrastLine(v.Contrast))
	}
	if frag := displayFragment(v.HTMLFragment); frag != "" {
		parts = append(parts, "Affected HTML: "+frag)
		if note := materialFragmentNote(frag); note != "" {
			parts = append(parts, note)
		}
	}
	if v.HelpText != "" {
		parts = append(parts, "Help: "+v.HelpText)
	}

	return strings.Join(parts, " | ")
}

func contrastLine(c *types.ContrastData) string {
	line := fmt.Sprintf("foreground %s on background %s, ratio %.2f", c.Foreground, c.Background, c.Ratio)
	if c.ExpectedRatio != "" {
		line += fmt.Sprintf(" (requires %s)", c.ExpectedRatio)
	}
	if c.FontSize != "" {
		line += ", font size " + c.FontSize
	}
	return line
}

// materialSelectorNote warns when a selector points at a node Angular
// Material generates at render time, which therefore cannot be found in any
// source template.
func materialSelectorNote(selector string) string {
	if !strings.Contains(selector, ".mdc-button__label") && !strings.Contains(selector, ".mat-button-label") {
		return ""
	}
	parent := selector
	if i := strings.Index(selector, " > "); i >= 0 {
		parent = selector[:i]
	}
	return fmt.Sprintf("NOTE: this selector targets an element generated by Angular Material; it does not exist in the template. Find the parent button matching %q and apply the style there", parent)
}

var fragmentTextRe = regexp.MustCompile(`>\s*([^<]+?)\s*<`)

// materialFragmentNote points the model at the owning button when the
// offending fragment itself is a generated label span.
func materialFragmentNote(fragment string) string {
	if !strings.Contains(fragment, "mdc-button__label") && !strings.Contains(fragment, "mat-button-label") {
		return ""
	}
	if m := fragmentTextRe.FindStringSubmatch(fragment); m != nil {
		return fmt.Sprintf("NOTE: this span is generated by Angular Material; find the button containing the text %q in the template", m[1])
	}
	return "NOTE: this span is generated by Angular Material; find the owning button in the template"
}

// displayFragment strips runtime attributes and collapses the fragment to a
// single bounded line for quoting.
func displayFragment(fragment string) string {
	cleaned := templates.NormalizeAngular(fragment)
	if len(cleaned) > fragmentDisplayLimit {
		cleaned = cleaned[:fragmentDisplayLimit] + "..."
	}
	return cleaned
}

func findingsBlock(findings []validation.Finding) string {
	var sb strings.Builder
	sb.WriteString("STATIC ANALYSIS FINDINGS (detected by reading the source, fix these too):\n")
	for _, f := range findings {
		sb.WriteString(fmt.Sprintf("- [%s] %s", f.Category, f.Message))
		if f.Element != "" {
			element := templates.CollapseWhitespace(f.Element)
			if len(element) > fragmentDisplayLimit {
				element = element[:fragmentDisplayLimit] + "..."
			}
			sb.WriteString(": " + element)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func artifactSection(label, lang string, a *types.SourceArtifact) string {
	if a == nil {
		return fmt.Sprintf("\n---\n%s: (not provided)", label)
	}
	return fmt.Sprintf("\n---\n%s (%s):\n```%s\n%s\n```", label, a.Path, lang, a.Raw)
}

// buildReactPrompt assembles the request for one React component. The whole
// component travels in a single fenced block and the response is expected to
// be the full corrected component, not marked sections.
func buildReactPrompt(req *ComponentRequest) string {
	contrastInstructions := ""
	if hasContrast(req.Violations) {
		contrastInstructions = "\n" + prompts.MustGet("synthesis.json", "react-contrast-instructions")
	}

	return prompts.Format(prompts.MustGet("synthesis.json", "react-component-fix"), map[string]string{
		"Total":                strconv.Itoa(len(req.Violations)),
		"ComponentPath":        req.Artifact.Path,
		"Violations":           reactViolationList(req.Violations),
		"ContrastInstructions": contrastInstructions,
		"Component":            req.Artifact.Raw,
	})
}

var leadingTagRe = regexp.MustCompile(`<(\w+)`)

func reactViolationList(violations []types.AttributedViolation) string {
	var lines []string
	for _, av := range violations {
		v := av.Violation

		tag := "element"
		fragment := strings.TrimSpace(v.HTMLFragment)
		if m := leadingTagRe.FindStringSubmatch(fragment); m != nil {
			tag = m[1]
		}

		line := fmt.Sprintf("- %s (%s) on <%s>", v.RuleID, v.Impact, tag)
		if v.Description != "" {
			line += ": " + v.Description
		}
		lines = append(lines, line)

		if fragment != "" {
			first := strings.TrimSpace(strings.SplitN(fragment, "\n", 2)[0])
			if len(first) > fragmentDisplayLimit {
				first = first[:fragmentDisplayLimit] + "..."
			}
			lines = append(lines, "  HTML: "+first)
		}
	}
	return strings.Join(lines, "\n")
}

func hasContrast(violations []types.AttributedViolation) bool {
	for _, av := range violations {
		if av.Violation.IsContrast() {
			return true
		}
	}
	return false
}
