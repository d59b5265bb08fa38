// Package types provides type definitions for structured data used throughout the a11y-remediator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// Impact is the ordinal severity assigned by the audit engine to a violation.
type Impact string

const (
	ImpactMinor    Impact = "minor"
	ImpactModerate Impact = "moderate"
	ImpactSerious  Impact = "serious"
	ImpactCritical Impact = "critical"
)

// ParseImpact normalizes a raw impact string from an audit report.
// Unknown or empty values fall back to moderate.
func ParseImpact(s string) Impact {
	switch Impact(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactMinor:
		return ImpactMinor
	case ImpactModerate:
		return ImpactModerate
	case ImpactSerious:
		return ImpactSerious
	case ImpactCritical:
		return ImpactCritical
	default:
		return ImpactModerate
	}
}

// Priority returns the processing priority of an impact level.
// Lower values are handled first: critical=1, serious=2, moderate=3, minor=4.
func (i Impact) Priority() int {
	switch i {
	case ImpactCritical:
		return 1
	case ImpactSerious:
		return 2
	case ImpactModerate:
		return 3
	case ImpactMinor:
		return 4
	default:
		return 3
	}
}

// MeetsWCAGAA reports whether the impact falls in the WCAG A/AA band.
// The audit engine maps WCAG A failures to critical and AA failures to serious.
func (i Impact) MeetsWCAGAA() bool {
	return i == ImpactCritical || i == ImpactSerious
}

// ContrastData holds the color measurements attached to a contrast violation node.
type ContrastData struct {
	Foreground    string  `json:"fg_color,omitempty"`
	Background    string  `json:"bg_color,omitempty"`
	Ratio         float64 `json:"contrast_ratio,omitempty"`
	ExpectedRatio string  `json:"expected_contrast_ratio,omitempty"`
	FontSize      string  `json:"font_size,omitempty"`
	FontWeight    string  `json:"font_weight,omitempty"`
}

// Violation represents one (rule, affected node) pair from an audit report.
// Violations are created once per analysis run and never mutated.
type Violation struct {
	RuleID         string        `json:"rule_id"`
	Impact         Impact        `json:"impact"`
	Description    string        `json:"description"`
	HelpText       string        `json:"help_text,omitempty"`
	Selectors      []string      `json:"selectors"`
	HTMLFragment   string        `json:"html_fragment"`
	FailureSummary string        `json:"failure_summary,omitempty"`
	Contrast       *ContrastData `json:"contrast,omitempty"`
}

// PrimarySelector returns the most specific selector identifying the
// offending rendered node, or "" when the report carried none.
func (v Violation) PrimarySelector() string {
	if len(v.Selectors) == 0 {
		return ""
	}
	return v.Selectors[0]
}

// IsContrast reports whether this violation is the color-contrast rule.
func (v Violation) IsContrast() bool {
	return v.RuleID == "color-contrast"
}

// IsDocumentLanguage reports whether this violation is the
// document-must-declare-a-language rule, which the mapper special-cases.
func (v Violation) IsDocumentLanguage() bool {
	return v.RuleID == "html-has-lang" || v.RuleID == "html-lang-valid"
}

// Violations represents a collection of audit findings.
type Violations struct {
	Violations []Violation `json:"violations"`
}
