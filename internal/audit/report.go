// Package audit parses accessibility engine reports and drives audit runs
// against a live browser session.
package audit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/jonathan/a11y-remediator/internal/types"
)

// rawReport mirrors the audit engine's JSON output shape.
type rawReport struct {
	Violations []rawViolation `json:"violations"`
	Error      string         `json:"error,omitempty"`
}

type rawViolation struct {
	ID          string    `json:"id"`
	Impact      string    `json:"impact"`
	Description string    `json:"description"`
	Help        string    `json:"help"`
	Nodes       []rawNode `json:"nodes"`
}

type rawNode struct {
	Target         []string   `json:"target"`
	HTML           string     `json:"html"`
	FailureSummary string     `json:"failureSummary"`
	Any            []rawCheck `json:"any"`
	All            []rawCheck `json:"all"`
}

// rawCheck keeps Data opaque: its shape varies per rule and is only decoded
// for contrast checks.
type rawCheck struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type contrastPayload struct {
	FgColor               string  `json:"fgColor"`
	BgColor               string  `json:"bgColor"`
	ContrastRatio         float64 `json:"contrastRatio"`
	ExpectedContrastRatio string  `json:"expectedContrastRatio"`
	FontSize              string  `json:"fontSize"`
	FontWeight            string  `json:"fontWeight"`
}

// Report is a parsed audit run: one Violation per (rule, affected node)
// pair, plus the pre-flatten counts used for before/after comparisons.
type Report struct {
	Violations []types.Violation
	RuleCount  int
	NodeCount  int
}

// Failure summary fallbacks for reports whose contrast checks carry no
// structured data payload.
var (
	fgColorRe       = regexp.MustCompile(`foreground color: (#[0-9a-fA-F]{3,8})`)
	bgColorRe       = regexp.MustCompile(`background color: (#[0-9a-fA-F]{3,8})`)
	ratioRe         = regexp.MustCompile(`contrast of ([\d.]+)`)
	expectedRatioRe = regexp.MustCompile(`[Ee]xpected contrast ratio of ([\d.:]+)`)
)

// ParseReport decodes an audit engine report and flattens it into one
// Violation per affected node. Nodes without an HTML fragment and without a
// selector carry nothing to match on and are skipped.
func ParseReport(data []byte) (*Report, error) {
	var raw rawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode audit report: %w", err)
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("audit engine reported an error: %s", raw.Error)
	}

	report := &Report{RuleCount: len(raw.Violations)}
	for _, rv := range raw.Violations {
		report.NodeCount += len(rv.Nodes)
		for _, node := range rv.Nodes {
			if node.HTML == "" && len(node.Target) == 0 {
				continue
			}
			v := types.Violation{
				RuleID:         rv.ID,
				Impact:         types.ParseImpact(rv.Impact),
				Description:    rv.Description,
				HelpText:       rv.Help,
				Selectors:      node.Target,
				HTMLFragment:   node.HTML,
				FailureSummary: node.FailureSummary,
			}
			if v.IsContrast() {
				v.Contrast = contrastFromNode(node)
			}
			report.Violations = append(report.Violations, v)
		}
	}
	return report, nil
}

// contrastFromNode extracts color measurements from the node's first check
// payload, falling back to failure summary text when the payload is absent.
func contrastFromNode(node rawNode) *types.ContrastData {
	for _, check := range node.Any {
		if len(check.Data) == 0 {
			continue
		}
		var payload contrastPayload
		if err := json.Unmarshal(check.Data, &payload); err != nil {
			continue
		}
		if payload.FgColor != "" || payload.BgColor != "" {
			return &types.ContrastData{
				Foreground:    payload.FgColor,
				Background:    payload.BgColor,
				Ratio:         payload.ContrastRatio,
				ExpectedRatio: payload.ExpectedContrastRatio,
				FontSize:      payload.FontSize,
				FontWeight:    payload.FontWeight,
			}
		}
	}
	return contrastFromSummary(node.FailureSummary)
}

func contrastFromSummary(summary string) *types.ContrastData {
	if summary == "" {
		return nil
	}
	data := &types.ContrastData{}
	found := false
	if m := fgColorRe.FindStringSubmatch(summary); m != nil {
		data.Foreground = m[1]
		found = true
	}
	if m := bgColorRe.FindStringSubmatch(summary); m != nil {
		data.Background = m[1]
		found = true
	}
	if m := ratioRe.FindStringSubmatch(summary); m != nil {
		fmt.Sscanf(m[1], "%f", &data.Ratio) //nolint:errcheck // best-effort parse of engine text
		found = true
	}
	if m := expectedRatioRe.FindStringSubmatch(summary); m != nil {
		data.ExpectedRatio = m[1]
		found = true
	}
	if !found {
		return nil
	}
	return data
}

// FilterWCAGAA keeps only violations in the WCAG A/AA band (critical and
// serious impact).
func FilterWCAGAA(violations []types.Violation) []types.Violation {
	var filtered []types.Violation
	for _, v := range violations {
		if v.Impact.MeetsWCAGAA() {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// Prioritize orders violations by impact priority, then rule id, without
// mutating the input.
func Prioritize(violations []types.Violation) []types.Violation {
	out := make([]types.Violation, len(violations))
	copy(out, violations)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Impact.Priority() != out[j].Impact.Priority() {
			return out[i].Impact.Priority() < out[j].Impact.Priority()
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}

// RuleGroup aggregates the nodes affected by one rule.
type RuleGroup struct {
	Description string
	Impact      types.Impact
	Violations  []types.Violation
}

// GroupByRule buckets violations by rule id for summary output.
func GroupByRule(violations []types.Violation) map[string]*RuleGroup {
	groups := make(map[string]*RuleGroup)
	for _, v := range violations {
		group, ok := groups[v.RuleID]
		if !ok {
			group = &RuleGroup{Description: v.HelpText, Impact: v.Impact}
			if group.Description == "" {
				group.Description = v.Description
			}
			groups[v.RuleID] = group
		}
		group.Violations = append(group.Violations, v)
	}
	return groups
}

// ImpactDistribution counts violations per impact level, used when a run
// finds nothing in the WCAG A/AA band and reports what it saw instead.
func ImpactDistribution(violations []types.Violation) map[types.Impact]int {
	dist := make(map[types.Impact]int)
	for _, v := range violations {
		dist[v.Impact]++
	}
	return dist
}
