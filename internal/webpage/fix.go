package webpage

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/prompts"
	"github.com/jonathan/a11y-remediator/internal/styles"
	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
)

var fontSizeRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:pt|px)`)

// WCAG counts text at 18pt, or 14pt bold, as large and relaxes the required
// ratio to 3:1.
const (
	largeTextSize     = 18
	largeTextBoldSize = 14
)

var textChildTags = []string{
	"p", "span", "a", "li", "td", "th", "label",
	"h1", "h2", "h3", "h4", "h5", "h6", "strong", "em", "b", "i",
}

var containerTags = map[string]bool{
	"div": true, "section": true, "article": true, "header": true,
	"footer": true, "nav": true, "main": true, "ul": true, "ol": true,
}

// fixViolations sends each located violation fragment to the model and
// replaces the node with the corrected markup. Document-language rules are
// counted as fixed because ensureLang already guaranteed the attribute.
func (g *Generator) fixViolations(ctx context.Context, doc *goquery.Document, violations []types.Violation) (int, int) {
	fixed, failed := 0, 0
	for _, v := range violations {
		selector := v.PrimarySelector()
		if selector == "" {
			continue
		}
		if v.IsDocumentLanguage() {
			fixed++
			continue
		}

		node, ok := FindNode(doc, selector, v.HTMLFragment)
		if !ok {
			log.Printf("[WEBPAGE] No node found for %s at %.80s", v.RuleID, selector)
			failed++
			continue
		}
		fragment, err := goquery.OuterHtml(node)
		if err != nil {
			failed++
			continue
		}

		log.Printf("[WEBPAGE] Fixing %s (%s) at %.80s", v.RuleID, v.Impact, selector)
		response, err := g.client.GenerateWithImages(ctx, g.buildFixPrompt(v, node, fragment), g.screenshots, llm.TierAdvanced)
		if err != nil {
			log.Printf("[WEBPAGE] Fix request failed for %s: %v", v.RuleID, err)
			failed++
			continue
		}

		cleaned := strings.TrimSpace(llm.CleanCodeFences(response))
		switch {
		case cleaned == "" || !strings.Contains(cleaned, "<"):
			log.Printf("[WEBPAGE] Unusable response for %s", v.RuleID)
			failed++
		case templates.NormalizeAngular(cleaned) == templates.NormalizeAngular(fragment):
			log.Printf("[WEBPAGE] Model returned the fragment unchanged for %s", v.RuleID)
			failed++
		default:
			node.ReplaceWithHtml(cleaned)
			fixed++
		}
	}
	return fixed, failed
}

// buildFixPrompt assembles the system and task text for one violation.
// Contrast violations get the computed color guidance; everything else gets
// the general repair rules plus any caption notes for images in the
// fragment.
func (g *Generator) buildFixPrompt(v types.Violation, node *goquery.Selection, fragment string) string {
	var system, body string
	if v.IsContrast() {
		details, recommended := contrastDetails(v, node)
		system = prompts.Format(prompts.MustGet("webpage.json", "system-contrast"), map[string]string{
			"RecommendedColor": recommended,
		})
		body = prompts.Format(prompts.MustGet("webpage.json", "fragment-contrast-fix"), map[string]string{
			"Description":      v.Description,
			"Details":          details,
			"RecommendedColor": recommended,
			"Fragment":         fragment,
		})
	} else {
		system = prompts.MustGet("webpage.json", "system-accessibility")
		body = prompts.Format(prompts.MustGet("webpage.json", "fragment-general-fix"), map[string]string{
			"Description": v.Description,
			"Details":     generalDetails(v, fragmentImageNotes(fragment, g.descriptions, g.base)),
			"Fragment":    fragment,
		})
	}
	if len(g.screenshots) > 0 {
		body += "\n\n" + prompts.MustGet("webpage.json", "screenshot-reference-note")
	}
	return system + "\n\n" + body
}

// contrastDetails renders the measured colors and the guaranteed
// replacement into prompt text and returns it with the recommended color.
func contrastDetails(v types.Violation, node *goquery.Selection) (string, string) {
	recommended := "#000000"
	var sections []string
	if v.FailureSummary != "" {
		sections = append(sections, "DETAIL: "+v.FailureSummary)
	}

	c := v.Contrast
	if c != nil {
		requiredStr := c.ExpectedRatio
		if requiredStr == "" {
			requiredStr = "4.5:1"
		}

		if c.Background != "" && c.Foreground != "" {
			textType := "normal text (requires 4.5:1)"
			if isLargeText(c) {
				textType = "large text (requires 3:1)"
			}
			sections = append(sections, strings.Join([]string{
				"CONTRAST INFORMATION DETECTED:",
				"- Current background color: " + c.Background,
				"- Current text color: " + c.Foreground,
				"- Current contrast ratio: " + strconv.FormatFloat(c.Ratio, 'f', 2, 64),
				"- Required contrast ratio: " + requiredStr,
				"- Font size: " + c.FontSize,
				"- Font weight: " + c.FontWeight,
				"- Text type: " + textType,
			}, "\n"))
		}

		if c.Background != "" {
			recommended = styles.FindContrastingColor(c.Background, styles.ParseRequiredRatio(requiredStr))
			if achieved, err := styles.ContrastRatio(recommended, c.Background); err == nil {
				sections = append(sections, strings.Join([]string{
					"GUARANTEED COLOR RECOMMENDATION:",
					"- Use exactly this color: " + recommended,
					"- It reaches a contrast of " + strconv.FormatFloat(achieved, 'f', 2, 64) + ":1 against the background " + c.Background,
					"- That satisfies the required ratio of " + requiredStr,
				}, "\n"))
			} else {
				sections = append(sections, "RECOMMENDED COLOR: "+recommended)
			}
		}
	}

	if note := applyToChildrenNote(node, recommended); note != "" {
		sections = append(sections, note)
	}
	return strings.Join(sections, "\n\n"), recommended
}

func generalDetails(v types.Violation, imageNotes string) string {
	var lines []string
	if v.FailureSummary != "" {
		lines = append(lines, "DETAIL: "+v.FailureSummary)
	}
	if v.HelpText != "" {
		lines = append(lines, "HELP (Axe): "+v.HelpText)
	}
	if imageNotes != "" {
		lines = append(lines, imageNotes)
	}
	return strings.Join(lines, "\n")
}

func isLargeText(c *types.ContrastData) bool {
	m := fontSizeRe.FindStringSubmatch(c.FontSize)
	if m == nil {
		return false
	}
	size, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return false
	}
	if size >= largeTextSize {
		return true
	}
	bold := c.FontWeight == "bold" || c.FontWeight == "700" || c.FontWeight == "bolder"
	return size >= largeTextBoldSize && bold
}

// applyToChildrenNote tells the model to push the color onto text-bearing
// children when the target is a container or already has such children; a
// color on the wrapper alone leaves nested text failing the same check.
func applyToChildrenNote(node *goquery.Selection, color string) string {
	if node == nil {
		return ""
	}
	if !containerTags[goquery.NodeName(node)] && !hasTextChildren(node) {
		return ""
	}
	return prompts.Format(prompts.MustGet("webpage.json", "apply-to-children-note"), map[string]string{
		"Color": color,
	})
}

func hasTextChildren(node *goquery.Selection) bool {
	found := false
	node.Find(strings.Join(textChildTags, ", ")).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != "" {
			found = true
			return false
		}
		return true
	})
	return found
}
