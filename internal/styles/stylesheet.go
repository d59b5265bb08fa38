package styles

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/prompts"
	"github.com/jonathan/a11y-remediator/internal/types"
)

// stylesheetExcerptLimit caps how much of the current global stylesheet is
// quoted in a prompt.
const stylesheetExcerptLimit = 4000

// fixCommentPrefix marks rules this tool appended on a previous run so they
// can be stripped before new ones land instead of accumulating.
const fixCommentPrefix = "/* axe contrast fix for "

// genericSelectors are class selectors too broad to restyle safely; a color
// rule on .btn or .container would bleed across the whole page.
var genericSelectors = map[string]bool{
	".btn": true, ".container": true, ".row": true, ".col": true, ".card": true,
	".nav": true, ".navbar": true, ".form": true, ".input": true, ".label": true,
	".text": true, ".title": true, ".header": true, ".footer": true, ".main": true,
	".content": true, ".wrapper": true, ".section": true, ".div": true, ".span": true,
	".p": true, ".a": true, ".button": true, ".img": true, ".ul": true, ".li": true,
	".table": true, ".tr": true, ".td": true,
}

// forbiddenProps are layout declarations a generated rule must never carry.
// A candidate block containing any of them is discarded whole.
var forbiddenProps = []string{
	"display:", "position:", "flex:", "grid:", "width:", "height:",
	"margin:", "padding:", "top:", "left:", "right:", "bottom:",
}

var (
	classAttrRe = regexp.MustCompile(`class=["']([^"']+)["']`)
	classPartRe = regexp.MustCompile(`\.([a-zA-Z0-9_-]+)`)

	// fixBlockRe matches one previously appended rule: the marker comment
	// through the first closing brace.
	fixBlockRe = regexp.MustCompile(`(?s)/\* axe contrast fix for [^*]*\*/\s*[^}]*}`)

	blankRunRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// LocateGlobalStylesheet returns the project's global stylesheet path,
// preferring SCSS, or "" when the project has neither.
func LocateGlobalStylesheet(root string) string {
	for _, rel := range []string{"src/styles.scss", "src/styles.css"} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return rel
		}
	}
	return ""
}

// DeriveSelector picks the class selector a contrast rule should target.
// The most specific class wins: classes later in the attribute are preferred,
// generic framework classes are skipped, and when the fragment carries no
// class attribute the audit selector's class parts are consulted. Returns ""
// when nothing safe can be derived.
func DeriveSelector(v types.Violation) string {
	if m := classAttrRe.FindStringSubmatch(v.HTMLFragment); m != nil {
		classes := strings.Fields(m[1])
		for i := len(classes) - 1; i >= 0; i-- {
			candidate := "." + classes[i]
			if !genericSelectors[candidate] {
				return candidate
			}
		}
		if len(classes) > 0 {
			return "." + classes[len(classes)-1]
		}
	}

	raw := v.PrimarySelector()
	if raw == "" {
		return ""
	}
	parts := classPartRe.FindAllStringSubmatch(raw, -1)
	if len(parts) == 0 {
		return ""
	}
	selector := "." + parts[len(parts)-1][1]
	if genericSelectors[selector] {
		if len(parts) > 1 {
			return "." + parts[len(parts)-2][1]
		}
		return ""
	}
	return selector
}

// GroupBySelector buckets contrast violations by their derived selector,
// dropping violations no safe selector can be derived for.
func GroupBySelector(violations []types.Violation) map[string][]types.Violation {
	groups := make(map[string][]types.Violation)
	for _, v := range violations {
		if !v.IsContrast() {
			continue
		}
		selector := DeriveSelector(v)
		if selector == "" || genericSelectors[selector] {
			continue
		}
		groups[selector] = append(groups[selector], v)
	}
	return groups
}

// StripPreviousFixes removes rules appended by earlier runs and collapses
// the blank lines they leave behind.
func StripPreviousFixes(css string) string {
	cleaned := fixBlockRe.ReplaceAllString(css, "")
	return strings.TrimRight(blankRunRe.ReplaceAllString(cleaned, "\n\n"), "\n")
}

// HasForbiddenProps reports whether a candidate CSS block touches layout.
func HasForbiddenProps(block string) bool {
	lower := strings.ToLower(block)
	for _, prop := range forbiddenProps {
		if strings.Contains(lower, prop) {
			return true
		}
	}
	return false
}

// FixGlobalStylesheet generates selector-scoped contrast rules for every
// derivable contrast violation and returns the resulting stylesheet edit as
// an uncommitted Change, or nil when the project has no global stylesheet,
// no fixable violations, or no model response survived screening.
func FixGlobalStylesheet(ctx context.Context, client llm.Client, root string, violations []types.Violation) (*types.Change, error) {
	rel := LocateGlobalStylesheet(root)
	if rel == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, &Error{Path: rel, Message: "cannot read global stylesheet", Cause: err}
	}
	original := string(raw)

	groups := GroupBySelector(violations)
	if len(groups) == 0 {
		return nil, nil
	}

	selectors := make([]string, 0, len(groups))
	for selector := range groups {
		selectors = append(selectors, selector)
	}
	sort.Strings(selectors)

	system := prompts.MustGet("styles.json", "system-css-expert")
	var blocks []string
	for _, selector := range selectors {
		prompt := buildContrastFixPrompt(selector, groups[selector], original)

		response, err := client.GenerateWithImages(ctx, system+"\n\n"+prompt, nil, llm.TierAdvanced)
		if err != nil {
			log.Printf("[STYLES] Fix for %s failed: %v", selector, err)
			continue
		}

		block, ok := ExtractUpdatedCSS(response)
		if !ok || block == "" {
			log.Printf("[STYLES] No usable CSS block for %s", selector)
			continue
		}
		if HasForbiddenProps(block) {
			log.Printf("[STYLES] Discarding block for %s: touches layout properties", selector)
			continue
		}

		blocks = append(blocks, fmt.Sprintf("%s%s */\n%s\n", fixCommentPrefix, selector, block))
	}

	if len(blocks) == 0 {
		return nil, nil
	}

	corrected := StripPreviousFixes(original) + "\n\n" + strings.Join(blocks, "\n\n") + "\n"
	if corrected == original {
		return nil, nil
	}

	log.Printf("[STYLES] Appending %d contrast rules to %s", len(blocks), rel)
	return &types.Change{
		Path:      rel,
		Original:  original,
		Corrected: corrected,
		Kind:      types.ChangeStylesheet,
	}, nil
}

func buildContrastFixPrompt(selector string, violations []types.Violation, stylesheet string) string {
	problems := make([]string, 0, len(violations))
	for _, v := range violations {
		if c := v.Contrast; c != nil {
			line := fmt.Sprintf("- Selector: %s | bgColor: %s | fgColor: %s | ratio: %.2f | required ratio: %s",
				selector, c.Background, c.Foreground, c.Ratio, c.ExpectedRatio)
			problems = append(problems, line)
		} else {
			problems = append(problems, fmt.Sprintf("- Selector: %s (no contrast measurements reported)", selector))
		}
	}

	existingNote := ""
	existingRuleRe := regexp.MustCompile(`(?i)\.` + regexp.QuoteMeta(strings.TrimPrefix(selector, ".")) + `\s*\{`)
	if existingRuleRe.MatchString(stylesheet) {
		existingNote = "\n" + prompts.Format(prompts.MustGet("styles.json", "existing-rule-note"), map[string]string{
			"Selector": selector,
		})
	}

	excerpt := stylesheet
	if len(excerpt) > stylesheetExcerptLimit {
		excerpt = excerpt[:stylesheetExcerptLimit]
	}

	return prompts.Format(prompts.MustGet("styles.json", "css-contrast-fix"), map[string]string{
		"Selector":     selector,
		"Problems":     strings.Join(problems, "\n"),
		"ExistingNote": existingNote,
		"Stylesheet":   excerpt,
	})
}

// ExtractUpdatedCSS pulls the block between the response markers.
func ExtractUpdatedCSS(response string) (string, bool) {
	const start = "<<<UPDATED_CSS>>>"
	const end = "<<<END_UPDATED_CSS>>>"
	startIdx := strings.Index(response, start)
	endIdx := strings.Index(response, end)
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return "", false
	}
	return strings.TrimSpace(response[startIdx+len(start) : endIdx]), true
}
