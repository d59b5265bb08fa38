package webpage

import (
	"context"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/prompts"
)

// mergeTokenBudget is the rough prompt budget for the responsive merge.
// Both documents ride in one request, so oversized pages skip the merge and
// keep the fixed markup as is.
const mergeTokenBudget = 100000

// charsPerToken is the usual plain-text approximation.
const charsPerToken = 4

// minMergedBodyText is the least visible body text a merged document must
// carry to be trusted; below that the model almost certainly truncated it.
const minMergedBodyText = 100

// shrinkWarnRatio flags merges that came back suspiciously shorter than the
// original without rejecting them outright.
const shrinkWarnRatio = 0.7

// restoreResponsive asks the model to merge the original document's layout
// back into the fixed document without losing any accessibility attribute.
// Returns the merged document and true, or "" and false when the merge was
// skipped or failed validation.
func (g *Generator) restoreResponsive(ctx context.Context, original, current string) (string, bool) {
	estimated := (len(original) + len(current)) / charsPerToken
	if estimated > mergeTokenBudget {
		log.Printf("[WEBPAGE] Page too large for responsive merge (~%d tokens), keeping fixed markup", estimated)
		return "", false
	}

	prompt := prompts.MustGet("webpage.json", "system-responsive") + "\n\n" +
		prompts.Format(prompts.MustGet("webpage.json", "responsive-merge"), map[string]string{
			"OriginalHTML": original,
			"CurrentHTML":  current,
		})

	response, err := g.client.GenerateWithImages(ctx, prompt, g.screenshots, llm.TierAdvanced)
	if err != nil {
		log.Printf("[WEBPAGE] Responsive merge failed: %v", err)
		return "", false
	}

	merged := strings.TrimSpace(llm.CleanCodeFences(response))
	if !validMerge(merged, original) {
		log.Printf("[WEBPAGE] Discarding responsive merge, result failed validation")
		return "", false
	}
	return merged, true
}

// validMerge accepts a merged document only when it is a full document with
// a populated body. A shrunken but otherwise plausible result is kept with
// a warning; the final audit has the last word anyway.
func validMerge(merged, original string) bool {
	if merged == "" || !strings.Contains(strings.ToLower(merged), "<html") {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(merged))
	if err != nil {
		return false
	}
	if len(strings.TrimSpace(doc.Find("body").Text())) < minMergedBodyText {
		return false
	}
	if len(original) > 0 {
		if ratio := float64(len(merged)) / float64(len(original)); ratio < shrinkWarnRatio {
			log.Printf("[WEBPAGE] Merged document is %.0f%% of the original length", ratio*100)
		}
	}
	return true
}
