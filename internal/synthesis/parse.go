package synthesis

import (
	"strings"

	"github.com/jonathan/a11y-remediator/internal/llm"
)

// Response section markers. The model is instructed to wrap each returned
// body in a marker pair; anything outside the markers is discarded.
const (
	templateStart   = "<<<TEMPLATE>>>"
	templateEnd     = "<<<END TEMPLATE>>>"
	typescriptStart = "<<<TYPESCRIPT>>>"
	typescriptEnd   = "<<<END TYPESCRIPT>>>"
	stylesStart     = "<<<STYLES>>>"
	stylesEnd       = "<<<END STYLES>>>"
)

// Candidate is one decomposed fix proposal. Template is always present;
// Companion and Stylesheet are empty when the model returned no such section.
type Candidate struct {
	Template   string
	Companion  string
	Stylesheet string
}

// Decompose splits a marked-up model response into its sections. The
// template section is required; its absence means the response is unusable
// for this artifact. Stray markdown fences inside sections are stripped.
func Decompose(response string) (*Candidate, error) {
	template, ok := extractBetween(response, templateStart, templateEnd)
	if !ok {
		return nil, &Error{Message: "response does not contain the required <<<TEMPLATE>>> section"}
	}

	candidate := &Candidate{Template: llm.CleanCodeFences(template)}
	if companion, ok := extractBetween(response, typescriptStart, typescriptEnd); ok {
		candidate.Companion = llm.CleanCodeFences(companion)
	}
	if styles, ok := extractBetween(response, stylesStart, stylesEnd); ok {
		candidate.Stylesheet = llm.CleanCodeFences(styles)
	}
	return candidate, nil
}

func extractBetween(text, start, end string) (string, bool) {
	startIdx := strings.Index(text, start)
	endIdx := strings.Index(text, end)
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return "", false
	}
	return strings.TrimSpace(text[startIdx+len(start) : endIdx]), true
}
