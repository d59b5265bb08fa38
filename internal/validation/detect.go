package validation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/a11y-remediator/internal/templates"
)

// ChangeSignals reports which families of accessibility-relevant markers
// differ between an original and its correction.
type ChangeSignals struct {
	Color bool
	Aria  bool
	Alt   bool
	Label bool
	Style bool
}

// Any reports whether the correction changed at least one marker family.
func (s ChangeSignals) Any() bool {
	return s.Color || s.Aria || s.Alt || s.Label || s.Style
}

// Marker families. Each set is extracted from both versions and compared as
// a multiset, so a reworded aria-label counts as a change even when the
// attribute was already there.
var (
	colorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`style="[^"]*color\s*:[^"]*"`),
		regexp.MustCompile(`color\s*:\s*#[0-9a-fA-F]{3,8}`),
		regexp.MustCompile(`color\s*:\s*rgba?\([^)]*\)`),
	}
	ariaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`aria-[\w-]+="[^"]*"`),
		regexp.MustCompile(`\[attr\.aria-[\w-]+\]="[^"]*"`),
	}
	altPatterns = []*regexp.Regexp{
		regexp.MustCompile(`alt="[^"]*"`),
	}
	labelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<label\b[^>]*>`),
	}
	jsxStylePatterns = []*regexp.Regexp{
		regexp.MustCompile(`style=\{\{[^}]*\}\}`),
	}
)

// IsUnchanged reports whether the correction matches the original once
// whitespace is collapsed.
func IsUnchanged(original, corrected string) bool {
	return templates.CollapseWhitespace(original) == templates.CollapseWhitespace(corrected)
}

// DetectChanges compares the marker families of both versions.
func DetectChanges(original, corrected string) ChangeSignals {
	return ChangeSignals{
		Color: signatureDiffers(original, corrected, colorPatterns),
		Aria:  signatureDiffers(original, corrected, ariaPatterns),
		Alt:   signatureDiffers(original, corrected, altPatterns),
		Label: signatureDiffers(original, corrected, labelPatterns),
		Style: signatureDiffers(original, corrected, jsxStylePatterns),
	}
}

func signatureDiffers(original, corrected string, patterns []*regexp.Regexp) bool {
	return signature(original, patterns) != signature(corrected, patterns)
}

func signature(markup string, patterns []*regexp.Regexp) string {
	var hits []string
	for _, p := range patterns {
		hits = append(hits, p.FindAllString(markup, -1)...)
	}
	sort.Strings(hits)
	return strings.Join(hits, "\n")
}

// Decision is validation's conclusion for one screened candidate.
type Decision struct {
	Changed bool
	Forced  bool
	Markup  string
}

// Resolve decides what happens to a screened candidate: apply it when it
// differs from the original, leave the artifact alone when it is identical
// and nothing is known to be wrong, and force mechanical fixes in when the
// model returned the original untouched despite statically detectable
// problems.
func Resolve(original, corrected string, findings []Finding) Decision {
	if !IsUnchanged(original, corrected) {
		return Decision{Changed: true, Markup: corrected}
	}
	if len(findings) > 0 {
		return Decision{Changed: true, Forced: true, Markup: ApplyStaticFixes(corrected, findings)}
	}
	return Decision{Markup: corrected}
}
