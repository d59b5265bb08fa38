// Package validation screens corrected artifacts before they touch disk: it
// rejects malformed candidates, detects whether a correction actually
// changed anything, and statically analyzes markup for problems the audit
// engine only sees at runtime.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/a11y-remediator/internal/types"
)

// CandidateCheckResult holds the outcome of screening one corrected
// artifact.
type CandidateCheckResult struct {
	Acceptable bool
	Reason     string
}

// minLengthRatio rejects candidates that lost more than half of the
// original. A model that truncates its output must never overwrite a
// working file.
const minLengthRatio = 0.5

// newElementAllowlist are element types a correction may introduce even when
// the original never used them. Labels are the standard fix for unlabeled
// inputs.
var newElementAllowlist = map[string]bool{
	"label": true,
}

// reactSourcePrefixes mark module source, acceptable for component files
// even when the content does not open with markup.
var reactSourcePrefixes = []string{"import", "export", "function", "const", "class"}

var (
	markupTokenRe = regexp.MustCompile(`<\w`)
	elementNameRe = regexp.MustCompile(`<([a-zA-Z][\w-]*)`)
)

// CheckCandidate screens a corrected artifact against the original it is
// meant to replace.
func CheckCandidate(original, corrected string, framework types.Framework) *CandidateCheckResult {
	trimmed := strings.TrimSpace(corrected)
	if trimmed == "" {
		return reject("candidate is empty")
	}
	if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
		return reject("candidate starts with a code comment instead of markup")
	}
	if !markupTokenRe.MatchString(corrected) {
		if framework != types.FrameworkReact || !hasSourcePrefix(trimmed) {
			return reject("candidate contains no markup")
		}
	}
	if float64(len(corrected)) < minLengthRatio*float64(len(original)) {
		return reject(fmt.Sprintf("candidate is %d chars, the original is %d", len(corrected), len(original)))
	}
	if unexpected := newElementTypes(original, corrected); len(unexpected) > 0 {
		return reject("candidate introduces new element types: " + strings.Join(unexpected, ", "))
	}
	return &CandidateCheckResult{Acceptable: true}
}

func reject(reason string) *CandidateCheckResult {
	return &CandidateCheckResult{Acceptable: false, Reason: reason}
}

func hasSourcePrefix(trimmed string) bool {
	for _, prefix := range reactSourcePrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// newElementTypes returns element names present in the correction but absent
// from both the original and the allowlist, sorted for stable messages.
func newElementTypes(original, corrected string) []string {
	originalTags := elementSet(original)
	var unexpected []string
	for tag := range elementSet(corrected) {
		if !originalTags[tag] && !newElementAllowlist[tag] {
			unexpected = append(unexpected, tag)
		}
	}
	sort.Strings(unexpected)
	return unexpected
}

func elementSet(markup string) map[string]bool {
	set := make(map[string]bool)
	for _, m := range elementNameRe.FindAllStringSubmatch(markup, -1) {
		set[strings.ToLower(m[1])] = true
	}
	return set
}
