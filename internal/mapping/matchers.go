package mapping

import (
	"strings"

	"github.com/jonathan/a11y-remediator/internal/types"
)

// Matcher is one pure matching strategy. Matchers never mutate the fragment
// or the artifact; ordering in the cascade encodes their reliability, most
// precise first.
type Matcher struct {
	Name  string
	Match func(f *Fragment, artifact *types.SourceArtifact) bool
}

func angularMatchers() []Matcher {
	return []Matcher{
		{Name: "normalized-substring", Match: matchNormalizedSubstring},
		{Name: "raw-substring", Match: matchRawSubstring},
		{Name: "selector-parts", Match: matchSelectorParts},
	}
}

func reactMatchers() []Matcher {
	return []Matcher{
		{Name: "normalized-substring", Match: matchNormalizedSubstring},
		{Name: "class-set", Match: matchClassSet},
		{Name: "tag-containment", Match: matchTagContainment},
		{Name: "selector-variants", Match: matchSelectorVariants},
		{Name: "visible-text", Match: matchVisibleText},
	}
}

// rootTagGuard requires the fragment's own element to exist in the artifact.
// Substring containment alone misfires on fragments made of generic markup.
func rootTagGuard(f *Fragment, artifact *types.SourceArtifact) bool {
	return containsOpeningTag(artifact.Raw, f.RootTag)
}

// matchNormalizedSubstring looks for the runtime-stripped fragment inside
// the artifact's normalized source.
func matchNormalizedSubstring(f *Fragment, artifact *types.SourceArtifact) bool {
	if f.Normalized == "" {
		return false
	}
	return strings.Contains(artifact.Normalized, f.Normalized) && rootTagGuard(f, artifact)
}

// matchRawSubstring looks for the fragment verbatim. Catches templates whose
// source already carries the rendered attribute order.
func matchRawSubstring(f *Fragment, artifact *types.SourceArtifact) bool {
	if f.Raw == "" {
		return false
	}
	return strings.Contains(artifact.Raw, f.Raw) && rootTagGuard(f, artifact)
}

// matchSelectorParts decomposes the engine's CSS selector and requires every
// class and id from it in the artifact, plus at least one of its element
// names as an opening tag. Selectors without classes or ids carry too little
// identity to match on.
func matchSelectorParts(f *Fragment, artifact *types.SourceArtifact) bool {
	if len(f.SelectorClasses) == 0 && len(f.SelectorIDs) == 0 {
		return false
	}
	for _, class := range f.SelectorClasses {
		if !strings.Contains(artifact.Raw, class) {
			return false
		}
	}
	for _, id := range f.SelectorIDs {
		if !strings.Contains(artifact.Raw, id) {
			return false
		}
	}
	if len(f.SelectorTags) > 0 {
		found := false
		for _, tag := range f.SelectorTags {
			if containsOpeningTag(artifact.Raw, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matchClassSet requires enough of the fragment's class tokens in the
// component source: at least two, or all of them when the fragment has
// fewer.
func matchClassSet(f *Fragment, artifact *types.SourceArtifact) bool {
	if len(f.ClassTokens) == 0 {
		return false
	}
	required := 2
	if len(f.ClassTokens) < required {
		required = len(f.ClassTokens)
	}
	present := 0
	for _, class := range f.ClassTokens {
		if strings.Contains(artifact.Raw, class) {
			present++
		}
	}
	return present >= required && rootTagGuard(f, artifact)
}

// matchTagContainment requires every element name from the fragment to
// appear as an opening tag in the component source.
func matchTagContainment(f *Fragment, artifact *types.SourceArtifact) bool {
	if len(f.Tags) == 0 {
		return false
	}
	for _, tag := range f.Tags {
		if !containsOpeningTag(artifact.Raw, tag) {
			return false
		}
	}
	return true
}

// matchSelectorVariants matches selector classes against JSX naming
// conventions: the literal name, lowercase, capitalized, and with hyphens
// and underscores swapped.
func matchSelectorVariants(f *Fragment, artifact *types.SourceArtifact) bool {
	if len(f.SelectorClasses) == 0 {
		return false
	}
	for _, class := range f.SelectorClasses {
		if !anyVariantPresent(artifact.Raw, class) {
			return false
		}
	}
	return true
}

func anyVariantPresent(content, class string) bool {
	for _, variant := range classVariants(class) {
		if strings.Contains(content, variant) {
			return true
		}
	}
	return false
}

func classVariants(class string) []string {
	variants := []string{class}
	add := func(v string) {
		if v != "" && !contains(variants, v) {
			variants = append(variants, v)
		}
	}
	add(strings.ToLower(class))
	add(capitalize(class))
	add(strings.ReplaceAll(class, "-", "_"))
	add(strings.ReplaceAll(class, "_", "-"))
	return variants
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// significantWordLen filters out articles and glue words when matching by
// visible text.
const significantWordLen = 3

// matchVisibleText matches the fragment's rendered text: verbatim first,
// then by requiring at least two significant words.
func matchVisibleText(f *Fragment, artifact *types.SourceArtifact) bool {
	if f.VisibleText == "" || !rootTagGuard(f, artifact) {
		return false
	}
	if strings.Contains(artifact.Raw, f.VisibleText) {
		return true
	}
	var words []string
	for _, word := range strings.Fields(f.VisibleText) {
		if len(word) > significantWordLen {
			words = append(words, word)
		}
	}
	if len(words) < 2 {
		return false
	}
	present := 0
	for _, word := range words {
		if strings.Contains(artifact.Raw, word) {
			present++
			if present >= 2 {
				return true
			}
		}
	}
	return false
}
