package mapping

import (
	"log"
	"path"
	"sort"
	"strings"

	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
)

// MethodDocument marks violations routed straight to the static index page
// because they concern the document element itself.
const MethodDocument = "document"

// MethodFallback marks violations attributed by the last-resort shell
// component search.
const MethodFallback = "fallback"

// Mapper attributes violations to indexed artifacts.
type Mapper struct {
	index     *templates.Index
	matchers  []Matcher
	normalize func(string) string
	fallback  func(v types.Violation, f *Fragment) []*types.SourceArtifact
}

// NewAngularMapper builds a mapper with the Angular cascade.
func NewAngularMapper(idx *templates.Index) *Mapper {
	return &Mapper{
		index:     idx,
		matchers:  angularMatchers(),
		normalize: templates.NormalizeAngular,
	}
}

// NewReactMapper builds a mapper with the React cascade plus the shell
// component fallback for frame-level violations.
func NewReactMapper(idx *templates.Index) *Mapper {
	m := &Mapper{
		index:     idx,
		matchers:  reactMatchers(),
		normalize: templates.NormalizeReact,
	}
	m.fallback = m.shellFallback
	return m
}

// Result is the outcome of mapping a violation set. Entries are sorted by
// artifact path; a violation matched by several artifacts appears under each
// of them.
type Result struct {
	Entries  []types.MappingEntry
	Unmapped []types.Violation

	byPath map[string]*types.MappingEntry
}

// Entry returns the mapping entry for an artifact path.
func (r *Result) Entry(path string) (*types.MappingEntry, bool) {
	e, ok := r.byPath[path]
	return e, ok
}

// MappedCount returns the number of violations that found at least one
// artifact.
func (r *Result) MappedCount() int {
	seen := 0
	for _, e := range r.Entries {
		seen += len(e.Violations)
	}
	return seen
}

func (r *Result) attach(artifactPath string, v types.Violation, method string) {
	entry, ok := r.byPath[artifactPath]
	if !ok {
		entry = &types.MappingEntry{Path: artifactPath}
		r.byPath[artifactPath] = entry
	}
	entry.Violations = append(entry.Violations, types.AttributedViolation{
		Violation:   v,
		MatchMethod: method,
	})
}

func (r *Result) finish() {
	paths := make([]string, 0, len(r.byPath))
	for p := range r.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		r.Entries = append(r.Entries, *r.byPath[p])
	}
}

// Map runs the cascade for each violation. The first matcher with any hits
// decides: one hit attributes the violation to that artifact, several hits
// attribute it to all of them rather than guessing. Violations no matcher
// can place are reported as unmapped, never guessed.
func (m *Mapper) Map(violations []types.Violation) *Result {
	result := &Result{byPath: make(map[string]*types.MappingEntry)}

	for _, v := range violations {
		if m.routeDocumentRule(v, result) {
			continue
		}

		f := m.buildFragment(v)
		candidates, method := m.matchCascade(&f)
		if len(candidates) == 0 && m.fallback != nil {
			candidates = m.fallback(v, &f)
			method = MethodFallback
		}
		if len(candidates) == 0 {
			log.Printf("[MAP] No artifact for %s (%s)", v.RuleID, v.PrimarySelector())
			result.Unmapped = append(result.Unmapped, v)
			continue
		}
		if len(candidates) > 1 {
			log.Printf("[MAP] %s matched %d artifacts via %s, attributing to all", v.RuleID, len(candidates), method)
		}
		for _, artifact := range candidates {
			result.attach(artifact.Path, v, method)
		}
	}

	result.finish()
	return result
}

func (m *Mapper) buildFragment(v types.Violation) Fragment {
	return buildFragment(v, m.normalize)
}

// routeDocumentRule pins document-language violations on the html element to
// the static index page, the only file that owns <html>. Both conditions must
// hold; other rules reported against html still walk the cascade.
func (m *Mapper) routeDocumentRule(v types.Violation, result *Result) bool {
	if !v.IsDocumentLanguage() || v.PrimarySelector() != "html" {
		return false
	}
	static, ok := m.index.StaticIndex()
	if !ok {
		log.Printf("[MAP] Document rule %s but no static index page found", v.RuleID)
		result.Unmapped = append(result.Unmapped, v)
		return true
	}
	result.attach(static.Path, v, MethodDocument)
	return true
}

func (m *Mapper) matchCascade(f *Fragment) ([]*types.SourceArtifact, string) {
	for _, matcher := range m.matchers {
		var candidates []*types.SourceArtifact
		for _, artifact := range m.index.Artifacts {
			if artifact.Kind == types.ArtifactStatic {
				continue
			}
			if matcher.Match(f, artifact) {
				candidates = append(candidates, artifact)
			}
		}
		if len(candidates) > 0 {
			return candidates, matcher.Name
		}
	}
	return nil, ""
}

// shellComponentNames are the usual application shell files that own
// page-level chrome such as embedded frames and overlays.
var shellComponentNames = []string{"App.js", "App.jsx", "App.tsx", "index.js", "index.jsx"}

// shellFallback places frame-level violations that no content matcher can
// locate: the app shell by conventional name, else a component that styles a
// fixed overlay, else the first component.
func (m *Mapper) shellFallback(v types.Violation, f *Fragment) []*types.SourceArtifact {
	if f.RootTag != "iframe" && !strings.Contains(v.RuleID, "frame") {
		return nil
	}

	for _, name := range shellComponentNames {
		for _, artifact := range m.index.Artifacts {
			if artifact.Kind != types.ArtifactStatic && path.Base(artifact.Path) == name {
				return []*types.SourceArtifact{artifact}
			}
		}
	}
	for _, artifact := range m.index.Artifacts {
		if artifact.Kind != types.ArtifactStatic &&
			strings.Contains(artifact.Raw, "position") && strings.Contains(artifact.Raw, "fixed") {
			return []*types.SourceArtifact{artifact}
		}
	}
	for _, artifact := range m.index.Artifacts {
		if artifact.Kind != types.ArtifactStatic {
			return []*types.SourceArtifact{artifact}
		}
	}
	return nil
}
