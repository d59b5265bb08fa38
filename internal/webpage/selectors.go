package webpage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/jonathan/a11y-remediator/internal/templates"
)

// Angular decorates rendered selectors with per-component scoping attributes
// that survive into audit reports. They are legal CSS but over-constrain the
// match, so lookups try the stripped form first and the raw form second.
var (
	ngContentSelRe = regexp.MustCompile(`\[_ngcontent-[^\]]*\]`)
	ngHostSelRe    = regexp.MustCompile(`\[_nghost-[^\]]*\]`)
	ngAttrSelRe    = regexp.MustCompile(`\[attr="_ng(?:content|host)-[^"]*"\]`)

	pseudoClassRe = regexp.MustCompile(`:nth-child\([^)]*\)|:nth-of-type\([^)]*\)|:first-child|:last-child|:hover|:focus|:active`)
	anyPseudoRe   = regexp.MustCompile(`:[a-z-]+(\([^)]*\))?`)

	selClassRe = regexp.MustCompile(`\.([\w-]+)`)
	selIDRe    = regexp.MustCompile(`#([\w-]+)`)
	selAttrRe  = regexp.MustCompile(`\[([^\]]+)\]`)
	leadTagRe  = regexp.MustCompile(`^[a-zA-Z][\w-]*`)
)

// NormalizeSelector strips Angular runtime attribute selectors and collapses
// whitespace. The result may be empty when the selector was nothing but
// runtime attributes.
func NormalizeSelector(selector string) string {
	if selector == "" {
		return selector
	}
	s := ngContentSelRe.ReplaceAllString(selector, "")
	s = ngHostSelRe.ReplaceAllString(s, "")
	s = ngAttrSelRe.ReplaceAllString(s, "")
	return templates.CollapseWhitespace(s)
}

// StripPseudoClasses removes the structural and interaction pseudo-classes
// that audit selectors carry but that rarely survive a re-render.
func StripPseudoClasses(selector string) string {
	return templates.CollapseWhitespace(pseudoClassRe.ReplaceAllString(selector, ""))
}

// compileSelector compiles a CSS selector, treating empty and malformed
// input as a miss rather than an error. Audit selectors come from a live
// DOM and occasionally contain syntax cascadia rejects.
func compileSelector(selector string) (cascadia.Selector, bool) {
	if strings.TrimSpace(selector) == "" {
		return nil, false
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, false
	}
	return m, true
}

// FindNode locates the document node a violation points at. It walks a
// cascade of progressively looser strategies: the normalized selector, the
// raw selector, the pseudo-class-stripped selector, a scan for the rendered
// fragment, selector-derived class/id/attribute lookups, and finally the
// selector's trailing segment and bare tag name. Multi-node matches are
// disambiguated by the fragment when one is available.
func FindNode(doc *goquery.Document, selector, fragment string) (*goquery.Selection, bool) {
	normalized := NormalizeSelector(selector)

	if node, ok := selectOne(doc, normalized, fragment); ok {
		return node, true
	}
	if selector != normalized {
		if node, ok := selectOne(doc, selector, fragment); ok {
			return node, true
		}
	}
	if stripped := StripPseudoClasses(normalized); stripped != normalized {
		if node, ok := selectOne(doc, stripped, fragment); ok {
			return node, true
		}
	}

	if node, ok := findByFragment(doc, fragment); ok {
		return node, true
	}

	if node, ok := findBySelectorParts(doc, selector, fragment); ok {
		return node, true
	}

	if node, ok := findByTrailingSegment(doc, selector, fragment); ok {
		return node, true
	}

	return findByTagName(doc, selector, fragment)
}

// selectOne runs one selector and picks a single node from the result.
func selectOne(doc *goquery.Document, selector, fragment string) (*goquery.Selection, bool) {
	m, ok := compileSelector(selector)
	if !ok {
		return nil, false
	}
	nodes := doc.FindMatcher(m)
	switch nodes.Length() {
	case 0:
		return nil, false
	case 1:
		return nodes.First(), true
	default:
		return pickByFragment(nodes, fragment), true
	}
}

// pickByFragment chooses the node whose rendered form overlaps the
// violation fragment, falling back to the first match.
func pickByFragment(nodes *goquery.Selection, fragment string) *goquery.Selection {
	if fragment == "" {
		return nodes.First()
	}
	want := templates.NormalizeAngular(fragment)
	var found *goquery.Selection
	nodes.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		got, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		if overlaps(want, templates.NormalizeAngular(got), 100) {
			found = s
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	return nodes.First()
}

// overlaps reports whether either string contains the first n characters of
// the other. Fragments from the audit are often truncated, so prefix
// containment in both directions is the useful test.
func overlaps(a, b string, n int) bool {
	return strings.Contains(b, truncate(a, n)) || strings.Contains(a, truncate(b, n))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// findByFragment scans every element and compares its normalized rendering
// to the violation fragment. A hit must share the tag name and, unless the
// fragment is long enough to be distinctive on its own, at least one
// non-runtime attribute key.
func findByFragment(doc *goquery.Document, fragment string) (*goquery.Selection, bool) {
	if strings.TrimSpace(fragment) == "" {
		return nil, false
	}
	want := templates.NormalizeAngular(fragment)

	scratch, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, false
	}
	root := firstElement(scratch)
	if root.Length() == 0 {
		return nil, false
	}
	wantTag := goquery.NodeName(root)
	wantKeys := attrKeys(root)

	var found *goquery.Selection
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		got, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		gotNorm := templates.NormalizeAngular(got)
		if !strings.Contains(gotNorm, want) && !strings.Contains(want, gotNorm) {
			return true
		}
		if goquery.NodeName(s) != wantTag {
			return true
		}
		if intersects(attrKeys(s), wantKeys) || len(want) > 50 {
			found = s
			return false
		}
		return true
	})
	return found, found != nil
}

// findBySelectorParts falls back to the classes, IDs, and attribute tests
// embedded in the selector, most specific token last.
func findBySelectorParts(doc *goquery.Document, selector, fragment string) (*goquery.Selection, bool) {
	if classes := selClassRe.FindAllStringSubmatch(selector, -1); len(classes) > 0 {
		target := classes[len(classes)-1][1]
		if node, ok := selectOne(doc, "."+target, fragment); ok {
			return node, true
		}
	}

	if ids := selIDRe.FindAllStringSubmatch(selector, -1); len(ids) > 0 {
		target := ids[len(ids)-1][1]
		if node, ok := selectOne(doc, "#"+target, fragment); ok {
			return node, true
		}
	}

	attrs := selAttrRe.FindAllStringSubmatch(selector, -1)
	for i := len(attrs) - 1; i >= 0; i-- {
		expr := attrs[i][1]
		if strings.HasPrefix(expr, "_ng") {
			continue
		}
		name, value, hasValue := strings.Cut(expr, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		probe := "[" + name + "]"
		if hasValue {
			value = strings.Trim(value, `"'`)
			if strings.ContainsAny(value, `"\`) {
				continue
			}
			probe = fmt.Sprintf("[%s=%q]", name, value)
		}
		if node, ok := selectOne(doc, probe, fragment); ok {
			return node, true
		}
	}

	return nil, false
}

// findByTrailingSegment retries with only the selector text after the last
// child combinator, pseudo-classes removed.
func findByTrailingSegment(doc *goquery.Document, selector, fragment string) (*goquery.Selection, bool) {
	last := trailingSegment(selector)
	last = templates.CollapseWhitespace(anyPseudoRe.ReplaceAllString(last, ""))
	if last == "" || last == selector {
		return nil, false
	}
	return selectOne(doc, last, fragment)
}

// findByTagName is the last resort: every element with the selector's
// trailing tag name, accepted only on a strict fragment or text match.
func findByTagName(doc *goquery.Document, selector, fragment string) (*goquery.Selection, bool) {
	if fragment == "" {
		return nil, false
	}
	tag := leadTagRe.FindString(trailingSegment(selector))
	if tag == "" {
		return nil, false
	}
	want := templates.NormalizeAngular(fragment)

	var found *goquery.Selection
	doc.Find(tag).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		got, err := goquery.OuterHtml(s)
		if err != nil {
			return true
		}
		gotNorm := templates.NormalizeAngular(got)
		if strings.Contains(gotNorm, want) || strings.Contains(want, gotNorm) {
			found = s
			return false
		}
		if len(want) < 200 {
			if text := templates.CollapseWhitespace(s.Text()); text != "" && strings.Contains(want, text) {
				found = s
				return false
			}
		}
		return true
	})
	return found, found != nil
}

func trailingSegment(selector string) string {
	parts := strings.Split(selector, ">")
	return strings.TrimSpace(parts[len(parts)-1])
}

// firstElement returns the first real element of a parsed fragment. The
// parser wraps fragments in html/head/body, and head-only elements like
// link and meta land under head instead of body.
func firstElement(doc *goquery.Document) *goquery.Selection {
	sel := doc.Find("body").Children().First()
	if sel.Length() == 0 {
		sel = doc.Find("head").Children().First()
	}
	return sel
}

// attrKeys collects the attribute names of a selection's first node,
// ignoring Angular runtime attributes.
func attrKeys(s *goquery.Selection) map[string]bool {
	keys := make(map[string]bool)
	if len(s.Nodes) == 0 {
		return keys
	}
	for _, a := range s.Nodes[0].Attr {
		if !strings.HasPrefix(a.Key, "_ng") {
			keys[a.Key] = true
		}
	}
	return keys
}

func intersects(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}
