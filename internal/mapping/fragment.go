// Package mapping locates the source artifact each audit violation came
// from. Matching runs a fixed cascade of pure strategies against every
// indexed artifact; the first strategy with any hits decides the result.
package mapping

import (
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/a11y-remediator/internal/templates"
	"github.com/jonathan/a11y-remediator/internal/types"
)

// Fragment holds the preprocessed forms of one violation's rendered HTML
// and selector that the matchers work from.
type Fragment struct {
	Raw        string
	Normalized string

	RootTag     string
	Tags        []string
	ClassTokens []string
	VisibleText string

	SelectorClasses []string
	SelectorIDs     []string
	SelectorTags    []string
}

var (
	rootTagRe       = regexp.MustCompile(`^<([a-zA-Z][\w-]*)`)
	anyTagRe        = regexp.MustCompile(`<([a-zA-Z][\w-]*)`)
	selectorClassRe = regexp.MustCompile(`\.([\w-]+)`)
	selectorIDRe    = regexp.MustCompile(`#([\w-]+)`)
	selectorTagRe   = regexp.MustCompile(`(?:^|[\s>+~,])([a-zA-Z][\w-]*)`)
)

// parser-inserted wrappers that are never part of a rendered fragment's own
// element list.
var syntheticTags = map[string]bool{"html": true, "head": true, "body": true}

func buildFragment(v types.Violation, normalize func(string) string) Fragment {
	raw := strings.TrimSpace(v.HTMLFragment)
	f := Fragment{
		Raw:        raw,
		Normalized: normalize(raw),
	}

	if m := rootTagRe.FindStringSubmatch(raw); m != nil {
		f.RootTag = strings.ToLower(m[1])
	} else if m := anyTagRe.FindStringSubmatch(raw); m != nil {
		f.RootTag = strings.ToLower(m[1])
	}

	if raw != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			seen := map[string]bool{}
			doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
				name := strings.ToLower(goquery.NodeName(sel))
				if !syntheticTags[name] && !seen[name] {
					seen[name] = true
					f.Tags = append(f.Tags, name)
				}
				if class, ok := sel.Attr("class"); ok {
					for _, token := range strings.Fields(class) {
						if !contains(f.ClassTokens, token) {
							f.ClassTokens = append(f.ClassTokens, token)
						}
					}
				}
			})
			f.VisibleText = templates.CollapseWhitespace(doc.Text())
		}
	}

	selector := v.PrimarySelector()
	for _, m := range selectorClassRe.FindAllStringSubmatch(selector, -1) {
		if !contains(f.SelectorClasses, m[1]) {
			f.SelectorClasses = append(f.SelectorClasses, m[1])
		}
	}
	for _, m := range selectorIDRe.FindAllStringSubmatch(selector, -1) {
		if !contains(f.SelectorIDs, m[1]) {
			f.SelectorIDs = append(f.SelectorIDs, m[1])
		}
	}
	for _, m := range selectorTagRe.FindAllStringSubmatch(selector, -1) {
		tag := strings.ToLower(m[1])
		if !syntheticTags[tag] && !contains(f.SelectorTags, tag) {
			f.SelectorTags = append(f.SelectorTags, tag)
		}
	}

	return f
}

func contains(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}

var openingTagCache sync.Map

// containsOpeningTag reports whether content has an opening tag for the
// element name, which keeps substring hits inside text or attribute values
// from counting as structure.
func containsOpeningTag(content, tag string) bool {
	if tag == "" {
		return false
	}
	re, ok := openingTagCache.Load(tag)
	if !ok {
		re, _ = openingTagCache.LoadOrStore(tag, regexp.MustCompile(`(?i)<`+regexp.QuoteMeta(tag)+`[\s/>]`))
	}
	return re.(*regexp.Regexp).MatchString(content)
}
