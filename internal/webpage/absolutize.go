package webpage

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// pathAttributes maps the elements whose URL attribute must be absolute for
// the saved page to render outside its origin. Order is fixed so rewrite
// counts are stable across runs.
var pathAttributes = []struct {
	tag  string
	attr string
}{
	{"a", "href"},
	{"link", "href"},
	{"script", "src"},
	{"img", "src"},
	{"source", "src"},
	{"iframe", "src"},
	{"form", "action"},
}

// skipPrefixes marks values that are already absolute or are not fetchable
// resources at all.
var skipPrefixes = []string{"http://", "https://", "#", "data:", "mailto:", "tel:"}

// AbsolutizePaths rewrites every relative href/src/action against the base
// URL and returns the number of attributes changed.
func AbsolutizePaths(doc *goquery.Document, base *url.URL) int {
	converted := 0
	for _, target := range pathAttributes {
		doc.Find(target.tag + "[" + target.attr + "]").Each(func(_ int, s *goquery.Selection) {
			value, _ := s.Attr(target.attr)
			if value == "" || hasSkipPrefix(value) {
				return
			}
			ref, err := url.Parse(value)
			if err != nil {
				return
			}
			s.SetAttr(target.attr, base.ResolveReference(ref).String())
			converted++
		})
	}
	return converted
}

func hasSkipPrefix(value string) bool {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
