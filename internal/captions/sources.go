package captions

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ImageSources collects the image source attributes present in a page, in
// document order with duplicates removed. Values are returned exactly as
// written so descriptions can be keyed back to the markup they came from.
func ImageSources(pageHTML string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var sources []string
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" {
			return
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		sources = append(sources, src)
	})
	return sources
}
