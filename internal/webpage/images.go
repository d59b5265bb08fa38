package webpage

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/a11y-remediator/internal/prompts"
)

// candidateImageKeys lists the lookup keys a src value may appear under in
// the caption map: the raw attribute, the base-resolved URL, and both
// without query and fragment. The raw form leads because captions are keyed
// by the markup attribute first.
func candidateImageKeys(src string, base *url.URL) []string {
	if src == "" {
		return nil
	}
	keys := []string{src}
	seen := map[string]bool{src: true}
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	if base != nil {
		if ref, err := url.Parse(src); err == nil {
			add(base.ResolveReference(ref).String())
		}
	}
	resolved := append([]string(nil), keys...)
	for _, k := range resolved {
		u, err := url.Parse(k)
		if err != nil {
			continue
		}
		u.RawQuery = ""
		u.Fragment = ""
		add(u.String())
	}
	return keys
}

// lookupDescription resolves a src value against the caption map.
func lookupDescription(src string, descriptions map[string]string, base *url.URL) (string, bool) {
	for _, key := range candidateImageKeys(src, base) {
		if d, ok := descriptions[key]; ok && strings.TrimSpace(d) != "" {
			return d, true
		}
	}
	return "", false
}

// ApplyImageDescriptions sets alt and title from the caption map on every
// img whose src resolves to a captioned resource. Returns the number of
// images updated.
func ApplyImageDescriptions(doc *goquery.Document, descriptions map[string]string, base *url.URL) int {
	if len(descriptions) == 0 {
		return 0
	}
	applied := 0
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if d, ok := lookupDescription(src, descriptions, base); ok {
			s.SetAttr("alt", d)
			s.SetAttr("title", d)
			applied++
		}
	})
	return applied
}

// fragmentImageNotes builds the prompt note listing caption descriptions for
// every image inside the fragment, or "" when none are captioned.
func fragmentImageNotes(fragment string, descriptions map[string]string, base *url.URL) string {
	if len(descriptions) == 0 || !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}

	var lines []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		if d, ok := lookupDescription(src, descriptions, base); ok {
			lines = append(lines, "  - "+src+": "+d)
		}
	})
	if len(lines) == 0 {
		return ""
	}
	return prompts.Format(prompts.MustGet("webpage.json", "image-descriptions-note"), map[string]string{
		"List": strings.Join(lines, "\n"),
	})
}
