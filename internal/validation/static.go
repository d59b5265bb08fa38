package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Finding categories.
const (
	CategoryMissingAlt       = "missing_alt"
	CategoryMissingLabel     = "missing_label"
	CategoryMissingAriaLabel = "missing_aria_label"
	CategoryContrast         = "contrast"
	CategoryOther            = "other"
)

// Finding is one statically detectable accessibility problem.
type Finding struct {
	Category string
	Element  string
	Message  string
}

// genericLinkTexts are link labels that say nothing about the destination.
// Spanish entries included because the corpus this tool grew up on was
// bilingual.
var genericLinkTexts = []string{
	"click aquí", "más", "aquí", "click here", "more", "here",
	"more info", "ver más", "read more",
}

// lowContrastClasses are utility classes that style text in light grays.
// Without an explicit color the rendered text usually fails the contrast
// ratio.
var lowContrastClasses = []string{
	"text-muted", "text-secondary", "text-light", "text-gray", "btn",
}

// AnalyzeTemplate inspects markup for problems the audit engine only
// reports against the rendered page: unlabeled controls, missing alt text,
// generic link text, and low-contrast utility classes.
func AnalyzeTemplate(markup string) []Finding {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var findings []Finding
	add := func(sel *goquery.Selection, category, message string) {
		element, _ := goquery.OuterHtml(sel)
		findings = append(findings, Finding{
			Category: category,
			Element:  strings.TrimSpace(element),
			Message:  message,
		})
	}

	doc.Find("button").Each(func(_ int, sel *goquery.Selection) {
		if strings.TrimSpace(sel.Text()) != "" {
			return
		}
		if hasAnyAttr(sel, "aria-label", "[attr.aria-label]", "aria-labelledby") {
			return
		}
		if sel.Find("img[alt]").Length() > 0 {
			return
		}
		add(sel, CategoryMissingAriaLabel, "button has no text and no aria-label")
	})

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		for _, generic := range genericLinkTexts {
			if text == generic {
				add(sel, CategoryOther, fmt.Sprintf("link text %q does not describe the destination", text))
				return
			}
		}
	})

	doc.Find("input").Each(func(_ int, sel *goquery.Selection) {
		if inputType, _ := sel.Attr("type"); inputType == "hidden" {
			return
		}
		if hasAnyAttr(sel, "aria-label", "[attr.aria-label]", "aria-labelledby") {
			return
		}
		if id, ok := sel.Attr("id"); ok && id != "" {
			if doc.Find(`label[for="` + id + `"]`).Length() > 0 {
				return
			}
		}
		add(sel, CategoryMissingLabel, "input has no label, id-bound label, or aria-label")
	})

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if _, ok := sel.Attr("alt"); !ok {
			add(sel, CategoryMissingAlt, "image has no alt attribute")
		}
	})

	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		class, _ := sel.Attr("class")
		if !containsLowContrastClass(class) {
			return
		}
		if style, ok := sel.Attr("style"); ok && strings.Contains(style, "color") {
			return
		}
		add(sel, CategoryContrast, "element styled with a low-contrast utility class and no explicit color")
	})

	return findings
}

func hasAnyAttr(sel *goquery.Selection, names ...string) bool {
	for _, name := range names {
		if value, ok := sel.Attr(name); ok && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

func containsLowContrastClass(s string) bool {
	for _, class := range lowContrastClasses {
		for _, token := range strings.Fields(s) {
			if token == class {
				return true
			}
		}
	}
	return false
}

// Stylesheet checks. Light hex families and translucent text both read as
// gray on white.
var (
	lightHexColorRe = regexp.MustCompile(`color\s*:\s*#([fedFED][0-9a-fA-F]{2,7})\b`)
	weakAlphaRe     = regexp.MustCompile(`color\s*:\s*rgba\([^)]*,\s*0?\.([5-8])\d*\s*\)`)
)

// AnalyzeStylesheet inspects CSS for color declarations likely to fail
// contrast checks.
func AnalyzeStylesheet(css string) []Finding {
	var findings []Finding
	for _, m := range lightHexColorRe.FindAllString(css, -1) {
		findings = append(findings, Finding{
			Category: CategoryContrast,
			Element:  m,
			Message:  "text color from a light hex family",
		})
	}
	for _, m := range weakAlphaRe.FindAllString(css, -1) {
		findings = append(findings, Finding{
			Category: CategoryContrast,
			Element:  m,
			Message:  "text color with translucent alpha",
		})
	}
	return findings
}

// ApplyStaticFixes rewrites markup for the finding categories that have a
// mechanical fix. Only contrast findings qualify; the rest need a model.
func ApplyStaticFixes(markup string, findings []Finding) string {
	for _, finding := range findings {
		if finding.Category == CategoryContrast {
			return FixLowContrastLines(markup)
		}
	}
	return markup
}

// FixLowContrastLines adds an explicit dark color to every line that styles
// text with a low-contrast utility class and sets no color of its own.
func FixLowContrastLines(markup string) string {
	lines := strings.Split(markup, "\n")
	for i, line := range lines {
		if !containsClassAttribute(line) || strings.Contains(line, "color:") {
			continue
		}
		switch {
		case strings.Contains(line, `style="`):
			lines[i] = strings.Replace(line, `style="`, `style="color: #000000; `, 1)
		default:
			lines[i] = insertStyleBeforeClose(line)
		}
	}
	return strings.Join(lines, "\n")
}

func containsClassAttribute(line string) bool {
	idx := strings.Index(line, `class="`)
	if idx < 0 {
		return false
	}
	rest := line[idx+len(`class="`):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return false
	}
	return containsLowContrastClass(rest[:end])
}

func insertStyleBeforeClose(line string) string {
	idx := strings.Index(line, ">")
	if idx < 0 {
		return line
	}
	if idx > 0 && line[idx-1] == '/' {
		return line[:idx-1] + ` style="color: #000000" /` + line[idx:]
	}
	return line[:idx] + ` style="color: #000000"` + line[idx:]
}
