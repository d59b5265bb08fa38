package webpage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/prompts"
	"github.com/jonathan/a11y-remediator/internal/templates"
)

// nameChunkSize caps how many unlabeled controls ride in one accessible-name
// request.
const nameChunkSize = 5

// labelHint maps a class token to the accessible name it implies. Hints are
// ordered: the first hit wins, and single-character keys only match a whole
// class token so "x" does not fire on "text-xl".
type labelHint struct {
	key   string
	label string
}

var buttonLabelHints = []labelHint{
	{"bi-plus-lg", "Add"}, {"bi-plus", "Add"}, {"plus", "Add"}, {"add", "Add"},
	{"bi-x", "Close"}, {"x", "Close"}, {"close", "Close"},
	{"bi-search", "Search"}, {"search", "Search"},
	{"bi-trash", "Delete"}, {"trash", "Delete"}, {"delete", "Delete"},
}

var linkLabelHints = []labelHint{
	{"home", "Home"}, {"menu", "Menu"}, {"nav", "Navigation"},
	{"logo", "Logo"}, {"icon", "Icon"}, {"social", "Social link"},
	{"facebook", "Facebook"}, {"twitter", "Twitter"}, {"instagram", "Instagram"},
	{"linkedin", "LinkedIn"}, {"youtube", "YouTube"}, {"email", "Email"},
	{"phone", "Phone"}, {"contact", "Contact"}, {"about", "About"},
	{"next", "Next"}, {"prev", "Previous"}, {"back", "Back"},
	{"more", "More information"}, {"read", "Read more"}, {"download", "Download"},
}

var iconLabelHints = []labelHint{
	{"fa-home", "Home"}, {"home", "Home"},
	{"fa-envelope", "Email"}, {"email", "Email"},
	{"fa-phone", "Phone"}, {"phone", "Phone"},
	{"fa-facebook", "Facebook"}, {"fa-twitter", "Twitter"},
	{"fa-instagram", "Instagram"}, {"fa-linkedin", "LinkedIn"},
	{"fa-youtube", "YouTube"},
	{"fa-arrow-right", "Next"}, {"next", "Next"},
	{"fa-arrow-left", "Previous"}, {"prev", "Previous"},
}

// classHint returns the first hint whose key appears in the class attribute.
func classHint(classes string, hints []labelHint) string {
	joined := strings.ToLower(classes)
	tokens := strings.Fields(joined)
	for _, h := range hints {
		if len(h.key) == 1 {
			for _, tok := range tokens {
				if tok == h.key {
					return h.label
				}
			}
			continue
		}
		if strings.Contains(joined, h.key) {
			return h.label
		}
	}
	return ""
}

// EnsureDiscernibleButtons gives every text-free, unlabeled button an
// aria-label inferred from its classes, its title, or the generic fallback.
// Returns the number of buttons labeled.
func EnsureDiscernibleButtons(doc *goquery.Document) int {
	labeled := 0
	apply := func(_ int, btn *goquery.Selection) {
		if strings.TrimSpace(btn.Text()) != "" {
			return
		}
		if aria, _ := btn.Attr("aria-label"); strings.TrimSpace(aria) != "" {
			return
		}
		classes, _ := btn.Attr("class")
		label := classHint(classes, buttonLabelHints)
		if label == "" {
			title, _ := btn.Attr("title")
			label = strings.TrimSpace(title)
		}
		if label == "" {
			label = "Button"
		}
		btn.SetAttr("aria-label", label)
		labeled++
	}

	doc.Find("button").Each(apply)
	doc.Find(`[role="button"]`).Each(func(i int, s *goquery.Selection) {
		if goquery.NodeName(s) == "button" {
			return
		}
		apply(i, s)
	})
	return labeled
}

// EnsureDiscernibleLinks gives every text-free, unlabeled anchor an
// accessible name. Returns the number of links labeled.
func EnsureDiscernibleLinks(doc *goquery.Document) int {
	labeled := 0
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if fixLinkName(a) {
			labeled++
		}
	})
	return labeled
}

// fixLinkName labels one anchor, trying the title, the href, the class
// hints, an icon child, and finally a positional fallback.
func fixLinkName(a *goquery.Selection) bool {
	if strings.TrimSpace(a.Text()) != "" {
		return false
	}
	if aria, _ := a.Attr("aria-label"); strings.TrimSpace(aria) != "" {
		return false
	}

	label := strings.TrimSpace(a.AttrOr("title", ""))
	if label == "" {
		label = labelFromHref(a.AttrOr("href", ""))
	}
	if label == "" {
		label = classHint(a.AttrOr("class", ""), linkLabelHints)
	}
	if label == "" {
		label = labelFromIcon(a)
	}
	if label == "" {
		label = positionalLinkLabel(a)
	}

	a.SetAttr("aria-label", label)
	return true
}

func labelFromHref(href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http"):
		u, err := url.Parse(href)
		if err != nil || u.Host == "" {
			return ""
		}
		return "Link to " + strings.TrimPrefix(u.Host, "www.")
	case strings.HasPrefix(href, "#"):
		return "In-page link"
	case strings.HasPrefix(href, "mailto:"):
		return "Email " + strings.TrimPrefix(href, "mailto:")
	case strings.HasPrefix(href, "tel:"):
		return "Call " + strings.TrimPrefix(href, "tel:")
	default:
		parts := strings.Split(href, "/")
		last := parts[len(parts)-1]
		last = strings.TrimSuffix(last, ".html")
		last = strings.TrimSuffix(last, ".htm")
		last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
		if strings.TrimSpace(last) == "" {
			return ""
		}
		return "Link to " + titleCase(last)
	}
}

func labelFromIcon(a *goquery.Selection) string {
	icon := a.Find("i, svg, img").First()
	if icon.Length() == 0 {
		return ""
	}
	return classHint(icon.AttrOr("class", ""), iconLabelHints)
}

// positionalLinkLabel numbers the link among its sibling anchors when there
// is more than one, so screen readers get distinct names.
func positionalLinkLabel(a *goquery.Selection) string {
	siblings := a.Parent().ChildrenFiltered("a")
	if siblings.Length() <= 1 {
		return "Link"
	}
	index := 0
	target := a.Nodes[0]
	siblings.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.Nodes[0] == target {
			index = i
			return false
		}
		return true
	})
	return fmt.Sprintf("Link %d", index+1)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// genericNameRe matches the fallback labels the heuristics assign when they
// cannot infer anything meaningful.
var genericNameRe = regexp.MustCompile(`^(Button|Link)( \d+)?$`)

// SuggestAccessibleNames asks the model for better names for controls the
// heuristics could only label generically, batched in fixed-size chunks.
// Returns the number of labels improved. Failures leave the heuristic
// labels in place.
func SuggestAccessibleNames(ctx context.Context, client llm.Client, doc *goquery.Document) int {
	var nodes []*goquery.Selection
	var fragments []string
	doc.Find("[aria-label]").Each(func(_ int, s *goquery.Selection) {
		if !genericNameRe.MatchString(s.AttrOr("aria-label", "")) {
			return
		}
		outer, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		nodes = append(nodes, s)
		fragments = append(fragments, truncate(templates.CollapseWhitespace(outer), 300))
	})
	if len(nodes) == 0 {
		return 0
	}

	improved := 0
	template := prompts.MustGet("webpage.json", "accessible-names")
	for start := 0; start < len(nodes); start += nameChunkSize {
		end := start + nameChunkSize
		if end > len(nodes) {
			end = len(nodes)
		}

		var numbered []string
		for i, frag := range fragments[start:end] {
			numbered = append(numbered, fmt.Sprintf("%d. %s", i+1, frag))
		}
		prompt := prompts.Format(template, map[string]string{
			"Fragments": strings.Join(numbered, "\n"),
		})

		raw, err := client.GenerateJSON(ctx, prompt, llm.TierLite)
		if err != nil {
			log.Printf("[WEBPAGE] Accessible-name batch failed: %v", err)
			continue
		}
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			log.Printf("[WEBPAGE] Accessible-name batch returned unusable JSON: %v", err)
			continue
		}
		for i, name := range names {
			if start+i >= end {
				break
			}
			name = strings.TrimSpace(name)
			if name == "" || len(name) > 80 {
				continue
			}
			nodes[start+i].SetAttr("aria-label", name)
			improved++
		}
	}
	return improved
}
