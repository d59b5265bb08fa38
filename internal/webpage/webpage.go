// Package webpage rewrites a rendered page into an accessible variant for
// the URL flow. The pass order mirrors how the fixes depend on each other:
// language attribute first, caption-backed alt text, per-violation fragment
// fixes through the model, discernible-name repair for anything the
// violations missed, an optional layout merge against the untouched
// original, and finally relative-to-absolute path conversion so the saved
// copy renders standalone.
package webpage

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/a11y-remediator/internal/audit"
	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/types"
)

// DefaultLang is declared on the html element when the page has no language
// of its own.
const DefaultLang = "en"

// Options configures a Generator.
type Options struct {
	// PageURL is the address the page was rendered from. Required; it
	// anchors path absolutization and caption lookups.
	PageURL string
	// Descriptions maps image URLs (raw src values or resolved URLs) to
	// alt-text descriptions from the captioning pass.
	Descriptions map[string]string
	// Screenshots of the rendered page, attached to fix requests so the
	// model preserves the visual design.
	Screenshots []llm.Image
	// Lang overrides DefaultLang for the language attribute repair.
	Lang string
}

// Generator produces the accessible variant of one rendered page.
type Generator struct {
	client       llm.Client
	base         *url.URL
	descriptions map[string]string
	screenshots  []llm.Image
	lang         string
}

// NewGenerator validates the options and builds a Generator.
func NewGenerator(client llm.Client, opts *Options) (*Generator, error) {
	if opts == nil || opts.PageURL == "" {
		return nil, &Error{Message: "page URL is required"}
	}
	base, err := url.Parse(opts.PageURL)
	if err != nil {
		return nil, &Error{Message: "invalid page URL", Cause: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &Error{Message: fmt.Sprintf("invalid page URL: %s (must have scheme and host)", opts.PageURL)}
	}

	lang := opts.Lang
	if lang == "" {
		lang = DefaultLang
	}
	return &Generator{
		client:       client,
		base:         base,
		descriptions: opts.Descriptions,
		screenshots:  opts.Screenshots,
		lang:         lang,
	}, nil
}

// Result summarizes one page rewrite.
type Result struct {
	// HTML is the complete accessible document.
	HTML string
	// Fixed and Failed count the violations that were repaired and the
	// ones that could not be located or corrected.
	Fixed  int
	Failed int
	// Relabeled counts buttons and links given an accessible name by the
	// discernible-name pass.
	Relabeled int
	// Absolutized counts the path attributes rewritten to absolute URLs.
	Absolutized int
	// Merged reports whether the layout merge against the original
	// document was applied.
	Merged bool
}

// Generate rewrites the page and returns the accessible document. The input
// markup is never mutated; all work happens on a parsed copy.
func (g *Generator) Generate(ctx context.Context, pageHTML string, violations []types.Violation) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, &Error{Message: "unparseable page", Cause: err}
	}

	prioritized := audit.Prioritize(actionable(violations))
	log.Printf("[WEBPAGE] Rewriting page with %d actionable violations", len(prioritized))

	g.ensureLang(doc)
	if captioned := ApplyImageDescriptions(doc, g.descriptions, g.base); captioned > 0 {
		log.Printf("[WEBPAGE] Injected %d image descriptions", captioned)
	}

	fixed, failed := g.fixViolations(ctx, doc, prioritized)

	relabeled := EnsureDiscernibleButtons(doc) + EnsureDiscernibleLinks(doc)
	if relabeled > 0 {
		improved := SuggestAccessibleNames(ctx, g.client, doc)
		log.Printf("[WEBPAGE] Labeled %d controls, improved %d names", relabeled, improved)
	}

	current, err := doc.Html()
	if err != nil {
		return nil, &Error{Message: "render failed", Cause: err}
	}

	merged := false
	if mergedHTML, ok := g.restoreResponsive(ctx, pageHTML, current); ok {
		if redoc, err := goquery.NewDocumentFromReader(strings.NewReader(mergedHTML)); err == nil {
			doc = redoc
			merged = true
		}
	}

	absolutized := AbsolutizePaths(doc, g.base)
	log.Printf("[WEBPAGE] Converted %d relative paths to absolute", absolutized)

	html, err := doc.Html()
	if err != nil {
		return nil, &Error{Message: "render failed", Cause: err}
	}

	log.Printf("[WEBPAGE] Fixes applied: %d, failed: %d", fixed, failed)
	return &Result{
		HTML:        html,
		Fixed:       fixed,
		Failed:      failed,
		Relabeled:   relabeled,
		Absolutized: absolutized,
		Merged:      merged,
	}, nil
}

// ensureLang declares the document language when the html element carries
// none. Runs before the fix loop so document-language violations are
// already resolved when it counts them.
func (g *Generator) ensureLang(doc *goquery.Document) {
	root := doc.Find("html").First()
	if root.Length() == 0 {
		return
	}
	if strings.TrimSpace(root.AttrOr("lang", "")) != "" {
		return
	}
	root.SetAttr("lang", g.lang)
}

// actionable drops violations that carry no selector; there is nothing to
// locate for them.
func actionable(violations []types.Violation) []types.Violation {
	out := make([]types.Violation, 0, len(violations))
	for _, v := range violations {
		if v.PrimarySelector() != "" {
			out = append(out, v)
		}
	}
	return out
}

// OutputName derives the accessible copy's file name from the page host.
func OutputName(pageURL string) string {
	host := "page"
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, host)
	return "accessible_" + host + ".html"
}
