// Package repairs applies mechanical rewrites to corrected templates before
// validation. Each entry in the table fixes one known failure mode of
// generated markup; the table is fixed and runs in order.
package repairs

import (
	"regexp"
	"strings"
)

// Repair is one named rewrite. Apply receives the artifact's original source
// alongside the candidate markup because some rewrites restore properties
// the original had.
type Repair struct {
	Name  string
	Apply func(original, corrected string) string
}

// Table returns the repair table in application order.
func Table() []Repair {
	return []Repair{
		{Name: "aria-interpolation", Apply: repairAriaInterpolation},
		{Name: "unclosed-attribute-quote", Apply: repairUnclosedQuotes},
		{Name: "template-ref-quote", Apply: repairTemplateRefQuotes},
		{Name: "icon-role", Apply: repairIconRoles},
		{Name: "document-language", Apply: repairDocumentLanguage},
		{Name: "progressbar-label", Apply: repairProgressbarLabels},
		{Name: "hidden-label-revert", Apply: repairHiddenLabels},
	}
}

// Run feeds the markup through the whole table and reports which repairs
// changed it.
func Run(original, corrected string) (string, []string) {
	out := corrected
	var applied []string
	for _, repair := range Table() {
		next := repair.Apply(original, out)
		if next != out {
			applied = append(applied, repair.Name)
			out = next
		}
	}
	return out, applied
}

// Generated markup tends to write aria attributes with interpolation, which
// Angular rejects at compile time. Rewrite them as attribute bindings:
// aria-label="{{name}}" becomes [attr.aria-label]="name", and mixed values
// become string concatenation.
var ariaInterpolationRe = regexp.MustCompile(`aria-([\w-]+)="([^"{}]*)\{\{\s*([^}]+?)\s*\}\}([^"{}]*)"`)

func repairAriaInterpolation(_, corrected string) string {
	return ariaInterpolationRe.ReplaceAllStringFunc(corrected, func(m string) string {
		parts := ariaInterpolationRe.FindStringSubmatch(m)
		attr, prefix, expr, suffix := parts[1], parts[2], parts[3], parts[4]

		var terms []string
		if prefix != "" {
			terms = append(terms, "'"+prefix+"'")
		}
		terms = append(terms, expr)
		if suffix != "" {
			terms = append(terms, "'"+suffix+"'")
		}
		return `[attr.aria-` + attr + `]="` + strings.Join(terms, " + ") + `"`
	})
}

// A quote dropped before the closing bracket leaves the attribute open and
// swallows the rest of the tag. The guard character before > keeps template
// expressions such as *ngIf="count > 3" untouched.
var unclosedQuoteRe = regexp.MustCompile(`([\w-]+="[^"<>]*[^ "<>=])>`)

func repairUnclosedQuotes(_, corrected string) string {
	return unclosedQuoteRe.ReplaceAllString(corrected, `$1">`)
}

// Template reference variables take no value, but generated markup
// sometimes closes them with a stray quote: <mat-stepper #stepper">.
// Restricted to the reference names seen in the wild so hex colors ending a
// style value are never touched.
var templateRefQuoteRe = regexp.MustCompile(`#(stepper|picker|drawer)">`)

func repairTemplateRefQuotes(_, corrected string) string {
	return templateRefQuoteRe.ReplaceAllString(corrected, `#$1>`)
}

// Icon elements given an aria-label need role="img" for the label to be
// announced.
var iconTagRe = regexp.MustCompile(`<(nb-icon|Icon|i)(\s[^>]*?)(/?)>`)

func repairIconRoles(_, corrected string) string {
	return iconTagRe.ReplaceAllStringFunc(corrected, func(m string) string {
		parts := iconTagRe.FindStringSubmatch(m)
		tag, attrs, slash := parts[1], parts[2], parts[3]
		hasLabel := strings.Contains(attrs, "aria-label") || strings.Contains(attrs, "[attr.aria-label]")
		if !hasLabel || strings.Contains(attrs, "role=") {
			return m
		}
		return "<" + tag + attrs + ` role="img"` + slash + ">"
	})
}

// A document element left without lang gets English, the project default.
func repairDocumentLanguage(_, corrected string) string {
	return strings.Replace(corrected, "<html>", `<html lang="en">`, 1)
}

var (
	progressbarTagRe  = regexp.MustCompile(`<[\w-]+[^>]*role="progressbar"[^>]*>`)
	progressValueRe   = regexp.MustCompile(`aria-valuenow="(\d+)"`)
	progressClosingRe = regexp.MustCompile(`(/?)>$`)
)

// Progress bars must name themselves. A literal aria-valuenow yields a
// percentage label; bound values get a generic one.
func repairProgressbarLabels(_, corrected string) string {
	return progressbarTagRe.ReplaceAllStringFunc(corrected, func(m string) string {
		if strings.Contains(m, "aria-label") {
			return m
		}
		label := "Progress indicator"
		if v := progressValueRe.FindStringSubmatch(m); v != nil {
			label = "Progress: " + v[1] + "%"
		}
		return progressClosingRe.ReplaceAllString(m, ` aria-label="`+label+`"$1>`)
	})
}

var (
	labelElementRe = regexp.MustCompile(`<label\b[^>]*>[\s\S]*?</label>`)
	labelForRe     = regexp.MustCompile(`for="([^"]+)"`)
	hiddenAttrRe   = regexp.MustCompile(`<[^>]*\shidden[\s>]`)
)

// Labels the original kept visually hidden must stay hidden; corrections
// that expose them change the layout. Re-hide them with the conventional
// class while keeping their target and content.
func repairHiddenLabels(original, corrected string) string {
	hiddenFor := map[string]bool{}
	for _, label := range labelElementRe.FindAllString(original, -1) {
		if isHiddenMarkup(label) {
			if m := labelForRe.FindStringSubmatch(label); m != nil {
				hiddenFor[m[1]] = true
			}
		}
	}
	if len(hiddenFor) == 0 {
		return corrected
	}

	return labelElementRe.ReplaceAllStringFunc(corrected, func(label string) string {
		m := labelForRe.FindStringSubmatch(label)
		if m == nil || !hiddenFor[m[1]] || isHiddenMarkup(label) {
			return label
		}
		return `<label for="` + m[1] + `" class="visually-hidden">` + labelContent(label) + `</label>`
	})
}

func isHiddenMarkup(s string) bool {
	return strings.Contains(s, "visually-hidden") ||
		strings.Contains(s, "sr-only") ||
		strings.Contains(s, "display:none") ||
		strings.Contains(s, "display: none") ||
		hiddenAttrRe.MatchString(s)
}

func labelContent(label string) string {
	open := strings.Index(label, ">")
	close := strings.LastIndex(label, "<")
	if open < 0 || close <= open {
		return ""
	}
	return label[open+1 : close]
}
