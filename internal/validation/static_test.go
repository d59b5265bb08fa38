package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findingsByCategory(findings []Finding) map[string]int {
	counts := make(map[string]int)
	for _, f := range findings {
		counts[f.Category]++
	}
	return counts
}

func TestAnalyzeTemplate_ButtonWithoutName(t *testing.T) {
	findings := AnalyzeTemplate(`<button class="icon-only"><i class="fa fa-x"></i></button>`)
	counts := findingsByCategory(findings)
	assert.Equal(t, 1, counts[CategoryMissingAriaLabel])
}

func TestAnalyzeTemplate_ButtonWithLabelIsFine(t *testing.T) {
	findings := AnalyzeTemplate(`<button aria-label="Close dialog"><i class="fa fa-x"></i></button>`)
	assert.Zero(t, findingsByCategory(findings)[CategoryMissingAriaLabel])

	findings = AnalyzeTemplate(`<button>Save draft</button>`)
	assert.Zero(t, findingsByCategory(findings)[CategoryMissingAriaLabel])
}

func TestAnalyzeTemplate_GenericLinkText(t *testing.T) {
	findings := AnalyzeTemplate(`<a href="/offers">click here</a><a href="/about">About the team</a>`)
	counts := findingsByCategory(findings)
	assert.Equal(t, 1, counts[CategoryOther])
}

func TestAnalyzeTemplate_GenericLinkTextSpanish(t *testing.T) {
	findings := AnalyzeTemplate(`<a href="/mas">ver más</a>`)
	assert.Equal(t, 1, findingsByCategory(findings)[CategoryOther])
}

func TestAnalyzeTemplate_UnlabeledInput(t *testing.T) {
	findings := AnalyzeTemplate(`<input type="text" name="q">`)
	assert.Equal(t, 1, findingsByCategory(findings)[CategoryMissingLabel])
}

func TestAnalyzeTemplate_InputWithBoundLabelIsFine(t *testing.T) {
	markup := `<label for="email">Email</label><input id="email" type="email">`
	assert.Zero(t, findingsByCategory(AnalyzeTemplate(markup))[CategoryMissingLabel])
}

func TestAnalyzeTemplate_HiddenInputIgnored(t *testing.T) {
	assert.Empty(t, AnalyzeTemplate(`<input type="hidden" name="csrf">`))
}

func TestAnalyzeTemplate_ImageWithoutAlt(t *testing.T) {
	findings := AnalyzeTemplate(`<img src="hero.png"><img src="logo.png" alt="Logo">`)
	counts := findingsByCategory(findings)
	assert.Equal(t, 1, counts[CategoryMissingAlt])
}

func TestAnalyzeTemplate_LowContrastUtilityClass(t *testing.T) {
	findings := AnalyzeTemplate(`<span class="text-muted">fine print</span>`)
	counts := findingsByCategory(findings)
	require.Equal(t, 1, counts[CategoryContrast])
}

func TestAnalyzeTemplate_ExplicitColorSilencesContrastFinding(t *testing.T) {
	findings := AnalyzeTemplate(`<span class="text-muted" style="color: #333333">fine print</span>`)
	assert.Zero(t, findingsByCategory(findings)[CategoryContrast])
}

func TestAnalyzeTemplate_CleanMarkup(t *testing.T) {
	markup := `<main>
	  <h1>Orders</h1>
	  <img src="chart.png" alt="Orders per month">
	  <label for="from">From</label><input id="from" type="date">
	  <button aria-label="Refresh data">Refresh</button>
	</main>`
	assert.Empty(t, AnalyzeTemplate(markup))
}

func TestAnalyzeStylesheet_LightHexFamilies(t *testing.T) {
	css := `.note { color: #f0f0f0; }
.title { color: #202020; }
.hint { color: #e8e8e8; }`
	findings := AnalyzeStylesheet(css)
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, CategoryContrast, f.Category)
	}
}

func TestAnalyzeStylesheet_WeakAlpha(t *testing.T) {
	css := `.ghost { color: rgba(0, 0, 0, 0.6); }
.solid { color: rgba(0, 0, 0, 0.95); }`
	findings := AnalyzeStylesheet(css)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Element, "0.6")
}

func TestFixLowContrastLines_AddsStyle(t *testing.T) {
	markup := "<div>\n  <span class=\"text-muted\">note</span>\n</div>"
	fixed := FixLowContrastLines(markup)
	assert.Contains(t, fixed, `<span class="text-muted" style="color: #000000">note</span>`)
}

func TestFixLowContrastLines_PrependsIntoExistingStyle(t *testing.T) {
	markup := `<span class="text-light" style="font-size: 12px">x</span>`
	fixed := FixLowContrastLines(markup)
	assert.Contains(t, fixed, `style="color: #000000; font-size: 12px"`)
}

func TestFixLowContrastLines_LeavesColoredLinesAlone(t *testing.T) {
	markup := `<span class="text-muted" style="color: #111">x</span>`
	assert.Equal(t, markup, FixLowContrastLines(markup))
}

func TestApplyStaticFixes_OnlyContrastIsMechanical(t *testing.T) {
	markup := "<img src=\"a.png\">\n<span class=\"btn\">go</span>"
	unchanged := ApplyStaticFixes(markup, []Finding{{Category: CategoryMissingAlt}})
	assert.Equal(t, markup, unchanged)

	fixed := ApplyStaticFixes(markup, []Finding{{Category: CategoryContrast}})
	assert.Contains(t, fixed, `<span class="btn" style="color: #000000">go</span>`)
	assert.Contains(t, fixed, `<img src="a.png">`)
}
