package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecompose_AllSections(t *testing.T) {
	response := `Here are the fixes:
<<<TEMPLATE>>>
<div aria-label="main">content</div>
<<<END TEMPLATE>>>
<<<TYPESCRIPT>>>
export class AppComponent {}
<<<END TYPESCRIPT>>>
<<<STYLES>>>
.btn-primary { color: #000000 !important; }
<<<END STYLES>>>`

	candidate, err := Decompose(response)
	require.NoError(t, err)
	assert.Equal(t, `<div aria-label="main">content</div>`, candidate.Template)
	assert.Equal(t, "export class AppComponent {}", candidate.Companion)
	assert.Equal(t, ".btn-primary { color: #000000 !important; }", candidate.Stylesheet)
}

func TestDecompose_TemplateOnly(t *testing.T) {
	response := "<<<TEMPLATE>>>\n<p>fixed</p>\n<<<END TEMPLATE>>>"

	candidate, err := Decompose(response)
	require.NoError(t, err)
	assert.Equal(t, "<p>fixed</p>", candidate.Template)
	assert.Empty(t, candidate.Companion)
	assert.Empty(t, candidate.Stylesheet)
}

func TestDecompose_MissingTemplate(t *testing.T) {
	response := "<<<TYPESCRIPT>>>\nexport class X {}\n<<<END TYPESCRIPT>>>"

	candidate, err := Decompose(response)
	require.Error(t, err)
	assert.Nil(t, candidate)
	assert.Contains(t, err.Error(), "<<<TEMPLATE>>>")
}

func TestDecompose_EndMarkerBeforeStart(t *testing.T) {
	response := "<<<END TEMPLATE>>>\n<p>x</p>\n<<<TEMPLATE>>>"

	_, err := Decompose(response)
	assert.Error(t, err)
}

func TestDecompose_StripsCodeFences(t *testing.T) {
	response := "<<<TEMPLATE>>>\n```html\n<div>fixed</div>\n```\n<<<END TEMPLATE>>>\n" +
		"<<<STYLES>>>\n```css\n.a { color: #000; }\n```\n<<<END STYLES>>>"

	candidate, err := Decompose(response)
	require.NoError(t, err)
	assert.Equal(t, "<div>fixed</div>", candidate.Template)
	assert.Equal(t, ".a { color: #000; }", candidate.Stylesheet)
}

func TestExtractBetween_TrimsWhitespace(t *testing.T) {
	got, ok := extractBetween("a <<<X>>>   body   <<<Y>>> b", "<<<X>>>", "<<<Y>>>")
	require.True(t, ok)
	assert.Equal(t, "body", got)
}

func TestExtractBetween_MissingMarkers(t *testing.T) {
	_, ok := extractBetween("no markers here", "<<<X>>>", "<<<Y>>>")
	assert.False(t, ok)
}
