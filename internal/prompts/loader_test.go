package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("synthesis.json", "system-auditor")
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "web accessibility auditor")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("synthesis.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("captions.json", "describe-image")
		assert.NotEmpty(t, prompt)
	})
}

func TestFormat(t *testing.T) {
	template := "Angular component: {{.ComponentName}}\nTemplate: {{.TemplatePath}}"
	data := map[string]string{
		"ComponentName": "navbar",
		"TemplatePath":  "src/app/navbar/navbar.component.html",
	}

	result := Format(template, data)
	assert.Equal(t, "Angular component: navbar\nTemplate: src/app/navbar/navbar.component.html", result)
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	data := map[string]string{"Key": "Value"}

	result := Format(template, data)
	assert.Equal(t, template, result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	data := map[string]string{}

	result := Format(template, data)
	assert.Equal(t, template, result) // Placeholder remains
}

func TestFormat_JSXBracesUntouched(t *testing.T) {
	// JSX style objects look close enough to placeholders to matter here.
	template := "use style={{ color: '#000000' }} on {{.Tag}}"
	result := Format(template, map[string]string{"Tag": "<span>"})
	assert.Equal(t, "use style={{ color: '#000000' }} on <span>", result)
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("synthesis.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "component-fix-clean")
	assert.Contains(t, keys, "component-fix-violations")
	assert.Contains(t, keys, "react-component-fix")
}

func TestCaching(t *testing.T) {
	ClearCache()

	// First call loads from file
	prompt1, err := Get("styles.json", "css-contrast-fix")
	require.NoError(t, err)

	// Second call should use cache
	prompt2, err := Get("styles.json", "css-contrast-fix")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}

func TestComponentPrompts_CarryResponseMarkers(t *testing.T) {
	ClearCache()

	format := MustGet("synthesis.json", "response-format")
	assert.Contains(t, format, "<<<TEMPLATE>>>")
	assert.Contains(t, format, "<<<END TEMPLATE>>>")
	assert.Contains(t, format, "<<<TYPESCRIPT>>>")
	assert.Contains(t, format, "<<<STYLES>>>")

	cssFix := MustGet("styles.json", "css-contrast-fix")
	assert.Contains(t, cssFix, "<<<UPDATED_CSS>>>")
	assert.Contains(t, cssFix, "<<<END_UPDATED_CSS>>>")
}
