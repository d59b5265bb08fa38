package webpage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/a11y-remediator/internal/llm"
	"github.com/jonathan/a11y-remediator/internal/types"
)

func TestNewGenerator_Validation(t *testing.T) {
	client := &MockLLMClient{}

	_, err := NewGenerator(client, nil)
	require.Error(t, err)
	var genErr *Error
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, err.Error(), "page URL is required")

	_, err = NewGenerator(client, &Options{})
	require.Error(t, err)

	_, err = NewGenerator(client, &Options{PageURL: "not a url"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have scheme and host")

	g, err := NewGenerator(client, &Options{PageURL: "https://example.com/x"})
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestError_Format(t *testing.T) {
	cause := errors.New("boom")
	withCause := &Error{Message: "render failed", Cause: cause}
	assert.Equal(t, "accessible page generation failed: render failed: boom", withCause.Error())
	assert.True(t, errors.Is(withCause, cause))

	bare := &Error{Message: "page URL is required"}
	assert.Equal(t, "accessible page generation failed: page URL is required", bare.Error())
}

func TestGenerate(t *testing.T) {
	page := `<html><head><title>Shop</title></head><body>
<img src="logo.png">
<button id="fixme" class="mystery-button"></button>
<a href="about.html">About</a>
<p>Welcome to the shop, where everything is on display.</p>
</body></html>`

	jsonCalled := false
	client := &MockLLMClient{
		GenerateWithImagesFunc: func(_ context.Context, prompt string, _ []llm.Image, _ llm.ModelTier) (string, error) {
			if strings.Contains(prompt, "DO A SMART MERGE") {
				return "cannot merge", nil
			}
			return `<button id="fixme" class="mystery-button" aria-label="Open menu"></button>`, nil
		},
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			jsonCalled = true
			return "[]", nil
		},
	}

	g, err := NewGenerator(client, &Options{
		PageURL:      "https://example.com/docs/",
		Descriptions: map[string]string{"logo.png": "Company logo"},
	})
	require.NoError(t, err)

	violations := []types.Violation{{
		RuleID:       "button-name",
		Impact:       types.ImpactCritical,
		Description:  "Buttons must have discernible text",
		Selectors:    []string{"#fixme"},
		HTMLFragment: `<button id="fixme" class="mystery-button"></button>`,
	}}

	result, err := g.Generate(context.Background(), page, violations)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Fixed)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 0, result.Relabeled)
	assert.Equal(t, 2, result.Absolutized)
	assert.False(t, result.Merged)

	assert.Contains(t, result.HTML, `lang="en"`)
	assert.Contains(t, result.HTML, `aria-label="Open menu"`)
	assert.Contains(t, result.HTML, `alt="Company logo"`)
	assert.Contains(t, result.HTML, `title="Company logo"`)
	assert.Contains(t, result.HTML, `href="https://example.com/docs/about.html"`)
	assert.Contains(t, result.HTML, `src="https://example.com/docs/logo.png"`)

	// Every control ended up named, so no accessible-name batch went out.
	assert.False(t, jsonCalled)
}

func TestGenerate_AppliesResponsiveMerge(t *testing.T) {
	filler := strings.Repeat("accessible content ", 10)
	page := `<html lang="en"><head><title>t</title></head><body><main><p>` + filler + `</p></main></body></html>`
	merged := `<html lang="en"><head><title>t</title></head><body class="merged-layout"><main><p>` + filler + `</p></main></body></html>`

	var mergePrompt string
	client := &MockLLMClient{
		GenerateWithImagesFunc: func(_ context.Context, prompt string, _ []llm.Image, _ llm.ModelTier) (string, error) {
			mergePrompt = prompt
			return "```html\n" + merged + "\n```", nil
		},
	}

	g, err := NewGenerator(client, &Options{PageURL: "https://example.com/"})
	require.NoError(t, err)

	result, err := g.Generate(context.Background(), page, nil)
	require.NoError(t, err)

	assert.True(t, result.Merged)
	assert.Contains(t, result.HTML, "merged-layout")
	assert.Contains(t, mergePrompt, "DO A SMART MERGE")
	assert.Contains(t, mergePrompt, filler)
}

func TestGenerate_KeepsExistingLanguage(t *testing.T) {
	page := `<html lang="fr"><head></head><body><p>Bonjour tout le monde.</p></body></html>`

	client := &MockLLMClient{
		GenerateWithImagesFunc: func(_ context.Context, _ string, _ []llm.Image, _ llm.ModelTier) (string, error) {
			return "", errors.New("merge unavailable")
		},
	}
	g, err := NewGenerator(client, &Options{PageURL: "https://example.com/", Lang: "es"})
	require.NoError(t, err)

	result, err := g.Generate(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Contains(t, result.HTML, `lang="fr"`)
	assert.NotContains(t, result.HTML, `lang="es"`)
	assert.False(t, result.Merged)
}

func TestValidMerge(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("lorem ipsum ", 20) + "</p></body></html>"

	assert.False(t, validMerge("", "original"))
	assert.False(t, validMerge("plain text without markup", "original"))
	assert.False(t, validMerge("<html><body><p>short</p></body></html>", "original"))
	assert.True(t, validMerge(long, long))
	// A shrunken result is warned about but still accepted.
	assert.True(t, validMerge(long, strings.Repeat("z", 100000)))
}

func TestRestoreResponsive_SkipsOversizedPages(t *testing.T) {
	client := &MockLLMClient{
		GenerateWithImagesFunc: func(_ context.Context, _ string, _ []llm.Image, _ llm.ModelTier) (string, error) {
			t.Fatal("no request expected for oversized pages")
			return "", nil
		},
	}
	g := newTestGenerator(t, client, nil)

	big := strings.Repeat("a", mergeTokenBudget*charsPerToken)
	_, ok := g.restoreResponsive(context.Background(), big, big)
	assert.False(t, ok)
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/page", "accessible_www_example_com.html"},
		{"https://sub.example.co.uk:8080/x", "accessible_sub_example_co_uk_8080.html"},
		{"nonsense", "accessible_page.html"},
		{"", "accessible_page.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputName(tt.url), "url: %q", tt.url)
	}
}
