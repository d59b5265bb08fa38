package llm

import (
	"testing"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"label\": \"Search\"}\n```",
			expected: `{"label": "Search"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"label\": \"Search\"}\n```",
			expected: `{"label": "Search"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"label\": \"Search\"}\n```",
			expected: `{"label": "Search"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"label": "Search"}`,
			expected: `{"label": "Search"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanJSONBlock_PreambleText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "As requested, here is the JSON:\n{\"rule\": \"image-alt\"}",
			expected: `{"rule": "image-alt"}`,
		},
		{
			name:     "conversational preamble",
			input:    "I've reviewed the markup for accessibility problems. Here's the structured output:\n\n{\"rule\": \"link-name\", \"impact\": \"serious\"}",
			expected: `{"rule": "link-name", "impact": "serious"}`,
		},
		{
			name:     "preamble with multiple sentences",
			input:    "I analyzed the fragment. The button has no text. Here is the result: {\"labels\": [\"Close dialog\"]}",
			expected: `{"labels": ["Close dialog"]}`,
		},
		{
			name:     "preamble before JSON array",
			input:    "Here are the accessible names:\n[\"Search\", \"Close\"]",
			expected: `["Search", "Close"]`,
		},
		{
			name:     "JSON with trailing text",
			input:    "{\"alt\": \"Team photo\"}\n\nLet me know if you need anything else!",
			expected: `{"alt": "Team photo"}`,
		},
		{
			name:     "nested objects",
			input:    "Output:\n{\"contrast\": {\"foreground\": \"#777777\"}}",
			expected: `{"contrast": {"foreground": "#777777"}}`,
		},
		{
			name:     "JSON with escaped quotes",
			input:    "Result: {\"html\": \"<img alt=\\\"Logo\\\">\"}",
			expected: `{"html": "<img alt=\"Logo\">"}`,
		},
		{
			name:     "deeply nested",
			input:    "Here: {\"a\": {\"b\": {\"c\": {\"d\": \"deep\"}}}}",
			expected: `{"a": {"b": {"c": {"d": "deep"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple object",
			input:    `{"label": "Menu"}`,
			expected: `{"label": "Menu"}`,
		},
		{
			name:     "nested objects",
			input:    `{"node": {"selector": ".hero"}}`,
			expected: `{"node": {"selector": ".hero"}}`,
		},
		{
			name:     "object with array",
			input:    `{"selectors": [".a", ".b"]}`,
			expected: `{"selectors": [".a", ".b"]}`,
		},
		{
			name:     "object with trailing text",
			input:    `{"label": "Menu"} and some more text`,
			expected: `{"label": "Menu"}`,
		},
		{
			name:     "string with braces inside",
			input:    `{"template": "Hello {name}!"}`,
			expected: `{"template": "Hello {name}!"}`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "not starting with brace",
			input:    "not json",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractJSONObject(tt.input)
			if result != tt.expected {
				t.Errorf("extractJSONObject() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanCodeFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "html fence",
			input:    "```html\n<div>hello</div>\n```",
			expected: "<div>hello</div>",
		},
		{
			name:     "fence inside multi-section text",
			input:    "<div>a</div>\n```ts\nexport class A {}\n```",
			expected: "<div>a</div>\nexport class A {}",
		},
		{
			name:     "stray fence markers",
			input:    "prefix ```scss .a { color: red; } ``` suffix",
			expected: "prefix  .a { color: red; }  suffix",
		},
		{
			name:     "no fences",
			input:    "<span>plain</span>",
			expected: "<span>plain</span>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanCodeFences(tt.input)
			if result != tt.expected {
				t.Errorf("CleanCodeFences() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple array",
			input:    `["Search", "Close", "Menu"]`,
			expected: `["Search", "Close", "Menu"]`,
		},
		{
			name:     "nested arrays",
			input:    `[[1, 2], [3, 4]]`,
			expected: `[[1, 2], [3, 4]]`,
		},
		{
			name:     "array of objects",
			input:    `[{"index": 0}, {"index": 1}]`,
			expected: `[{"index": 0}, {"index": 1}]`,
		},
		{
			name:     "array with trailing text",
			input:    `[1, 2, 3] extra stuff`,
			expected: `[1, 2, 3]`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "not starting with bracket",
			input:    "not array",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractJSONArray(tt.input)
			if result != tt.expected {
				t.Errorf("extractJSONArray() = %q, want %q", result, tt.expected)
			}
		})
	}
}
