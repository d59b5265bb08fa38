package templates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// inlineMarker separates a host file path from the ordinal of an inline
// template inside it, forming a virtual artifact path such as
// src/app/app.component.ts::inline_template_1.
const inlineMarker = "::inline_template_"

// inlineTemplateRe matches a component's template property holding a
// template literal. The body consumes escape sequences whole, so an escaped
// backquote (\`) does not terminate the literal; non-greedy so adjacent
// templates in one file stay separate.
var inlineTemplateRe = regexp.MustCompile("template\\s*:\\s*`((?:[^`\\\\]|\\\\[\\s\\S])*?)`")

// InlineTemplate is one template literal found inside a component source
// file. Start and End are byte offsets of the template body, excluding the
// backquotes.
type InlineTemplate struct {
	Ordinal int
	Body    string
	Start   int
	End     int
}

// ExtractInlineTemplates finds every template literal assigned to a
// component's template property, in source order. Ordinals are 1-based.
func ExtractInlineTemplates(source string) []InlineTemplate {
	matches := inlineTemplateRe.FindAllStringSubmatchIndex(source, -1)
	out := make([]InlineTemplate, 0, len(matches))
	for i, m := range matches {
		out = append(out, InlineTemplate{
			Ordinal: i + 1,
			Body:    source[m[2]:m[3]],
			Start:   m[2],
			End:     m[3],
		})
	}
	return out
}

// InlinePath builds the virtual artifact path for the nth inline template of
// a host file.
func InlinePath(hostPath string, ordinal int) string {
	return fmt.Sprintf("%s%s%d", hostPath, inlineMarker, ordinal)
}

// ParseInlinePath splits a virtual inline path into its host file and
// ordinal. ok is false for ordinary file paths.
func ParseInlinePath(path string) (hostPath string, ordinal int, ok bool) {
	idx := strings.LastIndex(path, inlineMarker)
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(path[idx+len(inlineMarker):])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return path[:idx], n, true
}

// IsInlinePath reports whether path refers to an inline template rather than
// a file on disk.
func IsInlinePath(path string) bool {
	_, _, ok := ParseInlinePath(path)
	return ok
}

// SpliceInline replaces the nth inline template body inside a component
// source file and returns the updated source. Backquotes in the new body are
// escaped so the surrounding template literal stays intact.
func SpliceInline(source string, ordinal int, newBody string) (string, error) {
	inlines := ExtractInlineTemplates(source)
	if ordinal < 1 || ordinal > len(inlines) {
		return "", fmt.Errorf("inline template %d not found, file has %d", ordinal, len(inlines))
	}
	target := inlines[ordinal-1]
	escaped := strings.ReplaceAll(newBody, "`", "\\`")
	return source[:target.Start] + escaped + source[target.End:], nil
}
