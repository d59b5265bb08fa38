// Package templates discovers and indexes the source artifacts of a front-end
// project: external component templates, inline templates embedded in
// component source files, static pages, and React component files.
package templates

import (
	"regexp"
	"strings"
)

// Angular's dev server decorates rendered markup with per-component scoping
// attributes and debug reflections that never appear in source templates.
// They must be stripped before rendered fragments can match source text.
var angularRuntimeAttrs = regexp.MustCompile(`\s(?:_ngcontent-[^= ]*|_nghost-[^= ]*|ng-reflect-[\w-]+)="[^"]*"`)

// React dev builds attach data-react* bookkeeping attributes the same way.
var reactRuntimeAttrs = regexp.MustCompile(`\sdata-react[^= ]*="[^"]*"`)

var whitespaceRun = regexp.MustCompile(`\s+`)

// CollapseWhitespace reduces every whitespace run to a single space and trims
// the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// NormalizeAngular strips runtime-injected attributes and collapses
// whitespace. The result is used for matching only and is never written back
// to disk.
func NormalizeAngular(markup string) string {
	return CollapseWhitespace(angularRuntimeAttrs.ReplaceAllString(markup, ""))
}

// NormalizeReact strips React runtime attributes and collapses whitespace.
// Matching only, never written back.
func NormalizeReact(markup string) string {
	return CollapseWhitespace(reactRuntimeAttrs.ReplaceAllString(markup, ""))
}
