package types

import "strings"

// Framework identifies the front-end stack of a target project, which
// selects the matching cascade, prompts, and apply strategy.
type Framework string

// Supported target frameworks.
const (
	FrameworkAngular Framework = "angular"
	FrameworkReact   Framework = "react"
	FrameworkWeb     Framework = "web"
)

// ParseFramework normalizes a user-supplied framework name. Unknown names
// return false.
func ParseFramework(s string) (Framework, bool) {
	switch Framework(strings.ToLower(strings.TrimSpace(s))) {
	case FrameworkAngular:
		return FrameworkAngular, true
	case FrameworkReact:
		return FrameworkReact, true
	case FrameworkWeb:
		return FrameworkWeb, true
	}
	return "", false
}
