package ratelimit

import (
	"strings"
)

// MatchEndpoint resolves a request to its endpoint configuration. Config
// paths use the same route syntax the server registers handlers with:
// literal segments plus {param} placeholders, as in "/runs/{id}".
// Returns nil when no pattern applies, which hands the request to the
// default limit.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	// The health probe is polled by orchestrators and must never throttle.
	if path == "/health" && method == "GET" {
		return &EndpointConfig{}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && pathMatches(config.Path, path) {
			return config
		}
	}

	return nil
}

// pathMatches compares a route pattern against a concrete path segment by
// segment. A {param} segment matches any single non-empty segment.
func pathMatches(pattern, path string) bool {
	if pattern == path {
		return true
	}

	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return false
	}

	for i, part := range patternParts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			if pathParts[i] == "" {
				return false
			}
			continue
		}
		if part != pathParts[i] {
			return false
		}
	}
	return true
}
