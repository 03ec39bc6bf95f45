package ratelimit

import (
	"strings"
)

// unlimited marks requests that are never limited.
var unlimited = &Rule{}

// Match returns the rule for a request, or nil when the default limit applies.
// Exact paths win over prefixes; among prefixes the first listed wins.
func Match(path, method string, rules []Rule) *Rule {
	if method == "GET" && (path == "/health" || path == "/cv/draft/events") {
		return unlimited
	}

	for i := range rules {
		if rules[i].Method == method && rules[i].Path == path {
			return &rules[i]
		}
	}

	for i := range rules {
		r := &rules[i]
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r
		}
	}

	return nil
}
