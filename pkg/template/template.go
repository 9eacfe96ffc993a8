// Package template renders message templates by substituting {{placeholder}}
// variables.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Render substitutes every {{name}} placeholder in content. Values come from
// the node's configured variables; a configured value of the literal form
// "{{other}}" is resolved once more from the execution's variables map (one
// level of indirection, not recursive). Placeholders with no configured
// value fall back to the execution variables directly; still-unresolved
// placeholders are left in place.
func Render(content string, configured map[string]any, variables map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := configured[name]
		if !ok {
			value, ok = variables[name]
			if !ok {
				return match
			}

			return stringify(value)
		}

		if ref, isRef := indirection(value); isRef {
			resolved, found := variables[ref]
			if !found {
				return match
			}

			return stringify(resolved)
		}

		return stringify(value)
	})
}

// Placeholders parses the distinct placeholder names used in content, in
// order of first appearance.
func Placeholders(content string) []string {
	var names []string

	seen := make(map[string]bool)

	for _, match := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}

	return names
}

// indirection reports whether a configured value is itself a {{name}}
// reference into the execution variables.
func indirection(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}

	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}

	match := placeholderPattern.FindStringSubmatch(s)
	if match == nil || match[0] != s {
		return "", false
	}

	return match[1], true
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
