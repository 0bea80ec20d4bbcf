// Package template renders the {{placeholder}} syntax used in rule messages
// and titles against trigger payload data.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// Render substitutes every {{key}} in input with the matching value from
// data. Unknown keys render as an empty string so a sparse payload never
// breaks a message. Dotted keys descend into nested maps.
func Render(input string, data map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])

		value, ok := lookup(data, key)
		if !ok {
			return ""
		}

		return stringify(value)
	})
}

// Placeholders lists the distinct placeholder keys referenced by input, in
// order of first appearance.
func Placeholders(input string) []string {
	seen := make(map[string]bool)
	keys := make([]string, 0)

	for _, match := range placeholderPattern.FindAllStringSubmatch(input, -1) {
		key := match[1]
		if seen[key] {
			continue
		}

		seen[key] = true

		keys = append(keys, key)
	}

	return keys
}

func lookup(data map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")

	current := any(data)

	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
