package cache

import (
	"sort"
	"strings"
)

// Key composes a deterministic cache key from namespace parts. Multi-value
// parts (category lists, source-id lists) must be passed through Multi so
// that equivalent queries differing only in parameter order share an entry.
func Key(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		normalized = append(normalized, strings.ToLower(strings.TrimSpace(p)))
	}
	return strings.Join(normalized, "|")
}

// Multi canonicalizes a multi-value parameter: trimmed, lowercased, sorted,
// comma-joined.
func Multi(values []string) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			cleaned = append(cleaned, v)
		}
	}
	sort.Strings(cleaned)
	return strings.Join(cleaned, ",")
}
