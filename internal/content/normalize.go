package content

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()
	spaceRE     = regexp.MustCompile(`\s+`)
)

// StripHTML removes all markup from s and collapses the remaining whitespace.
func StripHTML(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	return CollapseWhitespace(s)
}

// CollapseWhitespace trims s and folds runs of whitespace (including
// newlines) into single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most n runes, appending an ellipsis when it cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}

// NormalizeTitle produces the title half of the dedup key: lowercase, letters
// and digits only (locale letters preserved), single spaces, at most 100
// runes. "Reforma X" and "reforma  x!" normalize to the same key.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	norm := CollapseWhitespace(b.String())
	runes := []rune(norm)
	if len(runes) > 100 {
		norm = string(runes[:100])
	}
	return norm
}
