// Package sanitize cleans user-supplied scenario names before they reach
// run logs, comparison tables and MCP responses.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxNameLength is the maximum allowed length for scenario names.
const MaxNameLength = 80

var (
	reRepeatedSpaces      = regexp.MustCompile(` {2,}`)
	reRepeatedHyphens     = regexp.MustCompile(`-{2,}`)
	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// ScenarioName keeps only [a-zA-Z0-9 ._-], collapses repeated separators,
// trims surrounding whitespace and enforces MaxNameLength. Tabs and newlines
// become spaces so a name always fits on one table row.
func ScenarioName(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == ' ':
			b.WriteRune(r)
		case r == '\t' || r == '\n':
			b.WriteRune(' ')
		}
	}
	s := b.String()

	s = reRepeatedSpaces.ReplaceAllString(s, " ")
	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = reRepeatedUnderscores.ReplaceAllString(s, "_")
	s = strings.TrimSpace(s)

	if len(s) > MaxNameLength {
		s = strings.TrimSpace(s[:MaxNameLength])
	}
	return s
}
