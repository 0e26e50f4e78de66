// Package normalize provides string-level SQL cleanup applied before parsing.
package normalize

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Whitespace collapses all whitespace sequences to a single space
// and trims leading/trailing whitespace.
func Whitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// StripComments removes SQL comments from a query string.
// It handles:
//   - Line comments: -- to end of line
//   - Block comments: /* ... */ with nesting support
func StripComments(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		// Check for line comment: --
		if i+1 < len(s) && s[i] == '-' && s[i+1] == '-' {
			// Skip until end of line
			for i < len(s) && s[i] != '\n' {
				i++
			}
			continue
		}

		// Check for block comment: /* ... */
		if i+1 < len(s) && s[i] == '/' && s[i+1] == '*' {
			depth := 1
			i += 2
			for i < len(s) && depth > 0 {
				if i+1 < len(s) && s[i] == '/' && s[i+1] == '*' {
					depth++
					i += 2
				} else if i+1 < len(s) && s[i] == '*' && s[i+1] == '/' {
					depth--
					i += 2
				} else {
					i++
				}
			}
			continue
		}

		// Check for string literal - don't strip comments inside strings
		if s[i] == '\'' {
			result.WriteByte(s[i])
			i++
			for i < len(s) {
				if s[i] == '\'' {
					result.WriteByte(s[i])
					i++
					// Check for escaped quote ''
					if i < len(s) && s[i] == '\'' {
						result.WriteByte(s[i])
						i++
						continue
					}
					break
				}
				result.WriteByte(s[i])
				i++
			}
			continue
		}

		result.WriteByte(s[i])
		i++
	}

	return result.String()
}

// Clean prepares raw SQL text for parsing: comments stripped, whitespace
// collapsed, and any trailing semicolon removed.
func Clean(s string) string {
	cleaned := Whitespace(StripComments(s))
	cleaned = strings.TrimSuffix(cleaned, ";")
	return strings.TrimSpace(cleaned)
}
