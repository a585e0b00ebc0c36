package warehouse

import (
	"strings"
)

var readOnlyPrefixes = []string{"select", "with", "values", "table"}

// IsReadOnlySQL reports whether sqlText is a single statement starting with a
// read-only keyword. Leading comments and trailing semicolons are ignored.
func IsReadOnlySQL(sqlText string) bool {
	normalized := strings.ToLower(stripLeadingComments(StripTrailingSemicolons(sqlText)))
	if normalized == "" {
		return false
	}
	if containsStatementSeparator(normalized) {
		return false
	}
	for _, prefix := range readOnlyPrefixes {
		if !strings.HasPrefix(normalized, prefix) {
			continue
		}
		if len(normalized) == len(prefix) {
			return true
		}
		next := normalized[len(prefix)]
		if next == ' ' || next == '\n' || next == '\t' || next == '\r' || next == '(' {
			return true
		}
	}
	return false
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// QuoteIdent quotes a single identifier component.
func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func stripLeadingComments(sqlText string) string {
	text := strings.TrimSpace(sqlText)
	for {
		switch {
		case strings.HasPrefix(text, "--"):
			end := strings.IndexByte(text, '\n')
			if end < 0 {
				return ""
			}
			text = strings.TrimSpace(text[end+1:])
		case strings.HasPrefix(text, "/*"):
			end := strings.Index(text, "*/")
			if end < 0 {
				return ""
			}
			text = strings.TrimSpace(text[end+2:])
		default:
			return text
		}
	}
}

// containsStatementSeparator looks for a semicolon outside quoted text and
// comments. sqlText must be lower case. Unterminated quotes or comments count
// as a separator, since the scanner can no longer tell where a statement ends.
func containsStatementSeparator(sqlText string) bool {
	for i := 0; i < len(sqlText); i++ {
		var end int
		switch c := sqlText[i]; {
		case c == ';':
			return true
		case c == '-' && strings.HasPrefix(sqlText[i:], "--"):
			end = strings.IndexByte(sqlText[i:], '\n')
			if end < 0 {
				return false
			}
		case c == '/' && strings.HasPrefix(sqlText[i:], "/*"):
			end = blockCommentEnd(sqlText[i:])
		case c == '\'':
			end = quotedEnd(sqlText[i:], c, isEscapeString(sqlText, i))
		case c == '"':
			end = quotedEnd(sqlText[i:], c, false)
		case c == '$':
			tag, ok := dollarTag(sqlText[i:])
			if !ok {
				continue
			}
			end = strings.Index(sqlText[i+len(tag):], tag)
			if end >= 0 {
				end += 2*len(tag) - 1
			}
		default:
			continue
		}
		if end < 0 {
			return true
		}
		i += end
	}
	return false
}

// blockCommentEnd returns the index of the final '/' of a possibly nested
// block comment opening at text[0], or -1.
func blockCommentEnd(text string) int {
	depth := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i : i+2] {
		case "/*":
			depth++
			i++
		case "*/":
			depth--
			i++
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// quotedEnd returns the index of the quote closing the literal opened at
// text[0], or -1. Doubled quotes are literal.
func quotedEnd(text string, quote byte, backslashEscapes bool) int {
	for i := 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if backslashEscapes {
				i++
			}
		case quote:
			if i+1 < len(text) && text[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return -1
}

// isEscapeString reports whether the quote at pos opens an E'...' literal.
func isEscapeString(text string, pos int) bool {
	if pos == 0 || text[pos-1] != 'e' {
		return false
	}
	return pos == 1 || !isIdentByte(text[pos-2])
}

// dollarTag returns the $tag$ opening a dollar-quoted string at text[0].
func dollarTag(text string) (string, bool) {
	for i := 1; i < len(text); i++ {
		c := text[i]
		if c == '$' {
			return text[:i+1], true
		}
		if !isIdentByte(c) || (i == 1 && c >= '0' && c <= '9') {
			return "", false
		}
	}
	return "", false
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
