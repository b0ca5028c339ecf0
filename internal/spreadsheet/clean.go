package spreadsheet

import (
	"strings"
	"unicode/utf8"
)

// SanitizeCell normalizes raw cell text:
//   - Replaces invalid UTF-8 sequences with U+FFFD
//   - Drops NUL bytes and a leading byte order mark
//   - Unwraps Excel text-formula exports (="...")
//
// Surrounding whitespace is kept; callers trim.
func SanitizeCell(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\uFFFD")
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	if strings.IndexByte(s, 0) >= 0 {
		s = strings.ReplaceAll(s, "\x00", "")
	}

	t := strings.TrimSpace(s)
	if len(t) >= 3 && strings.HasPrefix(t, `="`) && strings.HasSuffix(t, `"`) {
		return t[2 : len(t)-1]
	}
	return s
}

// IsBlankRow reports whether every cell of row is empty after trimming.
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
