// Package sanitize cleans server-supplied text before it is rendered into
// report tables. Commit messages, authors and links come straight from the
// CI server and may carry terminal escape sequences or overlong values.
package sanitize

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// VisualWidth returns the display width of text, accounting for multi-byte characters
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate truncates text to maxLen visual columns, ending in "..." when
// there is room for it. maxLen <= 0 means no limit.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if maxLen > 3 {
		return runewidth.Truncate(s, maxLen-3, "") + "..."
	}
	return runewidth.Truncate(s, maxLen, "")
}

// Cell prepares a value for a table cell: escape codes and line breaks are
// removed and the result is limited to maxWidth columns.
func Cell(s string, maxWidth int) string {
	s = StripANSI(s)
	s = strings.Join(strings.Fields(s), " ")
	return Truncate(s, maxWidth)
}
