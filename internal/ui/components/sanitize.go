package components

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
)

// CSI sequences and OSC sequences terminated by BEL or ST.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

var bidiControls = map[rune]struct{}{
	'\u202a': {},
	'\u202b': {},
	'\u202c': {},
	'\u202d': {},
	'\u202e': {},
	'\u2066': {},
	'\u2067': {},
	'\u2068': {},
	'\u2069': {},
	'\u200e': {},
	'\u200f': {},
}

// SanitizeText strips control characters and escape sequences from display
// strings. File titles come from other users, so everything rendered from the
// backend goes through here.
func SanitizeText(input string) string {
	if input == "" {
		return input
	}
	cleaned := ansiPattern.ReplaceAllString(input, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if _, ok := bidiControls[r]; ok {
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)
}

// SanitizeOneLine is SanitizeText with newlines and tabs folded into single
// spaces.
func SanitizeOneLine(input string) string {
	cleaned := SanitizeText(input)
	cleaned = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// ClampTextWidthEllipsis is ClampTextWidth with a trailing "…" when the text
// was cut.
func ClampTextWidthEllipsis(text string, width int) string {
	if width <= 0 {
		return text
	}
	cleaned := SanitizeOneLine(text)
	if lipgloss.Width(cleaned) <= width {
		return cleaned
	}
	if width == 1 {
		return "…"
	}
	return truncateRunes(cleaned, width-1) + "…"
}
