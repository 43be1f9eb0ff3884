package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestBoxWidthBounds(t *testing.T) {
	assert.Equal(t, 40, boxWidth(10))
	assert.Equal(t, 80, boxWidth(200))
	assert.Equal(t, 70, boxWidth(100))
	assert.Equal(t, 0, boxWidth(0))
}

func TestBoxNarrowTerminalClampsWidth(t *testing.T) {
	out := TitledBox("Box", "line", 20)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 20)
	}
}

func TestTitledBoxIncludesTitle(t *testing.T) {
	out := TitledBox("My Title", "Content", 80)
	assert.Contains(t, out, "My Title")
	assert.Contains(t, out, "Content")
}

func TestTitledBoxEmptyTitleFallsBack(t *testing.T) {
	out := TitledBox("", "Content", 80)
	assert.Contains(t, out, "Content")
}

func TestTitledBoxKeepsLineWidth(t *testing.T) {
	out := TitledBox("Files", "x", 80)
	lines := strings.Split(out, "\n")
	assert.Equal(t, lipgloss.Width(lines[1]), lipgloss.Width(lines[0]))
}

func TestErrorBoxIncludesMessage(t *testing.T) {
	out := ErrorBox("Error", "Something broke", 80)
	assert.Contains(t, out, "Something broke")
}

func TestEmptyStateBox(t *testing.T) {
	out := SanitizeText(EmptyStateBox("Files", "no files\nyet", 80))
	assert.Contains(t, out, "Files")
	assert.Contains(t, out, "no files yet")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", truncateRunes("hello", 0))
	assert.Equal(t, "he", truncateRunes("hello", 2))
	assert.Equal(t, "你", truncateRunes("你好", 1))
}

func TestActiveBoxClampsWidth(t *testing.T) {
	out := ActiveBox("hello\nworld", 40)
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 40)
	}
}

func TestBoxContentWidth(t *testing.T) {
	assert.Equal(t, 64, BoxContentWidth(100))
	assert.Equal(t, 0, BoxContentWidth(0))
}

func TestInfoRowSanitizesLabelAndValue(t *testing.T) {
	out := InfoRow("na\u202eme\x1b]0;evil\x07", "va\x1b[2Jlu\u202ee")
	assert.NotContains(t, out, "\u202e")
	assert.NotContains(t, out, "\x1b]")
	assert.NotContains(t, out, "\x1b[2J")

	clean := SanitizeText(out)
	assert.Contains(t, clean, "name: value")
}

func TestIndentPreservesLineCountAndAddsPadding(t *testing.T) {
	out := Indent("a\nb\nc", 2)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "  "))
	}
}

func TestCenterLineAddsLeftPadding(t *testing.T) {
	out := CenterLine("hi", 80)
	pad := (safeBoxWidth(80) - lipgloss.Width("hi")) / 2
	assert.True(t, strings.HasPrefix(out, strings.Repeat(" ", pad)))
}
