package components

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

var (
	boxBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#273540")).
			Padding(1, 2)

	boxBorderActive = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7f57b4")).
			Padding(1, 2)

	boxHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7f57b4")).
			Bold(true)

	boxMutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ba0bf"))

	boxValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d7d9da"))

	boxLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#436b77")).
			Bold(true)

	errorBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7a2f3a")).
			Padding(1, 2)

	errorHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e06c75")).
				Bold(true)

	errorBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d6b5b5"))
)

// boxWidth is ~70% of the terminal, kept between 40 and 80 columns.
func boxWidth(width int) int {
	if width <= 0 {
		return 0
	}
	w := width * 70 / 100
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

func safeBoxWidth(width int) int {
	w := boxWidth(width)
	if width > 0 && w > width {
		return width
	}
	return w
}

// Box renders content inside a bordered box.
func Box(content string, width int) string {
	return boxBorder.Width(safeBoxWidth(width)).Render(content)
}

// ActiveBox renders content inside a highlighted bordered box.
func ActiveBox(content string, width int) string {
	return boxBorderActive.Width(safeBoxWidth(width)).Render(content)
}

// BoxContentWidth returns the inner content width excluding border and padding.
func BoxContentWidth(width int) int {
	w := safeBoxWidth(width)
	// Border adds 2, padding adds 4.
	if w <= 6 {
		return 0
	}
	return w - 6
}

// ClampTextWidth truncates text to the given visual width.
func ClampTextWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	cleaned := SanitizeOneLine(text)
	if lipgloss.Width(cleaned) <= width {
		return cleaned
	}
	return truncateRunes(cleaned, width)
}

// ErrorBox renders a red bordered box for errors.
func ErrorBox(title, message string, width int) string {
	header := ""
	if title != "" {
		header = errorHeaderStyle.Render(title) + "\n\n"
	}
	return errorBorder.Width(safeBoxWidth(width)).Render(header + errorBodyStyle.Render(message))
}

// EmptyStateBox renders a titled box with a muted placeholder line.
func EmptyStateBox(title, message string, width int) string {
	return TitledBox(title, boxMutedStyle.Render(SanitizeOneLine(message)), width)
}

// TitledBox renders a box with the title set into the top border.
func TitledBox(title, content string, width int) string {
	boxed := boxBorder.Width(safeBoxWidth(width)).Render(content)
	if title == "" {
		return boxed
	}
	lines := strings.Split(boxed, "\n")
	lineWidth := lipgloss.Width(lines[0])
	if lineWidth < 4 {
		return boxed
	}

	border := lipgloss.RoundedBorder()
	middle := lineWidth - 2
	label := fmt.Sprintf(" [ %s ] ", SanitizeOneLine(title))
	if lipgloss.Width(label) > middle {
		label = truncateRunes(label, middle)
	}
	left := (middle - lipgloss.Width(label)) / 2
	right := middle - lipgloss.Width(label) - left
	if right < 0 {
		right = 0
	}

	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#273540"))
	lines[0] = borderStyle.Render(border.TopLeft+strings.Repeat(border.Top, left)) +
		boxHeaderStyle.Render(label) +
		borderStyle.Render(strings.Repeat(border.Top, right)+border.TopRight)
	return strings.Join(lines, "\n")
}

// InfoRow renders a label: value row.
func InfoRow(label, value string) string {
	return boxMutedStyle.Render(SanitizeOneLine(label)+": ") + boxValueStyle.Render(SanitizeOneLine(value))
}

// Indent adds left padding to every line of a multi-line string.
func Indent(s string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}

// CenterLine centers a single line within the standard box width.
func CenterLine(s string, width int) string {
	w := safeBoxWidth(width)
	lineWidth := lipgloss.Width(s)
	if w <= 0 || lineWidth >= w {
		return s
	}
	return strings.Repeat(" ", (w-lineWidth)/2) + s
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
