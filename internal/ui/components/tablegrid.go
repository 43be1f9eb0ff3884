package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a single column for TableGrid. Width is the visual
// width of the cell content, excluding separators.
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

const tableGridLeftOffset = 2

var (
	gridLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#273540"))
	gridActiveRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#d7d9da")).
				Background(lipgloss.Color("#1f2530")).
				Bold(true)
	gridActiveSepStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#273540")).
				Background(lipgloss.Color("#1f2530"))
)

// TableGrid renders rows under a header with column separators. activeRow is
// a 0-based index into rows to highlight, or -1. Every returned line has a
// visual width of tableWidth.
func TableGrid(columns []TableColumn, rows [][]string, tableWidth int, activeRow int) string {
	if tableWidth <= 0 {
		return ""
	}
	if len(columns) == 0 {
		return padRight("", tableWidth)
	}

	border := lipgloss.RoundedBorder()
	cols := fitGridColumns(columns, tableWidth)

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}

	out := make([]string, 0, len(rows)+2)
	out = append(out, renderGridRow(cols, headers, border.Left, tableWidth, true, false))
	out = append(out, renderGridRule(cols, border.Middle, border.Top, tableWidth))
	for i, row := range rows {
		out = append(out, renderGridRow(cols, row, border.Left, tableWidth, false, i == activeRow))
	}
	return strings.Join(out, "\n")
}

// fitGridColumns stretches or shrinks the last column so the row fills
// tableWidth exactly.
func fitGridColumns(columns []TableColumn, tableWidth int) []TableColumn {
	fitted := make([]TableColumn, len(columns))
	copy(fitted, columns)

	content := tableWidth - tableGridLeftOffset
	sum := len(fitted) - 1
	for i := range fitted {
		if fitted[i].Width < 1 {
			fitted[i].Width = 1
		}
		sum += fitted[i].Width
	}
	last := &fitted[len(fitted)-1]
	last.Width += content - sum
	if last.Width < 1 {
		last.Width = 1
	}
	return fitted
}

func renderGridRow(columns []TableColumn, cells []string, sep string, tableWidth int, header, active bool) string {
	sepStyle := gridLineStyle
	if active {
		sepStyle = gridActiveSepStyle
	}
	sepStyled := sepStyle.Inline(true).Render(sep)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", tableGridLeftOffset))
	for i, col := range columns {
		if i > 0 {
			b.WriteString(sepStyled)
		}
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		cell := renderGridCell(text, col.Width, col.Align)
		switch {
		case header:
			cell = boxLabelStyle.Inline(true).Render(cell)
		case active:
			cell = gridActiveRowStyle.Inline(true).Render(cell)
		}
		b.WriteString(cell)
	}
	return padRight(b.String(), tableWidth)
}

func renderGridRule(columns []TableColumn, cross, horiz string, tableWidth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", tableGridLeftOffset))
	for i, col := range columns {
		if i > 0 {
			b.WriteString(cross)
		}
		b.WriteString(strings.Repeat(horiz, col.Width))
	}
	return gridLineStyle.Inline(true).Render(padRight(b.String(), tableWidth))
}

func renderGridCell(text string, width int, align lipgloss.Position) string {
	if width <= 0 {
		return ""
	}
	clamped := ClampTextWidthEllipsis(text, width)
	pad := width - lipgloss.Width(clamped)
	if pad <= 0 {
		return clamped
	}
	switch align {
	case lipgloss.Right:
		return strings.Repeat(" ", pad) + clamped
	case lipgloss.Center:
		left := pad / 2
		return strings.Repeat(" ", left) + clamped + strings.Repeat(" ", pad-left)
	default:
		return clamped + strings.Repeat(" ", pad)
	}
}
