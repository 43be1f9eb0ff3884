package components

import "github.com/charmbracelet/lipgloss"

var (
	hintDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ba0bf"))
	keyCapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#16161d")).
			Background(lipgloss.Color("#888ba4")).
			Bold(true).
			Padding(0, 1)
	segmentStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#273540")).
			Padding(0, 1).
			MarginRight(1)
	statusBarBorder = lipgloss.NewStyle().
			PaddingLeft(2)
	liveOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3f866b")).
			Bold(true)
	liveOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c78854"))
)

// StatusBar renders the bottom hint bar, wrapping segments onto extra rows
// when the terminal is narrow.
func StatusBar(hints []string, width int) string {
	segments := make([]string, 0, len(hints))
	for _, h := range hints {
		segments = append(segments, segmentStyle.Render(h))
	}

	rows := wrapSegments(segments, width)
	if len(rows) == 0 {
		return ""
	}
	if width <= 0 {
		return statusBarBorder.Render(rows[0])
	}
	block := lipgloss.JoinVertical(lipgloss.Center, rows...)
	return statusBarBorder.Width(width).Align(lipgloss.Center).Render(block)
}

// Hint formats a single keybind hint like "Open enter".
func Hint(key, desc string) string {
	return hintDescStyle.Render(desc+" ") + keyCapStyle.Render(key)
}

// LiveBadge renders the realtime connection indicator.
func LiveBadge(live bool) string {
	if live {
		return liveOnStyle.Render("● live")
	}
	return liveOffStyle.Render("○ offline")
}

func wrapSegments(segments []string, width int) []string {
	if len(segments) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{lipgloss.JoinHorizontal(lipgloss.Top, segments...)}
	}
	var rows []string
	var current []string
	currentWidth := 0
	for _, seg := range segments {
		segWidth := lipgloss.Width(seg)
		if currentWidth > 0 && currentWidth+segWidth > width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
			current, currentWidth = nil, 0
		}
		current = append(current, seg)
		currentWidth += segWidth
	}
	return append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
}
