package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const bannerArt = `
 ███╗   ███╗███████╗     ██╗    ██████╗  ██████╗ ██╗  ██╗
 ████╗ ████║██╔════╝     ██║    ██╔══██╗██╔═══██╗╚██╗██╔╝
 ██╔████╔██║███████╗     ██║    ██████╔╝██║   ██║ ╚███╔╝
 ██║╚██╔╝██║╚════██║██   ██║    ██╔══██╗██║   ██║ ██╔██╗
 ██║ ╚═╝ ██║███████║╚█████╔╝    ██████╔╝╚██████╔╝██╔╝ ██╗
 ╚═╝     ╚═╝╚══════╝ ╚════╝     ╚═════╝  ╚═════╝ ╚═╝  ╚═╝`

const bannerSubtitle = "Share files across devices • Terminal Client"

// RenderBanner returns the styled ASCII banner. Short terminals get a one
// line title instead.
func RenderBanner(height int) string {
	if height > 0 && height < 30 {
		return TitleStyle.Render("MSJ BOX") + "  " + MutedStyle.Render(bannerSubtitle)
	}

	lines := splitLines(bannerArt)
	maxWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > maxWidth {
			maxWidth = w
		}
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		b.WriteString(TitleStyle.Render(line) + "\n")
	}

	blockWidth := maxWidth
	if w := lipgloss.Width(bannerSubtitle); w > blockWidth {
		blockWidth = w
	}
	centered := lipgloss.NewStyle().Width(blockWidth).Align(lipgloss.Center)
	b.WriteString("\n")
	b.WriteString(centered.Foreground(ColorMuted).Render(bannerSubtitle) + "\n")
	b.WriteString(centered.Foreground(ColorBorder).Render(strings.Repeat("─", lipgloss.Width(bannerSubtitle))) + "\n")
	return b.String()
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
