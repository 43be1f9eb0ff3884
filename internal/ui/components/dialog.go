package components

import "github.com/charmbracelet/lipgloss"

var (
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#273540")).
			Padding(1, 2).
			Width(44)
	dialogTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#7f57b4")).
				Bold(true)
	dialogBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ba0bf"))
)

// ConfirmDialog renders a yes/no confirmation.
func ConfirmDialog(title, message string) string {
	return dialogStyle.Render(
		dialogTitleStyle.Render(title) + "\n\n" +
			dialogBodyStyle.Render(message) +
			dialogBodyStyle.Render("\ny: confirm | n: cancel"),
	)
}

// PickerDialog frames an embedded picker view with a title and hint line.
func PickerDialog(title, body, hint string, width int) string {
	content := body
	if hint != "" {
		content += "\n" + dialogBodyStyle.Render(hint)
	}
	return boxBorderActive.Width(safeBoxWidth(width)).Render(dialogTitleStyle.Render(title) + "\n\n" + content)
}
