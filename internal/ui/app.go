package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gravitrone/msjbox/cli/internal/box"
	"github.com/gravitrone/msjbox/cli/internal/ui/components"
)

// --- App Model ---

// App is the root TUI model. It frames the box screen with the banner, help
// overlay, quit confirmation and status bar.
type App struct {
	box         BoxModel
	width       int
	height      int
	helpOpen    bool
	quitConfirm bool
}

// NewApp creates the root application model for ctrl.
func NewApp(ctrl *box.Controller) App {
	return App{box: NewBoxModel(ctrl)}
}

func (a App) Init() tea.Cmd {
	return a.box.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		var cmd tea.Cmd
		a.box, cmd = a.box.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a.quit()
		}
		if a.quitConfirm {
			switch {
			case isConfirm(msg):
				return a.quit()
			case isKey(msg, "n", "N") || isBack(msg):
				a.quitConfirm = false
			}
			return a, nil
		}
		if a.helpOpen {
			if isBack(msg) || isHelp(msg) || isQuit(msg) {
				a.helpOpen = false
			}
			return a, nil
		}
		if !a.box.capturingKeys() {
			switch {
			case isHelp(msg):
				a.helpOpen = true
				return a, nil
			case isQuit(msg):
				if a.box.Busy() {
					a.quitConfirm = true
					return a, nil
				}
				return a.quit()
			}
		}
	}

	var cmd tea.Cmd
	a.box, cmd = a.box.Update(msg)
	return a, cmd
}

func (a App) quit() (tea.Model, tea.Cmd) {
	a.box.Close()
	return a, tea.Quit
}

func (a App) View() string {
	banner := centerBlockUniform(RenderBanner(a.height), a.width)

	var content string
	switch {
	case a.quitConfirm:
		content = components.ConfirmDialog("Quit", "A transfer is still running. Quit anyway?")
	case a.helpOpen:
		content = a.renderHelp()
	default:
		content = a.box.View()
	}
	content = centerBlockUniform(content, a.width)

	hints := components.StatusBar(a.box.hints(), a.width)
	return fmt.Sprintf("%s\n%s\n\n%s", banner, content, hints)
}

func (a App) renderHelp() string {
	hints := a.box.hints()
	lines := make([]string, 0, len(hints)+2)
	lines = append(lines, MutedStyle.Render("esc to close"), "")
	for _, hint := range hints {
		lines = append(lines, "  "+hint)
	}
	lines = append(lines, "",
		MutedStyle.Render("New files from other devices appear at the top while live."),
		MutedStyle.Render("Opened files are saved to the download folder first."))
	return components.Indent(components.TitledBox("Help", strings.Join(lines, "\n"), a.width), 1)
}

func centerBlockUniform(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	maxWidth := 0
	for _, line := range lines {
		if w := lipgloss.Width(line); w > maxWidth {
			maxWidth = w
		}
	}
	if maxWidth <= 0 || maxWidth >= width {
		return s
	}
	prefix := strings.Repeat(" ", (width-maxWidth)/2)
	for i := range lines {
		if lines[i] != "" {
			lines[i] = prefix + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
