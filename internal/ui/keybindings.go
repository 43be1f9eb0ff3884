package ui

import tea "github.com/charmbracelet/bubbletea"

// --- Key Helpers ---

func isKey(msg tea.KeyMsg, keys ...string) bool {
	for _, k := range keys {
		if msg.String() == k {
			return true
		}
	}
	return false
}

func isQuit(msg tea.KeyMsg) bool {
	return isKey(msg, "q", "ctrl+c")
}

func isBack(msg tea.KeyMsg) bool {
	if msg.Type == tea.KeyEsc {
		return true
	}
	return isKey(msg, "esc", "ctrl+[")
}

func isUp(msg tea.KeyMsg) bool {
	return isKey(msg, "up", "k")
}

func isDown(msg tea.KeyMsg) bool {
	return isKey(msg, "down", "j")
}

func isEnter(msg tea.KeyMsg) bool {
	return isKey(msg, "enter")
}

func isUpload(msg tea.KeyMsg) bool {
	return isKey(msg, "u")
}

func isReload(msg tea.KeyMsg) bool {
	return isKey(msg, "r")
}

func isHelp(msg tea.KeyMsg) bool {
	return isKey(msg, "?")
}

func isConfirm(msg tea.KeyMsg) bool {
	return isKey(msg, "y", "Y")
}
