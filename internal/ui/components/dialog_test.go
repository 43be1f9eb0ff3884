package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmDialogIncludesTitleMessageAndHints(t *testing.T) {
	out := ConfirmDialog("Quit", "A transfer is still running.")
	clean := SanitizeText(out)

	assert.Contains(t, clean, "Quit")
	assert.Contains(t, clean, "A transfer is still running.")
	assert.Contains(t, clean, "y: confirm | n: cancel")
}

func TestPickerDialogIncludesBodyAndHint(t *testing.T) {
	out := PickerDialog("Upload", "> notes.txt", "esc: cancel", 80)
	clean := SanitizeText(out)

	assert.Contains(t, clean, "Upload")
	assert.Contains(t, clean, "> notes.txt")
	assert.Contains(t, clean, "esc: cancel")
}
