package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/gravitrone/msjbox/cli/internal/api"
	"github.com/gravitrone/msjbox/cli/internal/box"
	"github.com/gravitrone/msjbox/cli/internal/ui/components"
)

// --- Messages ---

type boxMountedMsg struct{ err error }
type boxEventMsg struct{ ev box.Event }
type boxEventsClosedMsg struct{}
type transferDoneMsg struct{ err error }
type clearToastMsg struct{ seq int }

const toastTTL = 2500 * time.Millisecond

type toast struct {
	level string
	text  string
}

// --- Box Model ---

// BoxModel is the box screen: the file list, upload picker and transfer
// feedback for one mounted box.
type BoxModel struct {
	ctrl      *box.Controller
	list      *components.List
	files     []api.File
	title     string
	loading   bool
	loadErr   string
	live      bool
	busy      int
	picking   bool
	picker    filepicker.Model
	toast     *toast
	toastSeq  int
	pickerDir string
	width     int
	height    int
}

// NewBoxModel builds the screen for ctrl. The controller is mounted by Init.
func NewBoxModel(ctrl *box.Controller) BoxModel {
	fp := filepicker.New()
	fp.AllowedTypes = []string{}
	fp.ShowHidden = false
	fp.Height = 12
	home, _ := os.UserHomeDir()
	fp.CurrentDirectory = home
	return BoxModel{
		ctrl:      ctrl,
		list:      components.NewList(12),
		loading:   true,
		picker:    fp,
		pickerDir: home,
	}
}

func (m BoxModel) Init() tea.Cmd {
	return tea.Batch(m.mountCmd(), m.waitForEvent())
}

func (m BoxModel) Update(msg tea.Msg) (BoxModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetPageSize(pageSizeFor(msg.Height))
		return m, nil

	case boxMountedMsg:
		m.loading = false
		if msg.err != nil && !errors.Is(msg.err, box.ErrNotMounted) {
			m.loadErr = msg.err.Error()
			return m, nil
		}
		m.loadErr = ""
		m.sync()
		return m, nil

	case boxEventMsg:
		cmd := m.handleEvent(msg.ev)
		return m, tea.Batch(cmd, m.waitForEvent())

	case boxEventsClosedMsg:
		return m, nil

	case transferDoneMsg:
		if m.busy > 0 {
			m.busy--
		}
		return m, nil

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = nil
		}
		return m, nil

	case tea.KeyMsg:
		if m.picking {
			return m.handlePickerKeys(msg)
		}
		return m.handleListKeys(msg)
	}

	if m.picking {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *BoxModel) handleEvent(ev box.Event) tea.Cmd {
	switch ev.Type {
	case box.EventLoaded:
		m.loading = false
		m.loadErr = ""
		m.sync()
	case box.EventFileAdded:
		if m.loading {
			return nil
		}
		m.applyFileAdded(ev.File)
	case box.EventUploaded:
		return m.setToast("success", "uploaded "+fileTitle(ev.File))
	case box.EventOpened:
		return m.setToast("info", "opened "+fileTitle(ev.File))
	case box.EventLive:
		m.live = ev.Live
		if !ev.Live && ev.Err != nil {
			return m.setToast("warning", "live updates unavailable, reconnecting")
		}
	case box.EventError:
		return m.setToast("error", errorCopy(ev.Err))
	}
	return nil
}

func (m BoxModel) handleListKeys(msg tea.KeyMsg) (BoxModel, tea.Cmd) {
	switch {
	case isDown(msg):
		m.list.Down()
	case isUp(msg):
		m.list.Up()
	case isEnter(msg):
		f, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.busy++
		return m, tea.Batch(m.setToast("info", "downloading "+components.SanitizeOneLine(f.Title)), m.openCmd(f))
	case isUpload(msg):
		if m.loading || m.loadErr != "" {
			return m, nil
		}
		m.picking = true
		m.picker.CurrentDirectory = m.pickerDir
		return m, m.picker.Init()
	case isReload(msg):
		if m.loadErr == "" && !m.loading {
			return m, nil
		}
		m.loading = true
		m.loadErr = ""
		return m, m.reloadCmd()
	}
	return m, nil
}

func (m BoxModel) handlePickerKeys(msg tea.KeyMsg) (BoxModel, tea.Cmd) {
	if isBack(msg) {
		m.picking = false
		m.ctrl.AbortUpload(box.ErrPickerCancelled)
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.picking = false
		m.pickerDir = m.picker.CurrentDirectory
		m.busy++
		return m, m.uploadCmd(path)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.picking = false
		m.ctrl.AbortUpload(fmt.Errorf("cannot upload %s", path))
		return m, nil
	}
	return m, cmd
}

// Close unmounts the controller. Pending commands resolve to ErrNotMounted.
func (m BoxModel) Close() {
	m.ctrl.Unmount()
}

// Busy reports whether an upload or download is running.
func (m BoxModel) Busy() bool {
	return m.busy > 0
}

// capturingKeys reports whether keys belong to an embedded widget.
func (m BoxModel) capturingKeys() bool {
	return m.picking
}

func (m BoxModel) View() string {
	if m.picking {
		return components.PickerDialog("Upload a file", m.picker.View(), "enter: select | esc: cancel", m.width)
	}

	header := m.renderHeader()
	var body string
	switch {
	case m.loading:
		body = components.EmptyStateBox("Files", "loading box...", m.width)
	case m.loadErr != "":
		body = components.ErrorBox("Could not load box", m.loadErr+"\n\npress r to retry", m.width)
	case len(m.files) == 0:
		body = components.EmptyStateBox("Files", "no files yet. press u to upload one.", m.width)
	default:
		body = m.renderList()
	}

	out := header + "\n\n" + body
	if m.toast != nil {
		out += "\n\n" + m.renderToast()
	}
	return out
}

func (m BoxModel) renderHeader() string {
	title := m.title
	if title == "" {
		title = "box"
	}
	parts := []string{
		TitleStyle.Render(components.SanitizeOneLine(title)),
		MutedStyle.Render(m.ctrl.BoxID()),
		components.LiveBadge(m.live),
	}
	if m.busy > 0 {
		parts = append(parts, WarningStyle.Render(fmt.Sprintf("%d transfer(s) running", m.busy)))
	}
	return strings.Join(parts, "  ")
}

func (m BoxModel) renderList() string {
	contentWidth := components.BoxContentWidth(m.width)
	if contentWidth <= 0 {
		contentWidth = 60
	}
	addedWidth := 16
	nameWidth := contentWidth - addedWidth - 3
	if nameWidth < 10 {
		nameWidth = 10
	}
	cols := []components.TableColumn{
		{Header: "Name", Width: nameWidth},
		{Header: "Added", Width: addedWidth, Align: lipgloss.Right},
	}

	visible := m.list.Visible()
	rows := make([][]string, 0, len(visible))
	for i := range visible {
		f := m.files[m.list.RelToAbs(i)]
		rows = append(rows, []string{box.DisplayName(f.Title), addedAt(f.CreatedAt)})
	}
	active := m.list.Selected() - m.list.Offset

	title := fmt.Sprintf("Files · %s", english.Plural(len(m.files), "file", "files"))
	return components.TitledBox(title, components.TableGrid(cols, rows, contentWidth, active), m.width)
}

func (m BoxModel) renderToast() string {
	if m.toast == nil {
		return ""
	}
	switch m.toast.level {
	case "error":
		return components.ErrorBox("Error", m.toast.text, m.width)
	case "warning":
		return components.TitledBox("Warning", WarningStyle.Render(m.toast.text), m.width)
	case "success":
		return components.TitledBox("Done", SuccessStyle.Render(m.toast.text), m.width)
	}
	return components.TitledBox("Info", NormalStyle.Render(m.toast.text), m.width)
}

func (m BoxModel) hints() []string {
	if m.picking {
		return []string{
			components.Hint("↑/↓", "Browse"),
			components.Hint("enter", "Select"),
			components.Hint("esc", "Cancel"),
		}
	}
	hints := []string{
		components.Hint("↑/↓", "Scroll"),
		components.Hint("enter", "Open"),
		components.Hint("u", "Upload"),
	}
	if m.loadErr != "" {
		hints = append(hints, components.Hint("r", "Retry"))
	}
	return append(hints, components.Hint("?", "Help"), components.Hint("q", "Quit"))
}

// sync rebuilds the list from the controller, keeping the selected file.
func (m *BoxModel) sync() {
	selectedID := ""
	if f, ok := m.selected(); ok {
		selectedID = f.ID
	}

	snap := m.ctrl.Snapshot()
	m.title = snap.Title
	m.files = snap.Files
	items := make([]string, len(m.files))
	cursor := 0
	for i, f := range m.files {
		items[i] = f.ID
		if f.ID == selectedID {
			cursor = i
		}
	}
	m.list.SetItems(items)
	for i := 0; i < cursor; i++ {
		m.list.Down()
	}
}

func (m *BoxModel) applyFileAdded(f *api.File) {
	snap := m.ctrl.Snapshot()
	if f == nil || len(snap.Files) != len(m.files)+1 || snap.Files[0].ID != f.ID {
		m.sync()
		return
	}
	m.files = snap.Files
	m.list.Prepend(f.ID)
}

func (m BoxModel) selected() (api.File, bool) {
	idx := m.list.Selected()
	if idx < 0 || idx >= len(m.files) {
		return api.File{}, false
	}
	return m.files[idx], true
}

func (m *BoxModel) setToast(level, text string) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = &toast{level: level, text: components.SanitizeOneLine(text)}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg {
		return clearToastMsg{seq: seq}
	})
}

// --- Commands ---

func (m BoxModel) mountCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return boxMountedMsg{err: ctrl.Mount(context.Background())}
	}
}

func (m BoxModel) reloadCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return boxMountedMsg{err: ctrl.Reload(context.Background())}
	}
}

func (m BoxModel) waitForEvent() tea.Cmd {
	events := m.ctrl.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return boxEventsClosedMsg{}
		}
		return boxEventMsg{ev: ev}
	}
}

func (m BoxModel) uploadCmd(path string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		err := ctrl.Upload(context.Background(), path, "", "")
		return transferDoneMsg{err: err}
	}
}

func (m BoxModel) openCmd(f api.File) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		err := ctrl.OpenFile(context.Background(), f)
		return transferDoneMsg{err: err}
	}
}

// --- Helpers ---

func pageSizeFor(height int) int {
	// Banner, header, table chrome and status bar.
	n := height - 24
	if height < 30 {
		n = height - 14
	}
	if n < 3 {
		n = 3
	}
	return n
}

func addedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func fileTitle(f *api.File) string {
	if f == nil {
		return "file"
	}
	return f.Title
}

func errorCopy(err error) string {
	if err == nil {
		return "something went wrong"
	}
	switch box.KindOf(err) {
	case box.KindLoad:
		return "could not load box: " + errors.Unwrap(err).Error()
	case box.KindTransfer:
		return err.Error()
	case box.KindViewer:
		return "no application could open the file: " + errors.Unwrap(err).Error()
	}
	return err.Error()
}
