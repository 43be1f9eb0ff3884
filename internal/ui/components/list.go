package components

// List is a scrollable cursor over a fixed-size page of rows.
type List struct {
	Items    []string
	Cursor   int
	Offset   int
	PageSize int
}

// NewList creates a list with the given page size.
func NewList(pageSize int) *List {
	return &List{PageSize: pageSize}
}

// SetItems replaces items and resets the cursor.
func (l *List) SetItems(items []string) {
	l.Items = items
	l.Cursor = 0
	l.Offset = 0
}

// Prepend inserts item at the top while keeping the cursor on the row it was
// on. Only the very first row follows the new item, so a user parked at the
// top keeps seeing the newest file.
func (l *List) Prepend(item string) {
	l.Items = append([]string{item}, l.Items...)
	if len(l.Items) == 1 || l.Cursor == 0 && l.Offset == 0 {
		return
	}
	l.Cursor++
	l.Offset++
	l.clamp()
}

// Down moves the cursor down.
func (l *List) Down() {
	if l.Cursor < len(l.Items)-1 {
		l.Cursor++
		if l.Cursor >= l.Offset+l.PageSize {
			l.Offset++
		}
	}
}

// Up moves the cursor up.
func (l *List) Up() {
	if l.Cursor > 0 {
		l.Cursor--
		if l.Cursor < l.Offset {
			l.Offset--
		}
	}
}

// SetPageSize changes how many rows are visible.
func (l *List) SetPageSize(n int) {
	if n < 1 {
		n = 1
	}
	l.PageSize = n
	l.clamp()
}

// Visible returns the currently visible items.
func (l *List) Visible() []string {
	if len(l.Items) == 0 {
		return nil
	}
	end := l.Offset + l.PageSize
	if end > len(l.Items) {
		end = len(l.Items)
	}
	return l.Items[l.Offset:end]
}

// Selected returns the index of the selected item.
func (l *List) Selected() int {
	return l.Cursor
}

// RelToAbs converts a relative (visible) index to absolute.
func (l *List) RelToAbs(relIdx int) int {
	return l.Offset + relIdx
}

func (l *List) clamp() {
	if l.Cursor >= len(l.Items) {
		l.Cursor = len(l.Items) - 1
	}
	if l.Cursor < 0 {
		l.Cursor = 0
	}
	if l.Cursor < l.Offset {
		l.Offset = l.Cursor
	}
	if l.PageSize > 0 && l.Cursor >= l.Offset+l.PageSize {
		l.Offset = l.Cursor - l.PageSize + 1
	}
	if l.Offset < 0 {
		l.Offset = 0
	}
}
