package box

import (
	"errors"
	"fmt"
)

// Kind classifies a controller failure. Every kind is non-fatal: the screen
// reports it and stays usable.
type Kind string

const (
	// KindLoad is a failed initial fetch of the box.
	KindLoad Kind = "load"
	// KindPicker is a cancelled or failed file pick.
	KindPicker Kind = "picker"
	// KindTransfer is a failed upload or download.
	KindTransfer Kind = "transfer"
	// KindViewer means the downloaded file could not be opened.
	KindViewer Kind = "viewer"
	// KindRealtime is a lost or refused live-update connection.
	KindRealtime Kind = "realtime"
)

var (
	// ErrAlreadyMounted is returned by a second Mount on the same controller.
	ErrAlreadyMounted = errors.New("box screen already mounted")
	// ErrNotMounted is returned by operations on an unmounted controller and
	// for results discarded because the screen went away.
	ErrNotMounted = errors.New("box screen not mounted")
	// ErrPickerCancelled marks a pick the user backed out of.
	ErrPickerCancelled = errors.New("cancelled by user")
)

// Error is a classified controller failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a controller error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
