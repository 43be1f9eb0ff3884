package box

import "github.com/gravitrone/msjbox/cli/internal/api"

// EventType names a controller event.
type EventType string

const (
	// EventLoaded fires once the initial fetch has been applied.
	EventLoaded EventType = "loaded"
	// EventFileAdded fires for each realtime file accepted by the store.
	EventFileAdded EventType = "file_added"
	// EventUploaded fires when an upload POST was accepted. The file itself
	// shows up through EventFileAdded.
	EventUploaded EventType = "uploaded"
	// EventOpened fires after a downloaded file was handed to the viewer.
	EventOpened EventType = "opened"
	// EventLive fires when live updates become available or unavailable.
	EventLive EventType = "live"
	// EventError carries a classified *Error.
	EventError EventType = "error"
)

// Event is a reportable controller outcome for the presentation layer.
type Event struct {
	Type EventType
	File *api.File
	// Path is the local path for EventOpened.
	Path string
	// Live is the new live-update availability for EventLive.
	Live bool
	// Err is set for EventError and for EventLive going down.
	Err error
}

const eventBuffer = 64
