// Package box implements the box screen controller: it owns the box state for
// one mounted screen, keeps it in sync with the realtime channel, and runs
// uploads and downloads against the REST backend.
package box

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sync"

	"github.com/gravitrone/msjbox/cli/internal/api"
	"github.com/gravitrone/msjbox/cli/internal/logging"
	"github.com/gravitrone/msjbox/cli/internal/realtime"
)

// FileEvent is the realtime event announcing a new file in the joined room.
const FileEvent = "file"

// API is the REST surface the controller needs.
type API interface {
	GetBox(ctx context.Context, id string) (*api.Box, error)
	UploadFile(ctx context.Context, boxID string, input api.UploadInput) error
	OpenDownload(ctx context.Context, fileURL string) (io.ReadCloser, int64, error)
}

// Subscription is an open realtime connection.
type Subscription interface {
	Close() error
}

// Subscriber opens realtime subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, room string, h realtime.Handlers) (Subscription, error)
}

// Viewer opens a local file with the platform's default application.
type Viewer interface {
	Open(ctx context.Context, path string) error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	API API
	// Realtime may be nil, in which case the screen has no live updates.
	Realtime    Subscriber
	Viewer      Viewer
	DownloadDir string
	Log         *logging.Logger
}

// Realtime adapts a realtime client to Subscriber.
func Realtime(c *realtime.Client) Subscriber {
	return realtimeSubscriber{client: c}
}

type realtimeSubscriber struct {
	client *realtime.Client
}

func (r realtimeSubscriber) Subscribe(ctx context.Context, room string, h realtime.Handlers) (Subscription, error) {
	sub, err := r.client.Subscribe(ctx, room, h)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// State is the lifecycle state of a screen.
type State int

const (
	StateUnmounted State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unmounted"
	}
}

// Controller drives one screen instance from Mount to Unmount. It is safe
// for concurrent use; realtime callbacks arrive on their own goroutine.
type Controller struct {
	boxID  string
	deps   Deps
	log    *logging.Logger
	store  *Store
	events chan Event

	mu        sync.Mutex
	state     State
	used      bool
	closed    bool
	live      bool
	liveKnown bool
	sub       Subscription
	life      context.Context
	cancel    context.CancelFunc
}

// New creates a controller for boxID. The id is used both for the realtime
// room and for the REST fetch.
func New(boxID string, deps Deps) *Controller {
	return &Controller{
		boxID:  boxID,
		deps:   deps,
		log:    deps.Log.With("box").WithField("box_id", boxID),
		store:  NewStore(boxID),
		events: make(chan Event, eventBuffer),
	}
}

// BoxID returns the box this controller shows.
func (c *Controller) BoxID() string {
	return c.boxID
}

// Snapshot returns the current box.
func (c *Controller) Snapshot() api.Box {
	return c.store.Snapshot()
}

// File looks up a loaded file by id.
func (c *Controller) File(id string) (api.File, bool) {
	return c.store.File(id)
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Live reports whether the realtime channel is connected.
func (c *Controller) Live() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Events returns the event channel. It is closed by Unmount.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Mount opens the realtime subscription, joins the box room and then fetches
// the box. It blocks until the fetch resolves. A controller mounts once.
func (c *Controller) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return ErrAlreadyMounted
	}
	c.used = true
	c.state = StateLoading
	c.life, c.cancel = context.WithCancel(context.Background())
	c.mu.Unlock()

	c.log.Debug().Msg("mounting")
	c.subscribe(ctx)
	return c.Reload(ctx)
}

// Reload fetches the box and replaces local state with it.
func (c *Controller) Reload(ctx context.Context) error {
	opCtx, done, err := c.scoped(ctx)
	if err != nil {
		return err
	}
	defer done()

	b, fetchErr := c.deps.API.GetBox(opCtx, c.boxID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUnmounted {
		return ErrNotMounted
	}
	if fetchErr != nil {
		e := newError(KindLoad, "load box", fetchErr)
		c.reportLocked(e)
		return e
	}
	if b.ID == "" {
		b.ID = c.boxID
	} else if b.ID != c.boxID {
		c.log.Warn().Str("fetched", b.ID).Msg("fetched box id differs from room id")
	}
	replayed := c.store.ReplaceBox(*b)
	c.state = StateReady
	c.log.Info().Int("files", len(b.Files)).Int("replayed", replayed).Msg("box loaded")
	c.emitLocked(Event{Type: EventLoaded})
	return nil
}

// Unmount releases the realtime connection and discards every in-flight
// result. It is safe to call more than once.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.used = true
	c.state = StateUnmounted
	c.live = false
	sub := c.sub
	c.sub = nil
	if c.cancel != nil {
		c.cancel()
	}
	close(c.events)
	c.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			c.log.Warn().Err(err).Msg("close realtime subscription")
		}
	}
	c.log.Debug().Msg("unmounted")
}

func (c *Controller) subscribe(ctx context.Context) {
	if c.deps.Realtime == nil {
		c.log.Debug().Msg("realtime disabled")
		return
	}
	sub, err := c.deps.Realtime.Subscribe(ctx, c.boxID, realtime.Handlers{
		Events: map[string]func(json.RawMessage){
			FileEvent: c.onFileEvent,
		},
		Status: c.onRealtimeStatus,
	})
	if err != nil {
		c.onRealtimeStatus(realtime.StatusReconnecting, err)
		return
	}

	c.mu.Lock()
	if c.state == StateUnmounted {
		c.mu.Unlock()
		_ = sub.Close()
		return
	}
	c.sub = sub
	c.mu.Unlock()
}

func (c *Controller) onFileEvent(raw json.RawMessage) {
	var f api.File
	if err := json.Unmarshal(raw, &f); err != nil {
		c.log.Warn().Err(err).Msg("dropping malformed file event")
		return
	}
	if f.ID == "" {
		c.log.Warn().Msg("dropping file event without id")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUnmounted {
		return
	}
	if !c.store.PrependFile(f) {
		c.log.Debug().Str("file", f.ID).Msg("duplicate file event")
		return
	}
	if !c.store.Loaded() {
		c.log.Debug().Str("file", f.ID).Int("pending", c.store.Pending()).Msg("file event buffered until load")
	}
	c.emitLocked(Event{Type: EventFileAdded, File: &f})
}

func (c *Controller) onRealtimeStatus(st realtime.Status, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUnmounted {
		return
	}

	switch st {
	case realtime.StatusConnected:
		if c.live && c.liveKnown {
			return
		}
		c.live, c.liveKnown = true, true
		c.log.Info().Msg("live updates connected")
		c.emitLocked(Event{Type: EventLive, Live: true})
	case realtime.StatusReconnecting, realtime.StatusClosed:
		if !c.live && c.liveKnown {
			return
		}
		c.live, c.liveKnown = false, true
		if err == nil {
			err = errors.New("connection closed")
		}
		e := newError(KindRealtime, "live updates", err)
		c.log.Warn().Err(err).Msg("live updates unavailable")
		c.emitLocked(Event{Type: EventLive, Live: false, Err: e})
	}
}

// Upload sends a local file to the box. The name is normalized first. Local
// state is not touched: the new file arrives through the realtime channel.
func (c *Controller) Upload(ctx context.Context, localPath, mimeType, fileName string) error {
	opCtx, done, err := c.scoped(ctx)
	if err != nil {
		return err
	}
	defer done()

	if fileName == "" {
		fileName = filepath.Base(localPath)
	}
	name := NormalizeUploadName(fileName)
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}

	err = c.deps.API.UploadFile(opCtx, c.boxID, api.UploadInput{
		LocalPath: localPath,
		MimeType:  mimeType,
		FileName:  name,
	})
	if err != nil {
		e := newError(KindTransfer, "upload "+name, err)
		c.report(e)
		return e
	}

	c.log.Info().Str("name", name).Msg("upload accepted")
	c.emit(Event{Type: EventUploaded, File: &api.File{Title: name}})
	return nil
}

// AbortUpload records a pick that did not produce a file. Nothing is shown to
// the user.
func (c *Controller) AbortUpload(err error) {
	if err == nil || errors.Is(err, ErrPickerCancelled) {
		c.log.Debug().Msg("upload cancelled by user")
		return
	}
	c.log.Warn().Err(newError(KindPicker, "pick file", err)).Msg("file picker failed")
}

// OpenFile downloads f to its local path and hands it to the viewer. The
// viewer is not invoked if the screen unmounted during the download.
func (c *Controller) OpenFile(ctx context.Context, f api.File, opts ...DownloadOption) error {
	path, err := c.Download(ctx, f, opts...)
	if err != nil {
		return err
	}

	opCtx, done, err := c.scoped(ctx)
	if err != nil {
		return err
	}
	defer done()

	if c.deps.Viewer == nil {
		e := newError(KindViewer, "open "+f.Title, errors.New("no viewer configured"))
		c.report(e)
		return e
	}
	c.mu.Lock()
	mounted := c.state != StateUnmounted && opCtx.Err() == nil
	c.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}
	if err := c.deps.Viewer.Open(opCtx, path); err != nil {
		e := newError(KindViewer, "open "+f.Title, err)
		c.report(e)
		return e
	}
	c.emit(Event{Type: EventOpened, File: &f, Path: path})
	return nil
}

// Download fetches f into the download directory and returns the local path.
func (c *Controller) Download(ctx context.Context, f api.File, opts ...DownloadOption) (string, error) {
	opCtx, done, err := c.scoped(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	var o downloadOptions
	for _, opt := range opts {
		opt(&o)
	}

	path := LocalPath(c.deps.DownloadDir, f.Title)
	if err := fetchTo(opCtx, c.deps.API, f.URL, path, o); err != nil {
		if c.State() == StateUnmounted {
			return "", ErrNotMounted
		}
		e := newError(KindTransfer, "download "+f.Title, err)
		c.report(e)
		return "", e
	}
	c.log.Debug().Str("path", path).Msg("downloaded")
	return path, nil
}

// scoped derives an operation context that ends when either ctx or the
// screen lifetime ends.
func (c *Controller) scoped(ctx context.Context) (context.Context, func(), error) {
	c.mu.Lock()
	life := c.life
	mounted := c.state != StateUnmounted
	c.mu.Unlock()
	if !mounted {
		return nil, nil, ErrNotMounted
	}

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}, nil
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(ev)
}

func (c *Controller) emitLocked(ev Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.log.Debug().Str("event", string(ev.Type)).Msg("event buffer full, dropping")
	}
}

func (c *Controller) report(e *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportLocked(e)
}

func (c *Controller) reportLocked(e *Error) {
	if c.state == StateUnmounted {
		return
	}
	c.log.Warn().Str("kind", string(e.Kind)).Err(e.Err).Msg(e.Op)
	c.emitLocked(Event{Type: EventError, Err: e})
}

// String implements fmt.Stringer for log lines.
func (c *Controller) String() string {
	return fmt.Sprintf("box %s (%s)", c.boxID, c.State())
}
