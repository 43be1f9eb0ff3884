package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// Status describes the state of a subscription's connection.
type Status int

const (
	StatusConnected Status = iota
	StatusReconnecting
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handlers receives subscription callbacks. Callbacks run on the
// subscription's read goroutine and never after Close returns.
type Handlers struct {
	// Events maps a server event name to its handler. The handler receives
	// the first event argument.
	Events map[string]func(json.RawMessage)
	// Status is notified on connect, drop/retry and final close.
	Status func(Status, error)
}

// Subscription owns one connection joined to a room. It reconnects and
// re-joins after drops until Close is called.
type Subscription struct {
	client   *Client
	room     string
	handlers Handlers

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe opens a connection, joins room and starts delivering events.
// The first dial happens before Subscribe returns, so the join is already
// sent when err is nil and the status callback reported StatusConnected. A
// failed first dial is reported as StatusReconnecting and retried in the
// background.
func (c *Client) Subscribe(ctx context.Context, room string, h Handlers) (*Subscription, error) {
	if room == "" {
		return nil, fmt.Errorf("room is required")
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &Subscription{
		client:   c,
		room:     room,
		handlers: h,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	sess, err := c.connect(ctx, room)
	if err != nil {
		c.log.Warn().Err(err).Str("room", room).Msg("realtime connect failed")
		sub.status(StatusReconnecting, err)
	} else {
		sub.status(StatusConnected, nil)
	}

	go sub.run(runCtx, sess)
	return sub, nil
}

// Room returns the joined room.
func (s *Subscription) Room() string {
	return s.room
}

// Close terminates the connection and stops reconnecting. It blocks until
// no handler can run anymore. Safe to call more than once.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
	})
	<-s.done
	return nil
}

func (s *Subscription) run(ctx context.Context, sess *session) {
	defer close(s.done)
	defer s.status(StatusClosed, nil)

	attempt := 0
	for {
		if sess != nil {
			attempt = 0
			err := s.serve(ctx, sess)
			if ctx.Err() != nil {
				return
			}
			if IsServerClosed(err) {
				s.client.log.Info().Str("room", s.room).Msg("server ended realtime session")
			} else {
				s.client.log.Warn().Err(err).Str("room", s.room).Msg("realtime connection dropped")
			}
			s.status(StatusReconnecting, err)
			sess = nil
		}

		wait := s.client.backoff(attempt)
		attempt++
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		next, err := s.client.connect(ctx, s.room)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.client.log.Debug().Err(err).Int("attempt", attempt).Msg("realtime reconnect failed")
			s.status(StatusReconnecting, err)
			continue
		}
		s.client.log.Info().Str("room", s.room).Msg("realtime reconnected")
		s.status(StatusConnected, nil)
		sess = next
	}
}

// serve pumps one session until it drops or ctx is cancelled.
func (s *Subscription) serve(ctx context.Context, sess *session) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		sess.close()
		return nil
	})

	g.Go(func() error {
		for {
			_ = sess.conn.SetReadDeadline(time.Now().Add(sess.readLimit))
			_, frame, err := sess.conn.ReadMessage()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return ErrServerClosed
				}
				return err
			}
			if err := s.handleFrame(sess, frame); err != nil {
				return err
			}
		}
	})

	err := g.Wait()
	if err == nil && ctx.Err() == nil {
		err = ErrServerClosed
	}
	return err
}

func (s *Subscription) handleFrame(sess *session, frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	switch frame[0] {
	case eioPing:
		return sess.write([]byte{eioPong})
	case eioClose:
		return ErrServerClosed
	case eioMessage:
	default:
		return nil
	}

	p, err := decodePacket(frame[1:])
	if err != nil {
		s.client.log.Warn().Err(err).Str("frame", truncate(frame)).Msg("dropping malformed packet")
		return nil
	}
	if p.Namespace != "" && p.Namespace != "/" {
		return nil
	}
	switch p.Type {
	case sioDisconnect:
		return ErrServerClosed
	case sioEvent:
		fn, ok := s.handlers.Events[p.Event]
		if !ok {
			s.client.log.Debug().Str("event", p.Event).Msg("unhandled event")
			return nil
		}
		var arg json.RawMessage
		if len(p.Args) > 0 {
			arg = p.Args[0]
		}
		fn(arg)
	}
	return nil
}

func (s *Subscription) status(st Status, err error) {
	if s.handlers.Status != nil {
		s.handlers.Status(st, err)
	}
}

// IsServerClosed reports whether err means the server ended the session.
func IsServerClosed(err error) bool {
	return errors.Is(err, ErrServerClosed)
}
