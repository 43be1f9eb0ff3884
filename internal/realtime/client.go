// Package realtime is a minimal Socket.IO v4 client over the Engine.IO
// websocket transport. It supports joining one room per subscription and
// receiving server-sent events; polling transport and acknowledgements are
// not implemented.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitrone/msjbox/cli/internal/logging"
)

// JoinEvent is the event name the box backend uses to put a socket in a room.
const JoinEvent = "connectRoom"

// ErrServerClosed reports that the server ended the session.
var ErrServerClosed = errors.New("server closed the connection")

const (
	defaultMinBackoff   = 500 * time.Millisecond
	defaultMaxBackoff   = 30 * time.Second
	defaultPingInterval = 25 * time.Second
	defaultPingTimeout  = 20 * time.Second
	handshakeTimeout    = 10 * time.Second
	writeTimeout        = 10 * time.Second
)

// Client dials a Socket.IO endpoint.
type Client struct {
	endpoint   string
	dialer     *websocket.Dialer
	header     http.Header
	log        *logging.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log.With("realtime") }
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		if min > 0 {
			c.minBackoff = min
		}
		if max >= c.minBackoff {
			c.maxBackoff = max
		}
	}
}

// WithHeader adds headers sent on every websocket handshake.
func WithHeader(h http.Header) Option {
	return func(c *Client) { c.header = h.Clone() }
}

// NewClient builds a client for a server URL such as
// https://example.com. The Socket.IO path and query are added when missing.
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	endpoint, err := EndpointURL(serverURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		log:        logging.Nop(),
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the websocket URL the client dials.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// EndpointURL converts an http(s) or ws(s) server URL into the Engine.IO v4
// websocket endpoint.
func EndpointURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("realtime url %q has no host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// session is one live websocket connection joined to a room.
type session struct {
	conn      *websocket.Conn
	hs        handshake
	writeMu   sync.Mutex
	readLimit time.Duration
}

func (s *session) write(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *session) close() {
	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = s.conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, sioDisconnect})
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	_ = s.conn.Close()
}

// connect dials, completes the Engine.IO and Socket.IO handshakes and emits
// the room join. The join is on the wire when connect returns.
func (c *Client) connect(ctx context.Context, room string) (*session, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.endpoint, c.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (HTTP %d)", c.endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.endpoint, err)
	}

	// Handshake reads only watch their deadline; closing the conn is what
	// unblocks them when ctx ends first.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s := &session{conn: conn}
	if err := c.handshake(ctx, s, room); err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return s, nil
}

func (c *Client) handshake(ctx context.Context, s *session, room string) error {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetReadDeadline(deadline)

	_, frame, err := s.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read open packet: %w", err)
	}
	hs, err := decodeHandshake(frame)
	if err != nil {
		return err
	}
	s.hs = hs
	s.readLimit = pingWindow(hs)

	if err := s.write(encodeConnect()); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("await connect: %w", err)
		}
		if len(frame) == 0 {
			continue
		}
		switch frame[0] {
		case eioPing:
			if err := s.write([]byte{eioPong}); err != nil {
				return fmt.Errorf("send pong: %w", err)
			}
			continue
		case eioClose:
			return fmt.Errorf("handshake: %w", ErrServerClosed)
		case eioMessage:
		default:
			continue
		}
		p, err := decodePacket(frame[1:])
		if err != nil {
			return err
		}
		if p.Namespace != "" && p.Namespace != "/" {
			continue
		}
		switch p.Type {
		case sioConnect:
			join, err := encodeEvent(JoinEvent, room)
			if err != nil {
				return err
			}
			if err := s.write(join); err != nil {
				return fmt.Errorf("join room: %w", err)
			}
			c.log.Debug().Str("sid", hs.SID).Str("room", room).Msg("joined room")
			return nil
		case sioConnectError:
			return fmt.Errorf("connect refused: %s", connectErrorMessage(p))
		}
	}
}

func pingWindow(hs handshake) time.Duration {
	interval := time.Duration(hs.PingInterval) * time.Millisecond
	if interval <= 0 {
		interval = defaultPingInterval
	}
	timeout := time.Duration(hs.PingTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	return interval + timeout
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.minBackoff
	for i := 0; i < attempt && d < c.maxBackoff; i++ {
		d *= 2
	}
	if d > c.maxBackoff {
		d = c.maxBackoff
	}
	return d
}
