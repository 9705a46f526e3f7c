package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aeolun/roomsync/pkg/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnectionState represents the socket lifecycle.
// Disconnected -> Connecting -> Open -> Closed | Errored. Closed and Errored
// are terminal; there is no reconnection.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosed
	StateErrored
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen
func (s ConnectionState) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

// ConnectionStateUpdate represents a connection state change
type ConnectionStateUpdate struct {
	State ConnectionState
	Err   error
}

var (
	// ErrConnectionFailed marks connection-level failures (terminal)
	ErrConnectionFailed = errors.New("connection error")
	// ErrConnectionClosed marks a normal close (terminal)
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendFailed marks a failed outbound write on an open connection
	ErrSendFailed = errors.New("message send error")
	// ErrNotOpen is returned by Send outside the Open state
	ErrNotOpen = errors.New("connection is not open")
	// ErrClosedLocally accompanies ErrConnectionClosed when this side
	// ended the session (Close or context cancellation)
	ErrClosedLocally = errors.New("closed locally")
)

// errLocalClose is reported with the Closed state after a local close
var errLocalClose = fmt.Errorf("%w: %w", ErrConnectionClosed, ErrClosedLocally)

// DefaultWriteTimeout bounds a single outbound write when the caller's
// context has no deadline.
const DefaultWriteTimeout = 10 * time.Second

// Transport is one established duplex text connection. ReadText is called
// from a single goroutine; WriteText calls are serialized by the Session.
//
// Errors must wrap ErrConnectionClosed, ErrConnectionFailed or ErrSendFailed
// where they apply; anything else is treated as a recoverable read error.
type Transport interface {
	ReadText() (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

// Dialer opens a Transport to url
type Dialer func(ctx context.Context, url string) (Transport, error)

// wsTransport adapts a gorilla websocket to Transport
type wsTransport struct {
	conn         *protocol.SafeConn
	writeTimeout time.Duration
}

// DialWebSocket opens a websocket transport
func DialWebSocket(ctx context.Context, url string) (Transport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %v (HTTP %d)", ErrConnectionFailed, url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnectionFailed, url, err)
	}
	return &wsTransport{conn: protocol.NewSafeConn(conn), writeTimeout: DefaultWriteTimeout}, nil
}

func (t *wsTransport) ReadText() (string, error) {
	text, err := t.conn.ReadText()
	if err == nil {
		return text, nil
	}
	switch {
	case errors.Is(err, protocol.ErrBinaryFrame):
		return "", err
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return "", fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	default:
		// gorilla connections are unusable after any other read error
		return "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
}

func (t *wsTransport) WriteText(ctx context.Context, text string) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.writeTimeout)
	}
	if err := t.conn.WriteText(text, deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// Session owns one socket: the connection lifecycle, the single reader loop
// and the serialized write path.
type Session struct {
	url       string
	dial      Dialer
	mu        sync.RWMutex
	state     ConnectionState
	transport Transport
	closing   bool
	started   bool

	// sendMu keeps at most one outbound frame in flight
	sendMu sync.Mutex

	// Traffic counters (payload bytes)
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64

	logger  *zap.Logger
	metrics *Metrics
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithDialer replaces the websocket dialer, mainly for tests
func WithDialer(dial Dialer) SessionOption {
	return func(s *Session) { s.dial = dial }
}

// WithSessionLogger sets the session logger
func WithSessionLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithSessionMetrics attaches metrics to the session
func WithSessionMetrics(metrics *Metrics) SessionOption {
	return func(s *Session) { s.metrics = metrics }
}

// NewSession creates a session for url. Nothing is dialed until Run.
func NewSession(url string, opts ...SessionOption) *Session {
	s := &Session{
		url:   url,
		dial:  DialWebSocket,
		state: StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("component", "session"))
	return s
}

// SocketURL builds the socket endpoint for base and token: {base}/ws/ws/{token}.
// An http(s) base is mapped to ws(s).
func SocketURL(base, token string) string {
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/ws/" + token
}

// State returns the current connection state
func (s *Session) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// GetAddress returns the socket URL
func (s *Session) GetAddress() string {
	return s.url
}

// GetBytesSent returns the total payload bytes sent
func (s *Session) GetBytesSent() uint64 {
	return s.bytesSent.Load()
}

// GetBytesReceived returns the total payload bytes received
func (s *Session) GetBytesReceived() uint64 {
	return s.bytesReceived.Load()
}

func (s *Session) setState(state ConnectionState, err error, handler FrameHandler) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	s.metrics.RecordConnectionState(state)
	s.logger.Debug("Connection state changed", zap.Stringer("state", state), zap.Error(err))
	if handler != nil {
		handler.HandleStateChange(ConnectionStateUpdate{State: state, Err: err})
	}
}

// Run dials the socket and processes inbound frames until the connection
// reaches a terminal state. It may be called once per Session.
//
// A normal close (from either side, or ctx cancellation) returns nil; a
// connection-level failure returns an error wrapping ErrConnectionFailed.
func (s *Session) Run(ctx context.Context, handler FrameHandler) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.mu.Unlock()

	s.setState(StateConnecting, nil, handler)
	s.logger.Info("Connecting", zap.String("url", s.url))

	transport, err := s.dial(ctx, s.url)
	if err != nil {
		if !errors.Is(err, ErrConnectionFailed) {
			err = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		s.logger.Error("connection error", zap.Error(err))
		s.setState(StateErrored, err, handler)
		return err
	}

	s.mu.Lock()
	s.transport = transport
	closing := s.closing
	s.mu.Unlock()
	if closing {
		transport.Close()
		s.setState(StateClosed, errLocalClose, handler)
		return nil
	}

	s.setState(StateOpen, nil, handler)
	s.logger.Info("Connected", zap.String("url", s.url))

	if err := s.Send(ctx, protocol.PresenceText); err != nil {
		s.logger.Error("message send error", zap.Error(err))
	}
	handler.HandleOpen(ctx)

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()
		transport.Close()
	})
	defer stop()
	defer transport.Close()

	return s.readLoop(transport, handler)
}

// readLoop hands frames to the handler one at a time, in arrival order
func (s *Session) readLoop(transport Transport, handler FrameHandler) error {
	for {
		text, err := transport.ReadText()
		if err == nil {
			s.bytesReceived.Add(uint64(len(text)))
			s.metrics.RecordBytesReceived(len(text))
			handler.HandleFrame(text)
			continue
		}

		s.mu.RLock()
		closing := s.closing
		s.mu.RUnlock()

		switch {
		case closing && (errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrConnectionFailed)):
			// We closed the socket ourselves; the read failure is expected.
			s.logger.Info("connection closed", zap.NamedError("cause", err))
			s.setState(StateClosed, errLocalClose, handler)
			return nil
		case errors.Is(err, ErrConnectionClosed):
			s.logger.Info("connection closed", zap.Error(err))
			s.setState(StateClosed, err, handler)
			return nil
		case errors.Is(err, ErrConnectionFailed):
			s.logger.Error("connection error", zap.Error(err))
			s.setState(StateErrored, err, handler)
			return err
		case errors.Is(err, ErrSendFailed):
			s.logger.Error("message send error", zap.Error(err))
		default:
			s.logger.Error("read error", zap.Error(err))
		}
	}
}

// Send writes one text frame. Concurrent callers queue on the write lock
// rather than interleaving bytes.
func (s *Session) Send(ctx context.Context, text string) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.RLock()
	transport := s.transport
	state := s.state
	s.mu.RUnlock()

	if state != StateOpen || transport == nil {
		return fmt.Errorf("%w (state %s)", ErrNotOpen, state)
	}

	if err := transport.WriteText(ctx, text); err != nil {
		s.metrics.RecordSendFailure()
		if !errors.Is(err, ErrSendFailed) {
			err = fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		return err
	}

	s.bytesSent.Add(uint64(len(text)))
	s.metrics.RecordBytesSent(len(text))
	return nil
}

// Close closes the socket. The reader loop observes the close and moves the
// session to Closed.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closing = true
	transport := s.transport
	s.mu.Unlock()

	if transport == nil {
		return nil
	}
	return transport.Close()
}
