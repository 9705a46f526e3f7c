package protocol

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrBinaryFrame is returned by ReadText when the peer sent a non-text frame.
// The connection stays usable.
var ErrBinaryFrame = errors.New("received non-text frame")

// closeGrace bounds how long Close waits to deliver the close frame.
const closeGrace = time.Second

// SafeConn wraps a websocket connection with write synchronization so that
// at most one frame is in flight at a time.
//
// gorilla/websocket supports one concurrent reader and one concurrent writer.
// Chat sends, the presence frame and broadcasts may come from different
// goroutines; SafeConn makes it impossible to write without the lock.
type SafeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // Protects writes to conn
}

// NewSafeConn wraps a websocket connection with write synchronization
func NewSafeConn(conn *websocket.Conn) *SafeConn {
	return &SafeConn{
		conn: conn,
	}
}

// WriteText sends one text frame. A zero deadline means no write deadline.
func (sc *SafeConn) WriteText(text string, deadline time.Time) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return sc.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// WriteFrame encodes and sends a structured frame.
func (sc *SafeConn) WriteFrame(f *Frame, deadline time.Time) error {
	text, err := EncodeFrame(f)
	if err != nil {
		return err
	}
	return sc.WriteText(text, deadline)
}

// ReadText reads the next frame. Reads don't need write synchronization,
// but only one goroutine may read at a time.
func (sc *SafeConn) ReadText() (string, error) {
	messageType, data, err := sc.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	if messageType != websocket.TextMessage {
		return "", ErrBinaryFrame
	}
	return string(data), nil
}

// Close sends a normal-closure frame and closes the underlying connection
func (sc *SafeConn) Close() error {
	sc.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = sc.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	sc.mu.Unlock()
	return sc.conn.Close()
}

// RemoteAddr returns the remote network address
func (sc *SafeConn) RemoteAddr() net.Addr {
	return sc.conn.RemoteAddr()
}
