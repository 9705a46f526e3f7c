package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aeolun/roomsync/pkg/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server is a development chat hub speaking the room sync text protocol.
// It keeps everything in memory and exists to drive the client locally.
type Server struct {
	config   ServerConfig
	sessions *SessionManager
	logger   *zap.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader

	// mu serializes membership changes with the broadcasts that announce
	// them, so every client sees the same order of events. Frames are only
	// queued under mu; each session's writePump does the socket writes.
	mu sync.Mutex

	nextMessageID atomic.Uint64
	startTime     time.Time

	listener      net.Listener
	httpServer    *http.Server
	metricsServer *http.Server
	wg            sync.WaitGroup
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPAddr         string
	MetricsAddr      string // empty = disabled
	DefaultRoom      string
	SeedRooms        []string
	MaxMessageLength int
	MaxNameLength    int
	WriteTimeout     time.Duration
	SendQueueSize    int // frames buffered per session before it is dropped
}

// DefaultConfig returns default server configuration
func DefaultConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:         ":8080",
		DefaultRoom:      "main",
		SeedRooms:        []string{"main", "random"},
		MaxMessageLength: 4096,
		MaxNameLength:    32,
		WriteTimeout:     10 * time.Second,
		SendQueueSize:    DefaultSendQueueSize,
	}
}

// NewServer creates a new hub. A nil logger discards logs.
func NewServer(config ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultRoom == "" {
		config.DefaultRoom = DefaultConfig().DefaultRoom
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = DefaultSendQueueSize
	}

	metrics := NewMetrics()
	sessions := NewSessionManager(append([]string{config.DefaultRoom}, config.SeedRooms...)...)
	sessions.SetMetrics(metrics)
	sessions.SetSendQueueSize(config.SendQueueSize)

	return &Server{
		config:   config,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "hub")),
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Development hub: accept any origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}
}

// Metrics returns the hub's metrics
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Sessions returns the session manager
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler returns the public HTTP handler: the socket endpoint and /health
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/ws/{token}", s.HandleWebSocket)
	mux.HandleFunc("GET /health", s.HealthHandler)
	return mux
}

// Start listens on the configured addresses and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.HTTPAddr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("Hub listening", zap.String("addr", listener.Addr().String()))
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	if s.config.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", s.metrics.Handler())
		s.metricsServer = &http.Server{Addr: s.config.MetricsAddr, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.logger.Info("Metrics server listening", zap.String("addr", s.config.MetricsAddr))
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the HTTP servers down and closes every session
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Shutdown(ctx))
	}
	if s.metricsServer != nil {
		errs = append(errs, s.metricsServer.Shutdown(ctx))
	}
	// Hijacked websocket connections are not covered by Shutdown
	s.sessions.CloseAll()
	s.wg.Wait()
	return errors.Join(errs...)
}

// HealthHandler reports liveness and a few counts
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "ok",
		"sessions":       s.sessions.Count(),
		"rooms":          s.sessions.Rooms(),
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
	})
}

// HandleWebSocket accepts a socket at /ws/ws/{token}. The token becomes the
// session id and the initial display name.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}
	if _, exists := s.sessions.GetSession(token); exists {
		http.Error(w, ErrSessionExists.Error(), http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Upgrade failed", zap.Error(err))
		return
	}
	safe := protocol.NewSafeConn(conn)

	s.mu.Lock()
	sess, err := s.sessions.CreateSession(token, token, s.config.DefaultRoom, safe)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Rejected session", zap.String("session_id", token), zap.Error(err))
		safe.Close()
		return
	}
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.writePump(sess)
	}()
	s.welcome(sess)
	s.mu.Unlock()

	s.logger.Info("Session connected", zap.String("session_id", sess.ID), zap.String("remote", sess.RemoteAddr))
	s.messageLoop(sess)
	<-pumpDone
}

// welcome tells a new session where it is and announces it. Caller holds s.mu.
func (s *Server) welcome(sess *Session) {
	room, name := sess.Room(), sess.Name()
	s.send(sess, protocol.NewUpdateSessionFrame(room, name))
	s.send(sess, protocol.NewListFrame(s.sessions.RoomList()))
	s.broadcast(protocol.NewJoinFrame(sess.ID, name, room), sess)
}

// messageLoop reads frames until the socket fails, then removes the session
func (s *Server) messageLoop(sess *Session) {
	defer s.removeSession(sess)

	for {
		text, err := sess.Conn.ReadText()
		if err != nil {
			if errors.Is(err, protocol.ErrBinaryFrame) {
				s.logger.Debug("Ignoring binary frame", zap.String("session_id", sess.ID))
				continue
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("Session closed", zap.String("session_id", sess.ID))
			} else {
				s.logger.Debug("Session read error", zap.String("session_id", sess.ID), zap.Error(err))
			}
			return
		}

		if err := s.handleMessage(sess, text); err != nil {
			s.logger.Warn("Handle error", zap.String("session_id", sess.ID), zap.Error(err))
			s.sendNotice(sess, err.Error())
		}
	}
}

// removeSession drops a session and tells everyone it left its room
func (s *Server) removeSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.stop()
	if _, ok := s.sessions.RemoveSession(sess.ID); !ok {
		return
	}
	sess.Conn.Close()
	s.broadcast(protocol.NewQuitFrame(sess.ID, sess.Name(), sess.Room()), nil)
	s.logger.Info("Session disconnected", zap.String("session_id", sess.ID))
}

// send queues one frame for a session. Failures are logged; the session's
// read loop notices the broken socket and cleans up.
func (s *Server) send(sess *Session, f *protocol.Frame) {
	text, err := protocol.EncodeFrame(f)
	if err != nil {
		s.logger.Error("Failed to encode frame", zap.Stringer("kind", f.Kind), zap.Error(err))
		return
	}
	s.write(sess, f.Kind, text)
}

// broadcast queues one frame for every session except skip
func (s *Server) broadcast(f *protocol.Frame, skip *Session) {
	text, err := protocol.EncodeFrame(f)
	if err != nil {
		s.logger.Error("Failed to encode frame", zap.Stringer("kind", f.Kind), zap.Error(err))
		return
	}
	for _, sess := range s.sessions.GetAllSessions() {
		if sess != skip {
			s.write(sess, f.Kind, text)
		}
	}
}

// broadcastRoom queues one frame for the sessions in room except skip
func (s *Server) broadcastRoom(room string, f *protocol.Frame, skip *Session) {
	text, err := protocol.EncodeFrame(f)
	if err != nil {
		s.logger.Error("Failed to encode frame", zap.Stringer("kind", f.Kind), zap.Error(err))
		return
	}
	for _, sess := range s.sessions.GetRoomSessions(room) {
		if sess != skip {
			s.write(sess, f.Kind, text)
		}
	}
}

// write queues text for sess. Caller holds s.mu. A session too slow to
// drain its queue is disconnected instead of holding up everyone else.
func (s *Server) write(sess *Session, kind protocol.Kind, text string) {
	if sess.enqueue(kind, text) {
		return
	}
	s.metrics.RecordSessionDropped()
	s.logger.Warn("Send queue full, dropping session", zap.String("session_id", sess.ID))
	sess.stop()
	if sess.Conn != nil {
		sess.Conn.Close()
	}
}

// writePump drains the session's queue onto its socket until the session stops
func (s *Server) writePump(sess *Session) {
	for {
		select {
		case <-sess.stopped:
			return
		case out := <-sess.queue:
			if err := sess.Conn.WriteText(out.text, time.Now().Add(s.config.WriteTimeout)); err != nil {
				s.metrics.RecordWriteError()
				s.logger.Debug("Write failed", zap.String("session_id", sess.ID), zap.Error(err))
				sess.stop()
				sess.Conn.Close()
				return
			}
			s.metrics.RecordFrameSent(out.kind.String())
		}
	}
}
