package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/aeolun/roomsync/pkg/protocol"
)

// ErrSessionExists is returned when a token is already connected
var ErrSessionExists = errors.New("session already connected")

// DefaultSendQueueSize bounds the frames waiting for one session's writer
const DefaultSendQueueSize = 256

type outbound struct {
	kind protocol.Kind
	text string
}

// Session represents an active client connection
type Session struct {
	ID         string             // Session id, equal to the socket token
	Conn       *protocol.SafeConn // Connection with automatic write synchronization
	RemoteAddr string

	mu   sync.RWMutex // Protects Name and Room
	name string
	room string

	queue    chan outbound
	stopped  chan struct{}
	stopOnce sync.Once
}

// enqueue hands a frame to the session's writer without blocking. It
// reports false when the queue is full; frames for a stopped session are
// discarded.
func (s *Session) enqueue(kind protocol.Kind, text string) bool {
	select {
	case <-s.stopped:
		return true
	default:
	}
	select {
	case s.queue <- outbound{kind: kind, text: text}:
		return true
	default:
		return false
	}
}

// stop ends the session's writer. Safe to call more than once.
func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.stopped) })
}

// Name returns the current display name
func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Room returns the room the session is in
func (s *Session) Room() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.room
}

// SessionManager manages all active sessions and the set of known rooms.
// Rooms stay listed once created, even when nobody is in them.
type SessionManager struct {
	sessions  map[string]*Session
	rooms     map[string]bool
	mu        sync.RWMutex
	metrics   *Metrics
	queueSize int
}

// NewSessionManager creates a new session manager that lists seedRooms from the start
func NewSessionManager(seedRooms ...string) *SessionManager {
	sm := &SessionManager{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]bool),
	}
	for _, room := range seedRooms {
		sm.rooms[room] = true
	}
	return sm
}

// SetSendQueueSize sets the outbound queue length for sessions created later
func (sm *SessionManager) SetSendQueueSize(n int) {
	sm.queueSize = n
}

// SetMetrics attaches metrics to the session manager
func (sm *SessionManager) SetMetrics(metrics *Metrics) {
	sm.metrics = metrics
}

// CreateSession registers a new session in room
func (sm *SessionManager) CreateSession(id, name, room string, conn *protocol.SafeConn) (*Session, error) {
	queueSize := sm.queueSize
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}
	sess := &Session{
		ID:      id,
		Conn:    conn,
		name:    name,
		room:    room,
		queue:   make(chan outbound, queueSize),
		stopped: make(chan struct{}),
	}
	if conn != nil {
		sess.RemoteAddr = conn.RemoteAddr().String()
	}

	sm.mu.Lock()
	if _, exists := sm.sessions[id]; exists {
		sm.mu.Unlock()
		return nil, ErrSessionExists
	}
	sm.sessions[id] = sess
	sm.rooms[room] = true
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	// Update metrics outside lock
	sm.metrics.RecordActiveSessions(sessionCount)
	sm.metrics.RecordSessionCreated()

	return sess, nil
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, ok := sm.sessions[id]
	return sess, ok
}

// GetAllSessions returns all active sessions
func (sm *SessionManager) GetAllSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// GetRoomSessions returns the sessions currently in room
func (sm *SessionManager) GetRoomSessions(room string) []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var sessions []*Session
	for _, sess := range sm.sessions {
		if sess.Room() == room {
			sessions = append(sessions, sess)
		}
	}
	return sessions
}

// RemoveSession removes a session. It returns the removed session, or false
// if it was already gone.
func (sm *SessionManager) RemoveSession(id string) (*Session, bool) {
	sm.mu.Lock()
	sess, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	sessionCount := len(sm.sessions)
	sm.mu.Unlock()

	if ok {
		sm.metrics.RecordActiveSessions(sessionCount)
	}
	return sess, ok
}

// SetRoom moves a session to room, creating the room if needed. It returns
// the previous room.
func (sm *SessionManager) SetRoom(sess *Session, room string) string {
	sm.mu.Lock()
	sm.rooms[room] = true
	sm.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	old := sess.room
	sess.room = room
	return old
}

// SetName renames a session and returns the old name
func (sm *SessionManager) SetName(sess *Session, name string) string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	old := sess.name
	sess.name = name
	return old
}

// RoomList builds the full directory: every known room with its roster.
func (sm *SessionManager) RoomList() protocol.RoomListMessage {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	list := make(protocol.RoomListMessage, len(sm.rooms))
	for room := range sm.rooms {
		list[room] = make(map[string]string)
	}
	for _, sess := range sm.sessions {
		list[sess.Room()][sess.ID] = sess.Name()
	}
	return list
}

// Rooms returns the known room names in sorted order
func (sm *SessionManager) Rooms() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	rooms := make([]string, 0, len(sm.rooms))
	for room := range sm.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Count returns the number of active sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CloseAll closes all session connections
func (sm *SessionManager) CloseAll() {
	for _, sess := range sm.GetAllSessions() {
		if sess.Conn != nil {
			sess.Conn.Close()
		}
	}
}
