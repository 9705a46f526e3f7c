package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aeolun/roomsync/pkg/protocol"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRoom is opened when nothing better is known
const DefaultRoom = "main"

var (
	// ErrNoRoom is returned by SendChat when there is no room to record the message in
	ErrNoRoom = errors.New("no room selected")
	// ErrNoCurrentUser is returned when the current-user lookup yields no identity
	ErrNoCurrentUser = errors.New("current user has no name or account id")
)

// Snapshot is a read-only copy of the synchronized state for rendering.
type Snapshot struct {
	Directory      map[string]map[string]string
	Rooms          []string // sorted room names from the directory
	Notifications  []Notification
	DialogOpen     bool
	ActiveRoom     string // empty when the dialog is closed
	RoomHint       string // last room announced by update_session
	LocalSessionID string
	Connection     ConnectionState
}

// Controller owns the directory, history, notification queue and dialog
// state. Inbound frames, UI commands and notice expiry all go through its
// single lock, so every mutation is serialized.
type Controller struct {
	mu sync.Mutex

	sender  Sender
	users   UserLookup
	desktop DesktopNotifier
	logger  *zap.Logger
	metrics *Metrics

	directory *Directory
	history   *History
	notices   *NotificationQueue

	dialogOpen bool
	activeRoom string
	roomHint   string

	localID       string
	localResolved bool
	localSent     uint64

	connState ConnectionState

	updates chan struct{}
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics attaches metrics to the controller
func WithMetrics(metrics *Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = metrics }
}

// WithScheduler replaces the timer source for notice expiry
func WithScheduler(scheduler Scheduler) ControllerOption {
	return func(c *Controller) {
		c.notices = NewNotificationQueue(scheduler, c.expire)
	}
}

// WithDesktopNotifier mirrors chat previews to OS notifications
func WithDesktopNotifier(n DesktopNotifier) ControllerOption {
	return func(c *Controller) { c.desktop = n }
}

// NewController creates a controller that sends through sender and resolves
// the local session id through users.
func NewController(sender Sender, users UserLookup, opts ...ControllerOption) *Controller {
	c := &Controller{
		sender:    sender,
		users:     users,
		directory: NewDirectory(),
		history:   NewHistory(),
		connState: StateDisconnected,
		updates:   make(chan struct{}, 1),
	}
	c.notices = NewNotificationQueue(nil, c.expire)
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(zap.String("component", "controller"))
	return c
}

// Updates delivers a signal after every state change. Signals coalesce: a
// reader that falls behind sees one pending signal, not one per change.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) changed() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// push adds a notice. Caller holds c.mu.
func (c *Controller) push(n Notification) uuid.UUID {
	c.metrics.RecordNotification(n.Kind)
	return c.notices.Push(n)
}

// expire is the notice TTL callback; it runs on a timer goroutine.
func (c *Controller) expire(id uuid.UUID) {
	c.DismissNotification(id)
}

// HandleOpen resolves the local session id the first time the socket opens.
func (c *Controller) HandleOpen(ctx context.Context) {
	c.mu.Lock()
	defer c.changed()
	defer c.mu.Unlock()

	if c.localResolved || c.users == nil {
		return
	}
	user, err := c.users.CurrentUser()
	if err == nil && user.SessionID() == "" {
		err = ErrNoCurrentUser
	}
	if err != nil {
		c.logger.Error("Failed to resolve current user", zap.Error(err))
		c.push(Error(fmt.Sprintf("could not resolve current user: %v", err)))
		return
	}
	c.localID = user.SessionID()
	c.localResolved = true
	c.logger.Info("Resolved local session", zap.String("session_id", c.localID))
}

// HandleStateChange records the connection state; terminal states are
// surfaced as error notices, except a close this side asked for.
func (c *Controller) HandleStateChange(update ConnectionStateUpdate) {
	c.mu.Lock()
	c.connState = update.State
	switch update.State {
	case StateErrored:
		c.push(Error("connection error"))
	case StateClosed:
		if errors.Is(update.Err, ErrClosedLocally) {
			c.logger.Debug("Connection closed locally")
		} else {
			c.push(Error("connection closed"))
		}
	}
	c.mu.Unlock()
	c.changed()
}

// HandleFrame decodes and applies one inbound frame. Undecodable frames are
// logged and skipped without touching any state.
func (c *Controller) HandleFrame(text string) {
	frame, err := protocol.DecodeFrame(text)
	if err != nil {
		if errors.Is(err, protocol.ErrMalformedPayload) {
			c.logger.Warn("Skipping malformed frame", zap.Stringer("kind", frame.Kind), zap.Error(err))
			c.metrics.RecordDecodeError(frame.Kind.String())
			return
		}
		c.logger.Debug("Ignoring untagged frame", zap.Int("len", len(text)))
		c.metrics.RecordDecodeError(protocol.KindUnknown.String())
		return
	}

	c.mu.Lock()
	preview := c.apply(frame)
	c.mu.Unlock()

	c.metrics.RecordFrameReceived(frame.Kind.String())
	c.changed()

	if preview != nil && c.desktop != nil {
		if err := c.desktop.Notify(preview.Label, preview.Display()); err != nil {
			c.logger.Debug("Desktop notification failed", zap.Error(err))
		}
	}
}

// apply mutates state for one decoded frame and returns the chat preview it
// enqueued, if any. Caller holds c.mu.
func (c *Controller) apply(f *protocol.Frame) *Notification {
	switch f.Kind {
	case protocol.KindMessage:
		msg := *f.Message
		c.history.Append(msg.Room, msg)
		// Any open dialog suppresses previews for every room.
		if c.dialogOpen {
			return nil
		}
		n := ChatPreview(msg.Room, msg.FromID, msg.FromName, msg.Content)
		c.push(n)
		return &n

	case protocol.KindUpdateSession:
		c.roomHint = f.Session.Room

	case protocol.KindList:
		c.directory.Replace(f.List)

	case protocol.KindJoinRoom:
		c.directory.Upsert(f.Change.Room, f.Change.SessionID, f.Change.Name)

	case protocol.KindQuitRoom:
		// Own and foreign quits are indistinguishable until the local id is known
		if !c.localResolved {
			c.logger.Debug("Ignoring quit_room before local session id", zap.String("room", f.Change.Room))
			return nil
		}
		if f.Change.SessionID == c.localID {
			c.directory.RemoveRoom(f.Change.Room)
		} else {
			c.directory.RemoveSession(f.Change.Room, f.Change.SessionID)
		}

	case protocol.KindUpdateName:
		c.directory.RenameEverywhere(f.Rename.SessionID, f.Rename.Name)
	}
	return nil
}

// targetRoom is the room a composed message belongs to. Caller holds c.mu.
func (c *Controller) targetRoom() string {
	if c.dialogOpen && c.activeRoom != "" {
		return c.activeRoom
	}
	return c.roomHint
}

// SendChat writes content to the socket and, once the write succeeds,
// records it in the history of the focused room. Blank content is ignored.
// A failed write records nothing and raises an error notice.
func (c *Controller) SendChat(ctx context.Context, content string) error {
	if protocol.IsBlank(content) {
		return nil
	}

	c.mu.Lock()
	room := c.targetRoom()
	c.mu.Unlock()
	if room == "" {
		return ErrNoRoom
	}

	if err := c.sender.Send(ctx, protocol.EncodeChat(content)); err != nil {
		c.logger.Error("Failed to send chat", zap.String("room", room), zap.Error(err))
		c.mu.Lock()
		c.push(Error(fmt.Sprintf("failed to send message: %v", err)))
		c.mu.Unlock()
		c.changed()
		return fmt.Errorf("send chat: %w", err)
	}
	c.metrics.RecordChatSent()

	c.mu.Lock()
	c.localSent++
	c.history.Append(room, protocol.ChatMessage{
		ID:       protocol.LocalMessageID(c.localSent),
		Room:     room,
		FromName: c.localID,
		Content:  content,
		IsOwn:    true,
	})
	c.mu.Unlock()
	c.changed()
	return nil
}

// OpenDialog focuses the dialog on room and clears every notice.
func (c *Controller) OpenDialog(room string) {
	c.mu.Lock()
	c.dialogOpen = true
	c.activeRoom = room
	c.notices.ClearAll()
	c.mu.Unlock()
	c.changed()
}

// OpenDefaultDialog opens the dialog on the announced current room, else
// the first listed room, else DefaultRoom. It returns the room opened.
func (c *Controller) OpenDefaultDialog() string {
	c.mu.Lock()
	room := c.roomHint
	if room == "" {
		if rooms := c.directory.ListRooms(); len(rooms) > 0 {
			room = rooms[0]
		} else {
			room = DefaultRoom
		}
	}
	c.mu.Unlock()

	c.OpenDialog(room)
	return room
}

// OpenNotification activates a notice: chat previews open their room's
// dialog. It reports whether a dialog was opened.
func (c *Controller) OpenNotification(id uuid.UUID) bool {
	c.mu.Lock()
	var room string
	found := false
	for _, n := range c.notices.Items() {
		if n.ID == id && n.Openable() {
			room, found = n.Room, true
			break
		}
	}
	c.mu.Unlock()

	if !found {
		return false
	}
	c.OpenDialog(room)
	return true
}

// CloseDialog closes the dialog. History and directory are untouched.
func (c *Controller) CloseDialog() {
	c.mu.Lock()
	c.dialogOpen = false
	c.activeRoom = ""
	c.mu.Unlock()
	c.changed()
}

// SwitchFocusedRoom moves an open dialog to room without clearing notices.
// It does nothing (and returns false) when the dialog is closed.
func (c *Controller) SwitchFocusedRoom(room string) bool {
	c.mu.Lock()
	if !c.dialogOpen {
		c.mu.Unlock()
		return false
	}
	c.activeRoom = room
	c.mu.Unlock()
	c.changed()
	return true
}

// DismissNotification removes a notice; unknown ids are ignored.
func (c *Controller) DismissNotification(id uuid.UUID) bool {
	c.mu.Lock()
	removed := c.notices.Dismiss(id)
	c.mu.Unlock()
	if removed {
		c.changed()
	}
	return removed
}

// Notify adds a UI-originated notice (see Success, Warn, Info, Error).
func (c *Controller) Notify(n Notification) uuid.UUID {
	c.mu.Lock()
	id := c.push(n)
	c.mu.Unlock()
	c.changed()
	return id
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Directory:      c.directory.Snapshot(),
		Rooms:          c.directory.ListRooms(),
		Notifications:  c.notices.Items(),
		DialogOpen:     c.dialogOpen,
		ActiveRoom:     c.activeRoom,
		RoomHint:       c.roomHint,
		LocalSessionID: c.localID,
		Connection:     c.connState,
	}
}

// History returns a copy of room's messages in arrival order
func (c *Controller) History(room string) []protocol.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Get(room)
}

// Transcript renders room's history for the dialog's read-only view
func (c *Controller) Transcript(room string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.RenderTranscript(room)
}

// Members returns room's roster ordered by name
func (c *Controller) Members(room string) []Member {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.directory.Members(room)
}

// LocalSessionID returns the resolved local id, or "" before resolution
func (c *Controller) LocalSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localID
}
