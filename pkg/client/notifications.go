package client

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NotificationKind selects how a notice is styled and whether it can be opened
type NotificationKind int

const (
	NotifySuccess NotificationKind = iota
	NotifyWarning
	NotifyInfo
	NotifyDanger
	NotifyChatPreview
)

func (k NotificationKind) String() string {
	switch k {
	case NotifySuccess:
		return "success"
	case NotifyWarning:
		return "warning"
	case NotifyInfo:
		return "info"
	case NotifyDanger:
		return "danger"
	case NotifyChatPreview:
		return "chat-preview"
	default:
		return "unknown"
	}
}

// Fixed lifetimes of the factory notices. Errors and chat previews persist
// until dismissed.
const (
	SuccessTTL = 5 * time.Second
	WarningTTL = 10 * time.Second
	InfoTTL    = 8 * time.Second
)

// Notification is one ephemeral notice in the queue
type Notification struct {
	ID      uuid.UUID
	Kind    NotificationKind
	Label   string
	Content string
	TTL     time.Duration // 0 = no expiry

	// Set for chat previews only
	Room     string
	FromID   string
	FromName string
}

// NewNotification creates a notice with a fresh random 128-bit id
func NewNotification(kind NotificationKind, label, content string, ttl time.Duration) Notification {
	return Notification{
		ID:      uuid.New(),
		Kind:    kind,
		Label:   label,
		Content: content,
		TTL:     ttl,
	}
}

func Success(msg string) Notification { return NewNotification(NotifySuccess, "Success", msg, SuccessTTL) }

func Warn(msg string) Notification { return NewNotification(NotifyWarning, "Warning", msg, WarningTTL) }

func Info(msg string) Notification { return NewNotification(NotifyInfo, "Info", msg, InfoTTL) }

func Error(msg string) Notification { return NewNotification(NotifyDanger, "Error", msg, 0) }

// ChatPreview creates the notice shown for an inbound chat message. It is
// labeled with the room and opens that room's dialog when clicked.
func ChatPreview(room, fromID, fromName, content string) Notification {
	n := NewNotification(NotifyChatPreview, room, content, 0)
	n.Room = room
	n.FromID = fromID
	n.FromName = fromName
	return n
}

// Openable reports whether activating the notice opens a dialog
func (n Notification) Openable() bool {
	return n.Kind == NotifyChatPreview
}

// Display returns the notice body as shown to the user
func (n Notification) Display() string {
	content := strings.Trim(n.Content, `"`)
	if n.FromName != "" {
		return n.FromName + ": " + content
	}
	return content
}

// Timer is a pending scheduled callback
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NotificationQueue is the ordered list of visible notices. Insertion order
// is display order.
//
// The queue is not safe for concurrent use. Expiry callbacks run on timer
// goroutines and are handed to onExpire, which must funnel back through the
// owner's serialization point before touching the queue.
type NotificationQueue struct {
	items     []Notification
	timers    map[uuid.UUID]Timer
	scheduler Scheduler
	onExpire  func(id uuid.UUID)
}

// NewNotificationQueue creates an empty queue. A nil scheduler uses real timers.
func NewNotificationQueue(scheduler Scheduler, onExpire func(id uuid.UUID)) *NotificationQueue {
	if scheduler == nil {
		scheduler = realScheduler{}
	}
	return &NotificationQueue{
		timers:    make(map[uuid.UUID]Timer),
		scheduler: scheduler,
		onExpire:  onExpire,
	}
}

// Push appends n and, if it has a TTL, schedules its dismissal.
func (q *NotificationQueue) Push(n Notification) uuid.UUID {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	q.items = append(q.items, n)
	if n.TTL > 0 && q.onExpire != nil {
		id := n.ID
		q.timers[id] = q.scheduler.AfterFunc(n.TTL, func() { q.onExpire(id) })
	}
	return n.ID
}

// Dismiss removes the notice with id and cancels its expiry if still
// pending. Dismissing an absent id is a no-op.
func (q *NotificationQueue) Dismiss(id uuid.UUID) bool {
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// ClearAll empties the queue. Pending expiry timers are left to fire; each
// finds nothing to remove.
func (q *NotificationQueue) ClearAll() {
	q.items = nil
}

// Items returns a copy of the queue in display order
func (q *NotificationQueue) Items() []Notification {
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of visible notices
func (q *NotificationQueue) Len() int {
	return len(q.items)
}

// Pending returns the number of expiry timers not yet fired or cancelled
func (q *NotificationQueue) Pending() int {
	return len(q.timers)
}
