package ui

import (
	"context"
	"time"

	"github.com/aeolun/roomsync/pkg/client"
	"github.com/aeolun/roomsync/pkg/client/ui/modal"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncController is the slice of client.Controller the UI drives
type SyncController interface {
	Snapshot() client.Snapshot
	Transcript(room string) string
	Members(room string) []client.Member
	SendChat(ctx context.Context, content string) error
	OpenDialog(room string)
	OpenDefaultDialog() string
	OpenNotification(id uuid.UUID) bool
	CloseDialog()
	SwitchFocusedRoom(room string) bool
	DismissNotification(id uuid.UUID) bool
	Notify(n client.Notification) uuid.UUID
	Updates() <-chan struct{}
}

// UpdateMsg signals that the controller state changed
type UpdateMsg struct{}

// SendResultMsg carries the outcome of a composer send
type SendResultMsg struct {
	Err error
}

// SessionEndedMsg is sent when the socket session returns
type SessionEndedMsg struct {
	Err error
}

// Options tunes the model
type Options struct {
	NoticeLimit int           // notices rendered at once (0 = 5)
	SendTimeout time.Duration // per-send write bound (0 = client.DefaultWriteTimeout)
	Logger      *zap.Logger
}

// Model is the terminal front end: a notice stack while no dialog is open,
// and a room dialog with transcript, roster and composer when one is.
type Model struct {
	ctrl   SyncController
	conn   client.ConnectionInterface // optional, for the status line
	logger *zap.Logger

	noticeLimit int
	sendTimeout time.Duration

	snapshot   client.Snapshot
	modalStack modal.Stack

	width        int
	height       int
	noticeCursor int

	transcript viewport.Model
	composer   textarea.Model
}

// NewModel creates the UI model for ctrl. conn may be nil.
func NewModel(ctrl SyncController, conn client.ConnectionInterface, opts Options) Model {
	if opts.NoticeLimit <= 0 {
		opts.NoticeLimit = 5
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = client.DefaultWriteTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	// Create textarea for the composer
	ta := textarea.New()
	ta.Placeholder = "Type a message... (Enter to send, Alt+Enter for a new line)"
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.SetWidth(80) // Will be resized dynamically
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle() // Remove cursor line styling
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false) // Enter sends; Alt+Enter is handled by the model

	ta.FocusedStyle.Base = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 1)
	ta.BlurredStyle.Base = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Padding(0, 1)

	m := Model{
		ctrl:        ctrl,
		conn:        conn,
		logger:      opts.Logger.With(zap.String("component", "ui")),
		noticeLimit: opts.NoticeLimit,
		sendTimeout: opts.SendTimeout,
		transcript:  viewport.New(80, 20),
		composer:    ta,
		width:       100,
		height:      30,
	}
	m.refresh()
	return m
}

// Init starts listening for controller updates
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForUpdate(m.ctrl.Updates()))
}

// waitForUpdate blocks until the controller signals a change
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return UpdateMsg{}
	}
}

// sendChat writes the composer content through the controller
func sendChat(ctrl SyncController, content string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return SendResultMsg{Err: ctrl.SendChat(ctx, content)}
	}
}

// refresh pulls a fresh snapshot and syncs the dialog widgets with it
func (m *Model) refresh() {
	m.snapshot = m.ctrl.Snapshot()

	if n := len(m.snapshot.Notifications); m.noticeCursor >= n {
		m.noticeCursor = max(n-1, 0)
	}

	if !m.snapshot.DialogOpen {
		m.composer.Blur()
		return
	}
	m.composer.Focus()

	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(m.renderTranscript(m.snapshot.ActiveRoom))
	if atBottom {
		m.transcript.GotoBottom()
	}
}

// dialogRooms lists the rooms the dialog can switch between. The active
// room is included even before the directory lists it.
func (m Model) dialogRooms() []string {
	rooms := m.snapshot.Rooms
	active := m.snapshot.ActiveRoom
	if active == "" {
		return rooms
	}
	for _, r := range rooms {
		if r == active {
			return rooms
		}
	}
	return append(append([]string{}, rooms...), active)
}

// selectedNotice returns the notice under the cursor
func (m Model) selectedNotice() (client.Notification, bool) {
	notes := m.snapshot.Notifications
	if len(notes) == 0 || m.noticeCursor < 0 || m.noticeCursor >= len(notes) {
		return client.Notification{}, false
	}
	return notes[m.noticeCursor], true
}

// layout sizes the transcript and composer for the window
func (m *Model) layout() {
	sideWidth := m.sideWidth()
	centerWidth := max(m.width-2*sideWidth-6, 20)
	composerHeight := 5
	bodyHeight := max(m.height-composerHeight-4, 5)

	m.transcript.Width = centerWidth - 4
	m.transcript.Height = bodyHeight - 2
	m.composer.SetWidth(max(m.width-4, 10))
	if m.snapshot.DialogOpen {
		m.transcript.SetContent(m.renderTranscript(m.snapshot.ActiveRoom))
	}
}

func (m Model) sideWidth() int {
	return min(max(m.width/5, 12), 28)
}
