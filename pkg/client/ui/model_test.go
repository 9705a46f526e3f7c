package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aeolun/roomsync/pkg/client"
	"github.com/aeolun/roomsync/pkg/client/ui/modal"
	"github.com/aeolun/roomsync/pkg/protocol"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (Model, *client.Controller, *client.MockConnection) {
	t.Helper()
	conn := client.NewMockConnection("ws://localhost:8080/ws/ws/alice")
	conn.SetState(client.StateOpen)
	ctrl := client.NewController(conn, client.UserLookupFunc(func() (client.CurrentUser, error) {
		return client.CurrentUser{DisplayName: "alice"}, nil
	}))
	ctrl.HandleOpen(context.Background())

	m := NewModel(ctrl, conn, Options{NoticeLimit: 3})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, ctrl, conn
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func deliver(t *testing.T, ctrl *client.Controller, f *protocol.Frame) {
	t.Helper()
	text, err := protocol.EncodeFrame(f)
	require.NoError(t, err)
	ctrl.HandleFrame(text)
}

func chat(room, from, content string) *protocol.Frame {
	return protocol.NewMessageFrame(protocol.ChatMessage{ID: protocol.NewMessageID(1), Room: room, FromID: from, FromName: from, Content: content})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "alt+enter":
		return tea.KeyMsg{Type: tea.KeyEnter, Alt: true}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestModel_EmptyNoticeView(t *testing.T) {
	m, _, _ := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "roomsync")
	assert.Contains(t, view, "No notifications")
	assert.Contains(t, view, "as alice")
}

func TestModel_PreviewShownAndOpened(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	deliver(t, ctrl, chat("random", "bob", "hi there"))
	m = update(t, m, UpdateMsg{})

	require.Len(t, m.snapshot.Notifications, 1)
	assert.Contains(t, m.View(), "bob: hi there")

	m = update(t, m, key("enter"))

	snap := ctrl.Snapshot()
	assert.True(t, snap.DialogOpen)
	assert.Equal(t, "random", snap.ActiveRoom)
	assert.Empty(t, snap.Notifications, "opening a dialog clears notices")
	assert.True(t, m.snapshot.DialogOpen)
	assert.Contains(t, m.View(), "bob: hi there", "transcript shows the history")
}

func TestModel_NoticeCursorAndDismiss(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	deliver(t, ctrl, chat("main", "bob", "one"))
	deliver(t, ctrl, chat("main", "carol", "two"))
	m = update(t, m, UpdateMsg{})
	require.Len(t, m.snapshot.Notifications, 2)

	m = update(t, m, key("down"))
	assert.Equal(t, 1, m.noticeCursor)
	m = update(t, m, key("down"))
	assert.Equal(t, 1, m.noticeCursor, "cursor stops at the last notice")

	m = update(t, m, key("x"))
	notes := ctrl.Snapshot().Notifications
	require.Len(t, notes, 1)
	assert.Equal(t, "one", notes[0].Content)
	assert.Equal(t, 0, m.noticeCursor, "cursor is clamped after dismissal")
}

func TestModel_NonOpenableNoticeStaysClosed(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	ctrl.Notify(client.Error("boom"))
	m = update(t, m, UpdateMsg{})
	m = update(t, m, key("enter"))

	assert.False(t, ctrl.Snapshot().DialogOpen)
	assert.Len(t, m.snapshot.Notifications, 1)
}

func TestModel_NoticeLimit(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	for _, c := range []string{"a1", "a2", "a3", "a4", "a5"} {
		deliver(t, ctrl, chat("main", "bob", c))
	}
	m = update(t, m, UpdateMsg{})

	view := m.View()
	assert.Contains(t, view, "+2 more")
	assert.Contains(t, view, "bob: a1", "the cursor notice stays visible")
}

func TestModel_OpenDefaultAndSend(t *testing.T) {
	m, ctrl, conn := newTestModel(t)

	deliver(t, ctrl, protocol.NewUpdateSessionFrame("main", "alice"))
	m = update(t, m, UpdateMsg{})
	m = update(t, m, key("o"))
	require.True(t, m.snapshot.DialogOpen)
	assert.Equal(t, "main", m.snapshot.ActiveRoom)

	m = update(t, m, key("hello"))
	assert.Equal(t, "hello", m.composer.Value())

	m, cmd := updateCmd(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.Empty(t, m.composer.Value(), "composer resets on send")

	res, ok := cmd().(SendResultMsg)
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, []string{protocol.EncodeChat("hello")}, conn.Sent())

	m = update(t, m, UpdateMsg{})
	assert.Contains(t, m.View(), "alice: hello")
}

func TestModel_BlankEnterSendsNothing(t *testing.T) {
	m, ctrl, conn := newTestModel(t)
	ctrl.OpenDialog("main")
	m = update(t, m, UpdateMsg{})

	m = update(t, m, key("   "))
	_, cmd := updateCmd(t, m, key("enter"))
	assert.Nil(t, cmd)
	assert.Empty(t, conn.Sent())
}

func TestModel_AltEnterInsertsNewline(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.OpenDialog("main")
	m = update(t, m, UpdateMsg{})

	m = update(t, m, key("a"))
	m = update(t, m, key("alt+enter"))
	m = update(t, m, key("b"))

	assert.Equal(t, "a\nb", m.composer.Value())
}

func TestModel_EscClosesDialog(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	ctrl.OpenDialog("main")
	m = update(t, m, UpdateMsg{})

	m = update(t, m, key("esc"))
	assert.False(t, ctrl.Snapshot().DialogOpen)
	assert.False(t, m.snapshot.DialogOpen)
	assert.Contains(t, m.View(), "No notifications")
}

func TestModel_TabSwitchesRooms(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	deliver(t, ctrl, protocol.NewListFrame(protocol.RoomListMessage{
		"main":   {"alice": "alice"},
		"random": {"bob": "bob"},
	}))
	ctrl.OpenDialog("main")
	m = update(t, m, UpdateMsg{})

	m = update(t, m, key("tab"))
	assert.Equal(t, "random", ctrl.Snapshot().ActiveRoom)
	assert.Contains(t, m.View(), "bob")

	m = update(t, m, key("tab"))
	assert.Equal(t, "main", ctrl.Snapshot().ActiveRoom, "wraps around")

	update(t, m, key("shift+tab"))
	assert.Equal(t, "random", ctrl.Snapshot().ActiveRoom)
}

func TestModel_DialogIncludesUnlistedActiveRoom(t *testing.T) {
	m, ctrl, _ := newTestModel(t)
	deliver(t, ctrl, protocol.NewListFrame(protocol.RoomListMessage{"random": {"bob": "bob"}}))
	ctrl.OpenDialog("main")
	m = update(t, m, UpdateMsg{})

	assert.Equal(t, []string{"random", "main"}, m.dialogRooms())
}

func TestModel_SendWithoutRoomWarns(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	update(t, m, SendResultMsg{Err: client.ErrNoRoom})

	notes := ctrl.Snapshot().Notifications
	require.Len(t, notes, 1)
	assert.Equal(t, client.NotifyWarning, notes[0].Kind)
}

func TestModel_SendFailureLeavesNoticeToController(t *testing.T) {
	m, ctrl, conn := newTestModel(t)
	conn.SetSendError(errors.New("broken pipe"))
	ctrl.OpenDialog("main")
	m = update(t, m, UpdateMsg{})

	m = update(t, m, key("hi"))
	m, cmd := updateCmd(t, m, key("enter"))
	require.NotNil(t, cmd)
	res := cmd().(SendResultMsg)
	require.Error(t, res.Err)

	update(t, m, res)
	notes := ctrl.Snapshot().Notifications
	require.Len(t, notes, 1)
	assert.Equal(t, client.NotifyDanger, notes[0].Kind)
}

func TestModel_HelpModal(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(t, m, key("?"))
	require.NotNil(t, m.modalStack.Top())
	require.Equal(t, modal.KindHelp, m.modalStack.Top().Kind())
	assert.Contains(t, m.View(), "Alt+Enter")

	m = update(t, m, key("esc"))
	assert.Nil(t, m.modalStack.Top())
}

func TestModel_SessionEndedShowsModal(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(t, m, SessionEndedMsg{Err: errors.New("dial refused")})
	require.NotNil(t, m.modalStack.Top())
	require.Equal(t, modal.KindDisconnected, m.modalStack.Top().Kind())

	view := m.View()
	assert.Contains(t, view, "Disconnected")
	assert.Contains(t, view, "dial refused")

	// Keys other than the modal's own are swallowed
	m = update(t, m, key("o"))
	assert.False(t, m.snapshot.DialogOpen)

	_, cmd := updateCmd(t, m, key("q"))
	assert.True(t, isQuit(cmd))
}

func TestModel_SessionEndedClosesHelp(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(t, m, key("?"))
	m = update(t, m, SessionEndedMsg{Err: errors.New("reset by peer")})
	require.NotNil(t, m.modalStack.Top())
	assert.Equal(t, modal.KindDisconnected, m.modalStack.Top().Kind())

	// Closing the disconnect notice returns to the notices, not to help
	m = update(t, m, key("esc"))
	assert.Nil(t, m.modalStack.Top())
}

func TestModel_SessionEndedEscKeepsReading(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = update(t, m, SessionEndedMsg{})
	assert.Contains(t, m.View(), "closed the connection")

	m = update(t, m, key("esc"))
	assert.Nil(t, m.modalStack.Top())
}

func TestModel_Quit(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	_, cmd := updateCmd(t, m, key("q"))
	assert.True(t, isQuit(cmd))

	_, cmd = updateCmd(t, m, key("ctrl+c"))
	assert.True(t, isQuit(cmd))

	// In the dialog q is text, not quit
	ctrl.OpenDialog("main")
	m = update(t, m, UpdateMsg{})
	m, cmd = updateCmd(t, m, key("q"))
	assert.False(t, isQuit(cmd))
	assert.Equal(t, "q", m.composer.Value())
}

func TestModel_WaitForUpdate(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	ctrl.Notify(client.Info("ping"))
	msg := waitForUpdate(ctrl.Updates())()
	assert.IsType(t, UpdateMsg{}, msg)

	m = update(t, m, msg)
	assert.Len(t, m.snapshot.Notifications, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel…", truncate("hello world", 4))
	assert.Equal(t, "", truncate("hello", 0))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("x", 50), 10), "…"))
}
