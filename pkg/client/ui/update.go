package ui

import (
	"errors"

	"github.com/aeolun/roomsync/pkg/client"
	"github.com/aeolun/roomsync/pkg/client/ui/modal"
	"github.com/aeolun/roomsync/pkg/protocol"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case UpdateMsg:
		m.refresh()
		return m, waitForUpdate(m.ctrl.Updates())

	case SendResultMsg:
		if msg.Err != nil {
			m.logger.Warn("Send failed", zap.Error(msg.Err))
			// The controller already raised a notice for write failures
			if errors.Is(msg.Err, client.ErrNoRoom) {
				m.ctrl.Notify(client.Warn("Open a room before sending"))
			}
		}
		return m, nil

	case SessionEndedMsg:
		reason := "The server closed the connection."
		if msg.Err != nil {
			reason = msg.Err.Error()
		}
		address := ""
		if m.conn != nil {
			address = m.conn.GetAddress()
		}
		// Help would hide the disconnect notice behind it
		m.modalStack.Dismiss(modal.KindHelp)
		m.modalStack.Push(modal.NewConnectionFailedModal(address, reason, func() tea.Cmd { return tea.Quit }))
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and anything else the composer cares about
	if m.snapshot.DialogOpen {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey routes a key to the active modal, then to the current view
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if top := m.modalStack.Top(); top != nil {
		handled, next, cmd := top.HandleKey(msg)
		if handled {
			switch {
			case next == nil:
				m.modalStack.Pop()
			case next != top:
				m.modalStack.Pop()
				m.modalStack.Push(next)
			}
			return m, cmd
		}
		if top.IsBlockingInput() {
			return m, nil
		}
	}

	if m.snapshot.DialogOpen {
		return m.handleDialogKey(msg)
	}
	return m.handleNoticeKey(msg)
}

// handleNoticeKey drives the notice stack while no dialog is open
func (m Model) handleNoticeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "?":
		m.modalStack.Push(newHelpModal())
		return m, nil

	case "up", "k":
		if m.noticeCursor > 0 {
			m.noticeCursor--
		}
		return m, nil

	case "down", "j":
		if m.noticeCursor < len(m.snapshot.Notifications)-1 {
			m.noticeCursor++
		}
		return m, nil

	case "enter":
		if n, ok := m.selectedNotice(); ok {
			if !m.ctrl.OpenNotification(n.ID) {
				m.logger.Debug("Notice is not openable", zap.Stringer("kind", n.Kind))
			}
		}
		m.refresh()
		return m, nil

	case "x", "delete", "backspace":
		if n, ok := m.selectedNotice(); ok {
			m.ctrl.DismissNotification(n.ID)
		}
		m.refresh()
		return m, nil

	case "o":
		m.ctrl.OpenDefaultDialog()
		m.refresh()
		return m, nil
	}
	return m, nil
}

// handleDialogKey drives the room dialog: Enter sends, Alt+Enter breaks the line
func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ctrl.CloseDialog()
		m.refresh()
		return m, nil

	case "tab":
		m.switchRoom(1)
		return m, nil

	case "shift+tab":
		m.switchRoom(-1)
		return m, nil

	case "enter":
		content := m.composer.Value()
		if protocol.IsBlank(content) {
			return m, nil
		}
		m.composer.Reset()
		return m, sendChat(m.ctrl, content, m.sendTimeout)

	case "alt+enter":
		m.composer.InsertString("\n")
		return m, nil

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case "ctrl+x":
		// Dismiss the newest notice without leaving the dialog
		if notes := m.snapshot.Notifications; len(notes) > 0 {
			m.ctrl.DismissNotification(notes[len(notes)-1].ID)
			m.refresh()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

// switchRoom moves the dialog focus by step through the room list
func (m *Model) switchRoom(step int) {
	rooms := m.dialogRooms()
	if len(rooms) < 2 {
		return
	}
	idx := 0
	for i, r := range rooms {
		if r == m.snapshot.ActiveRoom {
			idx = i
			break
		}
	}
	next := rooms[(idx+step+len(rooms))%len(rooms)]
	if !m.ctrl.SwitchFocusedRoom(next) {
		m.logger.Debug("Room switch ignored", zap.String("room", next))
	}
	m.transcript.GotoBottom()
	m.refresh()
}

func newHelpModal() modal.Modal {
	return modal.NewHelpModal(
		[]string{"Notices", "Room dialog", "General"},
		map[string][]modal.KeyHelp{
			"Notices": {
				{Keys: "↑/↓", Description: "Select notice"},
				{Keys: "Enter", Description: "Open the notice's room"},
				{Keys: "x", Description: "Dismiss notice"},
				{Keys: "o", Description: "Open a room"},
			},
			"Room dialog": {
				{Keys: "Enter", Description: "Send message"},
				{Keys: "Alt+Enter", Description: "New line"},
				{Keys: "Tab/Shift+Tab", Description: "Next/previous room"},
				{Keys: "PgUp/PgDn", Description: "Scroll transcript"},
				{Keys: "Ctrl+X", Description: "Dismiss newest notice"},
				{Keys: "Esc", Description: "Close dialog"},
			},
			"General": {
				{Keys: "?", Description: "Toggle help"},
				{Keys: "q / Ctrl+C", Description: "Quit"},
			},
		},
	)
}
