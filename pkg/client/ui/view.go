package ui

import (
	"fmt"
	"strings"

	"github.com/aeolun/roomsync/pkg/client"
	"github.com/charmbracelet/lipgloss"
)

// View renders the current state
func (m Model) View() string {
	if top := m.modalStack.Top(); top != nil {
		return top.Render(m.width, m.height)
	}

	var body string
	if m.snapshot.DialogOpen {
		body = m.renderDialog()
	} else {
		body = m.renderNotices(m.noticeLimit)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := Styles.Title.Render("roomsync")

	state := m.snapshot.Connection
	status := lipgloss.NewStyle().Foreground(stateColor(state)).Render("● " + state.String())
	if m.conn != nil && m.conn.GetAddress() != "" {
		status += Styles.Muted.Render("  " + m.conn.GetAddress())
	}
	if id := m.snapshot.LocalSessionID; id != "" {
		status += Styles.Muted.Render("  as " + id)
	}

	return title + "  " + status
}

func (m Model) renderFooter() string {
	if m.snapshot.DialogOpen {
		return Styles.Footer.Render("[Enter] Send  [Alt+Enter] New line  [Tab] Next room  [Esc] Close  [?] Help")
	}
	return Styles.Footer.Render("[↑/↓] Select  [Enter] Open  [x] Dismiss  [o] Open room  [?] Help  [q] Quit")
}

// renderNotices renders at most limit notices, newest last
func (m Model) renderNotices(limit int) string {
	notes := m.snapshot.Notifications
	if len(notes) == 0 {
		return Styles.Muted.Render("No notifications. Press o to open a room.")
	}

	start := 0
	if len(notes) > limit {
		start = len(notes) - limit
	}
	// Keep the cursor visible
	if m.noticeCursor < start {
		start = m.noticeCursor
	}
	end := min(start+limit, len(notes))

	width := max(m.width-4, 20)
	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, m.renderNotice(notes[i], i == m.noticeCursor, width))
	}
	if hidden := len(notes) - (end - start); hidden > 0 {
		lines = append(lines, Styles.Muted.Render(fmt.Sprintf("+%d more", hidden)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNotice(n client.Notification, selected bool, width int) string {
	color := kindColor(n.Kind)

	label := lipgloss.NewStyle().Bold(true).Foreground(color).Render(n.Label)
	content := truncate(strings.ReplaceAll(n.Display(), "\n", " "), width-lipgloss.Width(n.Label)-6)

	border := MutedColor
	if selected {
		border = color
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(border).
		PaddingLeft(1).
		Render(label + "  " + content)
}

// renderDialog renders rooms, transcript and roster side by side above the composer
func (m Model) renderDialog() string {
	side := m.sideWidth()
	paneHeight := m.transcript.Height

	rooms := Styles.Pane.Width(side).Height(paneHeight).Render(m.renderRoomList(side - 2))
	transcript := Styles.ActivePane.Width(m.transcript.Width + 2).Height(paneHeight).Render(m.transcript.View())
	roster := Styles.Pane.Width(side).Height(paneHeight).Render(m.renderRoster(side - 2))

	parts := []string{}
	if len(m.snapshot.Notifications) > 0 {
		// One notice at a time while a dialog is open
		parts = append(parts, m.renderNotices(1))
	}
	parts = append(parts,
		lipgloss.JoinHorizontal(lipgloss.Top, rooms, transcript, roster),
		m.composer.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderRoomList(width int) string {
	lines := []string{Styles.Title.Render("Rooms")}
	for _, room := range m.dialogRooms() {
		name := truncate(room, width-2)
		if room == m.snapshot.ActiveRoom {
			lines = append(lines, Styles.Selected.Render("› "+name))
		} else {
			lines = append(lines, "  "+name)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRoster(width int) string {
	lines := []string{Styles.Title.Render("Members")}
	for _, member := range m.ctrl.Members(m.snapshot.ActiveRoom) {
		name := truncate(member.Name, width)
		if member.SessionID == m.snapshot.LocalSessionID {
			name = Styles.Own.Render(name)
		}
		lines = append(lines, name)
	}
	return strings.Join(lines, "\n")
}

// renderTranscript wraps room's transcript to the viewport width
func (m Model) renderTranscript(room string) string {
	text := strings.TrimRight(m.ctrl.Transcript(room), "\n")
	if text == "" {
		return Styles.Muted.Render("No messages in " + room + " yet.")
	}
	return lipgloss.NewStyle().Width(max(m.transcript.Width, 10)).Render(text)
}

// truncate shortens s to at most width cells
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
