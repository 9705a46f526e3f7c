package modal

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ConnectionFailedModal reports that the socket reached a terminal state.
// There is no reconnection: the user can keep reading or quit.
type ConnectionFailedModal struct {
	address string
	reason  string
	onQuit  func() tea.Cmd
}

// NewConnectionFailedModal creates the modal
func NewConnectionFailedModal(address, reason string, onQuit func() tea.Cmd) *ConnectionFailedModal {
	return &ConnectionFailedModal{address: address, reason: reason, onQuit: onQuit}
}

func (m *ConnectionFailedModal) Kind() Kind {
	return KindDisconnected
}

// HandleKey processes keyboard input
func (m *ConnectionFailedModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	switch msg.String() {
	case "q":
		var cmd tea.Cmd
		if m.onQuit != nil {
			cmd = m.onQuit()
		}
		return true, nil, cmd
	case "esc", "enter":
		return true, nil, nil
	}
	return true, m, nil
}

// Render returns the modal content
func (m *ConnectionFailedModal) Render(width, height int) string {
	errorColor := lipgloss.Color("#FF5555")

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(errorColor).
		Render("Disconnected")
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Render(m.address + "\n\n" + m.reason)
	hint := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true).
		Render("[Esc] Keep reading  [q] Quit")

	modalWidth := 50
	if width < modalWidth+4 {
		modalWidth = width - 4
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(errorColor).
		Padding(1, 2).
		Width(modalWidth - 4).
		Render(title + "\n\n" + body + "\n\n" + hint)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// IsBlockingInput returns whether this modal blocks input to the main view
func (m *ConnectionFailedModal) IsBlockingInput() bool {
	return true
}
