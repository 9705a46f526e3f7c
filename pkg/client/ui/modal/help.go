package modal

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// KeyHelp is one row of the help table
type KeyHelp struct {
	Keys        string
	Description string
}

// HelpModal lists the key bindings
type HelpModal struct {
	sections map[string][]KeyHelp
	order    []string
}

// NewHelpModal creates a help modal. order fixes the section order.
func NewHelpModal(order []string, sections map[string][]KeyHelp) *HelpModal {
	return &HelpModal{sections: sections, order: order}
}

func (m *HelpModal) Kind() Kind {
	return KindHelp
}

// HandleKey closes the modal on esc, ? or q
func (m *HelpModal) HandleKey(msg tea.KeyMsg) (bool, Modal, tea.Cmd) {
	switch msg.String() {
	case "esc", "?", "q", "enter":
		return true, nil, nil
	}
	return true, m, nil
}

// Render returns the modal content
func (m *HelpModal) Render(width, height int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))
	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252"))
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Width(14)
	hintStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys") + "\n")
	for _, name := range m.order {
		b.WriteString("\n" + sectionStyle.Render(name) + "\n")
		for _, k := range m.sections[name] {
			b.WriteString(keyStyle.Render(k.Keys) + k.Description + "\n")
		}
	}
	b.WriteString("\n" + hintStyle.Render("Press Esc or ? to close"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("205")).
		Padding(1, 2).
		Render(b.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// IsBlockingInput returns whether this modal blocks input to the main view
func (m *HelpModal) IsBlockingInput() bool {
	return true
}
