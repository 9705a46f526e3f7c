package ui

import (
	"github.com/aeolun/roomsync/pkg/client"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	PrimaryColor = lipgloss.Color("205")
	MutedColor   = lipgloss.Color("240")
	TextColor    = lipgloss.Color("252")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("214")
	SuccessColor = lipgloss.Color("42")
	InfoColor    = lipgloss.Color("39")
)

// Styles holds the shared component styles
var Styles = struct {
	Title      lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Pane       lipgloss.Style
	ActivePane lipgloss.Style
	Footer     lipgloss.Style
	Own        lipgloss.Style
}{
	Title:      lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor),
	Muted:      lipgloss.NewStyle().Foreground(MutedColor),
	Selected:   lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor),
	Pane:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(MutedColor).Padding(0, 1),
	ActivePane: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(PrimaryColor).Padding(0, 1),
	Footer:     lipgloss.NewStyle().Foreground(MutedColor),
	Own:        lipgloss.NewStyle().Foreground(InfoColor),
}

// kindColor picks the accent for a notice
func kindColor(kind client.NotificationKind) lipgloss.Color {
	switch kind {
	case client.NotifySuccess:
		return SuccessColor
	case client.NotifyWarning:
		return WarningColor
	case client.NotifyDanger:
		return ErrorColor
	case client.NotifyChatPreview:
		return PrimaryColor
	default:
		return InfoColor
	}
}

// stateColor picks the accent for the connection status
func stateColor(state client.ConnectionState) lipgloss.Color {
	switch state {
	case client.StateOpen:
		return SuccessColor
	case client.StateConnecting:
		return WarningColor
	case client.StateErrored, client.StateClosed:
		return ErrorColor
	default:
		return MutedColor
	}
}
