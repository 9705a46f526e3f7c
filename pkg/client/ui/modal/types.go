package modal

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Kind identifies a modal; a stack holds at most one of each
type Kind int

const (
	KindHelp Kind = iota + 1
	KindDisconnected
)

func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Modal is an overlay that takes keys before the notice stack or dialog
type Modal interface {
	Kind() Kind

	// HandleKey reports whether the key was consumed and what should be on
	// screen afterwards: nil closes the modal, another modal replaces it.
	HandleKey(msg tea.KeyMsg) (handled bool, next Modal, cmd tea.Cmd)

	Render(width, height int) string

	// IsBlockingInput keeps unhandled keys from reaching the view beneath
	IsBlockingInput() bool
}

// Stack holds the open modals; the last pushed one is active
type Stack struct {
	modals []Modal
}

// Push makes m active, dropping any other modal of the same kind
func (s *Stack) Push(m Modal) {
	s.Dismiss(m.Kind())
	s.modals = append(s.modals, m)
}

// Pop closes the active modal
func (s *Stack) Pop() Modal {
	if len(s.modals) == 0 {
		return nil
	}
	m := s.modals[len(s.modals)-1]
	s.modals = s.modals[:len(s.modals)-1]
	return m
}

// Top is the active modal, or nil
func (s *Stack) Top() Modal {
	if len(s.modals) == 0 {
		return nil
	}
	return s.modals[len(s.modals)-1]
}

// Dismiss closes every modal of kind k wherever it sits in the stack
func (s *Stack) Dismiss(k Kind) {
	kept := s.modals[:0]
	for _, m := range s.modals {
		if m.Kind() != k {
			kept = append(kept, m)
		}
	}
	clear(s.modals[len(kept):])
	s.modals = kept
}
