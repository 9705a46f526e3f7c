package client

import (
	"strings"

	"github.com/aeolun/roomsync/pkg/protocol"
)

// History is the per-room, append-only log of chat messages. There is no
// eviction; it lives as long as the client process.
type History struct {
	rooms map[string][]protocol.ChatMessage
}

// NewHistory creates an empty history store
func NewHistory() *History {
	return &History{rooms: make(map[string][]protocol.ChatMessage)}
}

// Append records msg at the end of room's log.
func (h *History) Append(room string, msg protocol.ChatMessage) {
	h.rooms[room] = append(h.rooms[room], msg)
}

// Get returns a copy of room's log in arrival order (empty if unknown).
func (h *History) Get(room string) []protocol.ChatMessage {
	entries := h.rooms[room]
	out := make([]protocol.ChatMessage, len(entries))
	copy(out, entries)
	return out
}

// Len returns the number of messages recorded for room
func (h *History) Len(room string) int {
	return len(h.rooms[room])
}

// Rooms returns every room that has at least one message
func (h *History) Rooms() []string {
	rooms := make([]string, 0, len(h.rooms))
	for room := range h.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// RenderTranscript renders room's log as "{fromName}: {content}\n\n" lines,
// regenerated in full on every call.
func (h *History) RenderTranscript(room string) string {
	var b strings.Builder
	for _, msg := range h.rooms[room] {
		b.WriteString(msg.FromName)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}
