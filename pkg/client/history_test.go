package client

import (
	"testing"

	"github.com/aeolun/roomsync/pkg/protocol"
	"github.com/stretchr/testify/assert"
)

func TestHistoryAppendAndGet(t *testing.T) {
	h := NewHistory()
	h.Append("main", protocol.ChatMessage{ID: "1", Room: "main", FromName: "Bob", Content: "hi"})
	h.Append("main", protocol.ChatMessage{ID: "2", Room: "main", FromName: "Alice", Content: "hey"})
	h.Append("dev", protocol.ChatMessage{ID: "3", Room: "dev", FromName: "Bob", Content: "build broke"})

	mainLog := h.Get("main")
	assert.Len(t, mainLog, 2)
	assert.Equal(t, protocol.MessageID("1"), mainLog[0].ID)
	assert.Equal(t, protocol.MessageID("2"), mainLog[1].ID)
	assert.Equal(t, 1, h.Len("dev"))
	assert.Empty(t, h.Get("unknown"))
	assert.ElementsMatch(t, []string{"main", "dev"}, h.Rooms())
}

func TestHistoryGetReturnsCopy(t *testing.T) {
	h := NewHistory()
	h.Append("main", protocol.ChatMessage{ID: "1", Content: "original"})

	got := h.Get("main")
	got[0].Content = "changed"

	assert.Equal(t, "original", h.Get("main")[0].Content)
}

func TestHistoryKeepsDuplicates(t *testing.T) {
	h := NewHistory()
	msg := protocol.ChatMessage{ID: "7", Room: "main", FromName: "Bob", Content: "again"}
	h.Append("main", msg)
	h.Append("main", msg)

	assert.Equal(t, 2, h.Len("main"))
}

func TestRenderTranscript(t *testing.T) {
	h := NewHistory()
	assert.Equal(t, "", h.RenderTranscript("main"))

	h.Append("main", protocol.ChatMessage{FromName: "Bob", Content: "hello"})
	h.Append("main", protocol.ChatMessage{FromName: "Alice", Content: "line one\nline two"})

	assert.Equal(t, "Bob: hello\n\nAlice: line one\nline two\n\n", h.RenderTranscript("main"))
}
