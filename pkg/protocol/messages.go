package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errNullPayload = errors.New("payload is null")

// ProtocolMessage interface - all frame payloads implement this
type ProtocolMessage interface {
	// Encode serializes the payload to bytes (convenience wrapper)
	Encode() ([]byte, error)
	// EncodeTo serializes the payload directly to a writer
	EncodeTo(w io.Writer) error
	// Decode deserializes the payload from bytes
	Decode(payload []byte) error
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// decodeJSON rejects a bare null, which json.Unmarshal would silently accept
// as the zero value.
func decodeJSON(payload []byte, v any) error {
	if bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return errNullPayload
	}
	return json.Unmarshal(payload, v)
}

func encodeBytes(m ProtocolMessage) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	// json.Encoder terminates every value with a newline; frames carry none.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// OwnFlag decodes the loosely typed is_own field. The server sends null when
// the message is not the receiver's own and a non-null marker when it is.
type OwnFlag bool

func (f OwnFlag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("true"), nil
	}
	return []byte("null"), nil
}

func (f *OwnFlag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null", "false":
		*f = false
	default:
		*f = true
	}
	return nil
}

// MessageID is a chat message id kept as its decimal digits. The server
// numbers messages with unsigned integers up to 128 bits wide, which no Go
// integer holds. Locally composed entries carry negative ids, which the wire
// never does.
type MessageID string

// NewMessageID formats a server-assigned id
func NewMessageID(n uint64) MessageID {
	return MessageID(strconv.FormatUint(n, 10))
}

// LocalMessageID formats the id of the nth locally composed entry (n >= 1)
func LocalMessageID(n uint64) MessageID {
	return MessageID("-" + strconv.FormatUint(n, 10))
}

// IsLocal reports whether the id was assigned by this client
func (id MessageID) IsLocal() bool {
	return strings.HasPrefix(string(id), "-")
}

func (id MessageID) String() string {
	if id == "" {
		return "0"
	}
	return string(id)
}

func (id MessageID) MarshalJSON() ([]byte, error) {
	s := id.String()
	if !isDecimal(strings.TrimPrefix(s, "-")) {
		return nil, fmt.Errorf("message id %q is not an integer", s)
	}
	return []byte(s), nil
}

// UnmarshalJSON accepts a JSON integer of any size; the wire never carries
// signs, fractions or exponents.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if !isDecimal(s) {
		return fmt.Errorf("message id %s is not an unsigned integer", data)
	}
	*id = MessageID(s)
	return nil
}

// isDecimal matches the JSON grammar for a non-negative integer
func isDecimal(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ChatMessage (message:) - one chat line delivered to a room
type ChatMessage struct {
	ID       MessageID `json:"id"`
	Room     string    `json:"room"`
	FromID   string    `json:"from_id"`
	FromName string    `json:"from_name"`
	Content  string    `json:"content"`
	Time     string    `json:"time"`
	IsOwn    OwnFlag   `json:"is_own"`
}

func (m *ChatMessage) EncodeTo(w io.Writer) error { return encodeJSON(w, m) }

func (m *ChatMessage) Encode() ([]byte, error) { return encodeBytes(m) }

func (m *ChatMessage) Decode(payload []byte) error {
	var decoded ChatMessage
	if err := decodeJSON(payload, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// UpdateSessionMessage (update_session:) - the room the server considers
// current for this session, and the session's display name.
type UpdateSessionMessage struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

func (m *UpdateSessionMessage) EncodeTo(w io.Writer) error { return encodeJSON(w, m) }

func (m *UpdateSessionMessage) Encode() ([]byte, error) { return encodeBytes(m) }

func (m *UpdateSessionMessage) Decode(payload []byte) error {
	var decoded UpdateSessionMessage
	if err := decodeJSON(payload, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// RoomListMessage (list:) - the full directory, room -> session id -> name
type RoomListMessage map[string]map[string]string

func (m *RoomListMessage) EncodeTo(w io.Writer) error {
	if *m == nil {
		return encodeJSON(w, map[string]map[string]string{})
	}
	return encodeJSON(w, map[string]map[string]string(*m))
}

func (m *RoomListMessage) Encode() ([]byte, error) { return encodeBytes(m) }

func (m *RoomListMessage) Decode(payload []byte) error {
	var decoded map[string]map[string]string
	if err := decodeJSON(payload, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// RoomChangeMessage (join_room:, quit_room:) - one session entering or
// leaving one room.
type RoomChangeMessage struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Room      string `json:"room"`
}

func (m *RoomChangeMessage) EncodeTo(w io.Writer) error { return encodeJSON(w, m) }

func (m *RoomChangeMessage) Encode() ([]byte, error) { return encodeBytes(m) }

func (m *RoomChangeMessage) Decode(payload []byte) error {
	var decoded RoomChangeMessage
	if err := decodeJSON(payload, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// UpdateNameMessage (update_name:) - a session changed its display name
type UpdateNameMessage struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	OldName   string `json:"old_name"`
}

func (m *UpdateNameMessage) EncodeTo(w io.Writer) error { return encodeJSON(w, m) }

func (m *UpdateNameMessage) Encode() ([]byte, error) { return encodeBytes(m) }

func (m *UpdateNameMessage) Decode(payload []byte) error {
	var decoded UpdateNameMessage
	if err := decodeJSON(payload, &decoded); err != nil {
		return err
	}
	*m = decoded
	return nil
}

// NewMessageFrame builds a message: frame.
func NewMessageFrame(msg ChatMessage) *Frame {
	return &Frame{Kind: KindMessage, Message: &msg}
}

// NewListFrame builds a list: frame.
func NewListFrame(rooms RoomListMessage) *Frame {
	return &Frame{Kind: KindList, List: rooms}
}

// NewJoinFrame builds a join_room: frame.
func NewJoinFrame(sessionID, name, room string) *Frame {
	return &Frame{Kind: KindJoinRoom, Change: &RoomChangeMessage{SessionID: sessionID, Name: name, Room: room}}
}

// NewQuitFrame builds a quit_room: frame.
func NewQuitFrame(sessionID, name, room string) *Frame {
	return &Frame{Kind: KindQuitRoom, Change: &RoomChangeMessage{SessionID: sessionID, Name: name, Room: room}}
}

// NewUpdateSessionFrame builds an update_session: frame.
func NewUpdateSessionFrame(room, name string) *Frame {
	return &Frame{Kind: KindUpdateSession, Session: &UpdateSessionMessage{Room: room, Name: name}}
}

// NewUpdateNameFrame builds an update_name: frame.
func NewUpdateNameFrame(sessionID, name, oldName string) *Frame {
	return &Frame{Kind: KindUpdateName, Rename: &UpdateNameMessage{SessionID: sessionID, Name: name, OldName: oldName}}
}
