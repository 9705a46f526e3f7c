package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Frame tags. Every server-originated structured event starts with exactly one
// of these; outbound chat text is sent bare.
const (
	PrefixMessage       = "message:"
	PrefixUpdateSession = "update_session:"
	PrefixList          = "list:"
	PrefixJoinRoom      = "join_room:"
	PrefixQuitRoom      = "quit_room:"
	PrefixUpdateName    = "update_name:"
)

// PresenceText is sent once by the client when its socket opens.
const PresenceText = "i am back online!"

// tagSeparator terminates the tag of a structured frame. No tag contains it.
const tagSeparator = ':'

var (
	ErrUnknownPrefix    = errors.New("frame has no recognized prefix")
	ErrMalformedPayload = errors.New("malformed frame payload")
	ErrEmptyFrame       = errors.New("empty frame")
)

// Kind identifies the payload carried by a Frame
type Kind uint8

const (
	KindUnknown Kind = iota
	KindMessage
	KindUpdateSession
	KindList
	KindJoinRoom
	KindQuitRoom
	KindUpdateName
)

// kindsByTag maps the tag (prefix without the trailing colon) to its Kind.
// Lookup happens once per frame on the text before the first colon, so a
// payload can never be mistaken for a different tag.
var kindsByTag = map[string]Kind{
	"message":        KindMessage,
	"update_session": KindUpdateSession,
	"list":           KindList,
	"join_room":      KindJoinRoom,
	"quit_room":      KindQuitRoom,
	"update_name":    KindUpdateName,
}

// Prefix returns the wire prefix for the kind, including the colon.
func (k Kind) Prefix() string {
	switch k {
	case KindMessage:
		return PrefixMessage
	case KindUpdateSession:
		return PrefixUpdateSession
	case KindList:
		return PrefixList
	case KindJoinRoom:
		return PrefixJoinRoom
	case KindQuitRoom:
		return PrefixQuitRoom
	case KindUpdateName:
		return PrefixUpdateName
	default:
		return ""
	}
}

func (k Kind) String() string {
	if p := k.Prefix(); p != "" {
		return strings.TrimSuffix(p, ":")
	}
	return "unknown"
}

// Kinds returns all structured kinds in wire priority order.
func Kinds() []Kind {
	return []Kind{KindMessage, KindUpdateSession, KindList, KindJoinRoom, KindQuitRoom, KindUpdateName}
}

// Frame is one decoded inbound text frame. Exactly one payload field is set,
// selected by Kind: JoinRoom and QuitRoom both use Change.
type Frame struct {
	Kind    Kind
	Message *ChatMessage
	Session *UpdateSessionMessage
	List    RoomListMessage
	Change  *RoomChangeMessage
	Rename  *UpdateNameMessage
}

// SplitTag separates a text frame into its Kind and raw payload.
// Text with no recognized tag returns ErrUnknownPrefix.
func SplitTag(text string) (Kind, string, error) {
	if text == "" {
		return KindUnknown, "", ErrEmptyFrame
	}
	idx := strings.IndexByte(text, tagSeparator)
	if idx < 0 {
		return KindUnknown, "", ErrUnknownPrefix
	}
	kind, ok := kindsByTag[text[:idx]]
	if !ok {
		return KindUnknown, "", ErrUnknownPrefix
	}
	return kind, text[idx+1:], nil
}

// DecodeFrame parses one inbound text frame.
//
// A recognized tag followed by an undecodable payload returns an error
// wrapping ErrMalformedPayload together with the Kind, so callers can log
// which event was dropped.
func DecodeFrame(text string) (*Frame, error) {
	kind, payload, err := SplitTag(text)
	if err != nil {
		return nil, err
	}

	f := &Frame{Kind: kind}
	var msg ProtocolMessage
	switch kind {
	case KindMessage:
		f.Message = &ChatMessage{}
		msg = f.Message
	case KindUpdateSession:
		f.Session = &UpdateSessionMessage{}
		msg = f.Session
	case KindList:
		msg = &f.List
	case KindJoinRoom, KindQuitRoom:
		f.Change = &RoomChangeMessage{}
		msg = f.Change
	case KindUpdateName:
		f.Rename = &UpdateNameMessage{}
		msg = f.Rename
	}

	if err := msg.Decode([]byte(payload)); err != nil {
		return &Frame{Kind: kind}, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, kind, err)
	}
	if kind == KindList && f.List == nil {
		f.List = RoomListMessage{}
	}
	return f, nil
}

// EncodeFrame renders a structured frame to its wire text.
func EncodeFrame(f *Frame) (string, error) {
	var msg ProtocolMessage
	missing := false
	switch f.Kind {
	case KindMessage:
		msg, missing = f.Message, f.Message == nil
	case KindUpdateSession:
		msg, missing = f.Session, f.Session == nil
	case KindList:
		msg = &f.List
	case KindJoinRoom, KindQuitRoom:
		msg, missing = f.Change, f.Change == nil
	case KindUpdateName:
		msg, missing = f.Rename, f.Rename == nil
	default:
		return "", fmt.Errorf("cannot encode frame of kind %s", f.Kind)
	}
	if missing {
		return "", fmt.Errorf("%s frame has no payload", f.Kind)
	}
	return EncodeMessage(f.Kind, msg)
}

// EncodeMessage prefixes an encoded payload with the tag for kind.
func EncodeMessage(kind Kind, msg ProtocolMessage) (string, error) {
	prefix := kind.Prefix()
	if prefix == "" {
		return "", fmt.Errorf("cannot encode frame of kind %s", kind)
	}
	if msg == nil {
		return "", fmt.Errorf("%s frame has no payload", kind)
	}
	payload, err := msg.Encode()
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}
	return prefix + string(payload), nil
}

// EncodeChat returns the outbound form of composed chat text. Chat is sent
// bare; the server routes it to the sender's currently joined room.
func EncodeChat(content string) string {
	return content
}

// IsBlank reports whether composed text has nothing to send once newlines
// and surrounding whitespace are trimmed.
func IsBlank(content string) bool {
	return strings.TrimSpace(strings.Trim(content, "\n")) == ""
}
