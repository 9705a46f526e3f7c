package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, f *Frame)
	}{
		{
			name:  "message",
			input: `message:{"id":7,"room":"main","from_id":"s2","from_name":"Bob","content":"hi","time":"","is_own":null}`,
			check: func(t *testing.T, f *Frame) {
				require.NotNil(t, f.Message)
				assert.Equal(t, ChatMessage{ID: "7", Room: "main", FromID: "s2", FromName: "Bob", Content: "hi"}, *f.Message)
			},
		},
		{
			name:  "update session",
			input: `update_session:{"room":"lobby","name":"Alice"}`,
			check: func(t *testing.T, f *Frame) {
				require.NotNil(t, f.Session)
				assert.Equal(t, "lobby", f.Session.Room)
				assert.Equal(t, "Alice", f.Session.Name)
			},
		},
		{
			name:  "list",
			input: `list:{"main":{"s1":"Alice"},"dev":{}}`,
			check: func(t *testing.T, f *Frame) {
				assert.Equal(t, RoomListMessage{"main": {"s1": "Alice"}, "dev": {}}, f.List)
			},
		},
		{
			name:  "join room",
			input: `join_room:{"session_id":"s2","name":"Bob","room":"main"}`,
			check: func(t *testing.T, f *Frame) {
				require.NotNil(t, f.Change)
				assert.Equal(t, RoomChangeMessage{SessionID: "s2", Name: "Bob", Room: "main"}, *f.Change)
			},
		},
		{
			name:  "quit room",
			input: `quit_room:{"session_id":"s2","name":"Bob","room":"main"}`,
			check: func(t *testing.T, f *Frame) {
				require.NotNil(t, f.Change)
				assert.Equal(t, "s2", f.Change.SessionID)
			},
		},
		{
			name:  "update name",
			input: `update_name:{"session_id":"s2","name":"Robert","old_name":"Bob"}`,
			check: func(t *testing.T, f *Frame) {
				require.NotNil(t, f.Rename)
				assert.Equal(t, UpdateNameMessage{SessionID: "s2", Name: "Robert", OldName: "Bob"}, *f.Rename)
			},
		},
		{
			name:  "payload containing another tag",
			input: `message:{"id":1,"room":"main","content":"list:{}"}`,
			check: func(t *testing.T, f *Frame) {
				require.NotNil(t, f.Message)
				assert.Equal(t, "list:{}", f.Message.Content)
			},
		},
		{
			name:  "unknown fields ignored",
			input: `join_room:{"session_id":"s9","name":"Eve","room":"x","extra":true}`,
			check: func(t *testing.T, f *Frame) {
				assert.Equal(t, "s9", f.Change.SessionID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame(tt.input)
			require.NoError(t, err)
			tt.check(t, f)
		})
	}
}

func TestDecodeFrameKinds(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			got, _, err := SplitTag(kind.Prefix() + "{}")
			require.NoError(t, err)
			assert.Equal(t, kind, got)
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  error
		wantKind Kind
	}{
		{name: "empty", input: "", wantErr: ErrEmptyFrame},
		{name: "bare chat text", input: "hello there", wantErr: ErrUnknownPrefix},
		{name: "unknown tag", input: "typing:{}", wantErr: ErrUnknownPrefix},
		{name: "tag is case sensitive", input: `MESSAGE:{"id":1}`, wantErr: ErrUnknownPrefix},
		{name: "presence text", input: PresenceText, wantErr: ErrUnknownPrefix},
		{name: "truncated json", input: `message:{"id":1,`, wantErr: ErrMalformedPayload, wantKind: KindMessage},
		{name: "negative message id", input: `message:{"id":-1,"room":"main"}`, wantErr: ErrMalformedPayload, wantKind: KindMessage},
		{name: "fractional message id", input: `message:{"id":1.5,"room":"main"}`, wantErr: ErrMalformedPayload, wantKind: KindMessage},
		{name: "wrong shape", input: `list:["main"]`, wantErr: ErrMalformedPayload, wantKind: KindList},
		{name: "wrong field type", input: `join_room:{"session_id":5}`, wantErr: ErrMalformedPayload, wantKind: KindJoinRoom},
		{name: "null payload", input: `quit_room:null`, wantErr: ErrMalformedPayload, wantKind: KindQuitRoom},
		{name: "empty payload", input: `update_name:`, wantErr: ErrMalformedPayload, wantKind: KindUpdateName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
			if tt.wantKind != KindUnknown {
				require.NotNil(t, f)
				assert.Equal(t, tt.wantKind, f.Kind)
			}
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	text, err := EncodeFrame(NewJoinFrame("s2", "Bob", "main"))
	require.NoError(t, err)
	assert.Equal(t, `join_room:{"session_id":"s2","name":"Bob","room":"main"}`, text)

	text, err = EncodeFrame(NewListFrame(nil))
	require.NoError(t, err)
	assert.Equal(t, `list:{}`, text)

	text, err = EncodeFrame(NewMessageFrame(ChatMessage{ID: NewMessageID(3), Room: "main", Content: "<b>&</b>"}))
	require.NoError(t, err)
	assert.Contains(t, text, `"content":"<b>&</b>"`)
	assert.Contains(t, text, `"is_own":null`)
}

const maxU128 = "340282366920938463463374607431768211455"

func TestDecodeMessageWideID(t *testing.T) {
	f, err := DecodeFrame(`message:{"id":` + maxU128 + `,"room":"main","from_id":"s2","from_name":"Bob","content":"hi","time":"","is_own":null}`)
	require.NoError(t, err)
	require.NotNil(t, f.Message)
	assert.Equal(t, MessageID(maxU128), f.Message.ID)
	assert.False(t, f.Message.ID.IsLocal())
	assert.Equal(t, "hi", f.Message.Content)

	text, err := EncodeFrame(f)
	require.NoError(t, err)
	assert.Contains(t, text, `"id":`+maxU128+`,`)
}

func TestMessageIDDecode(t *testing.T) {
	tests := []struct {
		payload string
		want    MessageID
		wantErr bool
	}{
		{payload: `0`, want: "0"},
		{payload: `18446744073709551616`, want: "18446744073709551616"},
		{payload: maxU128, want: maxU128},
		{payload: `-1`, wantErr: true},
		{payload: `007`, wantErr: true},
		{payload: `1e3`, wantErr: true},
		{payload: `"7"`, wantErr: true},
		{payload: `null`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			var id MessageID
			err := id.UnmarshalJSON([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestMessageIDEncode(t *testing.T) {
	b, err := NewMessageID(42).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "42", string(b))

	local := LocalMessageID(3)
	assert.True(t, local.IsLocal())
	b, err = local.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "-3", string(b))

	b, err = MessageID("").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "0", string(b), "an unset id encodes as zero")

	_, err = MessageID("abc").MarshalJSON()
	assert.Error(t, err)
}

func TestEncodeFrameMissingPayload(t *testing.T) {
	_, err := EncodeFrame(&Frame{Kind: KindMessage})
	assert.Error(t, err)

	_, err = EncodeFrame(&Frame{Kind: KindUnknown})
	assert.Error(t, err)
}

func TestOwnFlag(t *testing.T) {
	tests := []struct {
		payload string
		want    OwnFlag
	}{
		{`{}`, false},
		{`{"is_own":null}`, false},
		{`{"is_own":false}`, false},
		{`{"is_own":true}`, true},
		{`{"is_own":[]}`, true},
		{`{"is_own":{}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			var m ChatMessage
			require.NoError(t, m.Decode([]byte(tt.payload)))
			assert.Equal(t, tt.want, m.IsOwn)
		})
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   \n"))
	assert.True(t, IsBlank("\n\n\t \n"))
	assert.False(t, IsBlank(" a "))
	assert.False(t, IsBlank("line\n"))
}

func TestEncodeChatIsBare(t *testing.T) {
	assert.Equal(t, "message: not a tag", EncodeChat("message: not a tag"))
}
