package server

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aeolun/roomsync/pkg/protocol"
	"go.uber.org/zap"
)

// systemSender is the from_id and from_name of hub notices
const systemSender = "server"

var (
	// ErrMessageTooLong is returned for chat text over the configured limit
	ErrMessageTooLong = errors.New("message too long")
	// ErrInvalidName is returned for an empty or oversized display name
	ErrInvalidName = errors.New("invalid name")
	// ErrUnknownCommand is returned for an unrecognized slash command
	ErrUnknownCommand = errors.New("unknown command")
)

// handleMessage dispatches one inbound text frame. Clients send bare text:
// a presence announcement, a slash command or a chat message.
func (s *Server) handleMessage(sess *Session, text string) error {
	switch {
	case text == protocol.PresenceText:
		s.metrics.RecordMessageReceived("presence")
		return nil
	case strings.HasPrefix(text, "/"):
		s.metrics.RecordMessageReceived("command")
		return s.handleCommand(sess, text)
	default:
		s.metrics.RecordMessageReceived("chat")
		return s.handleChat(sess, text)
	}
}

// handleCommand runs /join <room>, /leave and /name <new name>
func (s *Server) handleCommand(sess *Session, text string) error {
	command, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case "/join":
		if arg == "" {
			return fmt.Errorf("usage: /join <room>")
		}
		return s.handleJoin(sess, arg)
	case "/leave":
		return s.handleJoin(sess, s.config.DefaultRoom)
	case "/name":
		return s.handleSetName(sess, arg)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

// handleJoin moves sess to room. Everyone, the mover included, sees the quit
// from the old room and the join to the new one.
func (s *Server) handleJoin(sess *Session, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Room() == room {
		return nil
	}
	old := s.sessions.SetRoom(sess, room)
	name := sess.Name()

	s.broadcast(protocol.NewQuitFrame(sess.ID, name, old), nil)
	s.broadcast(protocol.NewJoinFrame(sess.ID, name, room), nil)
	s.send(sess, protocol.NewUpdateSessionFrame(room, name))

	s.logger.Info("Session moved", zap.String("session_id", sess.ID), zap.String("from", old), zap.String("to", room))
	return nil
}

// handleSetName renames sess and announces it to everyone
func (s *Server) handleSetName(sess *Session, name string) error {
	if name == "" {
		return fmt.Errorf("%w: usage: /name <new name>", ErrInvalidName)
	}
	if s.config.MaxNameLength > 0 && utf8.RuneCountInString(name) > s.config.MaxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, s.config.MaxNameLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.sessions.SetName(sess, name)
	if old == name {
		return nil
	}
	s.broadcast(protocol.NewUpdateNameFrame(sess.ID, name, old), nil)
	s.send(sess, protocol.NewUpdateSessionFrame(sess.Room(), name))
	return nil
}

// handleChat relays a chat message to the other sessions in the sender's
// room. The sender is not echoed; it records its own message locally.
func (s *Server) handleChat(sess *Session, text string) error {
	if protocol.IsBlank(text) {
		return nil
	}
	if s.config.MaxMessageLength > 0 && len(text) > s.config.MaxMessageLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLong, len(text), s.config.MaxMessageLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room := sess.Room()
	msg := protocol.ChatMessage{
		ID:       protocol.NewMessageID(s.nextMessageID.Add(1)),
		Room:     room,
		FromID:   sess.ID,
		FromName: sess.Name(),
		Content:  text,
		Time:     time.Now().UTC().Format(time.RFC3339),
	}
	s.broadcastRoom(room, protocol.NewMessageFrame(msg), sess)
	return nil
}

// sendNotice delivers a hub message to one session, shown in its room
func (s *Server) sendNotice(sess *Session, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.send(sess, protocol.NewMessageFrame(protocol.ChatMessage{
		ID:       protocol.NewMessageID(s.nextMessageID.Add(1)),
		Room:     sess.Room(),
		FromID:   systemSender,
		FromName: systemSender,
		Content:  content,
		Time:     time.Now().UTC().Format(time.RFC3339),
	}))
}
