package client

import (
	"context"
)

// Sender writes one outbound text frame, blocking until it is on the wire.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// FrameHandler consumes what a connection produces. A Session calls it from
// its single reader goroutine, one event at a time, in arrival order.
type FrameHandler interface {
	// HandleOpen runs once after the socket opens and the presence frame is sent
	HandleOpen(ctx context.Context)
	// HandleFrame receives one raw inbound text frame
	HandleFrame(text string)
	// HandleStateChange reports every connection state transition
	HandleStateChange(update ConnectionStateUpdate)
}

// ConnectionInterface defines the interface for the client's socket session
// This allows for mocking in tests while the real Session implements all these methods
type ConnectionInterface interface {
	Sender

	// Run connects and drives the reader loop until a terminal state
	Run(ctx context.Context, handler FrameHandler) error
	Close() error
	State() ConnectionState
	GetAddress() string

	// Traffic statistics
	GetBytesSent() uint64
	GetBytesReceived() uint64
}

// CurrentUser is what the "current user" lookup yields
type CurrentUser struct {
	DisplayName string // optional
	AccountID   string
}

// SessionID returns the identity used for this user on the socket: the
// display name, falling back to the account id.
func (u CurrentUser) SessionID() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.AccountID
}

// UserLookup resolves the logged-in user
type UserLookup interface {
	CurrentUser() (CurrentUser, error)
}

// UserLookupFunc adapts a function to UserLookup
type UserLookupFunc func() (CurrentUser, error)

func (f UserLookupFunc) CurrentUser() (CurrentUser, error) { return f() }

// StateInterface defines the interface for client state persistence
// This allows for mocking in tests while the real State implements all these methods
type StateInterface interface {
	UserLookup

	// Configuration
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error

	// Profile of the logged-in user
	GetUserRecord() (*UserRecord, error)
	SetUserRecord(user *UserRecord) error

	// Socket token
	GetToken() string
	SetToken(token string) error

	// State directory
	GetStateDir() string

	// Close the state
	Close() error
}

// DesktopNotifier raises an OS-level notification. Failures are non-fatal.
type DesktopNotifier interface {
	Notify(title, body string) error
}
