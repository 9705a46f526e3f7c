package client

import (
	"context"
	"fmt"
	"sync"
)

// MockConnection is a test implementation of ConnectionInterface. Run feeds
// the handler whatever was queued with Deliver and returns once the
// connection is closed.
type MockConnection struct {
	mu sync.RWMutex

	// State
	state   ConnectionState
	address string
	runErr  error
	sendErr error

	// Inbound frames and the handler currently running
	incoming chan string
	done     chan struct{}
	closed   bool

	bytesSent     uint64
	bytesReceived uint64

	// Sent frames for verification
	SentFrames []string
}

// NewMockConnection creates a new mock connection
func NewMockConnection(address string) *MockConnection {
	return &MockConnection{
		state:      StateDisconnected,
		address:    address,
		incoming:   make(chan string, 100),
		done:       make(chan struct{}),
		SentFrames: make([]string, 0),
	}
}

// Run opens the mock connection and delivers queued frames in order. Close
// and ctx cancellation end it as a local close.
func (m *MockConnection) Run(ctx context.Context, handler FrameHandler) error {
	m.mu.Lock()
	if m.runErr != nil {
		err := m.runErr
		m.state = StateErrored
		m.mu.Unlock()
		handler.HandleStateChange(ConnectionStateUpdate{State: StateErrored, Err: err})
		return err
	}
	m.state = StateOpen
	m.mu.Unlock()

	handler.HandleStateChange(ConnectionStateUpdate{State: StateOpen})
	handler.HandleOpen(ctx)

	for {
		select {
		case text := <-m.incoming:
			m.mu.Lock()
			m.bytesReceived += uint64(len(text))
			m.mu.Unlock()
			handler.HandleFrame(text)
		case <-m.done:
			m.setState(StateClosed)
			handler.HandleStateChange(ConnectionStateUpdate{State: StateClosed, Err: errLocalClose})
			return nil
		case <-ctx.Done():
			m.setState(StateClosed)
			handler.HandleStateChange(ConnectionStateUpdate{State: StateClosed, Err: errLocalClose})
			return nil
		}
	}
}

// Send records the frame, or fails with the injected error
func (m *MockConnection) Send(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sendErr != nil {
		return m.sendErr
	}
	if m.state != StateOpen {
		return fmt.Errorf("%w (state %s)", ErrNotOpen, m.state)
	}

	m.SentFrames = append(m.SentFrames, text)
	m.bytesSent += uint64(len(text))
	return nil
}

// Close ends Run
func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// State returns the current mock state
func (m *MockConnection) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// GetAddress returns the mock address
func (m *MockConnection) GetAddress() string {
	return m.address
}

// GetBytesSent returns the bytes recorded by Send
func (m *MockConnection) GetBytesSent() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bytesSent
}

// GetBytesReceived returns the bytes delivered to the handler
func (m *MockConnection) GetBytesReceived() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bytesReceived
}

// Test helper methods

// Deliver queues an inbound frame for Run
func (m *MockConnection) Deliver(text string) {
	m.incoming <- text
}

// SetRunError makes Run fail as if the dial failed
func (m *MockConnection) SetRunError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runErr = err
}

// SetSendError makes Send fail
func (m *MockConnection) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SetState forces the connection state, e.g. to allow Send without Run
func (m *MockConnection) SetState(state ConnectionState) {
	m.setState(state)
}

func (m *MockConnection) setState(state ConnectionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// Sent returns a copy of the recorded outbound frames
func (m *MockConnection) Sent() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.SentFrames))
	copy(out, m.SentFrames)
	return out
}
