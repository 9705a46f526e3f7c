package client

import (
	"sync"
)

// MockState is an in-memory test implementation of StateInterface
type MockState struct {
	mu sync.RWMutex

	// In-memory storage
	config map[string]string
	dir    string

	// Error injection
	getConfigErr error
	setConfigErr error
}

// NewMockState creates a new mock state
func NewMockState() *MockState {
	return &MockState{
		config: make(map[string]string),
		dir:    "/tmp/mock-state",
	}
}

// GetConfig retrieves a configuration value
func (s *MockState) GetConfig(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.getConfigErr != nil {
		return "", s.getConfigErr
	}

	return s.config[key], nil
}

// SetConfig stores a configuration value
func (s *MockState) SetConfig(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setConfigErr != nil {
		return s.setConfigErr
	}

	s.config[key] = value
	return nil
}

// GetUserRecord returns the stored profile
func (s *MockState) GetUserRecord() (*UserRecord, error) {
	return getUserRecord(s)
}

// SetUserRecord stores the profile
func (s *MockState) SetUserRecord(user *UserRecord) error {
	return setUserRecord(s, user)
}

// CurrentUser implements UserLookup
func (s *MockState) CurrentUser() (CurrentUser, error) {
	return currentUserFrom(s)
}

// GetToken returns the socket token
func (s *MockState) GetToken() string {
	token, _ := s.GetConfig(configKeyToken)
	return token
}

// SetToken stores the socket token
func (s *MockState) SetToken(token string) error {
	return s.SetConfig(configKeyToken, token)
}

// GetStateDir returns the mock directory
func (s *MockState) GetStateDir() string {
	return s.dir
}

// Close is a no-op
func (s *MockState) Close() error {
	return nil
}

// SetGetConfigError injects an error for GetConfig (and everything built on it)
func (s *MockState) SetGetConfigError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getConfigErr = err
}

// SetSetConfigError injects an error for SetConfig
func (s *MockState) SetSetConfigError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setConfigErr = err
}

// SetUser stores a profile with the given optional name and email
func (s *MockState) SetUser(name, email string) {
	user := &UserRecord{Email: email, Type: "user"}
	if name != "" {
		user.Name = &name
	}
	_ = s.SetUserRecord(user)
}
