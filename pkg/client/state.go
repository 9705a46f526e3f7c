package client

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	configKeyCurrentUser = "current_user"
	configKeyToken       = "token"
)

// UserRecord is the stored profile of the logged-in user, as returned by the
// account service at login.
type UserRecord struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Email     string  `json:"email"`
	Name      *string `json:"name,omitempty"`
	Mobile    *string `json:"mobile,omitempty"`
	LastOn    *int64  `json:"laston,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt *int64  `json:"updated_at,omitempty"`
}

// ToCurrentUser maps the stored profile to the lookup result: the display
// name is the optional name, the account id is the email.
func (u *UserRecord) ToCurrentUser() CurrentUser {
	cu := CurrentUser{AccountID: u.Email}
	if u.Name != nil {
		cu.DisplayName = *u.Name
	}
	return cu
}

// State manages client-side persistent state: the login profile, the socket
// token and free-form config. Chat data is never persisted.
type State struct {
	db  *sql.DB
	dir string // Directory where state is stored
}

// OpenState opens or creates the client state database
func OpenState(path string) (*State, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Client only needs one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &State{db: db, dir: dir}, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS Config (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the state database
func (s *State) Close() error {
	return s.db.Close()
}

// GetConfig retrieves a configuration value ("" if unset)
func (s *State) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM Config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig stores a configuration value
func (s *State) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO Config (key, value) VALUES (?, ?)
	`, key, value)
	return err
}

// GetUserRecord returns the stored profile, or nil if nobody is logged in
func (s *State) GetUserRecord() (*UserRecord, error) {
	return getUserRecord(s)
}

// SetUserRecord stores the profile; nil clears it
func (s *State) SetUserRecord(user *UserRecord) error {
	return setUserRecord(s, user)
}

// CurrentUser implements UserLookup from the stored profile
func (s *State) CurrentUser() (CurrentUser, error) {
	return currentUserFrom(s)
}

// GetToken returns the socket token
func (s *State) GetToken() string {
	token, _ := s.GetConfig(configKeyToken)
	return token
}

// SetToken stores the socket token
func (s *State) SetToken(token string) error {
	return s.SetConfig(configKeyToken, token)
}

// GetStateDir returns the directory where state is stored
func (s *State) GetStateDir() string {
	return s.dir
}

type configStore interface {
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error
}

// errNotLoggedIn is returned by the current-user lookup when no profile is stored
var errNotLoggedIn = errors.New("current user str is null")

func getUserRecord(store configStore) (*UserRecord, error) {
	raw, err := store.GetConfig(configKeyCurrentUser)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var user UserRecord
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode current user: %w", err)
	}
	return &user, nil
}

func setUserRecord(store configStore, user *UserRecord) error {
	if user == nil {
		return store.SetConfig(configKeyCurrentUser, "")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode current user: %w", err)
	}
	return store.SetConfig(configKeyCurrentUser, string(raw))
}

func currentUserFrom(store configStore) (CurrentUser, error) {
	user, err := getUserRecord(store)
	if err != nil {
		return CurrentUser{}, err
	}
	if user == nil {
		return CurrentUser{}, errNotLoggedIn
	}
	return user.ToCurrentUser(), nil
}
