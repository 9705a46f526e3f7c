package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the client config file
type TOMLConfig struct {
	Server ServerSection `toml:"server"`
	Client ClientSection `toml:"client"`
	UI     UISection     `toml:"ui"`
}

type ServerSection struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

type ClientSection struct {
	StatePath            string `toml:"state_path"`
	LogPath              string `toml:"log_path"`
	DesktopNotifications bool   `toml:"desktop_notifications"`
	MetricsAddr          string `toml:"metrics_addr"`
}

type UISection struct {
	NoticeLimit int `toml:"notice_limit"`
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			URL: "http://localhost:8080",
		},
		Client: ClientSection{
			StatePath:            "~/.roomsync/state.db",
			LogPath:              "~/.roomsync/roomsync.log",
			DesktopNotifications: true,
		},
		UI: UISection{
			NoticeLimit: 5,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found,
// and applies environment variable overrides
func LoadConfig(path string) (TOMLConfig, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return TOMLConfig{}, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultTOMLConfig()
		// A read-only home still runs on defaults
		_ = WriteDefaultConfig(path)
		return applyEnvOverrides(config), nil
	}

	// Start from defaults so omitted keys keep their values
	config := DefaultTOMLConfig()
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnvOverrides(config), nil
}

// ExpandPath expands a leading ~/ to the user's home directory
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// SocketURL returns the socket endpoint configured by the file. An empty
// token in the file falls back to fallbackToken (normally the stored one).
func (c TOMLConfig) SocketURL(fallbackToken string) (string, error) {
	token := c.Server.Token
	if token == "" {
		token = fallbackToken
	}
	if token == "" {
		return "", fmt.Errorf("no socket token configured (set server.token or run login)")
	}
	if c.Server.URL == "" {
		return "", fmt.Errorf("no server url configured")
	}
	return SocketURL(c.Server.URL, token), nil
}

// applyEnvOverrides applies environment variable overrides to the config
// Environment variables follow the pattern: ROOMSYNC_SECTION_KEY
// Example: ROOMSYNC_SERVER_URL=https://chat.example.com
func applyEnvOverrides(config TOMLConfig) TOMLConfig {
	// Server section
	if val := os.Getenv("ROOMSYNC_SERVER_URL"); val != "" {
		config.Server.URL = val
	}
	if val := os.Getenv("ROOMSYNC_SERVER_TOKEN"); val != "" {
		config.Server.Token = val
	}

	// Client section
	if val := os.Getenv("ROOMSYNC_CLIENT_STATE_PATH"); val != "" {
		config.Client.StatePath = val
	}
	if val := os.Getenv("ROOMSYNC_CLIENT_LOG_PATH"); val != "" {
		config.Client.LogPath = val
	}
	if val := os.Getenv("ROOMSYNC_CLIENT_DESKTOP_NOTIFICATIONS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Client.DesktopNotifications = enabled
		}
	}
	if val := os.Getenv("ROOMSYNC_CLIENT_METRICS_ADDR"); val != "" {
		config.Client.MetricsAddr = val
	}

	// UI section
	if val := os.Getenv("ROOMSYNC_UI_NOTICE_LIMIT"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
			config.UI.NoticeLimit = limit
		}
	}

	return config
}

// WriteDefaultConfig writes the default config to a file with all options documented
func WriteDefaultConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	content := `# roomsync client configuration
# This file was auto-generated with default values
#
# Environment variables can override these settings:
# ROOMSYNC_SECTION_KEY (e.g., ROOMSYNC_SERVER_URL=https://chat.example.com)

[server]
# Base URL of the chat server. The socket endpoint is {url}/ws/ws/{token}
url = "http://localhost:8080"

# Socket token. Leave empty to use the token stored by "roomsync login"
# token = ""

[client]
# SQLite file holding the logged-in profile and token
state_path = "~/.roomsync/state.db"

# Log file (the terminal belongs to the UI)
log_path = "~/.roomsync/roomsync.log"

# Mirror chat previews to desktop notifications
desktop_notifications = true

# Serve Prometheus metrics on this address (empty = disabled)
# metrics_addr = "127.0.0.1:9464"

[ui]
# Maximum notices shown at once
notice_limit = 5
`

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
