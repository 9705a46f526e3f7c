package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the hub config file
type TOMLConfig struct {
	Server ServerSection `toml:"server"`
	Rooms  RoomsSection  `toml:"rooms"`
	Limits LimitsSection `toml:"limits"`
}

type ServerSection struct {
	HTTPAddr    string `toml:"http_addr"`
	MetricsAddr string `toml:"metrics_addr"`
}

type RoomsSection struct {
	DefaultRoom string   `toml:"default_room"`
	SeedRooms   []string `toml:"seed_rooms"`
}

type LimitsSection struct {
	MaxMessageLength    int `toml:"max_message_length"`
	MaxNameLength       int `toml:"max_name_length"`
	WriteTimeoutSeconds int `toml:"write_timeout_seconds"`
	SendQueueSize       int `toml:"send_queue_size"`
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			HTTPAddr: ":8080",
		},
		Rooms: RoomsSection{
			DefaultRoom: "main",
			SeedRooms:   []string{"main", "random"},
		},
		Limits: LimitsSection{
			MaxMessageLength:    4096,
			MaxNameLength:       32,
			WriteTimeoutSeconds: 10,
			SendQueueSize:       256,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found,
// and applies environment variable overrides
func LoadConfig(path string) (TOMLConfig, error) {
	// Expand ~ in path
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return TOMLConfig{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// A failed write still runs on defaults
		_ = writeDefaultConfig(path)
		return applyEnvOverrides(DefaultTOMLConfig()), nil
	}

	config := DefaultTOMLConfig()
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnvOverrides(config), nil
}

// applyEnvOverrides applies environment variable overrides to the config
// Environment variables follow the pattern: ROOMSYNC_HUB_SECTION_KEY
// Example: ROOMSYNC_HUB_SERVER_HTTP_ADDR=:9000
func applyEnvOverrides(config TOMLConfig) TOMLConfig {
	// Server section
	if val := os.Getenv("ROOMSYNC_HUB_SERVER_HTTP_ADDR"); val != "" {
		config.Server.HTTPAddr = val
	}
	if val := os.Getenv("ROOMSYNC_HUB_SERVER_METRICS_ADDR"); val != "" {
		config.Server.MetricsAddr = val
	}

	// Rooms section
	if val := os.Getenv("ROOMSYNC_HUB_ROOMS_DEFAULT_ROOM"); val != "" {
		config.Rooms.DefaultRoom = val
	}
	if val := os.Getenv("ROOMSYNC_HUB_ROOMS_SEED_ROOMS"); val != "" {
		// Parse comma-separated list of room names
		rooms := strings.Split(val, ",")
		for i, room := range rooms {
			rooms[i] = strings.TrimSpace(room)
		}
		config.Rooms.SeedRooms = rooms
	}

	// Limits section
	if val := os.Getenv("ROOMSYNC_HUB_LIMITS_MAX_MESSAGE_LENGTH"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxMessageLength = limit
		}
	}
	if val := os.Getenv("ROOMSYNC_HUB_LIMITS_MAX_NAME_LENGTH"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxNameLength = limit
		}
	}
	if val := os.Getenv("ROOMSYNC_HUB_LIMITS_WRITE_TIMEOUT_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			config.Limits.WriteTimeoutSeconds = seconds
		}
	}
	if val := os.Getenv("ROOMSYNC_HUB_LIMITS_SEND_QUEUE_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			config.Limits.SendQueueSize = size
		}
	}

	return config
}

// writeDefaultConfig writes the default config to a file with all options documented
func writeDefaultConfig(path string) error {
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

	content := `# roomsync development hub configuration
# This file was auto-generated with default values
# Restart the hub for changes to take effect
#
# Environment variables can override these settings:
# ROOMSYNC_HUB_SECTION_KEY (e.g., ROOMSYNC_HUB_SERVER_HTTP_ADDR=:9000)

[server]
# Address for the socket endpoint (/ws/ws/{token}) and /health
http_addr = ":8080"

# Address for Prometheus metrics (empty = disabled)
# metrics_addr = "127.0.0.1:9090"

[rooms]
# Room every new session joins
default_room = "main"

# Rooms listed from the start, even when empty
seed_rooms = ["main", "random"]

[limits]
# Maximum chat message length in bytes
max_message_length = 4096

# Maximum display name length in characters
max_name_length = 32

# Per-frame write timeout in seconds
write_timeout_seconds = 10

# Frames buffered per session; a session that falls further behind is dropped
send_queue_size = 256
`

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ToServerConfig converts TOMLConfig to ServerConfig
func (c *TOMLConfig) ToServerConfig() ServerConfig {
	cfg := DefaultConfig()

	if strings.TrimSpace(c.Server.HTTPAddr) != "" {
		cfg.HTTPAddr = c.Server.HTTPAddr
	}
	cfg.MetricsAddr = c.Server.MetricsAddr

	if strings.TrimSpace(c.Rooms.DefaultRoom) != "" {
		cfg.DefaultRoom = c.Rooms.DefaultRoom
	}
	if c.Rooms.SeedRooms != nil {
		cfg.SeedRooms = c.Rooms.SeedRooms
	}

	if c.Limits.MaxMessageLength > 0 {
		cfg.MaxMessageLength = c.Limits.MaxMessageLength
	}
	if c.Limits.MaxNameLength > 0 {
		cfg.MaxNameLength = c.Limits.MaxNameLength
	}
	if c.Limits.WriteTimeoutSeconds > 0 {
		cfg.WriteTimeout = time.Duration(c.Limits.WriteTimeoutSeconds) * time.Second
	}
	if c.Limits.SendQueueSize > 0 {
		cfg.SendQueueSize = c.Limits.SendQueueSize
	}

	return cfg
}
