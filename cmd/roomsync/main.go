// Command roomsync is a terminal chat client that mirrors the rooms of a
// chat server over one websocket, plus a development hub to talk to.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string

	version = "dev"
)

// rootCmd runs the client when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "roomsync",
	Short: "Terminal chat client with live room sync",
	Long: `roomsync connects to a chat server over a single websocket and keeps
a live view of every room: who is where, what was said, and a stack of
notices for incoming messages.

Quick Start:
  roomsync login --name alice        # Store your profile and token
  roomsync                           # Connect and open the UI
  roomsync hub                       # Run a local development hub`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runClient,
}

// runCmd is the explicit form of the default action
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect and open the terminal UI",
	RunE:  runClient,
}

// Execute adds all child commands to the root command and runs it
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "~/.roomsync/config.toml", "Path to the client config file")

	rootCmd.AddCommand(runCmd, loginCmd, configCmd, hubCmd)
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func main() {
	Execute()
}

// newLogger builds a production zap logger writing to path, or to stderr
// when path is empty.
func newLogger(path string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		config.OutputPaths = []string{path}
		config.ErrorOutputPaths = []string{path}
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
