package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aeolun/roomsync/pkg/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var hubConfigPath string

// hubCmd runs the in-memory development hub
var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Run a local development chat hub",
	Long: `Runs an in-memory chat hub speaking the room sync protocol on
{http_addr}/ws/ws/{token}. Clients send "/join <room>", "/leave" and
"/name <new name>" as chat text to move around.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tomlConfig, err := server.LoadConfig(hubConfigPath)
		if err != nil {
			return err
		}

		logger, err := newLogger("")
		if err != nil {
			return err
		}
		defer logger.Sync()

		hub := server.NewServer(tomlConfig.ToServerConfig(), logger)
		if err := hub.Start(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Hub listening on %s\n", hub.Addr())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		logger.Info("Shutting down hub")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hub.Stop(shutdownCtx); err != nil {
			logger.Warn("Unclean shutdown", zap.Error(err))
		}
		return nil
	},
}

func init() {
	hubCmd.Flags().StringVar(&hubConfigPath, "hub-config", "~/.roomsync/hub.toml", "Path to the hub config file")
}
