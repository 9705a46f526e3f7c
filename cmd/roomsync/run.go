package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aeolun/roomsync/pkg/client"
	"github.com/aeolun/roomsync/pkg/client/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runClient connects, drives the socket session and runs the UI until the
// user quits or the process is interrupted.
func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := client.LoadConfig(configPath)
	if err != nil {
		return err
	}

	statePath, err := client.ExpandPath(cfg.Client.StatePath)
	if err != nil {
		return err
	}
	state, err := client.OpenState(statePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer state.Close()

	url, err := cfg.SocketURL(state.GetToken())
	if err != nil {
		return err
	}

	logPath, err := client.ExpandPath(cfg.Client.LogPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(logPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	metrics := client.NewMetrics()
	session := client.NewSession(url,
		client.WithSessionLogger(logger),
		client.WithSessionMetrics(metrics),
	)

	opts := []client.ControllerOption{client.WithLogger(logger), client.WithMetrics(metrics)}
	if cfg.Client.DesktopNotifications {
		opts = append(opts, client.WithDesktopNotifier(client.NewBeeepNotifier("")))
	}
	ctrl := client.NewController(session, state, opts...)

	model := ui.NewModel(ctrl, session, ui.Options{
		NoticeLimit: cfg.UI.NoticeLimit,
		Logger:      logger,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("Starting client", zap.String("url", url), zap.String("version", version))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := session.Run(gctx, ctrl)
		if err != nil {
			logger.Warn("Session ended", zap.Error(err))
		}
		// The UI keeps running so the user can read what arrived
		program.Send(ui.SessionEndedMsg{Err: err})
		return nil
	})

	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		session.Close()
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		program.Quit()
		return nil
	})

	if cfg.Client.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Client.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Metrics server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
