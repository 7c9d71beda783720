package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/config"
	"github.com/timekeeper/client/internal/logger"
	"github.com/timekeeper/client/internal/mockserver"
	"github.com/timekeeper/client/internal/session"
)

var (
	addr          string
	secret        string
	authorizedKey string
	seedUsers     []string
	tick          time.Duration
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "timekeeper-mock",
	Short: "In-process attendance server",
	Long: `timekeeper-mock serves every attendance, leave and employee endpoint and
the notification streams the timekeeper client uses, with a generator that
raises the scheduled alerts a real deployment would.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&addr, "addr", "a", ":8000", "Address to listen on")
	rootCmd.Flags().StringVar(&secret, "secret", os.Getenv("TIMEKEEPER_MOCK_SECRET"), "Token signing secret (random when empty)")
	rootCmd.Flags().StringVar(&authorizedKey, "authorized-key", "letmein", "Key required to register authorized accounts")
	rootCmd.Flags().StringSliceVar(&seedUsers, "user", []string{"alice:alice:employee", "boss:boss:authorized"},
		"Seed account as username:password:role, repeatable")
	rootCmd.Flags().DurationVar(&tick, "tick", time.Minute, "Event generator interval, 0 disables it")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := config.Default().Logger
	cfg.Level = logLevel
	cfg.Output = "stdout"
	l, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer l.Sync()

	srv := mockserver.New(mockserver.Options{
		Secret:        secret,
		AuthorizedKey: authorizedKey,
		Logger:        l,
	})
	for _, entry := range seedUsers {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("invalid --user %q, want username:password:role", entry)
		}
		role := session.ParseRole(parts[2])
		if role == session.RoleNone {
			return fmt.Errorf("invalid role %q in --user %q", parts[2], entry)
		}
		if err := srv.AddUser(parts[0], parts[0]+"@example.com", parts[1], role); err != nil {
			return fmt.Errorf("seed %s: %w", parts[0], err)
		}
		l.Info("seeded user", zap.String("username", parts[0]), zap.String("role", string(role)))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if tick > 0 {
		mockserver.NewGenerator(srv, tick).Start(ctx)
	}

	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	errCh := make(chan error, 1)
	go func() {
		l.Info("listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		l.Info("received shutdown signal")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
