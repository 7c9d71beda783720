package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/app"
	"github.com/timekeeper/client/internal/config"
	"github.com/timekeeper/client/internal/realtime"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live dashboard",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

// logToFile keeps log lines out of the terminal the dashboard draws on.
func logToFile(cfg *config.Config) {
	if cfg.Logger.Output == "file" {
		return
	}
	cfg.Logger.Output = "file"
	if cfg.Logger.FilePath == "" {
		dir, err := config.DataDir()
		if err != nil {
			dir = os.TempDir()
		}
		cfg.Logger.FilePath = filepath.Join(dir, "timekeeper.log")
	}
}

type stream struct {
	name  string
	route routes.Stream
	types []string
}

func streamsFor(role session.Role) []stream {
	notifications := stream{name: "notifications", route: routes.NotificationStream(role), types: realtime.EmployeeTypes}
	attendance := stream{name: "attendance", route: routes.AttendanceStream(role),
		types: []string{realtime.TypeEmployeeAttendanceUpdate}}
	if role == session.RoleAuthorized {
		notifications.types = realtime.AuthorizedTypes
		attendance.types = []string{realtime.TypeAttendanceUpdate}
	}
	return []stream{notifications, attendance}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	relay := &app.Relay{}
	d, err := setup(app.Navigator(relay), logToFile)
	if err != nil {
		return err
	}
	defer d.log.Sync()

	ctx := cmd.Context()
	sess := d.store.Session(ctx)
	if !sess.Authenticated() {
		return errors.New("not signed in: run timekeeper login employee|authorized first")
	}

	if addr := d.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	var (
		channels []*realtime.Channel
		names    []string
	)
	for _, s := range streamsFor(sess.Role) {
		opts := []realtime.Option{
			realtime.WithConfig(d.cfg.Realtime),
			realtime.WithJar(d.gw.Jar()),
			realtime.WithNavigator(app.Navigator(relay)),
			realtime.WithMetrics(d.metrics),
			realtime.WithLogger(d.log),
			realtime.WithStateHook(app.StateHook(relay, s.name)),
		}
		if s.route.Group != "" {
			opts = append(opts, realtime.WithGroup(s.route.Group))
		}
		if s.name == "notifications" {
			opts = append(opts, realtime.WithAlerter(app.Alerter(relay)))
		}
		ch := realtime.New(d.cfg.WebSocketURL(s.route.Path), d.store, opts...)
		d.gw.AddHalter(ch)
		defer app.Forward(relay, ch, s.types...)()
		channels = append(channels, ch)
		names = append(names, s.name)
	}

	model := app.New(d.api, app.Options{
		Session:         sess,
		Theme:           d.store.Theme(ctx),
		AlertDuration:   d.cfg.UI.AlertDuration,
		RefreshInterval: d.cfg.UI.RefreshInterval,
		Streams:         names,
		SaveTheme: func(name string) error {
			return d.store.SetTheme(context.Background(), name)
		},
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	relay.Attach(p)

	// Connect reports its first state change synchronously, and Send blocks
	// until the program loop runs.
	started := make(chan struct{})
	go func() {
		defer close(started)
		for _, ch := range channels {
			ch.Connect()
		}
	}()

	final, err := p.Run()
	<-started
	for _, ch := range channels {
		ch.Disconnect()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("dashboard: %w", err)
	}
	if m, ok := final.(app.Model); ok && m.Destination() != "" {
		printNavigator(cmd.ErrOrStderr()).Navigate(m.Destination())
	}
	return nil
}
