package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	"github.com/timekeeper/client/internal/api"
	"github.com/timekeeper/client/internal/config"
	"github.com/timekeeper/client/internal/gateway"
	"github.com/timekeeper/client/internal/logger"
	"github.com/timekeeper/client/internal/metrics"
	"github.com/timekeeper/client/internal/routes"
	"github.com/timekeeper/client/internal/session"
)

var (
	configPath string
	rawJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "timekeeper",
	Short: "Attendance and leave client",
	Long: `timekeeper signs in to the attendance service, records check-ins and
check-outs, files and decides leave requests, and follows live notifications.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&rawJSON, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, themeCmd)
	rootCmd.AddCommand(statusCmd, checkInCmd, checkOutCmd, reportCmd)
	rootCmd.AddCommand(leavesCmd, leaveCmd, balanceCmd, employeesCmd)
	rootCmd.AddCommand(watchCmd)
}

// deps is everything a command needs, built from the config file.
type deps struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *session.Store
	gw      *gateway.Gateway
	api     *api.Client
	metrics *metrics.Metrics
}

// setup wires the stack. nav receives 401 and logout redirects; nil prints
// them for the user. adjust may override the loaded config.
func setup(nav routes.Navigator, adjust ...func(*config.Config)) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, fn := range adjust {
		fn(cfg)
	}
	l, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	storage, err := session.NewStorage(l, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if nav == nil {
		nav = printNavigator(os.Stderr)
	}

	m := metrics.New(cfg.Metrics.Namespace)
	store := session.NewStore(storage, l)
	gw, err := gateway.New(cfg.Server.BaseURL, store,
		gateway.WithNavigator(nav),
		gateway.WithMetrics(m),
		gateway.WithLogger(l),
		gateway.WithTimeout(cfg.Server.Timeout),
	)
	if err != nil {
		return nil, err
	}
	return &deps{
		cfg:     cfg,
		log:     l,
		store:   store,
		gw:      gw,
		api:     api.New(gw, store, api.WithNavigator(nav)),
		metrics: m,
	}, nil
}

// printNavigator tells a command-line user where they would be sent.
func printNavigator(w io.Writer) routes.Navigator {
	return routes.NavigatorFunc(func(dest string) {
		switch dest {
		case routes.EmployeeLoginPage:
			fmt.Fprintln(w, "Please sign in again: timekeeper login employee")
		case routes.AuthorizedLoginPage:
			fmt.Fprintln(w, "Please sign in again: timekeeper login authorized")
		case routes.Home:
			fmt.Fprintln(w, "Signed out.")
		}
	})
}

// call runs fn against a fresh stack and prints the response with render, or
// as indented JSON when --json is set.
func call(cmd *cobra.Command, fn func(*api.Client, context.Context) (json.RawMessage, error), render func(io.Writer, json.RawMessage) error) error {
	d, err := setup(nil)
	if err != nil {
		return err
	}
	defer d.log.Sync()

	payload, err := fn(d.api, cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if rawJSON || render == nil {
		_, err := out.Write(pretty.Pretty(payload))
		return err
	}
	return render(out, payload)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", gateway.UserMessage(err))
		os.Exit(1)
	}
}
