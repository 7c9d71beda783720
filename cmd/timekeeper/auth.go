package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/timekeeper/client/internal/api"
	"github.com/timekeeper/client/internal/session"
	"github.com/timekeeper/client/internal/theme"
)

var (
	username      string
	password      string
	email         string
	authorizedKey string
)

var loginCmd = &cobra.Command{
	Use:       "login employee|authorized",
	Short:     "Sign in and store the session",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(session.RoleEmployee), string(session.RoleAuthorized)},
	RunE: func(cmd *cobra.Command, args []string) error {
		role := session.ParseRole(args[0])
		d, err := setup(nil)
		if err != nil {
			return err
		}
		defer d.log.Sync()

		creds := api.Credentials{Username: username, Password: password}
		if err := prompt(cmd, &creds.Username, &creds.Password); err != nil {
			return err
		}
		in, err := d.api.Login(cmd.Context(), role, creds)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s. Signed in as %s (%s).\n", in.Message, in.Session.DisplayName, in.Session.Role)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:       "register employee|authorized",
	Short:     "Create an account and sign in",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(session.RoleEmployee), string(session.RoleAuthorized)},
	RunE: func(cmd *cobra.Command, args []string) error {
		role := session.ParseRole(args[0])
		if email == "" {
			return errors.New("--email is required")
		}
		if role == session.RoleAuthorized && authorizedKey == "" {
			return errors.New("--key is required for authorized accounts")
		}
		d, err := setup(nil)
		if err != nil {
			return err
		}
		defer d.log.Sync()

		reg := api.Registration{Username: username, Email: email, Password: password, Key: authorizedKey}
		if err := prompt(cmd, &reg.Username, &reg.Password); err != nil {
			return err
		}
		in, err := d.api.Register(cmd.Context(), role, reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s (%s).\n", in.Session.DisplayName, in.Session.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session on the server and forget it locally",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := setup(nil)
		if err != nil {
			return err
		}
		defer d.log.Sync()

		if !d.store.IsAuthenticated(cmd.Context()) {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		return d.api.Logout(cmd.Context())
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d, err := setup(nil)
		if err != nil {
			return err
		}
		defer d.log.Sync()

		sess := d.store.Session(cmd.Context())
		out := cmd.OutOrStdout()
		if !sess.Authenticated() {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		fmt.Fprintf(out, "%s (%s)\n", sess.DisplayName, sess.Role)
		if sess.SubjectID != "" {
			fmt.Fprintf(out, "employee id: %s\n", sess.SubjectID)
		}
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark]",
	Short:     "Show or set the dashboard theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{theme.Light, theme.Dark},
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(nil)
		if err != nil {
			return err
		}
		defer d.log.Sync()

		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), d.store.Theme(cmd.Context()))
			return nil
		}
		if !theme.Valid(args[0]) {
			return fmt.Errorf("unknown theme %q", args[0])
		}
		return d.store.SetTheme(cmd.Context(), args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
		c.Flags().StringVarP(&password, "password", "p", os.Getenv("TIMEKEEPER_PASSWORD"), "Password (prompted when empty)")
	}
	registerCmd.Flags().StringVar(&email, "email", "", "Email address")
	registerCmd.Flags().StringVar(&authorizedKey, "key", "", "Registration key for authorized accounts")
}

// prompt asks for whichever of user and pass is still empty. The password is
// read without echo when stdin is a terminal.
func prompt(cmd *cobra.Command, user, pass *string) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()
	if *user == "" {
		fmt.Fprint(out, "Username: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*user = strings.TrimSpace(line)
	}
	if *pass == "" {
		fmt.Fprint(out, "Password: ")
		if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			*pass = string(b)
		} else {
			line, err := in.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			*pass = strings.TrimSpace(line)
		}
	}
	if *user == "" || *pass == "" {
		return errors.New("username and password are required")
	}
	return nil
}
