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

	appsvc "docqa/internal/app"
)

func newLoginCmd(open opener) *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long:  "Exchanges a username and password for an access token and persists it for later commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			pw, err := readPassword(cmd, password, "Password: ")
			if err != nil {
				return err
			}
			if err := app.Auth.Login(cmd.Context(), appsvc.LoginInput{Username: username, Password: pw}); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", app.Session.Snapshot().Identity.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	cmd.MarkFlagRequired("username")
	return cmd
}

func newRegisterCmd(open opener) *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			pw, err := readPassword(cmd, password, "Choose a password: ")
			if err != nil {
				return err
			}
			if err := app.Auth.Register(cmd.Context(), appsvc.RegisterInput{Username: username, Password: pw}); err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "Registered and logged in as %s\n", app.Session.Snapshot().Identity.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	cmd.MarkFlagRequired("username")
	return cmd
}

func newLogoutCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			snap := app.Session.Snapshot()
			if !snap.Authenticated() {
				return appsvc.ErrUnauthenticated
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Identity.Username)
			return nil
		},
	}
}

// readPassword returns flagValue when set. Otherwise it prompts without echo
// on a terminal, or reads one line from the command's input.
func readPassword(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
