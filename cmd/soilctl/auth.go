package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ashureev/soil-advisor/internal/auth"
	"github.com/spf13/cobra"
)

// readPassword returns flagValue, or the first line of in when it is empty.
func readPassword(in io.Reader, out io.Writer, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

func loginCmd(get func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and cache the session locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			pw, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout(), password)
			if err != nil {
				return err
			}
			if err := a.auth.Login(cmd.Context(), email, pw); err != nil {
				return authError(a.auth, err)
			}
			renderSession(cmd.OutOrStdout(), a.auth.Session())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func registerCmd(get func() *app) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			pw, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout(), password)
			if err != nil {
				return err
			}
			if err := a.auth.Register(cmd.Context(), email, pw, name); err != nil {
				return authError(a.auth, err)
			}
			renderSession(cmd.OutOrStdout(), a.auth.Session())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func logoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the cached credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := get().auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func whoamiCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user, verified with the service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := a.requireLogin(); err != nil {
				return err
			}
			if err := a.auth.Refresh(cmd.Context()); err != nil {
				return err
			}
			renderSession(cmd.OutOrStdout(), a.auth.Session())
			return nil
		},
	}
}

// authError prefers the message the orchestrator surfaced to the user.
func authError(o *auth.Orchestrator, err error) error {
	if e, ok := o.State().(auth.Errored); ok && e.Message != "" {
		return errors.New(e.Message)
	}
	return err
}
