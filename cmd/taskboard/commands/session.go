package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/ports"
)

// NewLoginCommand creates the login command
func NewLoginCommand(app *App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Long:  "Exchange a username and password for an access token. The password is read from stdin when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.connect(ctx); err != nil {
				return err
			}
			if password == "" {
				p, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				password = p
			}

			session, err := app.session.Login(ctx, ports.LoginRequest{Username: username, Password: password})
			if err != nil {
				return err
			}

			if app.renderer.Structured() {
				return app.renderer.Identity(session)
			}
			app.renderer.Message("Logged in as %s (%s).", session.Username, session.Role.DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.MarkFlagRequired("username")
	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.connect(ctx); err != nil {
				return err
			}
			if err := app.session.Logout(ctx); err != nil {
				return err
			}
			app.renderer.Message("Logged out.")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command
func NewWhoamiCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session and what it permits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.connect(ctx); err != nil {
				return err
			}
			return app.renderer.Identity(app.session.Current())
		},
	}
}

// NewRegisterCommand creates the register command
func NewRegisterCommand(app *App) *cobra.Command {
	var req ports.RegisterRequest
	var fullName, email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an executor account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := app.connect(ctx); err != nil {
				return err
			}
			if req.Password == "" {
				p, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return err
				}
				req.Password = p
			}
			req.FullName = optional(cmd, "full-name", fullName)
			req.Email = optional(cmd, "email", email)

			user, err := app.client.Register(ctx, req)
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.User(user)
			}
			app.renderer.Message("Registered %s (id %d). Run \"taskboard login -u %s\" to sign in.", user.Username, user.ID, user.Username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "username (required)")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&fullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.MarkFlagRequired("username")
	return cmd
}

func readSecret(in io.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// optional returns a pointer to value when the flag was given
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
