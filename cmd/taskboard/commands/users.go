package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

// NewUsersCommand creates the users command group
func NewUsersCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user", "u"},
		Short:   "List and manage users",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				if err := app.authorize(ctx, entities.PermViewUsers); err != nil {
					return err
				}
				users, err := app.client.ListUsers(ctx)
				if err != nil {
					return err
				}
				return app.renderer.Users(users)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a user and the tasks assigned to them",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				ctx, cancel := commandContext(cmd)
				defer cancel()
				if err := app.authorize(ctx, entities.PermViewUsers); err != nil {
					return err
				}
				user, err := app.client.GetUser(ctx, id)
				if err != nil {
					return err
				}
				return app.renderer.User(user)
			},
		},
		newUserCreateCommand(app),
		newUserUpdateCommand(app),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				ctx, cancel := commandContext(cmd)
				defer cancel()
				if err := app.authorize(ctx, entities.PermDeleteUser); err != nil {
					return err
				}
				if err := app.client.DeleteUser(ctx, id); err != nil {
					return err
				}
				app.renderer.Message("Deleted user %d.", id)
				return nil
			},
		},
	)
	return cmd
}

func parseRoleFlag(s string) (entities.Role, error) {
	role, err := entities.ParseRole(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	return role, nil
}

func newUserCreateCommand(app *App) *cobra.Command {
	var username, password, fullName, email, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with any role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRoleFlag(role)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermCreateUser); err != nil {
				return err
			}
			if password == "" {
				if password, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: "); err != nil {
					return err
				}
			}

			user, err := app.client.CreateUser(ctx, ports.CreateUserRequest{
				Username: username,
				Password: password,
				FullName: optional(cmd, "full-name", fullName),
				Email:    optional(cmd, "email", email),
				Role:     r,
			})
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.User(user)
			}
			app.renderer.Message("Created user %d %s (%s).", user.ID, user.Username, user.Role.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (required)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	cmd.Flags().StringVar(&fullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(entities.RoleExecutor), "role: admin, manager or executor")
	cmd.MarkFlagRequired("username")
	return cmd
}

func newUserUpdateCommand(app *App) *cobra.Command {
	var fullName, email, password, role string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user; changing --role needs an administrator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			req := ports.UpdateUserRequest{
				FullName: optional(cmd, "full-name", fullName),
				Email:    optional(cmd, "email", email),
				Password: optional(cmd, "password", password),
			}
			perm := entities.PermEditUser
			if cmd.Flags().Changed("role") {
				r, err := parseRoleFlag(role)
				if err != nil {
					return err
				}
				req.Role = &r
				perm = entities.PermChangeUserRole
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, perm); err != nil {
				return err
			}
			user, err := app.client.UpdateUser(ctx, id, req)
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.User(user)
			}
			app.renderer.Message("Updated user %d %s (%s).", user.ID, user.Username, user.Role.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "full-name", "", "new full name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "new password")
	cmd.Flags().StringVar(&role, "role", "", "new role: admin, manager or executor")
	return cmd
}
