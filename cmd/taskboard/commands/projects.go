package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/adapters/api"
	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

// NewProjectsCommand creates the projects command group
func NewProjectsCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List and manage projects",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List projects",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				if err := app.authorize(ctx, entities.PermViewProjects); err != nil {
					return err
				}
				projects, err := app.client.ListProjects(ctx)
				if err != nil {
					return err
				}
				return app.renderer.Projects(projects)
			},
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search projects by name or description",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := commandContext(cmd)
				defer cancel()
				if err := app.authorize(ctx, entities.PermViewProjects); err != nil {
					return err
				}
				projects, err := app.client.SearchProjects(ctx, args[0])
				if err != nil {
					return err
				}
				return app.renderer.Projects(projects)
			},
		},
		newProjectShowCommand(app),
		newProjectCreateCommand(app),
		newProjectUpdateCommand(app),
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a project and its tasks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0], "project")
				if err != nil {
					return err
				}
				ctx, cancel := commandContext(cmd)
				defer cancel()
				if err := app.authorize(ctx, entities.PermDeleteProject); err != nil {
					return err
				}
				if err := app.client.DeleteProject(ctx, id); err != nil {
					return err
				}
				app.renderer.Message("Deleted project %d.", id)
				return nil
			},
		},
		newMembershipCommand(app, "add-participant", "Add a user to a project", entities.PermManageParticipants,
			func(ctx context.Context, c *api.Client, projectID, userID int) (*entities.Project, error) {
				return c.AddParticipant(ctx, projectID, ports.ParticipantRequest{UserID: userID})
			}),
		newMembershipCommand(app, "remove-participant", "Remove a user from a project", entities.PermManageParticipants,
			func(ctx context.Context, c *api.Client, projectID, userID int) (*entities.Project, error) {
				return c.RemoveParticipant(ctx, projectID, userID)
			}),
		newMembershipCommand(app, "set-leader", "Make a user the project leader", entities.PermAssignLeader,
			func(ctx context.Context, c *api.Client, projectID, userID int) (*entities.Project, error) {
				return c.AssignLeader(ctx, projectID, ports.ParticipantRequest{UserID: userID})
			}),
	)
	return cmd
}

func newProjectShowCommand(app *App) *cobra.Command {
	var filters taskFilterFlags

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project with its task summary and filtered tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			criteria, err := filters.criteria(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermViewProjects); err != nil {
				return err
			}
			project, err := app.client.GetProjectDetail(ctx, id)
			if err != nil {
				return err
			}

			// the summary always covers every task; filters only narrow the list
			summary := services.SummarizeTasks(project.Tasks)
			return app.renderer.ProjectDetail(project, services.FilterTasks(project.Tasks, criteria), summary)
		},
	}
	filters.register(cmd)
	return cmd
}

func newProjectCreateCommand(app *App) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermCreateProject); err != nil {
				return err
			}
			project, err := app.client.CreateProject(ctx, ports.CreateProjectRequest{
				Name:        name,
				Description: optional(cmd, "description", description),
			})
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.Value(project)
			}
			app.renderer.Message("Created project %d %q.", project.ID, project.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (required)")
	cmd.Flags().StringVar(&description, "description", "", "project description")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectUpdateCommand(app *App) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a project or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermEditProject); err != nil {
				return err
			}
			project, err := app.client.UpdateProject(ctx, id, ports.UpdateProjectRequest{
				Name:        optional(cmd, "name", name),
				Description: optional(cmd, "description", description),
			})
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.Value(project)
			}
			app.renderer.Message("Updated project %d.", project.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	return cmd
}

type membershipCall func(ctx context.Context, c *api.Client, projectID, userID int) (*entities.Project, error)

func newMembershipCommand(app *App, use, short string, perm entities.Permission, call membershipCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <project-id> <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseID(args[0], "project")
			if err != nil {
				return err
			}
			userID, err := parseID(args[1], "user")
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, perm); err != nil {
				return err
			}
			project, err := call(ctx, app.client, projectID, userID)
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.Value(project)
			}

			leader := "-"
			if project.Leader != nil {
				leader = project.Leader.Username
			}
			app.renderer.Message("Project %d now has %d participants, leader %s.", project.ID, len(project.Participants), leader)
			return nil
		},
	}
}
