package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

// NewTasksCommand creates the tasks command group
func NewTasksCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "List and manage tasks",
	}

	cmd.AddCommand(
		newTaskListCommand(app),
		newTaskSearchCommand(app),
		newTaskShowCommand(app),
		newTaskCreateCommand(app),
		newTaskUpdateCommand(app),
		newTaskDeleteCommand(app),
		newTaskCommentCommand(app),
		newTaskAttachCommand(app),
		newTaskDetachCommand(app),
		newSubtaskCommand(app),
		newTaskStatsCommand(app),
	)
	return cmd
}

// visibleTasks fetches the caller's task list, optionally narrowed to a
// project, then applies the filter flags.
func visibleTasks(ctx context.Context, app *App, cmd *cobra.Command, projectID int, filters *taskFilterFlags) ([]entities.Task, error) {
	criteria, err := filters.criteria(cmd)
	if err != nil {
		return nil, err
	}
	if err := app.authorize(ctx, entities.PermViewTasks); err != nil {
		return nil, err
	}

	tasks, err := app.client.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	if projectID > 0 {
		inProject := tasks[:0]
		for _, t := range tasks {
			if t.ProjectID != nil && *t.ProjectID == projectID {
				inProject = append(inProject, t)
			}
		}
		tasks = inProject
	}
	return services.FilterTasks(tasks, criteria), nil
}

func newTaskListCommand(app *App) *cobra.Command {
	var filters taskFilterFlags
	var projectID int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks visible to you",
		Long:  "List tasks. Executors only see tasks assigned to them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			tasks, err := visibleTasks(ctx, app, cmd, projectID, &filters)
			if err != nil {
				return err
			}
			return app.renderer.Tasks(tasks)
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&projectID, "project", 0, "only tasks of this project")
	return cmd
}

func newTaskStatsCommand(app *App) *cobra.Command {
	var filters taskFilterFlags
	var projectID int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize status counts, completion rate and time per assignee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			tasks, err := visibleTasks(ctx, app, cmd, projectID, &filters)
			if err != nil {
				return err
			}
			return app.renderer.Summary(services.SummarizeTasks(tasks))
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&projectID, "project", 0, "only tasks of this project")
	return cmd
}

func newTaskSearchCommand(app *App) *cobra.Command {
	var filters taskFilterFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tasks on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := filters.criteria(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermViewTasks); err != nil {
				return err
			}
			tasks, err := app.client.SearchTasks(ctx, args[0])
			if err != nil {
				return err
			}
			return app.renderer.Tasks(services.FilterTasks(tasks, criteria))
		},
	}
	filters.register(cmd)
	return cmd
}

func newTaskShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with subtasks, comments and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermViewTasks); err != nil {
				return err
			}
			task, err := app.client.GetTask(ctx, id)
			if err != nil {
				return err
			}
			return app.renderer.Task(task)
		},
	}
}

// taskFields are the editable task attributes shared by create and subtask
type taskFields struct {
	description string
	details     string
	due         string
	priority    string
	estimate    float64
	assignee    int
}

func (f *taskFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description (required)")
	cmd.Flags().StringVar(&f.details, "details", "", "longer task details")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "priority (Low, Medium, High)")
	cmd.Flags().Float64Var(&f.estimate, "estimate", 0, "estimated time in hours")
	cmd.Flags().IntVar(&f.assignee, "assignee", 0, "assignee user id")
	cmd.MarkFlagRequired("description")
}

func (f *taskFields) subtaskRequest(cmd *cobra.Command) (ports.CreateSubtaskRequest, error) {
	req := ports.CreateSubtaskRequest{
		Description:    f.description,
		Details:        optional(cmd, "details", f.details),
		EstimatedTime:  f.estimate,
		AssignedUserID: optionalInt(cmd, "assignee", f.assignee),
	}
	due, err := optionalDate(cmd, "due", f.due)
	if err != nil {
		return req, err
	}
	req.DueDate = due
	if f.priority != "" {
		p, ok := entities.ParsePriority(f.priority)
		if !ok {
			return req, fmt.Errorf("%w: unknown priority %q", entities.ErrValidation, f.priority)
		}
		req.Priority = p
	}
	return req, nil
}

func newTaskCreateCommand(app *App) *cobra.Command {
	var fields taskFields
	var projectID, parentID int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := fields.subtaskRequest(cmd)
			if err != nil {
				return err
			}
			req := ports.CreateTaskRequest{
				Description:    base.Description,
				Details:        base.Details,
				DueDate:        base.DueDate,
				Priority:       base.Priority,
				EstimatedTime:  base.EstimatedTime,
				ProjectID:      projectID,
				AssignedUserID: base.AssignedUserID,
				ParentTaskID:   optionalInt(cmd, "parent", parentID),
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermCreateTask); err != nil {
				return err
			}
			task, err := app.client.CreateTask(ctx, req)
			if err != nil {
				return err
			}
			return printCreatedTask(app, task)
		},
	}
	fields.register(cmd)
	cmd.Flags().IntVar(&projectID, "project", 0, "project id (required)")
	cmd.Flags().IntVar(&parentID, "parent", 0, "parent task id")
	cmd.MarkFlagRequired("project")
	return cmd
}

func newSubtaskCommand(app *App) *cobra.Command {
	var fields taskFields

	cmd := &cobra.Command{
		Use:   "subtask <parent-id>",
		Short: "Create a subtask in the parent's project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			req, err := fields.subtaskRequest(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermCreateSubtask); err != nil {
				return err
			}
			task, err := app.client.CreateSubtask(ctx, parentID, req)
			if err != nil {
				return err
			}
			return printCreatedTask(app, task)
		},
	}
	fields.register(cmd)
	return cmd
}

func printCreatedTask(app *App, task *entities.Task) error {
	if app.renderer.Structured() {
		return app.renderer.Value(task)
	}
	app.renderer.Message("Created task %d %q.", task.ID, task.Description)
	return nil
}

func newTaskUpdateCommand(app *App) *cobra.Command {
	var (
		status, priority, description, details, due string
		timeSpent, estimate                          float64
		assignee                                     int
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Long:  "Update a task. Executors may only change --status and --time-spent on their own tasks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}

			req := ports.UpdateTaskRequest{
				TimeSpent:      optionalFloat(cmd, "time-spent", timeSpent),
				EstimatedTime:  optionalFloat(cmd, "estimate", estimate),
				Description:    optional(cmd, "description", description),
				Details:        optional(cmd, "details", details),
				AssignedUserID: optionalInt(cmd, "assignee", assignee),
			}
			if cmd.Flags().Changed("status") {
				s, ok := entities.ParseTaskStatus(status)
				if !ok {
					return fmt.Errorf("%w: unknown status %q", entities.ErrValidation, status)
				}
				req.Status = &s
			}
			if cmd.Flags().Changed("priority") {
				p, ok := entities.ParsePriority(priority)
				if !ok {
					return fmt.Errorf("%w: unknown priority %q", entities.ErrValidation, priority)
				}
				req.Priority = &p
			}
			if req.DueDate, err = optionalDate(cmd, "due", due); err != nil {
				return err
			}

			perm := entities.PermEditTask
			if req.ProgressOnly() {
				perm = entities.PermUpdateTaskProgress
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, perm); err != nil {
				return err
			}
			task, err := app.client.UpdateTask(ctx, id, req)
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.Value(task)
			}
			app.renderer.Message("Updated task %d: %s, %.1fh spent.", task.ID, task.Status, task.TimeSpent)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "new status (New, InProgress, Done)")
	cmd.Flags().Float64Var(&timeSpent, "time-spent", 0, "total hours spent")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority (Low, Medium, High)")
	cmd.Flags().Float64Var(&estimate, "estimate", 0, "estimated hours")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&details, "details", "", "new details")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&assignee, "assignee", 0, "assign to this user id")
	return cmd
}

func newTaskDeleteCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task and its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermDeleteTask); err != nil {
				return err
			}
			if err := app.client.DeleteTask(ctx, id); err != nil {
				return err
			}
			app.renderer.Message("Deleted task %d.", id)
			return nil
		},
	}
}

func newTaskCommentCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text>...",
		Short: "Comment on a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermComment); err != nil {
				return err
			}
			comment, err := app.client.AddComment(ctx, id, ports.CommentRequest{Content: strings.Join(args[1:], " ")})
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.Value(comment)
			}
			app.renderer.Message("Added comment %d to task %d.", comment.ID, id)
			return nil
		},
	}
}

func newTaskAttachCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <id> <file>",
		Short: "Upload a file to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermUploadAttachment); err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open attachment: %w", err)
			}
			defer f.Close()

			attachment, err := app.client.UploadAttachment(ctx, id, filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			if app.renderer.Structured() {
				return app.renderer.Value(attachment)
			}
			app.renderer.Message("Attached %s to task %d as %s.", attachment.Filename, id, attachment.FileURL)
			return nil
		},
	}
}

func newTaskDetachCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <task-id> <attachment-id>",
		Short: "Delete an attachment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0], "task")
			if err != nil {
				return err
			}
			attachmentID, err := parseID(args[1], "attachment")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := app.authorize(ctx, entities.PermDeleteAttachment); err != nil {
				return err
			}
			if err := app.client.DeleteAttachment(ctx, taskID, attachmentID); err != nil {
				return err
			}
			app.renderer.Message("Deleted attachment %d from task %d.", attachmentID, taskID)
			return nil
		},
	}
}
