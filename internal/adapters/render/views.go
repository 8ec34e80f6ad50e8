package render

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

func (r *Renderer) Projects(projects []entities.Project) error {
	if r.Structured() {
		return r.Value(projects)
	}
	if len(projects) == 0 {
		r.Message("No projects found.")
		return nil
	}

	tw := r.table("ID", "NAME", "LEADER", "MEMBERS", "TASKS", "DONE")
	for _, p := range projects {
		counts := services.ComputeStatusCounts(p.Tasks)
		row(tw, p.ID, truncate(p.Name, 40), userName(p.Leader), len(p.Participants), counts.Total,
			fmt.Sprintf("%d%%", services.ComputeCompletionRate(counts)))
	}
	return tw.Flush()
}

// ProjectDetail prints the project, its summary and the (already filtered)
// task list.
func (r *Renderer) ProjectDetail(p *entities.Project, tasks []entities.Task, summary services.ProjectSummary) error {
	if r.Structured() {
		return r.Value(struct {
			Project *entities.Project       `json:"project" yaml:"project"`
			Tasks   []entities.Task         `json:"filtered_tasks" yaml:"filtered_tasks"`
			Summary services.ProjectSummary `json:"summary" yaml:"summary"`
		}{p, tasks, summary})
	}

	fmt.Fprintf(r.out, "%s %s\n", color.New(color.Bold).Sprintf("#%d", p.ID), p.Name)
	fmt.Fprintf(r.out, "Description:  %s\n", deref(p.Description))
	fmt.Fprintf(r.out, "Leader:       %s\n", userName(p.Leader))
	names := make([]string, 0, len(p.Participants))
	for _, u := range p.Participants {
		names = append(names, u.Username)
	}
	fmt.Fprintf(r.out, "Participants: %v\n\n", names)

	if err := r.summary(summary); err != nil {
		return err
	}
	fmt.Fprintln(r.out)
	return r.Tasks(tasks)
}

func (r *Renderer) summary(s services.ProjectSummary) error {
	c := s.Counts
	fmt.Fprintf(r.out, "Tasks: %d total, %d %s, %d %s, %d %s (%d%% complete)\n",
		c.Total,
		c.NewCount, StatusLabel(entities.TaskStatusNew),
		c.InProgressCount, StatusLabel(entities.TaskStatusInProgress),
		c.DoneCount, StatusLabel(entities.TaskStatusDone),
		s.CompletionRate)

	if len(s.TimeByAssignee) == 0 {
		return nil
	}
	tw := r.table("ASSIGNEE", "TIME SPENT")
	for _, a := range s.TimeByAssignee {
		row(tw, a.User.Username, hours(a.TotalTimeSpent))
	}
	return tw.Flush()
}

// Summary prints status counts, completion rate and time per assignee
func (r *Renderer) Summary(s services.ProjectSummary) error {
	if r.Structured() {
		return r.Value(s)
	}
	return r.summary(s)
}

func (r *Renderer) Tasks(tasks []entities.Task) error {
	if r.Structured() {
		return r.Value(tasks)
	}
	if len(tasks) == 0 {
		r.Message("No tasks found.")
		return nil
	}

	now := time.Now()
	tw := r.table("ID", "DESCRIPTION", "STATUS", "PRIORITY", "ASSIGNEE", "DUE", "SPENT/EST")
	for _, t := range tasks {
		due := date(t.DueDate)
		if t.IsOverdue(now) {
			due = color.RedString(due)
		} else {
			due = color.WhiteString(due)
		}
		desc := t.Description
		if t.IsSubtask() {
			desc = "↳ " + desc
		}
		row(tw, t.ID, truncate(desc, 48), StatusLabel(t.Status), PriorityLabel(t.Priority), userName(t.AssignedUser),
			due, hours(t.TimeSpent)+"/"+hours(t.EstimatedTime))
	}
	return tw.Flush()
}

func (r *Renderer) Task(t *entities.Task) error {
	if r.Structured() {
		return r.Value(t)
	}

	fmt.Fprintf(r.out, "%s %s\n", color.New(color.Bold).Sprintf("#%d", t.ID), t.Description)
	fmt.Fprintf(r.out, "Status:     %s\n", StatusLabel(t.Status))
	fmt.Fprintf(r.out, "Priority:   %s\n", PriorityLabel(t.Priority))
	fmt.Fprintf(r.out, "Assignee:   %s\n", userName(t.AssignedUser))
	fmt.Fprintf(r.out, "Creator:    %s\n", userName(t.Creator))
	if t.ProjectID != nil {
		fmt.Fprintf(r.out, "Project:    %d\n", *t.ProjectID)
	}
	if t.ParentTaskID != nil {
		fmt.Fprintf(r.out, "Parent:     %d\n", *t.ParentTaskID)
	}
	fmt.Fprintf(r.out, "Due:        %s\n", date(t.DueDate))
	fmt.Fprintf(r.out, "Time:       %s spent of %s (%s remaining)\n", hours(t.TimeSpent), hours(t.EstimatedTime), hours(t.RemainingTime()))
	fmt.Fprintf(r.out, "Details:    %s\n", deref(t.Details))

	if len(t.Subtasks) > 0 {
		fmt.Fprintln(r.out, "\nSubtasks:")
		if err := r.Tasks(t.Subtasks); err != nil {
			return err
		}
	}
	if len(t.Attachments) > 0 {
		fmt.Fprintln(r.out, "\nAttachments:")
		tw := r.table("ID", "FILENAME", "URL")
		for _, a := range t.Attachments {
			row(tw, a.ID, a.Filename, a.FileURL)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(t.Comments) > 0 {
		fmt.Fprintln(r.out, "\nComments:")
		for _, c := range t.Comments {
			author := fmt.Sprintf("user %d", c.UserID)
			if c.User != nil {
				author = c.User.Username
			}
			fmt.Fprintf(r.out, "  [%s] %s: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), author, c.Content)
		}
	}
	return nil
}

func (r *Renderer) Users(users []entities.User) error {
	if r.Structured() {
		return r.Value(users)
	}
	if len(users) == 0 {
		r.Message("No users found.")
		return nil
	}

	tw := r.table("ID", "USERNAME", "FULL NAME", "EMAIL", "ROLE")
	for _, u := range users {
		row(tw, u.ID, u.Username, deref(u.FullName), deref(u.Email), u.Role.DisplayName())
	}
	return tw.Flush()
}

func (r *Renderer) User(u *entities.User) error {
	if r.Structured() {
		return r.Value(u)
	}

	fmt.Fprintf(r.out, "%s %s\n", color.New(color.Bold).Sprintf("#%d", u.ID), u.Username)
	fmt.Fprintf(r.out, "Full name: %s\n", deref(u.FullName))
	fmt.Fprintf(r.out, "Email:     %s\n", deref(u.Email))
	fmt.Fprintf(r.out, "Role:      %s (%s)\n", u.Role, u.Role.DisplayName())
	if len(u.AssignedTasks) > 0 {
		fmt.Fprintln(r.out, "\nAssigned tasks:")
		tw := r.table("ID", "DESCRIPTION", "STATUS")
		for _, t := range u.AssignedTasks {
			row(tw, t.ID, truncate(t.Description, 48), StatusLabel(t.Status))
		}
		return tw.Flush()
	}
	return nil
}

func (r *Renderer) Stats(stats *ports.TaskStats) error {
	if r.Structured() {
		return r.Value(stats)
	}

	counts := services.StatusCounts{
		Total:           stats.TotalTasks,
		NewCount:        stats.NewTasks,
		InProgressCount: stats.InProgressTasks,
		DoneCount:       stats.CompletedTasks,
	}
	tw := r.table("TOTAL", "NEW", "IN PROGRESS", "DONE", "COMPLETION")
	row(tw, counts.Total, counts.NewCount, counts.InProgressCount, counts.DoneCount,
		fmt.Sprintf("%d%%", services.ComputeCompletionRate(counts)))
	return tw.Flush()
}

// Identity prints the current session
func (r *Renderer) Identity(s services.Session) error {
	view := struct {
		Authenticated bool                  `json:"authenticated" yaml:"authenticated"`
		Username      string                `json:"username,omitempty" yaml:"username,omitempty"`
		UserID        int                   `json:"user_id,omitempty" yaml:"user_id,omitempty"`
		Role          entities.Role         `json:"role,omitempty" yaml:"role,omitempty"`
		ExpiresAt     *time.Time            `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
		Permissions   []entities.Permission `json:"permissions" yaml:"permissions"`
	}{s.Authenticated(), s.Username, s.UserID, s.Role, s.ExpiresAt, s.Permissions().List()}

	if r.Structured() {
		return r.Value(view)
	}
	if !view.Authenticated {
		r.Message("Not logged in.")
		return nil
	}

	fmt.Fprintf(r.out, "User:    %s (id %d)\n", valueOr(view.Username, "-"), view.UserID)
	fmt.Fprintf(r.out, "Role:    %s (%s)\n", view.Role, view.Role.DisplayName())
	if view.ExpiresAt != nil {
		fmt.Fprintf(r.out, "Expires: %s\n", view.ExpiresAt.Local().Format(time.RFC1123))
	}
	perms := make([]string, 0, len(view.Permissions))
	for _, p := range view.Permissions {
		perms = append(perms, string(p))
	}
	fmt.Fprintf(r.out, "Can:     %v\n", perms)
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
