package services

import (
	"time"

	"github.com/taskmaster/taskboard/internal/domain/entities"
)

// TaskCriteria narrows a task listing. Zero-valued fields impose no
// constraint.
type TaskCriteria struct {
	Status     entities.TaskStatus
	AssigneeID *int
	Priority   entities.Priority
	SearchText string
	// DueBefore and DueAfter are inclusive bounds. A task without a due date
	// fails either of them.
	DueBefore *time.Time
	DueAfter  *time.Time
}

// IsEmpty reports whether the criteria would pass every task.
func (c TaskCriteria) IsEmpty() bool {
	return c.Status == "" && c.AssigneeID == nil && c.Priority == "" &&
		c.SearchText == "" && c.DueBefore == nil && c.DueAfter == nil
}

// Matches reports whether t satisfies every active criterion.
func (c TaskCriteria) Matches(t *entities.Task) bool {
	if c.Status != "" && t.Status != c.Status {
		return false
	}
	if c.AssigneeID != nil {
		id, ok := t.AssigneeID()
		if !ok || id != *c.AssigneeID {
			return false
		}
	}
	if c.Priority != "" && t.Priority != c.Priority {
		return false
	}
	if c.SearchText != "" && !entities.ContainsFold(t.Description, c.SearchText) {
		return false
	}
	if c.DueBefore != nil || c.DueAfter != nil {
		if t.DueDate == nil {
			return false
		}
		if c.DueBefore != nil && t.DueDate.After(*c.DueBefore) {
			return false
		}
		if c.DueAfter != nil && t.DueDate.Before(*c.DueAfter) {
			return false
		}
	}
	return true
}

// FilterTasks returns the tasks matching criteria in their input order. The
// input slice is not modified.
func FilterTasks(tasks []entities.Task, criteria TaskCriteria) []entities.Task {
	out := make([]entities.Task, 0, len(tasks))
	for i := range tasks {
		if criteria.Matches(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

type StatusCounts struct {
	Total           int `json:"total" yaml:"total"`
	NewCount        int `json:"new_count" yaml:"new_count"`
	InProgressCount int `json:"in_progress_count" yaml:"in_progress_count"`
	DoneCount       int `json:"done_count" yaml:"done_count"`
}

// ComputeStatusCounts tallies tasks by exact status. Tasks with any other
// status only count towards Total.
func ComputeStatusCounts(tasks []entities.Task) StatusCounts {
	counts := StatusCounts{Total: len(tasks)}
	for i := range tasks {
		switch tasks[i].Status {
		case entities.TaskStatusNew:
			counts.NewCount++
		case entities.TaskStatusInProgress:
			counts.InProgressCount++
		case entities.TaskStatusDone:
			counts.DoneCount++
		}
	}
	return counts
}

// ComputeCompletionRate is the rounded percentage of done tasks, 0 for an
// empty set.
func ComputeCompletionRate(counts StatusCounts) int {
	if counts.Total <= 0 {
		return 0
	}
	// half up in integers: floor((200*done + total) / (2*total))
	return (counts.DoneCount*200 + counts.Total) / (2 * counts.Total)
}

type AssigneeTime struct {
	User           entities.UserRef `json:"user" yaml:"user"`
	TotalTimeSpent float64          `json:"total_time_spent" yaml:"total_time_spent"`
}

// ComputeTimeByAssignee sums time spent per assignee. Groups appear in order
// of each assignee's first task; unassigned tasks are left out.
func ComputeTimeByAssignee(tasks []entities.Task) []AssigneeTime {
	index := make(map[int]int)
	out := []AssigneeTime{}
	for i := range tasks {
		u := tasks[i].AssignedUser
		if u == nil {
			continue
		}
		pos, seen := index[u.ID]
		if !seen {
			pos = len(out)
			index[u.ID] = pos
			out = append(out, AssigneeTime{User: *u})
		}
		out[pos].TotalTimeSpent += tasks[i].TimeSpent
	}
	return out
}

// ProjectSummary is the statistics block of a project detail view.
type ProjectSummary struct {
	Counts         StatusCounts   `json:"counts" yaml:"counts"`
	CompletionRate int            `json:"completion_rate" yaml:"completion_rate"`
	TimeByAssignee []AssigneeTime `json:"time_by_assignee" yaml:"time_by_assignee"`
}

func SummarizeTasks(tasks []entities.Task) ProjectSummary {
	counts := ComputeStatusCounts(tasks)
	return ProjectSummary{
		Counts:         counts,
		CompletionRate: ComputeCompletionRate(counts),
		TimeByAssignee: ComputeTimeByAssignee(tasks),
	}
}
