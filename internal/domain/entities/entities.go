package entities

import (
	"encoding/json"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "New"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusDone       TaskStatus = "Done"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// UserRef is the embedded user shape found on tasks, comments and projects.
type UserRef struct {
	ID       int    `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Role     Role   `json:"role,omitempty" yaml:"role,omitempty"`
}

// User is the full user record returned by the /users endpoints.
type User struct {
	ID            int           `json:"id" yaml:"id"`
	Username      string        `json:"username" yaml:"username"`
	FullName      *string       `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Email         *string       `json:"email,omitempty" yaml:"email,omitempty"`
	Role          Role          `json:"role" yaml:"role"`
	PasswordHash  string        `json:"-" yaml:"-"`
	AssignedTasks []TaskSummary `json:"assigned_tasks,omitempty" yaml:"assigned_tasks,omitempty"`
}

func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, Role: u.Role}
}

type TaskSummary struct {
	ID          int        `json:"id" yaml:"id"`
	Description string     `json:"description" yaml:"description"`
	Status      TaskStatus `json:"status" yaml:"status"`
}

type Comment struct {
	ID        int       `json:"id" yaml:"id"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UserID    int       `json:"user_id" yaml:"user_id"`
	User      *UserRef  `json:"user,omitempty" yaml:"user,omitempty"`
}

type Attachment struct {
	ID       int    `json:"id" yaml:"id"`
	Filename string `json:"filename" yaml:"filename"`
	FileURL  string `json:"file_url" yaml:"file_url"`
	TaskID   int    `json:"task_id" yaml:"task_id"`
}

type Task struct {
	ID             int          `json:"id" yaml:"id"`
	Description    string       `json:"description" yaml:"description"`
	Details        *string      `json:"details,omitempty" yaml:"details,omitempty"`
	Status         TaskStatus   `json:"status" yaml:"status"`
	Priority       Priority     `json:"priority" yaml:"priority"`
	AssignedUser   *UserRef     `json:"assigned_user" yaml:"assigned_user"`
	Creator        *UserRef     `json:"creator,omitempty" yaml:"creator,omitempty"`
	ProjectID      *int         `json:"project_id" yaml:"project_id"`
	EstimatedTime  float64      `json:"estimated_time" yaml:"estimated_time"`
	TimeSpent      float64      `json:"time_spent" yaml:"time_spent"`
	DueDate        *time.Time   `json:"due_date" yaml:"due_date"`
	CreatedAt      time.Time    `json:"created_at" yaml:"created_at"`
	AssignmentDate *time.Time   `json:"assignment_date,omitempty" yaml:"assignment_date,omitempty"`
	Subtasks       []Task       `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
	Comments       []Comment    `json:"comments,omitempty" yaml:"comments,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	ParentTaskID   *int         `json:"parent_task_id" yaml:"parent_task_id"`
}

type Project struct {
	ID           int        `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	Description  *string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Leader       *UserRef   `json:"leader,omitempty" yaml:"leader,omitempty"`
	Participants []UserRef  `json:"participants" yaml:"participants"`
	Tasks        []Task     `json:"tasks" yaml:"tasks"`
}

func (t *Task) IsSubtask() bool {
	return t.ParentTaskID != nil
}

// AssigneeID reports the assignee's id, if any.
func (t *Task) AssigneeID() (int, bool) {
	if t.AssignedUser == nil {
		return 0, false
	}
	return t.AssignedUser.ID, true
}

// RemainingTime is estimated minus spent; negative when over estimate.
func (t *Task) RemainingTime() float64 {
	return t.EstimatedTime - t.TimeSpent
}

func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return now.After(*t.DueDate) && t.Status != TaskStatusDone
}

func (t *Task) Summary() TaskSummary {
	return TaskSummary{ID: t.ID, Description: t.Description, Status: t.Status}
}

func (p *Project) HasParticipant(userID int) bool {
	for _, u := range p.Participants {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// Utility methods
func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ParseTaskStatus matches case-insensitively and ignores separators, so
// "in_progress", "in-progress" and "InProgress" are all accepted.
// The legacy labels are accepted as well.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	key := normalizeEnum(s)
	for _, ts := range []TaskStatus{TaskStatusNew, TaskStatusInProgress, TaskStatusDone} {
		if normalizeEnum(string(ts)) == key || normalizeEnum(statusLabels[ts]) == key {
			return ts, true
		}
	}
	return "", false
}

func ParsePriority(s string) (Priority, bool) {
	key := normalizeEnum(s)
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if normalizeEnum(string(p)) == key || normalizeEnum(priorityLabels[p]) == key {
			return p, true
		}
	}
	return "", false
}

// labels older API builds send instead of the codes
var statusLabels = map[TaskStatus]string{
	TaskStatusNew:        "Новая",
	TaskStatusInProgress: "В процессе",
	TaskStatusDone:       "Завершена",
}

var priorityLabels = map[Priority]string{
	PriorityLow:    "Низкий",
	PriorityMedium: "Средний",
	PriorityHigh:   "Высокий",
}

// UnmarshalJSON normalizes known spellings and labels. Unknown values are
// kept verbatim so they still count toward totals.
func (ts *TaskStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, ok := ParseTaskStatus(raw); ok {
		*ts = parsed
		return nil
	}
	*ts = TaskStatus(raw)
	return nil
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, ok := ParsePriority(raw); ok {
		*p = parsed
		return nil
	}
	*p = Priority(raw)
	return nil
}

func normalizeEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
