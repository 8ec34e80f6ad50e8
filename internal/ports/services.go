package ports

import (
	"context"
	"io"
	"time"

	"github.com/taskmaster/taskboard/internal/domain/entities"
)

// Credentials supplies the bearer token for outgoing requests and is told
// when the API rejects it.
type Credentials interface {
	AccessToken() string
	Unauthorized(ctx context.Context)
}

// AuthAPI covers the unauthenticated endpoints
type AuthAPI interface {
	Token(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Register(ctx context.Context, req RegisterRequest) (*entities.User, error)
}

type ProjectAPI interface {
	ListProjects(ctx context.Context) ([]entities.Project, error)
	CreateProject(ctx context.Context, req CreateProjectRequest) (*entities.Project, error)
	UpdateProject(ctx context.Context, id int, req UpdateProjectRequest) (*entities.Project, error)
	DeleteProject(ctx context.Context, id int) error
	GetProjectDetail(ctx context.Context, id int) (*entities.Project, error)
	SearchProjects(ctx context.Context, query string) ([]entities.Project, error)
	AddParticipant(ctx context.Context, projectID int, req ParticipantRequest) (*entities.Project, error)
	RemoveParticipant(ctx context.Context, projectID, userID int) (*entities.Project, error)
	AssignLeader(ctx context.Context, projectID int, req ParticipantRequest) (*entities.Project, error)
}

type TaskAPI interface {
	ListTasks(ctx context.Context) ([]entities.Task, error)
	GetTask(ctx context.Context, id int) (*entities.Task, error)
	CreateTask(ctx context.Context, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, id int, req UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, id int) error
	SearchTasks(ctx context.Context, query string) ([]entities.Task, error)
	AddComment(ctx context.Context, taskID int, req CommentRequest) (*entities.Comment, error)
	UploadAttachment(ctx context.Context, taskID int, filename string, content io.Reader) (*entities.Attachment, error)
	DeleteAttachment(ctx context.Context, taskID, attachmentID int) error
	CreateSubtask(ctx context.Context, parentID int, req CreateSubtaskRequest) (*entities.Task, error)
}

type UserAPI interface {
	ListUsers(ctx context.Context) ([]entities.User, error)
	GetUser(ctx context.Context, id int) (*entities.User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*entities.User, error)
	UpdateUser(ctx context.Context, id int, req UpdateUserRequest) (*entities.User, error)
	DeleteUser(ctx context.Context, id int) error
}

type ReportAPI interface {
	TaskStats(ctx context.Context, projectID *int) (*TaskStats, error)
}

// Request/Response Types

// Auth related types
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type RegisterRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=6"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Role     string  `json:"role,omitempty"`
}

// User related types
type CreateUserRequest struct {
	Username string        `json:"username" validate:"required,min=3,max=50"`
	Password string        `json:"password" validate:"required,min=6"`
	FullName *string       `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Email    *string       `json:"email,omitempty" validate:"omitempty,email"`
	Role     entities.Role `json:"role" validate:"required,oneof=admin manager executor"`
}

type UpdateUserRequest struct {
	FullName *string        `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Email    *string        `json:"email,omitempty" validate:"omitempty,email"`
	Password *string        `json:"password,omitempty" validate:"omitempty,min=6"`
	Role     *entities.Role `json:"role,omitempty" validate:"omitempty,oneof=admin manager executor"`
}

// Project related types
type CreateProjectRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

type ParticipantRequest struct {
	UserID int `json:"user_id" validate:"required,gt=0"`
}

// Task related types
type CreateTaskRequest struct {
	Description    string            `json:"description" validate:"required,max=500"`
	Details        *string           `json:"details,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	Priority       entities.Priority `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
	EstimatedTime  float64           `json:"estimated_time" validate:"gte=0"`
	ProjectID      int               `json:"project_id" validate:"required,gt=0"`
	AssignedUserID *int              `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
	ParentTaskID   *int              `json:"parent_task_id,omitempty" validate:"omitempty,gt=0"`
}

// CreateSubtaskRequest omits the project: a subtask always belongs to its
// parent's project.
type CreateSubtaskRequest struct {
	Description    string            `json:"description" validate:"required,max=500"`
	Details        *string           `json:"details,omitempty"`
	DueDate        *time.Time        `json:"due_date,omitempty"`
	Priority       entities.Priority `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
	EstimatedTime  float64           `json:"estimated_time" validate:"gte=0"`
	AssignedUserID *int              `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
}

type UpdateTaskRequest struct {
	Status         *entities.TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=New InProgress Done"`
	Priority       *entities.Priority   `json:"priority,omitempty" validate:"omitempty,oneof=Low Medium High"`
	TimeSpent      *float64             `json:"time_spent,omitempty" validate:"omitempty,gte=0"`
	EstimatedTime  *float64             `json:"estimated_time,omitempty" validate:"omitempty,gte=0"`
	Description    *string              `json:"description,omitempty" validate:"omitempty,min=1,max=500"`
	Details        *string              `json:"details,omitempty"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	AssignedUserID *int                 `json:"assigned_user_id,omitempty" validate:"omitempty,gt=0"`
}

// ProgressOnly reports whether the update touches nothing but status and
// time spent, the fields an executor may change.
func (r UpdateTaskRequest) ProgressOnly() bool {
	return r.Priority == nil && r.EstimatedTime == nil && r.Description == nil &&
		r.Details == nil && r.DueDate == nil && r.AssignedUserID == nil
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// Report types
type TaskStats struct {
	TotalTasks      int `json:"total_tasks" yaml:"total_tasks"`
	NewTasks        int `json:"new_tasks" yaml:"new_tasks"`
	InProgressTasks int `json:"in_progress_tasks" yaml:"in_progress_tasks"`
	CompletedTasks  int `json:"completed_tasks" yaml:"completed_tasks"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse matches the {"detail": ...} body the API sends on failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
