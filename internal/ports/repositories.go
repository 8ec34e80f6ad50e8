package ports

import (
	"context"
	"io"

	"github.com/taskmaster/taskboard/internal/domain/entities"
)

// SessionStore is the key-value persistence the session controller keeps the
// issued token in between runs.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id int) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]*entities.User, error)
}

// ProjectRepository defines the interface for project data operations.
// Stored projects carry leader and participants as references; tasks are
// kept by the TaskRepository.
type ProjectRepository interface {
	Create(ctx context.Context, project *entities.Project) error
	GetByID(ctx context.Context, id int) (*entities.Project, error)
	Update(ctx context.Context, project *entities.Project) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]*entities.Project, error)
	Search(ctx context.Context, query string) ([]*entities.Project, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, id int) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	Search(ctx context.Context, query string) ([]*entities.Task, error)
	AddComment(ctx context.Context, taskID int, comment *entities.Comment) error
	AddAttachment(ctx context.Context, taskID int, attachment *entities.Attachment) error
	DeleteAttachment(ctx context.Context, taskID, attachmentID int) (*entities.Attachment, error)
}

// TaskFilter narrows repository listings; nil fields match everything.
type TaskFilter struct {
	ProjectID  *int
	AssigneeID *int
	ParentID   *int
	TopLevel   bool
}

// FileStore keeps uploaded attachment content. Save returns the public URL
// the file is served from.
type FileStore interface {
	Save(ctx context.Context, name string, content io.Reader) (string, error)
	Remove(ctx context.Context, name string) error
}
