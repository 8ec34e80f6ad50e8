package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskmaster/taskboard/internal/adapters/repository"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/config"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

type fakeFiles struct {
	mu      sync.Mutex
	files   map[string][]byte
	saveErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{files: map[string][]byte{}}
}

func (f *fakeFiles) Save(_ context.Context, name string, content io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = buf.Bytes()
	return "/uploads/" + name, nil
}

func (f *fakeFiles) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, name)
	return nil
}

// world is a seeded stub backend: one user per role and a project.
type world struct {
	store    *repository.MemoryStore
	files    *fakeFiles
	auth     *AuthService
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
	reports  *ReportService

	admin    Identity
	manager  Identity
	executor Identity
	other    Identity
	project  *entities.Project
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	w := &world{store: repository.NewMemoryStore(), files: newFakeFiles()}
	w.auth = NewAuthService(w.store.Users(), config.JWTConfig{
		Secret:    "test-secret",
		ExpiresIn: time.Hour,
		Issuer:    "taskboard-test",
	}, log)
	w.users = NewUserService(w.store.Users(), w.store.Tasks(), log)
	w.projects = NewProjectService(w.store.Projects(), w.store.Tasks(), w.store.Users(), log)
	w.tasks = NewTaskService(w.store.Tasks(), w.store.Projects(), w.store.Users(), w.files, log)
	w.reports = NewReportService(w.store.Tasks(), w.store.Projects(), log)

	mk := func(name string, role entities.Role) Identity {
		u := &entities.User{Username: name, Role: role}
		require.NoError(t, w.store.Users().Create(ctx, u))
		return Identity{Role: role, UserID: u.ID, Username: name}
	}
	w.admin = mk("admin", entities.RoleAdmin)
	w.manager = mk("maria", entities.RoleManager)
	w.executor = mk("egor", entities.RoleExecutor)
	w.other = mk("olga", entities.RoleExecutor)

	project, err := w.projects.CreateProject(ctx, w.manager, ports.CreateProjectRequest{Name: "Apollo"})
	require.NoError(t, err)
	w.project = project
	return w
}

func (w *world) newTask(t *testing.T, description string, assignee *Identity) *entities.Task {
	t.Helper()
	req := ports.CreateTaskRequest{Description: description, ProjectID: w.project.ID}
	if assignee != nil {
		req.AssignedUserID = &assignee.UserID
	}
	task, err := w.tasks.CreateTask(context.Background(), w.manager, req)
	require.NoError(t, err, fmt.Sprintf("create task %q", description))
	return task
}
