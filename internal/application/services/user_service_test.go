package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

func TestUserService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	email := "dina@example.com"
	user, err := w.users.CreateUser(ctx, w.admin, ports.CreateUserRequest{
		Username: "dina",
		Password: "secret1",
		Email:    &email,
		Role:     entities.RoleManager,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleManager, user.Role)
	assert.Empty(t, user.PasswordHash)

	_, err = w.auth.Login(ctx, ports.LoginRequest{Username: "dina", Password: "secret1"})
	assert.NoError(t, err)

	_, err = w.users.CreateUser(ctx, w.admin, ports.CreateUserRequest{Username: "bad", Password: "secret1", Role: "owner"})
	assert.ErrorIs(t, err, entities.ErrValidation)

	task := w.newTask(t, "Onboard", &w.executor)
	got, err := w.users.GetUser(ctx, w.executor.UserID)
	require.NoError(t, err)
	require.Len(t, got.AssignedTasks, 1)
	assert.Equal(t, task.ID, got.AssignedTasks[0].ID)

	users, err := w.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 5)
	for _, u := range users {
		assert.Empty(t, u.PasswordHash)
	}
}

func TestUserService_RoleChanges(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	manager := entities.RoleManager
	executor := entities.RoleExecutor

	updated, err := w.users.UpdateUser(ctx, w.admin, w.executor.UserID, ports.UpdateUserRequest{Role: &manager})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleManager, updated.Role)

	_, err = w.users.UpdateUser(ctx, w.manager, w.other.UserID, ports.UpdateUserRequest{Role: &manager})
	assert.ErrorIs(t, err, entities.ErrForbidden)

	_, err = w.users.UpdateUser(ctx, w.admin, w.admin.UserID, ports.UpdateUserRequest{Role: &executor})
	assert.ErrorIs(t, err, entities.ErrValidation)

	name := "Olga P."
	updated, err = w.users.UpdateUser(ctx, w.manager, w.other.UserID, ports.UpdateUserRequest{FullName: &name, Role: &executor})
	require.NoError(t, err)
	assert.Equal(t, "Olga P.", *updated.FullName)
}

func TestUserService_DeleteClearsReferences(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	task := w.newTask(t, "Orphaned", &w.executor)
	_, err := w.projects.AssignLeader(ctx, w.manager, w.project.ID, ports.ParticipantRequest{UserID: w.executor.UserID})
	require.NoError(t, err)

	assert.ErrorIs(t, w.users.DeleteUser(ctx, w.admin, w.admin.UserID), entities.ErrValidation)
	require.NoError(t, w.users.DeleteUser(ctx, w.admin, w.executor.UserID))

	got, err := w.tasks.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedUser)

	p, err := w.projects.GetProjectDetail(ctx, w.project.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Leader)
	assert.Empty(t, p.Participants)

	_, err = w.users.GetUser(ctx, w.executor.UserID)
	assert.ErrorIs(t, err, entities.ErrUserNotFound)
}

func TestReportService_TaskStats(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	a := w.newTask(t, "One", nil)
	w.newTask(t, "Two", nil)
	done := entities.TaskStatusDone
	_, err := w.tasks.UpdateTask(ctx, w.manager, a.ID, ports.UpdateTaskRequest{Status: &done})
	require.NoError(t, err)

	other, err := w.projects.CreateProject(ctx, w.manager, ports.CreateProjectRequest{Name: "Other"})
	require.NoError(t, err)
	_, err = w.tasks.CreateTask(ctx, w.manager, ports.CreateTaskRequest{Description: "Three", ProjectID: other.ID})
	require.NoError(t, err)

	stats, err := w.reports.TaskStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, ports.TaskStats{TotalTasks: 3, NewTasks: 2, CompletedTasks: 1}, *stats)

	stats, err = w.reports.TaskStats(ctx, &w.project.ID)
	require.NoError(t, err)
	assert.Equal(t, ports.TaskStats{TotalTasks: 2, NewTasks: 1, CompletedTasks: 1}, *stats)

	missing := 999
	_, err = w.reports.TaskStats(ctx, &missing)
	assert.ErrorIs(t, err, entities.ErrProjectNotFound)
}
