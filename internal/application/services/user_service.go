package services

import (
	"context"
	"fmt"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// UserService handles user-related operations
type UserService struct {
	userRepo ports.UserRepository
	taskRepo ports.TaskRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

func (s *UserService) ListUsers(ctx context.Context) ([]*entities.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		u.PasswordHash = ""
	}
	return users, nil
}

// GetUser returns the user with a summary of the tasks assigned to them
func (s *UserService) GetUser(ctx context.Context, id int) (*entities.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.List(ctx, ports.TaskFilter{AssigneeID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	user.AssignedTasks = make([]entities.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		user.AssignedTasks = append(user.AssignedTasks, t.Summary())
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) CreateUser(ctx context.Context, actor Identity, req ports.CreateUserRequest) (*entities.User, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &entities.User{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "user.create", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	user.PasswordHash = ""
	return user, nil
}

// UpdateUser applies the non-nil fields of req. Changing a role needs the
// change-role permission on top of edit rights.
func (s *UserService) UpdateUser(ctx context.Context, actor Identity, id int, req ports.UpdateUserRequest) (*entities.User, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = req.FullName
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.Password != nil {
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hashed
	}
	if req.Role != nil && *req.Role != user.Role {
		if !actor.Role.Can(entities.PermChangeUserRole) {
			return nil, fmt.Errorf("%w: only administrators can change roles", entities.ErrForbidden)
		}
		if user.ID == actor.UserID {
			return nil, fmt.Errorf("%w: cannot change your own role", entities.ErrValidation)
		}
		user.Role = *req.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "user.update", map[string]interface{}{"user_id": user.ID})
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actor Identity, id int) error {
	if id == actor.UserID {
		return fmt.Errorf("%w: cannot delete your own account", entities.ErrValidation)
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.LogUserAction(actor.UserID, "user.delete", map[string]interface{}{"user_id": id})
	return nil
}

// userRef resolves a user id into the embedded reference shape
func userRef(ctx context.Context, repo ports.UserRepository, id int) (*entities.UserRef, error) {
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := user.Ref()
	return &ref, nil
}
