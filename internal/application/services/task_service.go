package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// TaskService handles task-related operations
type TaskService struct {
	taskRepo    ports.TaskRepository
	projectRepo ports.ProjectRepository
	userRepo    ports.UserRepository
	files       ports.FileStore
	logger      *logger.Logger
	now         func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, projectRepo ports.ProjectRepository, userRepo ports.UserRepository, files ports.FileStore, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		files:       files,
		logger:      logger,
		now:         time.Now,
	}
}

// ListTasks returns every task, or only the caller's own for executors
func (s *TaskService) ListTasks(ctx context.Context, actor Identity) ([]*entities.Task, error) {
	filter := ports.TaskFilter{}
	if actor.Role == entities.RoleExecutor {
		filter.AssigneeID = &actor.UserID
	}
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) SearchTasks(ctx context.Context, actor Identity, query string) ([]*entities.Task, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", entities.ErrValidation)
	}
	tasks, err := s.taskRepo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	if actor.Role != entities.RoleExecutor {
		return tasks, nil
	}

	own := tasks[:0]
	for _, t := range tasks {
		if id, ok := t.AssigneeID(); ok && id == actor.UserID {
			own = append(own, t)
		}
	}
	return own, nil
}

// GetTask returns the task with its direct subtasks
func (s *TaskService) GetTask(ctx context.Context, id int) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	children, err := s.taskRepo.List(ctx, ports.TaskFilter{ParentID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	task.Subtasks = make([]entities.Task, 0, len(children))
	for _, c := range children {
		task.Subtasks = append(task.Subtasks, *c)
	}
	return task, nil
}

// CreateTask creates a new task
func (s *TaskService) CreateTask(ctx context.Context, actor Identity, req ports.CreateTaskRequest) (*entities.Task, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.projectRepo.GetByID(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	if req.ParentTaskID != nil {
		parent, err := s.taskRepo.GetByID(ctx, *req.ParentTaskID)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		if parent.ProjectID == nil || *parent.ProjectID != req.ProjectID {
			return nil, fmt.Errorf("%w: parent task %d belongs to another project", entities.ErrValidation, parent.ID)
		}
	}

	projectID := req.ProjectID
	task := &entities.Task{
		Description:   req.Description,
		Details:       req.Details,
		Status:        entities.TaskStatusNew,
		Priority:      req.Priority,
		ProjectID:     &projectID,
		EstimatedTime: req.EstimatedTime,
		DueDate:       req.DueDate,
		ParentTaskID:  req.ParentTaskID,
	}
	return s.create(ctx, actor, task, req.AssignedUserID)
}

// CreateSubtask creates a task under parentID, in the parent's project
func (s *TaskService) CreateSubtask(ctx context.Context, actor Identity, parentID int, req ports.CreateSubtaskRequest) (*entities.Task, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	parent, err := s.taskRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}

	task := &entities.Task{
		Description:   req.Description,
		Details:       req.Details,
		Status:        entities.TaskStatusNew,
		Priority:      req.Priority,
		ProjectID:     parent.ProjectID,
		EstimatedTime: req.EstimatedTime,
		DueDate:       req.DueDate,
		ParentTaskID:  &parent.ID,
	}
	return s.create(ctx, actor, task, req.AssignedUserID)
}

func (s *TaskService) create(ctx context.Context, actor Identity, task *entities.Task, assigneeID *int) (*entities.Task, error) {
	if task.Priority == "" {
		task.Priority = entities.PriorityMedium
	}
	if err := s.assign(ctx, task, assigneeID); err != nil {
		return nil, err
	}
	if creator, err := userRef(ctx, s.userRepo, actor.UserID); err == nil {
		task.Creator = creator
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "task.create", map[string]interface{}{"task_id": task.ID, "parent_task_id": task.ParentTaskID})
	return task, nil
}

// UpdateTask applies the non-nil fields of req. Callers without edit rights
// may only move status and time spent on tasks assigned to them.
func (s *TaskService) UpdateTask(ctx context.Context, actor Identity, id int, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.Role.Can(entities.PermEditTask) {
		if !req.ProgressOnly() {
			return nil, fmt.Errorf("%w: role %s may only update status and time spent", entities.ErrForbidden, actor.Role)
		}
		if err := requireAssignee(actor, task); err != nil {
			return nil, err
		}
	}

	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.TimeSpent != nil {
		task.TimeSpent = *req.TimeSpent
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.EstimatedTime != nil {
		task.EstimatedTime = *req.EstimatedTime
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Details != nil {
		task.Details = req.Details
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.AssignedUserID != nil {
		if err := s.assign(ctx, task, req.AssignedUserID); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "task.update", map[string]interface{}{"task_id": id, "status": task.Status})
	return s.GetTask(ctx, id)
}

// DeleteTask removes the task and its subtasks
func (s *TaskService) DeleteTask(ctx context.Context, actor Identity, id int) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.LogUserAction(actor.UserID, "task.delete", map[string]interface{}{"task_id": id})
	return nil
}

func (s *TaskService) AddComment(ctx context.Context, actor Identity, taskID int, req ports.CommentRequest) (*entities.Comment, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	comment := &entities.Comment{Content: req.Content, UserID: actor.UserID}
	if author, err := userRef(ctx, s.userRepo, actor.UserID); err == nil {
		comment.User = author
	}
	if err := s.taskRepo.AddComment(ctx, taskID, comment); err != nil {
		return nil, err
	}

	s.logger.LogUserAction(actor.UserID, "task.comment", map[string]interface{}{"task_id": taskID, "comment_id": comment.ID})
	return comment, nil
}

// UploadAttachment stores content under a generated name and links it to
// the task. The original filename is kept for display.
func (s *TaskService) UploadAttachment(ctx context.Context, actor Identity, taskID int, filename string, content io.Reader) (*entities.Attachment, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", entities.ErrValidation)
	}

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Can(entities.PermEditTask) {
		if err := requireAssignee(actor, task); err != nil {
			return nil, err
		}
	}

	stored := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	fileURL, err := s.files.Save(ctx, stored, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	attachment := &entities.Attachment{Filename: filename, FileURL: fileURL}
	if err := s.taskRepo.AddAttachment(ctx, taskID, attachment); err != nil {
		if rmErr := s.files.Remove(ctx, stored); rmErr != nil {
			s.logger.Warnw("Failed to remove orphaned upload", "file", stored, "error", rmErr)
		}
		return nil, err
	}

	s.logger.LogUserAction(actor.UserID, "task.attachment.add", map[string]interface{}{"task_id": taskID, "attachment_id": attachment.ID})
	return attachment, nil
}

func (s *TaskService) DeleteAttachment(ctx context.Context, actor Identity, taskID, attachmentID int) error {
	removed, err := s.taskRepo.DeleteAttachment(ctx, taskID, attachmentID)
	if err != nil {
		return err
	}

	name := filepath.Base(removed.FileURL)
	if err := s.files.Remove(ctx, name); err != nil {
		s.logger.Warnw("Failed to remove attachment file", "file", name, "error", err)
	}

	s.logger.LogUserAction(actor.UserID, "task.attachment.delete", map[string]interface{}{"task_id": taskID, "attachment_id": attachmentID})
	return nil
}

func (s *TaskService) assign(ctx context.Context, task *entities.Task, assigneeID *int) error {
	if assigneeID == nil {
		return nil
	}
	if current, ok := task.AssigneeID(); ok && current == *assigneeID {
		return nil
	}

	ref, err := userRef(ctx, s.userRepo, *assigneeID)
	if err != nil {
		return fmt.Errorf("assignee: %w", err)
	}
	now := s.now()
	task.AssignedUser = ref
	task.AssignmentDate = &now
	return nil
}

func requireAssignee(actor Identity, task *entities.Task) error {
	if id, ok := task.AssigneeID(); ok && id == actor.UserID {
		return nil
	}
	return fmt.Errorf("%w: task %d is not assigned to you", entities.ErrForbidden, task.ID)
}
