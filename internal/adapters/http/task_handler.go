package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

func (h *TaskHandler) ListTasks(c echo.Context) error {
	tasks, err := h.taskService.ListTasks(c.Request().Context(), CurrentIdentity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// SearchTasks handles GET /tasks/search/?query=
func (h *TaskHandler) SearchTasks(c echo.Context) error {
	tasks, err := h.taskService.SearchTasks(c.Request().Context(), CurrentIdentity(c), c.QueryParam("query"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), CurrentIdentity(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) CreateSubtask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.CreateSubtaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateSubtask(c.Request().Context(), CurrentIdentity(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.UpdateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), CurrentIdentity(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), CurrentIdentity(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TaskHandler) AddComment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.CommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	comment, err := h.taskService.AddComment(c.Request().Context(), CurrentIdentity(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// UploadAttachment reads the multipart field "file"
func (h *TaskHandler) UploadAttachment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	header, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: multipart field \"file\" is required", entities.ErrValidation)
	}
	src, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	attachment, err := h.taskService.UploadAttachment(c.Request().Context(), CurrentIdentity(c), id, header.Filename, src)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, attachment)
}

func (h *TaskHandler) DeleteAttachment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	attachmentID, err := pathID(c, "attachmentId")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteAttachment(c.Request().Context(), CurrentIdentity(c), id, attachmentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
