package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// ProjectHandler handles project-related requests
type ProjectHandler struct {
	projectService *services.ProjectService
	logger         *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService *services.ProjectService, logger *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

func (h *ProjectHandler) ListProjects(c echo.Context) error {
	projects, err := h.projectService.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

// SearchProjects handles GET /projects/search/?query=
func (h *ProjectHandler) SearchProjects(c echo.Context) error {
	projects, err := h.projectService.SearchProjects(c.Request().Context(), c.QueryParam("query"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) GetProjectDetail(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	project, err := h.projectService.GetProjectDetail(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(c echo.Context) error {
	var req ports.CreateProjectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.CreateProject(c.Request().Context(), CurrentIdentity(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.UpdateProjectRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.UpdateProject(c.Request().Context(), CurrentIdentity(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.projectService.DeleteProject(c.Request().Context(), CurrentIdentity(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProjectHandler) AddParticipant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.ParticipantRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.AddParticipant(c.Request().Context(), CurrentIdentity(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) RemoveParticipant(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return err
	}

	project, err := h.projectService.RemoveParticipant(c.Request().Context(), CurrentIdentity(c), id, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) AssignLeader(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.ParticipantRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	project, err := h.projectService.AssignLeader(c.Request().Context(), CurrentIdentity(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}
