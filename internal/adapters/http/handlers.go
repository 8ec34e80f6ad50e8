package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService *services.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Token exchanges form-encoded credentials for a bearer token
func (h *AuthHandler) Token(c echo.Context) error {
	req := ports.LoginRequest{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", 0, c.RealIP(), map[string]interface{}{"username": req.Username})
		return err
	}

	return c.JSON(http.StatusOK, response)
}

// Register creates an executor account
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// UserHandler handles user-related requests
type UserHandler struct {
	userService *services.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.userService.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) CreateUser(c echo.Context) error {
	var req ports.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.userService.CreateUser(c.Request().Context(), CurrentIdentity(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ports.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.userService.UpdateUser(c.Request().Context(), CurrentIdentity(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.userService.DeleteUser(c.Request().Context(), CurrentIdentity(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ReportHandler serves aggregate statistics
type ReportHandler struct {
	reportService *services.ReportService
	logger        *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// TaskStats handles GET /reports/task-stats?project_id=
func (h *ReportHandler) TaskStats(c echo.Context) error {
	var projectID *int
	if c.QueryParam("project_id") != "" {
		id, err := queryID(c, "project_id")
		if err != nil {
			return err
		}
		projectID = &id
	}

	stats, err := h.reportService.TaskStats(c.Request().Context(), projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
