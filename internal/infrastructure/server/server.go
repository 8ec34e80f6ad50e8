package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpHandlers "github.com/taskmaster/taskboard/internal/adapters/http"
	"github.com/taskmaster/taskboard/internal/adapters/repository"
	"github.com/taskmaster/taskboard/internal/adapters/storage"
	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/config"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
)

// Server is the stub task board API
type Server struct {
	echo   *echo.Echo
	config *config.Config
	logger *logger.Logger
}

// New creates a server backed by an in-memory store and seeds the admin
// account from cfg.Seed.
func New(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	store := repository.NewMemoryStore()
	files, err := storage.NewLocalStore(cfg.Uploads.Dir)
	if err != nil {
		return nil, err
	}

	// Initialize services
	authService := services.NewAuthService(store.Users(), cfg.JWT, appLogger.WithComponent("auth"))
	userService := services.NewUserService(store.Users(), store.Tasks(), appLogger.WithComponent("users"))
	projectService := services.NewProjectService(store.Projects(), store.Tasks(), store.Users(), appLogger.WithComponent("projects"))
	taskService := services.NewTaskService(store.Tasks(), store.Projects(), store.Users(), files, appLogger.WithComponent("tasks"))
	reportService := services.NewReportService(store.Tasks(), store.Projects(), appLogger.WithComponent("reports"))

	if err := authService.EnsureAdmin(ctx, cfg.Seed.AdminUsername, cfg.Seed.AdminPassword); err != nil {
		return nil, err
	}

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
	}

	server.setupMiddleware()

	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	server.setupRoutes(
		httpHandlers.NewAuthHandler(authService, appLogger),
		httpHandlers.NewUserHandler(userService, appLogger),
		httpHandlers.NewProjectHandler(projectService, appLogger),
		httpHandlers.NewTaskHandler(taskService, appLogger),
		httpHandlers.NewReportHandler(reportService, appLogger),
		authService,
		files.Dir(),
	)

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// FastAPI-style clients hit both /tasks and /tasks/
	s.echo.Pre(middleware.RemoveTrailingSlash())

	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			reqLogger := s.logger.WithRequestID(values.RequestID)
			if values.Error != nil {
				reqLogger = reqLogger.WithError(values.Error)
			}
			reqLogger.LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status,
				float64(values.Latency.Nanoseconds())/1000000)
			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
	}))

	if s.config.Security.RateLimitRequests > 0 {
		window := s.config.Security.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(float64(s.config.Security.RateLimitRequests) / window.Seconds()),
				Burst:     s.config.Security.RateLimitRequests,
				ExpiresIn: window,
			}),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(ctx echo.Context, err error) error {
				return ctx.JSON(http.StatusForbidden, map[string]string{"detail": "rate limit exceeded"})
			},
			DenyHandler: func(ctx echo.Context, identifier string, err error) error {
				return ctx.JSON(http.StatusTooManyRequests, map[string]string{"detail": "rate limit exceeded"})
			},
		}))
	}

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))
}

// setupRoutes registers the task board API
func (s *Server) setupRoutes(
	authHandler *httpHandlers.AuthHandler,
	userHandler *httpHandlers.UserHandler,
	projectHandler *httpHandlers.ProjectHandler,
	taskHandler *httpHandlers.TaskHandler,
	reportHandler *httpHandlers.ReportHandler,
	authService *services.AuthService,
	uploadDir string,
) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.Static(strings.TrimSuffix(storage.URLPrefix, "/"), uploadDir)

	// Public routes
	s.echo.POST("/auth/token", authHandler.Token)
	s.echo.POST("/register", authHandler.Register)

	auth := s.authMiddleware(authService)
	can := s.requirePermission

	projects := s.echo.Group("/projects", auth)
	projects.GET("", projectHandler.ListProjects, can(entities.PermViewProjects))
	projects.POST("", projectHandler.CreateProject, can(entities.PermCreateProject))
	projects.GET("/search", projectHandler.SearchProjects, can(entities.PermViewProjects))
	projects.PUT("/:id", projectHandler.UpdateProject, can(entities.PermEditProject))
	projects.DELETE("/:id", projectHandler.DeleteProject, can(entities.PermDeleteProject))
	projects.GET("/:id/detail", projectHandler.GetProjectDetail, can(entities.PermViewProjects))
	projects.POST("/:id/participants", projectHandler.AddParticipant, can(entities.PermManageParticipants))
	projects.DELETE("/:id/participants/:userId", projectHandler.RemoveParticipant, can(entities.PermManageParticipants))
	projects.POST("/:id/leader", projectHandler.AssignLeader, can(entities.PermAssignLeader))

	tasks := s.echo.Group("/tasks", auth)
	tasks.GET("", taskHandler.ListTasks, can(entities.PermViewTasks))
	tasks.POST("", taskHandler.CreateTask, can(entities.PermCreateTask))
	tasks.GET("/search", taskHandler.SearchTasks, can(entities.PermViewTasks))
	tasks.GET("/:id", taskHandler.GetTask, can(entities.PermViewTasks))
	tasks.PUT("/:id", taskHandler.UpdateTask, can(entities.PermUpdateTaskProgress))
	tasks.DELETE("/:id", taskHandler.DeleteTask, can(entities.PermDeleteTask))
	tasks.POST("/:id/comments", taskHandler.AddComment, can(entities.PermComment))
	tasks.POST("/:id/attachments", taskHandler.UploadAttachment, can(entities.PermUploadAttachment))
	tasks.DELETE("/:id/attachments/:attachmentId", taskHandler.DeleteAttachment, can(entities.PermDeleteAttachment))
	tasks.POST("/:id/subtasks", taskHandler.CreateSubtask, can(entities.PermCreateSubtask))

	users := s.echo.Group("/users", auth)
	users.GET("", userHandler.ListUsers, can(entities.PermViewUsers))
	users.POST("", userHandler.CreateUser, can(entities.PermCreateUser))
	users.GET("/:id", userHandler.GetUser, can(entities.PermViewUsers))
	users.PUT("/:id", userHandler.UpdateUser, can(entities.PermEditUser))
	users.DELETE("/:id", userHandler.DeleteUser, can(entities.PermDeleteUser))

	reports := s.echo.Group("/reports", auth)
	reports.GET("/task-stats", reportHandler.TaskStats, can(entities.PermViewReports))
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskboard",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskboard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = statusFor(err)
				}
			}

			requestsTotal.WithLabelValues(c.Request().Method, c.Path(), fmt.Sprintf("%d", status)).Inc()
			requestDuration.WithLabelValues(c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": s.config.App.Version,
	})
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}
