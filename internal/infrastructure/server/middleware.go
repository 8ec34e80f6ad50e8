package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/taskmaster/taskboard/internal/adapters/http"
	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
)

// authMiddleware validates bearer tokens
func (s *Server) authMiddleware(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return fmt.Errorf("%w: not authenticated", entities.ErrUnauthenticated)
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return fmt.Errorf("%w: invalid authorization header format", entities.ErrUnauthenticated)
			}

			identity, err := authService.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", 0, c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return err
			}

			httpHandlers.SetIdentity(c, identity)
			return next(c)
		}
	}
}

// requirePermission rejects callers whose role lacks p
func (s *Server) requirePermission(p entities.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := httpHandlers.CurrentIdentity(c)
			if identity.Role.Can(p) {
				return next(c)
			}

			s.logger.LogSecurityEvent("insufficient_permissions", identity.UserID, c.RealIP(), map[string]interface{}{
				"required_permission": p,
				"user_role":           identity.Role,
				"endpoint":            c.Request().URL.Path,
			})
			return fmt.Errorf("%w: insufficient permissions", entities.ErrForbidden)
		}
	}
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, entities.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// customErrorHandler renders every error as {"detail": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := statusFor(err)
		detail := err.Error()

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			detail = fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		}

		if code == http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
			detail = http.StatusText(code)
		}
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]string{"detail": detail})
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}
