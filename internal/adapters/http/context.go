package http

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
)

const identityKey = "identity"

// SetIdentity stores the authenticated caller on the request context
func SetIdentity(c echo.Context, id services.Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity returns the caller set by the auth middleware. The zero
// Identity means the request was not authenticated.
func CurrentIdentity(c echo.Context) services.Identity {
	id, _ := c.Get(identityKey).(services.Identity)
	return id
}

func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", entities.ErrValidation, name, c.Param(name))
	}
	return id, nil
}

func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid request format", entities.ErrValidation)
	}
	return nil
}

func queryID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", entities.ErrValidation, name, c.QueryParam(name))
	}
	return id, nil
}
