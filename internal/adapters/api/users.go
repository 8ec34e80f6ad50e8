package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

func (c *Client) ListUsers(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	if err := c.get(ctx, "/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, id int) (*entities.User, error) {
	var user entities.User
	if err := c.get(ctx, fmt.Sprintf("/users/%d", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateUser(ctx context.Context, req ports.CreateUserRequest) (*entities.User, error) {
	var user entities.User
	if err := c.send(ctx, http.MethodPost, "/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id int, req ports.UpdateUserRequest) (*entities.User, error) {
	var user entities.User
	if err := c.send(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/users/%d", id))
}
