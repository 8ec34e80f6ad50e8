package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

// Token exchanges credentials for an access token. The body is form-encoded.
func (c *Client) Token(ctx context.Context, req ports.LoginRequest) (*ports.TokenResponse, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)

	var resp ports.TokenResponse
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req ports.RegisterRequest) (*entities.User, error) {
	r, err := c.jsonRequest(http.MethodPost, "/register", req)
	if err != nil {
		return nil, err
	}
	r.anonymous = true

	var user entities.User
	if err := c.do(ctx, r, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
