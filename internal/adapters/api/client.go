package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// Client talks to the task board REST API. It implements the ports.*API
// interfaces.
type Client struct {
	baseURL string
	http    *http.Client
	creds   ports.Credentials
	logger  *logger.Logger
}

var (
	_ ports.AuthAPI    = (*Client)(nil)
	_ ports.ProjectAPI = (*Client)(nil)
	_ ports.TaskAPI    = (*Client)(nil)
	_ ports.UserAPI    = (*Client)(nil)
	_ ports.ReportAPI  = (*Client)(nil)
)

// NewClient creates a client for baseURL. creds may be nil for anonymous use.
func NewClient(baseURL string, timeout time.Duration, creds ports.Credentials, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		logger:  log.WithComponent("api"),
	}
}

// Error is a non-2xx response. It unwraps to the matching domain sentinel so
// callers can use errors.Is(err, entities.ErrNotFound) and friends.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Detail)
}

func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return entities.ErrUnauthenticated
	case http.StatusForbidden:
		return entities.ErrForbidden
	case http.StatusNotFound:
		return entities.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return entities.ErrValidation
	case http.StatusConflict:
		return entities.ErrConflict
	default:
		return nil
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// anonymous requests carry no token and never invalidate the session
	anonymous bool
}

func (c *Client) jsonRequest(method, path string, payload interface{}) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	if err := ports.Validate(payload); err != nil {
		return req, err
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("failed to encode request: %w", err)
	}
	req.body = bytes.NewReader(buf)
	req.contentType = "application/json"
	return req, nil
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.anonymous && c.creds != nil {
		if token := c.creds.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.LogAPICall(r.method, r.path, 0, float64(time.Since(start).Microseconds())/1000, err)
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.logger.LogAPICall(r.method, r.path, resp.StatusCode, float64(time.Since(start).Microseconds())/1000, err)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", r.method, r.path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{
			Method:     r.method,
			Path:       r.path,
			StatusCode: resp.StatusCode,
			Detail:     errorDetail(body),
		}
		if resp.StatusCode == http.StatusUnauthorized && !r.anonymous && c.creds != nil {
			c.creds.Unauthorized(ctx)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", r.method, r.path, err)
	}
	return nil
}

// errorDetail extracts the detail field; it may be a string or a list of
// field errors.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string        `json:"msg"`
		Loc []interface{} `json:"loc"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(envelope.Detail)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload, out interface{}) error {
	r, err := c.jsonRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, r, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path}, nil)
}
