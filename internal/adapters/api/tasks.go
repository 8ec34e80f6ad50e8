package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

// ListTasks returns the tasks visible to the caller. Executors only see
// tasks assigned to them.
func (c *Client) ListTasks(ctx context.Context) ([]entities.Task, error) {
	var tasks []entities.Task
	if err := c.get(ctx, "/tasks/", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id int) (*entities.Task, error) {
	var task entities.Task
	if err := c.get(ctx, fmt.Sprintf("/tasks/%d", id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	return c.taskCall(ctx, http.MethodPost, "/tasks", req)
}

func (c *Client) UpdateTask(ctx context.Context, id int, req ports.UpdateTaskRequest) (*entities.Task, error) {
	return c.taskCall(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), req)
}

func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/tasks/%d", id))
}

func (c *Client) SearchTasks(ctx context.Context, query string) ([]entities.Task, error) {
	var tasks []entities.Task
	if err := c.get(ctx, "/tasks/search/", url.Values{"query": {query}}, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) AddComment(ctx context.Context, taskID int, req ports.CommentRequest) (*entities.Comment, error) {
	var comment entities.Comment
	if err := c.send(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d/comments", taskID), req, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// UploadAttachment posts content as the multipart field "file".
func (c *Client) UploadAttachment(ctx context.Context, taskID int, filename string, content io.Reader) (*entities.Attachment, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", entities.ErrValidation)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var attachment entities.Attachment
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("/tasks/%d/attachments", taskID),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &attachment)
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, taskID, attachmentID int) error {
	return c.delete(ctx, fmt.Sprintf("/tasks/%d/attachments/%d", taskID, attachmentID))
}

func (c *Client) CreateSubtask(ctx context.Context, parentID int, req ports.CreateSubtaskRequest) (*entities.Task, error) {
	return c.taskCall(ctx, http.MethodPost, fmt.Sprintf("/tasks/%d/subtasks", parentID), req)
}

func (c *Client) taskCall(ctx context.Context, method, path string, payload interface{}) (*entities.Task, error) {
	var task entities.Task
	if err := c.send(ctx, method, path, payload, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
