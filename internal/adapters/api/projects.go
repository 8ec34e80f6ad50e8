package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

func (c *Client) ListProjects(ctx context.Context) ([]entities.Project, error) {
	var projects []entities.Project
	if err := c.get(ctx, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) CreateProject(ctx context.Context, req ports.CreateProjectRequest) (*entities.Project, error) {
	return c.projectCall(ctx, http.MethodPost, "/projects", req)
}

func (c *Client) UpdateProject(ctx context.Context, id int, req ports.UpdateProjectRequest) (*entities.Project, error) {
	return c.projectCall(ctx, http.MethodPut, fmt.Sprintf("/projects/%d", id), req)
}

func (c *Client) DeleteProject(ctx context.Context, id int) error {
	return c.delete(ctx, fmt.Sprintf("/projects/%d", id))
}

// GetProjectDetail returns the project with participants and tasks embedded.
func (c *Client) GetProjectDetail(ctx context.Context, id int) (*entities.Project, error) {
	var project entities.Project
	if err := c.get(ctx, fmt.Sprintf("/projects/%d/detail", id), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) SearchProjects(ctx context.Context, query string) ([]entities.Project, error) {
	var projects []entities.Project
	if err := c.get(ctx, "/projects/search/", url.Values{"query": {query}}, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *Client) AddParticipant(ctx context.Context, projectID int, req ports.ParticipantRequest) (*entities.Project, error) {
	return c.projectCall(ctx, http.MethodPost, fmt.Sprintf("/projects/%d/participants", projectID), req)
}

func (c *Client) RemoveParticipant(ctx context.Context, projectID, userID int) (*entities.Project, error) {
	return c.projectCall(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d/participants/%d", projectID, userID), nil)
}

func (c *Client) AssignLeader(ctx context.Context, projectID int, req ports.ParticipantRequest) (*entities.Project, error) {
	return c.projectCall(ctx, http.MethodPost, fmt.Sprintf("/projects/%d/leader", projectID), req)
}

func (c *Client) projectCall(ctx context.Context, method, path string, payload interface{}) (*entities.Project, error) {
	var project entities.Project
	if err := c.send(ctx, method, path, payload, &project); err != nil {
		return nil, err
	}
	return &project, nil
}
