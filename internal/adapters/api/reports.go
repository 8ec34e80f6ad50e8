package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/taskmaster/taskboard/internal/ports"
)

// TaskStats fetches status totals, optionally for a single project.
func (c *Client) TaskStats(ctx context.Context, projectID *int) (*ports.TaskStats, error) {
	var query url.Values
	if projectID != nil {
		query = url.Values{"project_id": {strconv.Itoa(*projectID)}}
	}
	var stats ports.TaskStats
	if err := c.get(ctx, "/reports/task-stats", query, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
