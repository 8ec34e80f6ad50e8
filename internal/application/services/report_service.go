package services

import (
	"context"
	"fmt"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// ReportService computes task statistics
type ReportService struct {
	taskRepo    ports.TaskRepository
	projectRepo ports.ProjectRepository
	logger      *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(taskRepo ports.TaskRepository, projectRepo ports.ProjectRepository, logger *logger.Logger) *ReportService {
	return &ReportService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// TaskStats counts tasks by status, across all projects or for one.
func (s *ReportService) TaskStats(ctx context.Context, projectID *int) (*ports.TaskStats, error) {
	filter := ports.TaskFilter{}
	if projectID != nil {
		if _, err := s.projectRepo.GetByID(ctx, *projectID); err != nil {
			return nil, err
		}
		filter.ProjectID = projectID
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	flat := make([]entities.Task, 0, len(tasks))
	for _, t := range tasks {
		flat = append(flat, *t)
	}
	counts := ComputeStatusCounts(flat)
	s.logger.Debugw("Computed task stats", "project_id", projectID, "total", counts.Total)

	return &ports.TaskStats{
		TotalTasks:      counts.Total,
		NewTasks:        counts.NewCount,
		InProgressTasks: counts.InProgressCount,
		CompletedTasks:  counts.DoneCount,
	}, nil
}
