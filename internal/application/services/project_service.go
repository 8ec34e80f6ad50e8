package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// ProjectService handles project-related operations
type ProjectService struct {
	projectRepo ports.ProjectRepository
	taskRepo    ports.TaskRepository
	userRepo    ports.UserRepository
	logger      *logger.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projectRepo ports.ProjectRepository, taskRepo ports.TaskRepository, userRepo ports.UserRepository, logger *logger.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

func (s *ProjectService) ListProjects(ctx context.Context) ([]*entities.Project, error) {
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return s.withTasks(ctx, projects)
}

func (s *ProjectService) SearchProjects(ctx context.Context, query string) ([]*entities.Project, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", entities.ErrValidation)
	}
	projects, err := s.projectRepo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	return s.withTasks(ctx, projects)
}

// GetProjectDetail returns the project with every task that belongs to it,
// subtasks included, in creation order.
func (s *ProjectService) GetProjectDetail(ctx context.Context, id int) (*entities.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachTasks(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) CreateProject(ctx context.Context, actor Identity, req ports.CreateProjectRequest) (*entities.Project, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	project := &entities.Project{
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Participants: []entities.UserRef{},
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "project.create", map[string]interface{}{"project_id": project.ID})
	project.Tasks = []entities.Task{}
	return project, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, actor Identity, id int, req ports.UpdateProjectRequest) (*entities.Project, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = req.Description
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "project.update", map[string]interface{}{"project_id": id})
	return s.GetProjectDetail(ctx, id)
}

// DeleteProject removes the project and its tasks
func (s *ProjectService) DeleteProject(ctx context.Context, actor Identity, id int) error {
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.LogUserAction(actor.UserID, "project.delete", map[string]interface{}{"project_id": id})
	return nil
}

func (s *ProjectService) AddParticipant(ctx context.Context, actor Identity, projectID int, req ports.ParticipantRequest) (*entities.Project, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.HasParticipant(req.UserID) {
		return nil, fmt.Errorf("%w: user %d already participates in project %d", entities.ErrConflict, req.UserID, projectID)
	}

	ref, err := userRef(ctx, s.userRepo, req.UserID)
	if err != nil {
		return nil, err
	}
	project.Participants = append(project.Participants, *ref)

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "project.participant.add", map[string]interface{}{"project_id": projectID, "participant_id": req.UserID})
	return s.GetProjectDetail(ctx, projectID)
}

// RemoveParticipant drops the user from the project. Removing the leader
// also clears the leader.
func (s *ProjectService) RemoveParticipant(ctx context.Context, actor Identity, projectID, userID int) (*entities.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.HasParticipant(userID) {
		return nil, fmt.Errorf("participant %d %w", userID, entities.ErrNotFound)
	}

	kept := make([]entities.UserRef, 0, len(project.Participants))
	for _, u := range project.Participants {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	project.Participants = kept
	if project.Leader != nil && project.Leader.ID == userID {
		project.Leader = nil
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to remove participant: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "project.participant.remove", map[string]interface{}{"project_id": projectID, "participant_id": userID})
	return s.GetProjectDetail(ctx, projectID)
}

// AssignLeader makes the user the project leader, adding them as a
// participant when needed.
func (s *ProjectService) AssignLeader(ctx context.Context, actor Identity, projectID int, req ports.ParticipantRequest) (*entities.Project, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ref, err := userRef(ctx, s.userRepo, req.UserID)
	if err != nil {
		return nil, err
	}

	project.Leader = ref
	if !project.HasParticipant(ref.ID) {
		project.Participants = append(project.Participants, *ref)
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to assign leader: %w", err)
	}

	s.logger.LogUserAction(actor.UserID, "project.leader.assign", map[string]interface{}{"project_id": projectID, "leader_id": ref.ID})
	return s.GetProjectDetail(ctx, projectID)
}

func (s *ProjectService) withTasks(ctx context.Context, projects []*entities.Project) ([]*entities.Project, error) {
	for _, p := range projects {
		if err := s.attachTasks(ctx, p); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (s *ProjectService) attachTasks(ctx context.Context, project *entities.Project) error {
	tasks, err := s.taskRepo.List(ctx, ports.TaskFilter{ProjectID: &project.ID})
	if err != nil {
		return fmt.Errorf("failed to list project tasks: %w", err)
	}
	project.Tasks = make([]entities.Task, 0, len(tasks))
	for _, t := range tasks {
		project.Tasks = append(project.Tasks, *t)
	}
	return nil
}
