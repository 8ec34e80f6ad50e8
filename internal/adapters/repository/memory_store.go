package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

// MemoryStore keeps the stub API's users, projects and tasks in process
// memory. Values are copied on the way in and out.
type MemoryStore struct {
	mu sync.RWMutex

	users    map[int]entities.User
	projects map[int]entities.Project
	tasks    map[int]entities.Task

	nextUserID       int
	nextProjectID    int
	nextTaskID       int
	nextCommentID    int
	nextAttachmentID int

	now func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int]entities.User),
		projects: make(map[int]entities.Project),
		tasks:    make(map[int]entities.Task),
		now:      time.Now,
	}
}

func (s *MemoryStore) Users() ports.UserRepository       { return memoryUsers{s} }
func (s *MemoryStore) Projects() ports.ProjectRepository { return memoryProjects{s} }
func (s *MemoryStore) Tasks() ports.TaskRepository       { return memoryTasks{s} }

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return fmt.Errorf("create user: username %q %w", user.Username, entities.ErrConflict)
		}
	}

	r.s.nextUserID++
	user.ID = r.s.nextUserID
	r.s.users[user.ID] = copyUser(*user)
	return nil
}

func (r memoryUsers) GetByID(ctx context.Context, id int) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, entities.ErrUserNotFound
	}
	out := copyUser(u)
	return &out, nil
}

func (r memoryUsers) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, username) {
			out := copyUser(u)
			return &out, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (r memoryUsers) Update(ctx context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; !ok {
		return entities.ErrUserNotFound
	}
	r.s.users[user.ID] = copyUser(*user)
	return nil
}

// Delete removes the user and every reference to them.
func (r memoryUsers) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return entities.ErrUserNotFound
	}
	delete(r.s.users, id)

	for pid, p := range r.s.projects {
		if p.Leader != nil && p.Leader.ID == id {
			p.Leader = nil
		}
		kept := p.Participants[:0:0]
		for _, u := range p.Participants {
			if u.ID != id {
				kept = append(kept, u)
			}
		}
		p.Participants = kept
		r.s.projects[pid] = p
	}
	for tid, t := range r.s.tasks {
		if t.AssignedUser != nil && t.AssignedUser.ID == id {
			t.AssignedUser = nil
			t.AssignmentDate = nil
			r.s.tasks[tid] = t
		}
	}
	return nil
}

func (r memoryUsers) List(ctx context.Context) ([]*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*entities.User, 0, len(r.s.users))
	for _, id := range sortedKeys(r.s.users) {
		u := copyUser(r.s.users[id])
		out = append(out, &u)
	}
	return out, nil
}

type memoryProjects struct{ s *MemoryStore }

func (r memoryProjects) Create(ctx context.Context, project *entities.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextProjectID++
	project.ID = r.s.nextProjectID
	if project.CreatedAt == nil {
		now := r.s.now()
		project.CreatedAt = &now
	}
	r.s.projects[project.ID] = copyProject(*project)
	return nil
}

func (r memoryProjects) GetByID(ctx context.Context, id int) (*entities.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.projects[id]
	if !ok {
		return nil, entities.ErrProjectNotFound
	}
	out := copyProject(p)
	return &out, nil
}

func (r memoryProjects) Update(ctx context.Context, project *entities.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[project.ID]; !ok {
		return entities.ErrProjectNotFound
	}
	r.s.projects[project.ID] = copyProject(*project)
	return nil
}

// Delete removes the project together with its tasks.
func (r memoryProjects) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.projects[id]; !ok {
		return entities.ErrProjectNotFound
	}
	delete(r.s.projects, id)
	for tid, t := range r.s.tasks {
		if t.ProjectID != nil && *t.ProjectID == id {
			delete(r.s.tasks, tid)
		}
	}
	return nil
}

func (r memoryProjects) List(ctx context.Context) ([]*entities.Project, error) {
	return r.filter(func(entities.Project) bool { return true }), nil
}

func (r memoryProjects) Search(ctx context.Context, query string) ([]*entities.Project, error) {
	q := strings.TrimSpace(query)
	return r.filter(func(p entities.Project) bool {
		if entities.ContainsFold(p.Name, q) {
			return true
		}
		return p.Description != nil && entities.ContainsFold(*p.Description, q)
	}), nil
}

func (r memoryProjects) filter(keep func(entities.Project) bool) []*entities.Project {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entities.Project{}
	for _, id := range sortedKeys(r.s.projects) {
		p := r.s.projects[id]
		if keep(p) {
			cp := copyProject(p)
			out = append(out, &cp)
		}
	}
	return out
}

type memoryTasks struct{ s *MemoryStore }

func (r memoryTasks) Create(ctx context.Context, task *entities.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextTaskID++
	task.ID = r.s.nextTaskID
	if task.CreatedAt.IsZero() {
		task.CreatedAt = r.s.now()
	}
	r.s.tasks[task.ID] = copyTask(*task)
	return nil
}

func (r memoryTasks) GetByID(ctx context.Context, id int) (*entities.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	out := copyTask(t)
	return &out, nil
}

func (r memoryTasks) Update(ctx context.Context, task *entities.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[task.ID]; !ok {
		return entities.ErrTaskNotFound
	}
	r.s.tasks[task.ID] = copyTask(*task)
	return nil
}

// Delete removes the task and, recursively, its subtasks.
func (r memoryTasks) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tasks[id]; !ok {
		return entities.ErrTaskNotFound
	}
	r.deleteTree(id)
	return nil
}

func (r memoryTasks) deleteTree(id int) {
	delete(r.s.tasks, id)
	for tid, t := range r.s.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == id {
			r.deleteTree(tid)
		}
	}
}

func (r memoryTasks) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	return r.filter(func(t entities.Task) bool {
		if filter.ProjectID != nil && (t.ProjectID == nil || *t.ProjectID != *filter.ProjectID) {
			return false
		}
		if filter.AssigneeID != nil && (t.AssignedUser == nil || t.AssignedUser.ID != *filter.AssigneeID) {
			return false
		}
		if filter.ParentID != nil && (t.ParentTaskID == nil || *t.ParentTaskID != *filter.ParentID) {
			return false
		}
		if filter.TopLevel && t.ParentTaskID != nil {
			return false
		}
		return true
	}), nil
}

func (r memoryTasks) Search(ctx context.Context, query string) ([]*entities.Task, error) {
	q := strings.TrimSpace(query)
	return r.filter(func(t entities.Task) bool {
		if entities.ContainsFold(t.Description, q) {
			return true
		}
		return t.Details != nil && entities.ContainsFold(*t.Details, q)
	}), nil
}

func (r memoryTasks) filter(keep func(entities.Task) bool) []*entities.Task {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*entities.Task{}
	for _, id := range sortedKeys(r.s.tasks) {
		t := r.s.tasks[id]
		if keep(t) {
			cp := copyTask(t)
			out = append(out, &cp)
		}
	}
	return out
}

func (r memoryTasks) AddComment(ctx context.Context, taskID int, comment *entities.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[taskID]
	if !ok {
		return entities.ErrTaskNotFound
	}
	r.s.nextCommentID++
	comment.ID = r.s.nextCommentID
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = r.s.now()
	}
	t.Comments = append(append([]entities.Comment(nil), t.Comments...), *comment)
	r.s.tasks[taskID] = t
	return nil
}

func (r memoryTasks) AddAttachment(ctx context.Context, taskID int, attachment *entities.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[taskID]
	if !ok {
		return entities.ErrTaskNotFound
	}
	r.s.nextAttachmentID++
	attachment.ID = r.s.nextAttachmentID
	attachment.TaskID = taskID
	t.Attachments = append(append([]entities.Attachment(nil), t.Attachments...), *attachment)
	r.s.tasks[taskID] = t
	return nil
}

func (r memoryTasks) DeleteAttachment(ctx context.Context, taskID, attachmentID int) (*entities.Attachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[taskID]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	kept := make([]entities.Attachment, 0, len(t.Attachments))
	var removed *entities.Attachment
	for _, a := range t.Attachments {
		if a.ID == attachmentID {
			a := a
			removed = &a
			continue
		}
		kept = append(kept, a)
	}
	if removed == nil {
		return nil, fmt.Errorf("attachment %d %w", attachmentID, entities.ErrNotFound)
	}
	t.Attachments = kept
	r.s.tasks[taskID] = t
	return removed, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func copyUser(u entities.User) entities.User {
	u.AssignedTasks = append([]entities.TaskSummary(nil), u.AssignedTasks...)
	return u
}

func copyProject(p entities.Project) entities.Project {
	p.Participants = append([]entities.UserRef{}, p.Participants...)
	p.Tasks = nil
	return p
}

func copyTask(t entities.Task) entities.Task {
	t.Comments = append([]entities.Comment(nil), t.Comments...)
	t.Attachments = append([]entities.Attachment(nil), t.Attachments...)
	t.Subtasks = nil
	return t
}
