package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleExecutor Role = "executor"
)

// AllRoles lists the roles in order of decreasing privilege.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleExecutor}

// legacy labels the original backend wrote into tokens and user payloads
var roleLabels = map[Role]string{
	RoleAdmin:    "Администратор",
	RoleManager:  "Менеджер",
	RoleExecutor: "Исполнитель",
}

// ParseRole accepts a role code or its display label.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	switch r := Role(strings.ToLower(s)); r {
	case RoleAdmin, RoleManager, RoleExecutor:
		return r, nil
	}
	for r, label := range roleLabels {
		if s == label {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleExecutor:
		return true
	default:
		return false
	}
}

func (r Role) DisplayName() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return string(r)
}

// UnmarshalJSON accepts a plain string or the {"id":..,"name":..} object the
// user endpoints return.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		raw = obj.Name
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == "" {
		*r = ""
		return nil
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type Permission string

const (
	PermViewProjects       Permission = "projects:view"
	PermCreateProject      Permission = "projects:create"
	PermEditProject        Permission = "projects:edit"
	PermDeleteProject      Permission = "projects:delete"
	PermManageParticipants Permission = "projects:participants"
	PermAssignLeader       Permission = "projects:leader"
	PermViewTasks          Permission = "tasks:view"
	PermCreateTask         Permission = "tasks:create"
	PermEditTask           Permission = "tasks:edit"
	PermUpdateTaskProgress Permission = "tasks:progress"
	PermDeleteTask         Permission = "tasks:delete"
	PermCreateSubtask      Permission = "tasks:subtask"
	PermComment            Permission = "tasks:comment"
	PermUploadAttachment   Permission = "attachments:upload"
	PermDeleteAttachment   Permission = "attachments:delete"
	PermViewUsers          Permission = "users:view"
	PermCreateUser         Permission = "users:create"
	PermEditUser           Permission = "users:edit"
	PermChangeUserRole     Permission = "users:role"
	PermDeleteUser         Permission = "users:delete"
	PermViewReports        Permission = "reports:view"
)

// PermissionSet is evaluated once per view and then queried.
type PermissionSet map[Permission]struct{}

func newPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the permissions sorted by name.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var executorPermissions = []Permission{
	PermViewProjects,
	PermViewTasks,
	PermUpdateTaskProgress,
	PermComment,
	PermUploadAttachment,
	PermViewUsers,
}

var managerPermissions = append([]Permission{
	PermCreateProject,
	PermEditProject,
	PermManageParticipants,
	PermAssignLeader,
	PermCreateTask,
	PermEditTask,
	PermDeleteTask,
	PermCreateSubtask,
	PermDeleteAttachment,
	PermViewReports,
}, executorPermissions...)

var adminPermissions = append([]Permission{
	PermDeleteProject,
	PermCreateUser,
	PermEditUser,
	PermChangeUserRole,
	PermDeleteUser,
}, managerPermissions...)

var capabilities = map[Role]PermissionSet{
	RoleAdmin:    newPermissionSet(adminPermissions...),
	RoleManager:  newPermissionSet(managerPermissions...),
	RoleExecutor: newPermissionSet(executorPermissions...),
}

// Capabilities returns the permission set granted to role. Unknown and empty
// roles get an empty set.
func Capabilities(role Role) PermissionSet {
	if set, ok := capabilities[role]; ok {
		return set
	}
	return PermissionSet{}
}

func (r Role) Can(p Permission) bool {
	return Capabilities(r).Has(p)
}

// RolesWith returns every role granted p, in AllRoles order.
func RolesWith(p Permission) []Role {
	var roles []Role
	for _, r := range AllRoles {
		if r.Can(p) {
			roles = append(roles, r)
		}
	}
	return roles
}
