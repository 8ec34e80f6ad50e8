package entities

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Role
		wantErr bool
	}{
		{name: "admin code", input: "admin", want: RoleAdmin},
		{name: "mixed case code", input: "Manager", want: RoleManager},
		{name: "padded code", input: "  executor ", want: RoleExecutor},
		{name: "admin label", input: "Администратор", want: RoleAdmin},
		{name: "manager label", input: "Менеджер", want: RoleManager},
		{name: "executor label", input: "Исполнитель", want: RoleExecutor},
		{name: "unknown", input: "superuser", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownRole))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Role
		wantErr bool
	}{
		{name: "plain code", payload: `"manager"`, want: RoleManager},
		{name: "object with label", payload: `{"id":2,"name":"Менеджер"}`, want: RoleManager},
		{name: "object with code", payload: `{"id":1,"name":"admin"}`, want: RoleAdmin},
		{name: "empty string", payload: `""`, want: ""},
		{name: "unknown role", payload: `"guest"`, wantErr: true},
		{name: "wrong type", payload: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Role
			err := json.Unmarshal([]byte(tt.payload), &r)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}
}

func TestCapabilities(t *testing.T) {
	admin := Capabilities(RoleAdmin)
	manager := Capabilities(RoleManager)
	executor := Capabilities(RoleExecutor)

	t.Run("roles are nested", func(t *testing.T) {
		for p := range executor {
			assert.True(t, manager.Has(p), "manager should have %s", p)
		}
		for p := range manager {
			assert.True(t, admin.Has(p), "admin should have %s", p)
		}
		assert.Greater(t, len(admin), len(manager))
		assert.Greater(t, len(manager), len(executor))
	})

	t.Run("executor only progresses work", func(t *testing.T) {
		assert.True(t, executor.Has(PermViewTasks))
		assert.True(t, executor.Has(PermUpdateTaskProgress))
		assert.True(t, executor.Has(PermComment))
		assert.True(t, executor.Has(PermUploadAttachment))
		assert.False(t, executor.Has(PermEditTask))
		assert.False(t, executor.Has(PermCreateTask))
		assert.False(t, executor.Has(PermDeleteAttachment))
		assert.False(t, executor.Has(PermViewReports))
	})

	t.Run("only admin manages users", func(t *testing.T) {
		for _, p := range []Permission{PermCreateUser, PermEditUser, PermChangeUserRole, PermDeleteUser, PermDeleteProject} {
			assert.Equal(t, []Role{RoleAdmin}, RolesWith(p), "permission %s", p)
		}
	})

	t.Run("unknown role has nothing", func(t *testing.T) {
		assert.Empty(t, Capabilities("guest"))
		assert.Empty(t, Capabilities(""))
		assert.False(t, Role("guest").Can(PermViewProjects))
	})

	t.Run("list is sorted", func(t *testing.T) {
		list := executor.List()
		require.Len(t, list, len(executor))
		for i := 1; i < len(list); i++ {
			assert.Less(t, string(list[i-1]), string(list[i]))
		}
	})
}

func TestRole_DisplayName(t *testing.T) {
	assert.Equal(t, "Администратор", RoleAdmin.DisplayName())
	assert.Equal(t, "Исполнитель", RoleExecutor.DisplayName())
	assert.Equal(t, "guest", Role("guest").DisplayName())
}
