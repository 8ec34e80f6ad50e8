package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/taskboard/internal/application/services"
	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

type staticCreds struct {
	token        string
	unauthorized int
}

func (c *staticCreds) AccessToken() string { return c.token }

func (c *staticCreds) Unauthorized(context.Context) { c.unauthorized++ }

func newTestClient(t *testing.T, handler http.HandlerFunc, creds ports.Credentials) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second, creds, nil)
}

func TestClient_SendsBearerToken(t *testing.T) {
	var got *http.Request
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id":1,"description":"a","status":"Done","priority":"Low","assigned_user":null,"project_id":1}]`)
	}, &staticCreds{token: "abc"})

	tasks, err := client.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, entities.TaskStatusDone, tasks[0].Status)

	require.NotNil(t, got)
	assert.Equal(t, "Bearer abc", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.Equal(t, "/tasks/", got.URL.Path)
}

func TestClient_TokenIsFormEncodedAndAnonymous(t *testing.T) {
	creds := &staticCreds{token: "stale"}
	var form url.Values
	var auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		auth = r.Header.Get("Authorization")
		if form.Get("password") != "right" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"Incorrect username or password"}`)
			return
		}
		io.WriteString(w, `{"access_token":"tok","token_type":"bearer"}`)
	}, creds)

	resp, err := client.Token(context.Background(), ports.LoginRequest{Username: "maria", Password: "right"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.AccessToken)
	assert.Equal(t, "maria", form.Get("username"))
	assert.Empty(t, auth)

	_, err = client.Token(context.Background(), ports.LoginRequest{Username: "maria", Password: "wrong"})
	assert.ErrorIs(t, err, entities.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "Incorrect username or password")
	assert.Zero(t, creds.unauthorized, "a failed login does not invalidate the session")
}

func TestClient_UnauthorizedInvalidatesSession(t *testing.T) {
	creds := &staticCreds{token: "expired"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}, creds)

	_, err := client.ListProjects(context.Background())
	assert.ErrorIs(t, err, entities.ErrUnauthenticated)
	assert.Equal(t, 1, creds.unauthorized)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
		detail string
	}{
		{status: http.StatusForbidden, body: `{"detail":"Not enough permissions"}`, want: entities.ErrForbidden, detail: "Not enough permissions"},
		{status: http.StatusNotFound, body: `{"detail":"Task not found"}`, want: entities.ErrNotFound, detail: "Task not found"},
		{status: http.StatusConflict, body: `{"detail":"exists"}`, want: entities.ErrConflict, detail: "exists"},
		{status: http.StatusBadRequest, body: `{"detail":"bad"}`, want: entities.ErrValidation, detail: "bad"},
		{
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":[{"loc":["body","description"],"msg":"field required"},{"loc":["body","project_id"],"msg":"not an int"}]}`,
			want:   entities.ErrValidation,
			detail: "description: field required; project_id: not an int",
		},
		{status: http.StatusInternalServerError, body: `oops`, detail: "oops"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}, &staticCreds{token: "t"})

			_, err := client.GetTask(context.Background(), 1)
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
			assert.Equal(t, "/tasks/1", apiErr.Path)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.Nil(t, apiErr.Unwrap())
			}
		})
	}
}

func TestClient_ValidatesBeforeSending(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, &staticCreds{token: "t"})

	_, err := client.CreateTask(context.Background(), ports.CreateTaskRequest{ProjectID: 1})
	assert.ErrorIs(t, err, entities.ErrValidation)
	_, err = client.AddComment(context.Background(), 1, ports.CommentRequest{})
	assert.ErrorIs(t, err, entities.ErrValidation)
	_, err = client.UploadAttachment(context.Background(), 1, "", strings.NewReader("x"))
	assert.ErrorIs(t, err, entities.ErrValidation)
	assert.False(t, called)
}

func TestClient_RequestShapes(t *testing.T) {
	type seen struct {
		method string
		path   string
		query  url.Values
		body   map[string]interface{}
	}
	var last seen
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		last = seen{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
		if r.Header.Get("Content-Type") == "application/json" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&last.body))
		}
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case strings.HasPrefix(r.URL.Path, "/reports"):
			io.WriteString(w, `{"total_tasks":3,"new_tasks":1,"in_progress_tasks":0,"completed_tasks":2}`)
		case strings.Contains(r.URL.Path, "search"):
			io.WriteString(w, `[]`)
		default:
			io.WriteString(w, `{"id":5}`)
		}
	}, &staticCreds{token: "t"})
	ctx := context.Background()

	_, err := client.SearchProjects(ctx, "moon shot")
	require.NoError(t, err)
	assert.Equal(t, "/projects/search/", last.path)
	assert.Equal(t, "moon shot", last.query.Get("query"))

	_, err = client.AddParticipant(ctx, 3, ports.ParticipantRequest{UserID: 9})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, last.method)
	assert.Equal(t, "/projects/3/participants", last.path)
	assert.Equal(t, float64(9), last.body["user_id"])

	_, err = client.RemoveParticipant(ctx, 3, 9)
	require.NoError(t, err)
	assert.Equal(t, "/projects/3/participants/9", last.path)

	_, err = client.AssignLeader(ctx, 3, ports.ParticipantRequest{UserID: 9})
	require.NoError(t, err)
	assert.Equal(t, "/projects/3/leader", last.path)

	require.NoError(t, client.DeleteAttachment(ctx, 4, 2))
	assert.Equal(t, "/tasks/4/attachments/2", last.path)

	projectID := 3
	stats, err := client.TaskStats(ctx, &projectID)
	require.NoError(t, err)
	assert.Equal(t, "3", last.query.Get("project_id"))
	assert.Equal(t, 2, stats.CompletedTasks)

	_, err = client.TaskStats(ctx, nil)
	require.NoError(t, err)
	assert.False(t, last.query.Has("project_id"))

	status := entities.TaskStatusInProgress
	_, err = client.UpdateTask(ctx, 4, ports.UpdateTaskRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, last.method)
	assert.Equal(t, map[string]interface{}{"status": "InProgress"}, last.body)
}

func TestClient_UploadAttachment(t *testing.T) {
	var filename, content string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		filename, content = header.Filename, string(data)
		io.WriteString(w, `{"id":1,"filename":"notes.txt","file_url":"/uploads/x.txt","task_id":4}`)
	}, &staticCreds{token: "t"})

	att, err := client.UploadAttachment(context.Background(), 4, "/home/me/notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", filename)
	assert.Equal(t, "hello", content)
	assert.Equal(t, 4, att.TaskID)
}

func TestClient_NetworkError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, nil, nil)
	_, err := client.ListUsers(context.Background())
	require.Error(t, err)
	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_DecodesNaiveTimestamps(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": 3, "name": "Apollo", "created_at": "2024-03-01T09:00:00",
			"participants": [],
			"tasks": [{
				"id": 1, "description": "Build rocket", "status": "Done", "priority": "High",
				"assigned_user": {"id": 2, "username": "egor", "role": "executor"},
				"project_id": 3, "estimated_time": 4, "time_spent": 3,
				"due_date": "2024-05-01T00:00:00",
				"created_at": "2024-04-01T10:00:00.123456",
				"assignment_date": null,
				"comments": [{"id": 5, "content": "ok", "created_at": "2024-04-02T08:30:00", "user_id": 2}],
				"parent_task_id": null
			}]
		}`)
	}, &staticCreds{token: "abc"})

	project, err := client.GetProjectDetail(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, project.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), *project.CreatedAt)

	require.Len(t, project.Tasks, 1)
	task := project.Tasks[0]
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *task.DueDate)
	assert.Equal(t, time.Date(2024, 4, 1, 10, 0, 0, 123456000, time.UTC), task.CreatedAt)
	assert.Nil(t, task.AssignmentDate)
	require.Len(t, task.Comments, 1)
	assert.Equal(t, time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC), task.Comments[0].CreatedAt)
	assert.Equal(t, entities.RoleExecutor, task.AssignedUser.Role)

	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	filtered := services.FilterTasks(project.Tasks, services.TaskCriteria{DueBefore: &due})
	assert.Len(t, filtered, 1)
}
