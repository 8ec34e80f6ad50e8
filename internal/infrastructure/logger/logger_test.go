package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taskmaster/taskboard/internal/infrastructure/config"
)

func observed(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggerConfig
		wantErr bool
	}{
		{"console", config.LoggerConfig{Level: "info", Format: "console", Output: "stderr"}, false},
		{"json stdout", config.LoggerConfig{Level: "debug", Format: "json", Output: "stdout"}, false},
		{"file", config.LoggerConfig{Level: "warn", Format: "json", Output: "file", Filename: filepath.Join(t.TempDir(), "taskboard.log")}, false},
		{"bad level", config.LoggerConfig{Level: "loud", Format: "console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			l.Infow("hello")
		})
	}
}

func TestOutputPaths(t *testing.T) {
	out, errOut := outputPaths(config.LoggerConfig{Output: "file"})
	assert.Equal(t, []string{"stderr"}, out, "file output without a filename falls back to stderr")
	assert.Equal(t, []string{"stderr"}, errOut)

	out, _ = outputPaths(config.LoggerConfig{Output: "stdout"})
	assert.Equal(t, []string{"stdout"}, out)
}

func TestLogUserAction_SortsMetadata(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.WithComponent("tasks").LogUserAction(7, "task.update", map[string]interface{}{"task_id": 3, "status": "Done"})

	entries := logs.All()
	require.Len(t, entries, 1)
	keys := make([]string, 0)
	for _, f := range entries[0].Context {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"component", "user_id", "action", "status", "task_id"}, keys)
	assert.Equal(t, int64(7), entries[0].ContextMap()["user_id"])
}

func TestLogHTTPRequest_LevelFollowsStatus(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)

	l.LogHTTPRequest("GET", "/tasks", "test", "127.0.0.1", 200, 1.5)
	l.LogHTTPRequest("GET", "/tasks/9", "test", "127.0.0.1", 404, 0.4)
	l.LogHTTPRequest("POST", "/tasks", "test", "127.0.0.1", 500, 2)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestLogAPICall(t *testing.T) {
	l, logs := observed(zapcore.DebugLevel)

	l.LogAPICall("GET", "/projects/", 200, 3, nil)
	l.LogAPICall("GET", "/projects/", 0, 3, errors.New("connection refused"))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "API call failed", entries[1].Message)
	assert.Equal(t, "connection refused", entries[1].ContextMap()["error"])
}

func TestWithError(t *testing.T) {
	l, logs := observed(zapcore.InfoLevel)

	l.WithRequestID("req-1").WithError(errors.New("boom")).Infow("failed")

	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", ctx["request_id"])
	assert.Equal(t, "boom", ctx["error"])
}
