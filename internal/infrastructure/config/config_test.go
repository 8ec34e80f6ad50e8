package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.NotEmpty(t, cfg.Session.Path)
	assert.False(t, cfg.Session.StrictUserID)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, 100, cfg.Security.RateLimitRequests)
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.App.IsDevelopment())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TASKBOARD_API_URL", "https://tasks.example.com/api")
	t.Setenv("TASKBOARD_API_TIMEOUT", "5s")
	t.Setenv("TASKBOARD_STRICT_USER_ID", "true")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://tasks.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.Session.StrictUserID)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	content := `
api:
  base_url: http://api.internal:8080
session:
  path: /tmp/tb/session.db
logger:
  output: stdout
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.internal:8080", cfg.API.BaseURL)
	assert.Equal(t, "/tmp/tb/session.db", cfg.Session.Path)
	assert.Equal(t, "stdout", cfg.Logger.Output)

	// the environment still wins over the file
	t.Setenv("TASKBOARD_API_URL", "http://override:1")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://override:1", cfg.API.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "relative api url", env: map[string]string{"TASKBOARD_API_URL": "localhost:8000"}},
		{name: "unsupported scheme", env: map[string]string{"TASKBOARD_API_URL": "ftp://files"}},
		{name: "negative timeout", env: map[string]string{"TASKBOARD_API_TIMEOUT": "-1s"}},
		{name: "file output without name", env: map[string]string{"LOG_OUTPUT": "file"}},
		{name: "unknown output", env: map[string]string{"LOG_OUTPUT": "syslog"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateServer())

	bad := *cfg
	bad.Server.Port = 0
	assert.Error(t, bad.ValidateServer())

	prod := *cfg
	prod.App.Environment = "production"
	assert.Error(t, prod.ValidateServer())
	prod.JWT.Secret = "a-real-secret"
	assert.NoError(t, prod.ValidateServer())

	noSeed := *cfg
	noSeed.Seed.AdminUsername = ""
	assert.Error(t, noSeed.ValidateServer())
}
