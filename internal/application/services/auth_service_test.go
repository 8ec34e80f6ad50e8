package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	user, err := w.auth.Register(ctx, ports.RegisterRequest{Username: "newbie", Password: "secret1", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, entities.RoleExecutor, user.Role)
	assert.Empty(t, user.PasswordHash)

	resp, err := w.auth.Login(ctx, ports.LoginRequest{Username: "newbie", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)

	// the client-side decoder reads what the server issued
	id, err := NewClaimsDecoder(true).Decode(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleExecutor, id.Role)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, "newbie", id.Username)

	verified, err := w.auth.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id.UserID, verified.UserID)
	assert.Equal(t, id.Role, verified.Role)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	w := newWorld(t)
	_, err := w.auth.Register(context.Background(), ports.RegisterRequest{Username: "EGOR", Password: "secret1"})
	assert.ErrorIs(t, err, entities.ErrConflict)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	w := newWorld(t)
	_, err := w.auth.Register(context.Background(), ports.RegisterRequest{Username: "ab", Password: "123"})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestAuthService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	_, err := w.auth.Register(ctx, ports.RegisterRequest{Username: "newbie", Password: "secret1"})
	require.NoError(t, err)

	_, err = w.auth.Login(ctx, ports.LoginRequest{Username: "newbie", Password: "wrong"})
	assert.ErrorIs(t, err, entities.ErrUnauthenticated)

	_, err = w.auth.Login(ctx, ports.LoginRequest{Username: "ghost", Password: "secret1"})
	assert.ErrorIs(t, err, entities.ErrUnauthenticated)

	_, err = w.auth.Login(ctx, ports.LoginRequest{Username: "newbie"})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestAuthService_ValidateTokenRejects(t *testing.T) {
	w := newWorld(t)
	now := time.Now()

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := func() Claims {
		return Claims{
			UserID: w.manager.UserID,
			Role:   entities.RoleManager,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "taskboard-test",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	good := valid()
	_, err := w.auth.ValidateToken(sign(jwt.SigningMethodHS256, []byte("test-secret"), &good))
	require.NoError(t, err)

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"
	noUser := valid()
	noUser.UserID = 0

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong key", token: sign(jwt.SigningMethodHS256, []byte("other"), &good)},
		{name: "wrong algorithm", token: sign(jwt.SigningMethodHS512, []byte("test-secret"), &good)},
		{name: "expired", token: sign(jwt.SigningMethodHS256, []byte("test-secret"), &expired)},
		{name: "wrong issuer", token: sign(jwt.SigningMethodHS256, []byte("test-secret"), &wrongIssuer)},
		{name: "missing user id", token: sign(jwt.SigningMethodHS256, []byte("test-secret"), &noUser)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.auth.ValidateToken(tt.token)
			assert.ErrorIs(t, err, entities.ErrUnauthenticated)
		})
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)

	require.NoError(t, w.auth.EnsureAdmin(ctx, "root", "rootpass"))
	require.NoError(t, w.auth.EnsureAdmin(ctx, "root", "different"))
	require.NoError(t, w.auth.EnsureAdmin(ctx, "", ""))

	resp, err := w.auth.Login(ctx, ports.LoginRequest{Username: "root", Password: "rootpass"})
	require.NoError(t, err)
	id, err := w.auth.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entities.RoleAdmin, id.Role)
}
