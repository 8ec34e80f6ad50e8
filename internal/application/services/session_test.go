package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

type fakeStore struct {
	values map[string]string
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	if s.err != nil {
		return s.err
	}
	s.values[key] = value
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.values, key)
	return nil
}

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (a *fakeAuth) Token(_ context.Context, _ ports.LoginRequest) (*ports.TokenResponse, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &ports.TokenResponse{AccessToken: a.token, TokenType: "bearer"}, nil
}

func (a *fakeAuth) Register(_ context.Context, _ ports.RegisterRequest) (*entities.User, error) {
	return nil, errors.New("not implemented")
}

func newTestController(store ports.SessionStore, auth ports.AuthAPI) *SessionController {
	return NewSessionController(store, auth, NewClaimsDecoder(false), logger.NewNop())
}

func TestSession_Permissions(t *testing.T) {
	var anonymous Session
	assert.False(t, anonymous.Authenticated())
	assert.Empty(t, anonymous.Permissions())
	assert.ErrorIs(t, anonymous.Require(entities.PermViewTasks), entities.ErrUnauthenticated)

	executor := Session{Token: "t", Role: entities.RoleExecutor, UserID: 3}
	assert.NoError(t, executor.Require(entities.PermUpdateTaskProgress))
	assert.ErrorIs(t, executor.Require(entities.PermCreateTask), entities.ErrForbidden)

	manager := Session{Token: "t", Role: entities.RoleManager}
	assert.True(t, manager.Can(entities.PermViewReports))
	assert.False(t, manager.Can(entities.PermDeleteUser))
}

func TestSessionController_LoginPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	token := signedToken(t, jwt.MapClaims{"role": "manager", "user_id": 7, "sub": "maria"})
	auth := &fakeAuth{token: token}

	ctrl := newTestController(store, auth)
	session, err := ctrl.Login(ctx, ports.LoginRequest{Username: "maria", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, entities.RoleManager, session.Role)
	assert.Equal(t, 7, session.UserID)
	assert.Equal(t, "maria", session.Username)
	assert.Equal(t, token, ctrl.AccessToken())
	assert.Contains(t, store.values[SessionKey], token)

	restored := newTestController(store, nil)
	got, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, got)
	assert.Equal(t, session, restored.Current())
}

func TestSessionController_LoginValidatesBeforeCalling(t *testing.T) {
	auth := &fakeAuth{token: "unused"}
	ctrl := newTestController(newFakeStore(), auth)

	_, err := ctrl.Login(context.Background(), ports.LoginRequest{Username: "maria"})
	assert.ErrorIs(t, err, entities.ErrValidation)
	assert.Zero(t, auth.calls)
}

func TestSessionController_LoginFailures(t *testing.T) {
	ctx := context.Background()
	req := ports.LoginRequest{Username: "maria", Password: "secret"}

	t.Run("rejected credentials", func(t *testing.T) {
		store := newFakeStore()
		ctrl := newTestController(store, &fakeAuth{err: entities.ErrUnauthenticated})
		_, err := ctrl.Login(ctx, req)
		assert.ErrorIs(t, err, entities.ErrUnauthenticated)
		assert.False(t, ctrl.Current().Authenticated())
		assert.Empty(t, store.values)
	})

	t.Run("token without role", func(t *testing.T) {
		store := newFakeStore()
		token := signedToken(t, jwt.MapClaims{"user_id": 7})
		ctrl := newTestController(store, &fakeAuth{token: token})
		_, err := ctrl.Login(ctx, req)
		assert.ErrorIs(t, err, entities.ErrMissingClaim)
		assert.False(t, ctrl.Current().Authenticated())
		assert.Empty(t, store.values)
	})

	t.Run("empty token", func(t *testing.T) {
		ctrl := newTestController(newFakeStore(), &fakeAuth{token: ""})
		_, err := ctrl.Login(ctx, req)
		assert.ErrorIs(t, err, entities.ErrMalformedToken)
	})

	t.Run("no auth collaborator", func(t *testing.T) {
		ctrl := newTestController(newFakeStore(), nil)
		_, err := ctrl.Login(ctx, req)
		assert.Error(t, err)
	})
}

func TestSessionController_RestoreDiscardsBadTokens(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		stored string
	}{
		{name: "not json", stored: "garbage"},
		{name: "no token", stored: `{"token_type":"bearer"}`},
		{name: "malformed token", stored: `{"access_token":"abc.def.ghi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.values[SessionKey] = tt.stored

			ctrl := newTestController(store, nil)
			session, err := ctrl.Restore(ctx)
			require.NoError(t, err)
			assert.False(t, session.Authenticated())
			assert.NotContains(t, store.values, SessionKey)
		})
	}
}

func TestSessionController_RestoreEmptyAndStoreErrors(t *testing.T) {
	ctx := context.Background()

	session, err := newTestController(newFakeStore(), nil).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, session.Authenticated())

	broken := newFakeStore()
	broken.err = errors.New("disk gone")
	_, err = newTestController(broken, nil).Restore(ctx)
	assert.Error(t, err)
}

func TestSessionController_UnauthorizedInvalidates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	token := signedToken(t, jwt.MapClaims{"role": "executor", "user_id": 4})
	ctrl := newTestController(store, &fakeAuth{token: token})

	var reasons []string
	ctrl.OnInvalidate(func(reason string) { reasons = append(reasons, reason) })

	_, err := ctrl.Login(ctx, ports.LoginRequest{Username: "egor", Password: "secret"})
	require.NoError(t, err)

	ctrl.Unauthorized(ctx)

	assert.False(t, ctrl.Current().Authenticated())
	assert.Empty(t, ctrl.AccessToken())
	assert.NotContains(t, store.values, SessionKey)
	assert.Equal(t, []string{"unauthorized response"}, reasons)
}

type lockedStore struct {
	mu sync.Mutex
	*fakeStore
}

func (s *lockedStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.Get(ctx, key)
}

func (s *lockedStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.Set(ctx, key, value)
}

func (s *lockedStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.Delete(ctx, key)
}

func TestSessionController_RewiringWhileInvalidating(t *testing.T) {
	ctx := context.Background()
	token := signedToken(t, jwt.MapClaims{"role": "manager", "user_id": 2})
	ctrl := newTestController(&lockedStore{fakeStore: newFakeStore()}, nil)

	var fired atomic.Int32
	hook := func(string) { fired.Add(1) }
	ctrl.OnInvalidate(hook)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctrl.SetAuthAPI(&fakeAuth{token: token})
			ctrl.OnInvalidate(hook)
		}()
		go func() {
			defer wg.Done()
			ctrl.Unauthorized(ctx)
			_ = ctrl.AccessToken()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), fired.Load())
	_, err := ctrl.Login(ctx, ports.LoginRequest{Username: "maria", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 2, ctrl.Current().UserID)
}

func TestSessionController_Logout(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	token := signedToken(t, jwt.MapClaims{"role": "admin", "user_id": 1})
	ctrl := newTestController(store, &fakeAuth{token: token})

	invalidated := false
	ctrl.OnInvalidate(func(string) { invalidated = true })

	_, err := ctrl.Login(ctx, ports.LoginRequest{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, ctrl.Logout(ctx))

	assert.False(t, ctrl.Current().Authenticated())
	assert.Empty(t, store.values)
	assert.False(t, invalidated)
}
