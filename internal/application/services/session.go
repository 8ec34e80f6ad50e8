package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// SessionKey is the store key the login response is kept under.
const SessionKey = "user"

// Session is the authorization state derived from the current token. The zero
// value is an unauthenticated session.
type Session struct {
	Token     string
	Role      entities.Role
	UserID    int
	Username  string
	ExpiresAt *time.Time
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Permissions returns the capability set of the session's role.
func (s Session) Permissions() entities.PermissionSet {
	if !s.Authenticated() {
		return entities.PermissionSet{}
	}
	return entities.Capabilities(s.Role)
}

func (s Session) Can(p entities.Permission) bool {
	return s.Permissions().Has(p)
}

// Require returns nil when the session may perform p.
func (s Session) Require(p entities.Permission) error {
	if !s.Authenticated() {
		return entities.ErrUnauthenticated
	}
	if !s.Can(p) {
		return fmt.Errorf("%w: role %s lacks %s", entities.ErrForbidden, s.Role, p)
	}
	return nil
}

// storedSession is the persisted login response.
type storedSession struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SessionController owns the session: it is the only component that creates,
// replaces or clears it. Everything else reads Current.
type SessionController struct {
	mu      sync.RWMutex
	current Session

	store   ports.SessionStore
	auth    ports.AuthAPI
	decoder *ClaimsDecoder
	logger  *logger.Logger

	onInvalidate func(reason string)
}

// NewSessionController creates a new session controller
func NewSessionController(store ports.SessionStore, auth ports.AuthAPI, decoder *ClaimsDecoder, logger *logger.Logger) *SessionController {
	return &SessionController{
		store:   store,
		auth:    auth,
		decoder: decoder,
		logger:  logger.WithComponent("session"),
	}
}

// SetAuthAPI wires the auth collaborator after construction; the API client
// and the controller depend on each other.
func (c *SessionController) SetAuthAPI(auth ports.AuthAPI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = auth
}

// OnInvalidate registers a callback run after a forced session reset.
func (c *SessionController) OnInvalidate(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInvalidate = fn
}

func (c *SessionController) collaborators() (ports.AuthAPI, func(string)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth, c.onInvalidate
}

func (c *SessionController) Current() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Restore loads the persisted token at startup. An unreadable or undecodable
// token is discarded and the session stays unauthenticated.
func (c *SessionController) Restore(ctx context.Context) (Session, error) {
	raw, ok, err := c.store.Get(ctx, SessionKey)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read stored session: %w", err)
	}
	if !ok {
		c.set(Session{})
		return Session{}, nil
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || stored.AccessToken == "" {
		c.logger.Warnw("Discarding unreadable stored session", "error", err)
		return Session{}, c.clear(ctx)
	}

	session, err := c.sessionFromToken(stored.AccessToken)
	if err != nil {
		c.logger.Warnw("Discarding stored session with invalid token", "error", err)
		return Session{}, c.clear(ctx)
	}

	c.set(session)
	c.logger.Debugw("Session restored", "user_id", session.UserID, "role", session.Role)
	return session, nil
}

// Login exchanges credentials for a token, decodes it and persists it.
func (c *SessionController) Login(ctx context.Context, req ports.LoginRequest) (Session, error) {
	if err := ports.Validate(req); err != nil {
		return Session{}, err
	}
	auth, _ := c.collaborators()
	if auth == nil {
		return Session{}, errors.New("session controller has no auth collaborator")
	}

	resp, err := auth.Token(ctx, req)
	if err != nil {
		return Session{}, fmt.Errorf("login failed: %w", err)
	}
	if resp.AccessToken == "" {
		return Session{}, &entities.MalformedTokenError{Reason: "empty access_token in login response"}
	}

	session, err := c.sessionFromToken(resp.AccessToken)
	if err != nil {
		return Session{}, fmt.Errorf("login failed: %w", err)
	}

	payload, err := json.Marshal(storedSession{AccessToken: resp.AccessToken, TokenType: resp.TokenType})
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := c.store.Set(ctx, SessionKey, string(payload)); err != nil {
		return Session{}, fmt.Errorf("failed to persist session: %w", err)
	}

	c.set(session)
	c.logger.Infow("User logged in", "user_id", session.UserID, "role", session.Role)
	return session, nil
}

// Logout clears the stored token and the in-memory session.
func (c *SessionController) Logout(ctx context.Context) error {
	if err := c.clear(ctx); err != nil {
		return err
	}
	c.logger.Infow("User logged out")
	return nil
}

// Invalidate is the forced logout run when the API rejects the token.
func (c *SessionController) Invalidate(ctx context.Context, reason string) {
	prev := c.Current()
	if err := c.clear(ctx); err != nil {
		c.logger.Errorw("Failed to clear stored session", "error", err)
	}
	c.logger.Warnw("Session invalidated", "reason", reason, "user_id", prev.UserID)
	if _, hook := c.collaborators(); hook != nil {
		hook(reason)
	}
}

// AccessToken implements ports.Credentials.
func (c *SessionController) AccessToken() string {
	return c.Current().Token
}

// Unauthorized implements ports.Credentials.
func (c *SessionController) Unauthorized(ctx context.Context) {
	c.Invalidate(ctx, "unauthorized response")
}

func (c *SessionController) sessionFromToken(token string) (Session, error) {
	id, err := c.decoder.Decode(token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		Role:      id.Role,
		UserID:    id.UserID,
		Username:  id.Username,
		ExpiresAt: id.ExpiresAt,
	}, nil
}

func (c *SessionController) clear(ctx context.Context) error {
	c.set(Session{})
	if err := c.store.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	return nil
}

func (c *SessionController) set(s Session) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}
