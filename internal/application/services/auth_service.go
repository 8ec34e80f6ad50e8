package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/infrastructure/config"
	"github.com/taskmaster/taskboard/internal/infrastructure/logger"
	"github.com/taskmaster/taskboard/internal/ports"
)

// Claims represents the JWT claims issued by the stub API
type Claims struct {
	UserID int           `json:"user_id"`
	Role   entities.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo  ports.UserRepository
	jwtConfig config.JWTConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository, jwtConfig config.JWTConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtConfig: jwtConfig,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a self-service account. The requested role is ignored:
// new accounts are always executors.
func (s *AuthService) Register(ctx context.Context, req ports.RegisterRequest) (*entities.User, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}
	if req.Role != "" && req.Role != string(entities.RoleExecutor) {
		s.logger.Warnw("Ignoring role requested at registration", "username", req.Username, "role", req.Role)
	}

	user, err := s.createUser(ctx, req.Username, req.Password, req.FullName, req.Email, entities.RoleExecutor)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User registered successfully", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login checks credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.TokenResponse, error) {
	if err := ports.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			s.logger.Warnw("Login attempt with unknown username", "username", req.Username)
			return nil, fmt.Errorf("%w: incorrect username or password", entities.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warnw("Login attempt with invalid password", "username", req.Username, "user_id", user.ID)
		return nil, fmt.Errorf("%w: incorrect username or password", entities.ErrUnauthenticated)
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.logger.Infow("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return &ports.TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// ValidateToken verifies signature and expiry and returns the holder's identity
func (s *AuthService) ValidateToken(tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.jwtConfig.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.jwtConfig.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.Secret), nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: invalid token: %v", entities.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 || !claims.Role.IsValid() {
		return Identity{}, fmt.Errorf("%w: invalid token claims", entities.ErrUnauthenticated)
	}

	id := Identity{Role: claims.Role, UserID: claims.UserID, Username: claims.Subject}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		id.ExpiresAt = &exp
	}
	return id, nil
}

// EnsureAdmin creates the bootstrap administrator if no user of that name
// exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		s.logger.Warnw("Admin seed credentials not configured, skipping")
		return nil
	}

	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	user, err := s.createUser(ctx, username, password, nil, nil, entities.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	s.logger.Infow("Seeded admin account", "user_id", user.ID, "username", user.Username)
	return nil
}

func (s *AuthService) createUser(ctx context.Context, username, password string, fullName, email *string, role entities.Role) (*entities.User, error) {
	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		FullName:     fullName,
		Email:        email,
		Role:         role,
		PasswordHash: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *AuthService) generateAccessToken(user *entities.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   user.Username,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
