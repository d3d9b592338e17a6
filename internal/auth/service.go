package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/utils"
)

var (
	ErrEmailTaken          = appErr.NewReason(appErr.CodeConflict, "EmailTaken", "email already registered")
	ErrUserNotFound        = appErr.NewReason(appErr.CodeNotFound, "UserNotFound", "user not found")
	ErrInvalidCredentials  = appErr.NewReason(appErr.CodeUnauthorized, "InvalidCredentials", "invalid email or password")
	ErrAdminSignupDisabled = appErr.NewReason(appErr.CodeForbidden, "AdminSignupDisabled", "admin accounts cannot be self-registered")
)

// UserStore persists accounts.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, fullName string, role models.Role) (*models.User, error)
}

// Revoker records logged-out tokens.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Service implements account registration and session handling.
type Service struct {
	users            UserStore
	jwt              *JWTService
	revoker          Revoker
	allowAdminSignup bool
	logger           *zap.Logger
}

// NewService creates an auth service.
func NewService(users UserStore, jwt *JWTService, revoker Revoker, allowAdminSignup bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, jwt: jwt, revoker: revoker, allowAdminSignup: allowAdminSignup, logger: logger}
}

// RegisterInput is a validated registration.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     models.Role
}

// Register creates an account. The role defaults to participant.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	role := in.Role
	if role == "" {
		role = models.RoleParticipant
	}
	if role == models.RoleAdmin && !s.allowAdminSignup {
		return nil, ErrAdminSignupDisabled
	}

	hash, err := utils.HashPassword(in.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, appErr.Validation(map[string]string{"password": "must be at most 72 bytes"})
	}
	if err != nil {
		return nil, appErr.Internal(err, "failed to hash password")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.Create(ctx, email, hash, strings.TrimSpace(in.FullName), role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	return user, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !utils.CheckPassword(password, user.Password) {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.jwt.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return "", nil, appErr.Internal(err, "failed to generate token")
	}
	return token, user, nil
}

// Logout revokes the token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return appErr.Internal(err, "failed to revoke token")
	}
	s.logger.Info("user logged out", zap.String("user_id", claims.UserID.String()))
	return nil
}
