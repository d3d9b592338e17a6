// Package users covers profiles, admin account management, the leaderboard
// and dashboard totals.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/utils"
)

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

var (
	ErrNotFound          = appErr.NewReason(appErr.CodeNotFound, "NotFound", "user not found")
	ErrCannotDeleteAdmin = appErr.NewReason(appErr.CodeValidation, "CannotDeleteAdmin", "admin accounts cannot be deleted")
	ErrWrongPassword     = appErr.NewReason(appErr.CodeValidation, "WrongPassword", "current password is incorrect")
	ErrForbidden         = appErr.NewReason(appErr.CodeForbidden, "Forbidden", "admin access required")
)

// Store persists accounts.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	RegisteredWorkshops(ctx context.Context, id uuid.UUID) ([]models.Workshop, error)
	Attendance(ctx context.Context, id uuid.UUID) ([]models.Attendance, error)
	Update(ctx context.Context, id uuid.UUID, in Changes) (*models.User, error)
	List(ctx context.Context) ([]models.UserSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*models.Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Changes is a partial account update. Nil fields are unchanged.
type Changes struct {
	FullName     *string
	PasswordHash *string
	Role         *models.Role
	Points       *int
}

// ProfileInput is a self-service profile edit.
type ProfileInput struct {
	FullName        *string
	Password        *string
	CurrentPassword string
}

// AdminInput is an admin edit of another account.
type AdminInput struct {
	FullName *string
	Role     *models.Role
	Points   *int
}

// Service implements account operations.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a users service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Profile returns the caller's account with registered workshops and attendance.
func (s *Service) Profile(ctx context.Context, p access.Principal) (*models.Profile, error) {
	u, err := s.store.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	ws, err := s.store.RegisteredWorkshops(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	for i := range ws {
		if !ws[i].OrganizedBy(p.UserID) {
			ws[i].QRToken = ""
		}
	}
	att, err := s.store.Attendance(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return &models.Profile{User: u.ToPublic(), Workshops: ws, Attendance: att}, nil
}

// UpdateProfile changes the caller's name or password. A password change
// requires the current password.
func (s *Service) UpdateProfile(ctx context.Context, p access.Principal, in ProfileInput) (*models.UserPublic, error) {
	var ch Changes
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		ch.FullName = &name
	}
	if in.Password != nil {
		u, err := s.store.Get(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if !utils.CheckPassword(in.CurrentPassword, u.Password) {
			return nil, ErrWrongPassword
		}
		hash, err := utils.HashPassword(*in.Password)
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return nil, appErr.Validation(map[string]string{"password": "must be at most 72 bytes"})
		}
		if err != nil {
			return nil, appErr.Internal(err, "failed to hash password")
		}
		ch.PasswordHash = &hash
	}
	u, err := s.store.Update(ctx, p.UserID, ch)
	if err != nil {
		return nil, err
	}
	out := u.ToPublic()
	return &out, nil
}

// List returns every account.
func (s *Service) List(ctx context.Context, p access.Principal) ([]models.UserSummary, error) {
	if !p.CanReadAny() {
		return nil, ErrForbidden
	}
	return s.store.List(ctx)
}

// AdminUpdate edits another account, including a points override.
func (s *Service) AdminUpdate(ctx context.Context, p access.Principal, id uuid.UUID, in AdminInput) (*models.UserPublic, error) {
	if !p.CanWriteAny() {
		return nil, ErrForbidden
	}
	u, err := s.store.Update(ctx, id, Changes{FullName: in.FullName, Role: in.Role, Points: in.Points})
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{zap.String("user_id", id.String()), zap.String("by", p.UserID.String())}
	if in.Points != nil {
		fields = append(fields, zap.Int("points", *in.Points))
	}
	if in.Role != nil {
		fields = append(fields, zap.String("role", string(*in.Role)))
	}
	s.logger.Info("user updated by admin", fields...)
	out := u.ToPublic()
	return &out, nil
}

// Delete removes a non-admin account and everything it owns.
func (s *Service) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if !p.CanWriteAny() {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()), zap.String("by", p.UserID.String()))
	return nil
}

// Stats returns dashboard totals.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	return s.store.Stats(ctx)
}

// Leaderboard returns the top participants. limit is clamped to [1, MaxLeaderboardSize].
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardSize
	case limit > MaxLeaderboardSize:
		limit = MaxLeaderboardSize
	}
	return s.store.Leaderboard(ctx, limit)
}
