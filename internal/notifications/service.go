// Package notifications is the role-filtered broadcast feed.
package notifications

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
)

// FeedLimit caps the number of notifications returned by List.
const FeedLimit = 50

var (
	ErrNotFound        = appErr.NewReason(appErr.CodeNotFound, "NotFound", "notification not found")
	ErrUnknownWorkshop = appErr.NewReason(appErr.CodeValidation, "UnknownWorkshop", "related workshop does not exist")
)

// Store persists notifications.
type Store interface {
	ListForRole(ctx context.Context, role string, limit int) ([]models.Notification, error)
	Create(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// CreateInput is a validated notification.
type CreateInput struct {
	Message           string
	RecipientRole     string
	Type              models.NotificationType
	RelatedWorkshopID *uuid.UUID
}

// Service implements the notification feed.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a notification service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// List returns the newest notifications targeted at the caller's role or at everyone.
func (s *Service) List(ctx context.Context, p access.Principal) ([]models.Notification, error) {
	return s.store.ListForRole(ctx, string(p.Role), FeedLimit)
}

// Create publishes a notification. Type defaults to info.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*models.Notification, error) {
	creator := p.UserID
	n := &models.Notification{
		Message:           strings.TrimSpace(in.Message),
		RecipientRole:     in.RecipientRole,
		Type:              in.Type,
		RelatedWorkshopID: in.RelatedWorkshopID,
		CreatedBy:         &creator,
	}
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	s.logger.Info("notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("recipient_role", n.RecipientRole),
		zap.String("by", creator.String()),
	)
	return n, nil
}

// MarkRead flags a notification as read. The flag is global to the notification.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkRead(ctx, id)
}
