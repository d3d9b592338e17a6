// Package workshops owns the workshop registry and the registration flow.
package workshops

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/utils"
)

// QRTokenPrefix marks workshop QR tokens.
const QRTokenPrefix = "WS-"

const tokenAttempts = 3

var (
	ErrNotFound           = appErr.NewReason(appErr.CodeNotFound, "NotFound", "workshop not found")
	ErrFull               = appErr.NewReason(appErr.CodeCapacityExceeded, "Full", "workshop is full")
	ErrAlreadyRegistered  = appErr.NewReason(appErr.CodeConflict, "AlreadyRegistered", "already registered to this workshop")
	ErrNotRegistered      = appErr.NewReason(appErr.CodeConflict, "NotRegistered", "not registered to this workshop")
	ErrWorkshopStarted    = appErr.NewReason(appErr.CodeConflict, "WorkshopStarted", "workshop has already started")
	ErrForbidden          = appErr.NewReason(appErr.CodeForbidden, "Forbidden", "not allowed to modify this workshop")
	ErrUnknownOrganizer   = appErr.NewReason(appErr.CodeValidation, "UnknownOrganizer", "organizer does not exist")
	ErrCapacityBelowCount = appErr.NewReason(appErr.CodeValidation, "CapacityBelowCount", "max_participants is below the current participant count")
	ErrTokenCollision     = appErr.NewReason(appErr.CodeInternal, "TokenCollision", "qr token collision")
	ErrUserNotFound       = appErr.NewReason(appErr.CodeNotFound, "UserNotFound", "user account no longer exists")
)

// Store persists workshops.
type Store interface {
	Create(ctx context.Context, w *models.Workshop) error
	Get(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	List(ctx context.Context, f ListFilter) ([]models.Workshop, error)
	Participants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Workshop, error)
	Delete(ctx context.Context, id uuid.UUID) error
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// TxStore is the registration surface available inside a transaction.
type TxStore interface {
	LockWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	AddParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error)
	RemoveParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error)
	IsParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error)
}

// ListFilter narrows workshop listings. Nil fields do not filter.
type ListFilter struct {
	UpcomingAfter *time.Time
	OrganizerID   *uuid.UUID
	ParticipantID *uuid.UUID
}

// CreateInput is a validated workshop creation.
type CreateInput struct {
	Title           string
	Description     string
	Location        string
	StartsAt        time.Time
	Points          *int
	MaxParticipants *int
	OrganizerID     *uuid.UUID
}

// UpdateInput is a partial workshop edit. Nil fields are unchanged.
type UpdateInput struct {
	Title           *string
	Description     *string
	Location        *string
	StartsAt        *time.Time
	Points          *int
	MaxParticipants *int
}

// Options are registration policy switches.
type Options struct {
	AllowLateUnregister bool
}

// Service implements the workshop registry and registration.
type Service struct {
	store  Store
	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a workshop service.
func NewService(store Store, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, opts: opts, now: time.Now, logger: logger}
}

// canManage reports whether p may see secrets of w and its participant list.
func canManage(p access.Principal, w *models.Workshop) bool {
	return p.CanWriteAny() || w.OrganizedBy(p.UserID)
}

func redact(p access.Principal, w *models.Workshop) {
	if !canManage(p, w) {
		w.QRToken = ""
	}
}

// Create schedules a workshop with a fresh QR token. Only callers with
// write-any may assign another organizer.
func (s *Service) Create(ctx context.Context, p access.Principal, in CreateInput) (*models.Workshop, error) {
	organizer := p.UserID
	if in.OrganizerID != nil && p.CanWriteAny() {
		organizer = *in.OrganizerID
	}
	w := &models.Workshop{
		Title:           in.Title,
		Description:     in.Description,
		Location:        in.Location,
		StartsAt:        in.StartsAt,
		Points:          models.DefaultPoints,
		MaxParticipants: models.DefaultCapacity,
		OrganizerID:     &organizer,
	}
	if in.Points != nil {
		w.Points = *in.Points
	}
	if in.MaxParticipants != nil {
		w.MaxParticipants = *in.MaxParticipants
	}

	for attempt := 1; ; attempt++ {
		token, err := NewQRToken()
		if err != nil {
			return nil, appErr.Internal(err, "failed to generate qr token")
		}
		w.QRToken = token
		err = s.store.Create(ctx, w)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTokenCollision) || attempt == tokenAttempts {
			return nil, err
		}
	}
	s.logger.Info("workshop created",
		zap.String("workshop_id", w.ID.String()),
		zap.String("organizer_id", organizer.String()),
		zap.Int("max_participants", w.MaxParticipants),
	)
	return w, nil
}

// NewQRToken returns a random workshop token.
func NewQRToken() (string, error) {
	t, err := utils.RandomToken(18)
	if err != nil {
		return "", err
	}
	return QRTokenPrefix + t, nil
}

// List returns workshops, optionally only those not yet started.
func (s *Service) List(ctx context.Context, p access.Principal, upcoming bool) ([]models.Workshop, error) {
	var f ListFilter
	if upcoming {
		now := s.now()
		f.UpcomingAfter = &now
	}
	return s.list(ctx, p, f)
}

// ListOrganized returns the workshops p organizes, or all of them for read-any callers.
func (s *Service) ListOrganized(ctx context.Context, p access.Principal) ([]models.Workshop, error) {
	var f ListFilter
	if !p.CanReadAny() {
		f.OrganizerID = &p.UserID
	}
	return s.list(ctx, p, f)
}

// ListRegistered returns the workshops p is registered to.
func (s *Service) ListRegistered(ctx context.Context, p access.Principal) ([]models.Workshop, error) {
	return s.list(ctx, p, ListFilter{ParticipantID: &p.UserID})
}

func (s *Service) list(ctx context.Context, p access.Principal, f ListFilter) ([]models.Workshop, error) {
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range list {
		redact(p, &list[i])
	}
	return list, nil
}

// Get returns a workshop. Managers also receive the participant list.
func (s *Service) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*models.WorkshopDetail, error) {
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &models.WorkshopDetail{Workshop: *w}
	if canManage(p, w) {
		if d.Participants, err = s.store.Participants(ctx, id); err != nil {
			return nil, err
		}
	}
	redact(p, &d.Workshop)
	return d, nil
}

// Update edits a workshop. Requires write-any.
func (s *Service) Update(ctx context.Context, p access.Principal, id uuid.UUID, in UpdateInput) (*models.Workshop, error) {
	if !p.CanWriteAny() {
		return nil, ErrForbidden
	}
	w, err := s.store.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("workshop updated", zap.String("workshop_id", id.String()), zap.String("by", p.UserID.String()))
	return w, nil
}

// Delete removes a workshop with its registrations and attendance. Requires write-any.
func (s *Service) Delete(ctx context.Context, p access.Principal, id uuid.UUID) error {
	if !p.CanWriteAny() {
		return ErrForbidden
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("workshop deleted", zap.String("workshop_id", id.String()), zap.String("by", p.UserID.String()))
	return nil
}

// Register adds userID to the workshop. Capacity and uniqueness are enforced
// by a single conditional write; the locked read only classifies a refusal.
func (s *Service) Register(ctx context.Context, p access.Principal, workshopID uuid.UUID) (*models.Workshop, error) {
	var out *models.Workshop
	err := s.store.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		w, err := tx.LockWorkshop(ctx, workshopID)
		if err != nil {
			return err
		}
		added, err := tx.AddParticipant(ctx, workshopID, p.UserID)
		if err != nil {
			return err
		}
		if !added {
			if w.Full() {
				return ErrFull
			}
			return ErrAlreadyRegistered
		}
		w.ParticipantCount++
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	redact(p, out)
	s.logger.Info("participant registered",
		zap.String("workshop_id", workshopID.String()),
		zap.String("user_id", p.UserID.String()),
		zap.Int("participant_count", out.ParticipantCount),
	)
	return out, nil
}

// Unregister removes userID from the workshop and frees the seat.
func (s *Service) Unregister(ctx context.Context, p access.Principal, workshopID uuid.UUID) (*models.Workshop, error) {
	var out *models.Workshop
	err := s.store.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		w, err := tx.LockWorkshop(ctx, workshopID)
		if err != nil {
			return err
		}
		if !s.opts.AllowLateUnregister && w.Started(s.now()) {
			registered, err := tx.IsParticipant(ctx, workshopID, p.UserID)
			if err != nil {
				return err
			}
			if !registered {
				return ErrNotRegistered
			}
			return ErrWorkshopStarted
		}
		removed, err := tx.RemoveParticipant(ctx, workshopID, p.UserID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotRegistered
		}
		w.ParticipantCount--
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	redact(p, out)
	s.logger.Info("participant unregistered",
		zap.String("workshop_id", workshopID.String()),
		zap.String("user_id", p.UserID.String()),
	)
	return out, nil
}
