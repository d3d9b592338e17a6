// Package attendance validates workshop attendance and awards points.
package attendance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/utils"
)

var (
	ErrWorkshopNotFound    = appErr.NewReason(appErr.CodeNotFound, "NotFound", "workshop not found")
	ErrParticipantNotFound = appErr.NewReason(appErr.CodeNotFound, "ParticipantNotFound", "participant not found")
	ErrInvalidToken        = appErr.NewReason(appErr.CodeValidation, "InvalidToken", "invalid QR code for this workshop")
	ErrDuplicateAttendance = appErr.NewReason(appErr.CodeConflict, "DuplicateAttendance", "attendance already recorded")
	ErrNotRegistered       = appErr.NewReason(appErr.CodeConflict, "NotRegistered", "not registered to this workshop")
	ErrNotAParticipant     = appErr.NewReason(appErr.CodeValidation, "NotAParticipant", "only participants can be marked present")
	ErrForbidden           = appErr.NewReason(appErr.CodeForbidden, "Forbidden", "not the organizer of this workshop")
)

// Store reads the attendance ledger.
type Store interface {
	GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	Find(ctx context.Context, participantID, workshopID uuid.UUID) (*models.Attendance, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.AttendanceRow, error)
	ListByWorkshop(ctx context.Context, workshopID uuid.UUID) ([]models.AttendanceRow, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

// TxStore is the write surface used while validating. Every call made in one
// InTx commits together or not at all.
type TxStore interface {
	GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	LockWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	IsParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error)
	AddParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error)
	HasAttendance(ctx context.Context, participantID, workshopID uuid.UUID) (bool, error)
	InsertAttendance(ctx context.Context, a *models.Attendance) error
	AwardPoints(ctx context.Context, userID uuid.UUID, points int) (int, error)
}

// Check is the answer to "did I attend this workshop".
type Check struct {
	Attended   bool               `json:"attended"`
	Attendance *models.Attendance `json:"attendance,omitempty"`
}

// Service implements QR and manual attendance validation.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates an attendance service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ValidateScan records a participant's own attendance from a scanned QR token.
// The ledger insert and the point award commit together.
func (s *Service) ValidateScan(ctx context.Context, p access.Principal, workshopID uuid.UUID, token string) (*models.AttendanceResult, error) {
	var res *models.AttendanceResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		w, err := tx.GetWorkshop(ctx, workshopID)
		if err != nil {
			return err
		}
		if !utils.TokensEqual(token, w.QRToken) {
			return ErrInvalidToken
		}
		dup, err := tx.HasAttendance(ctx, p.UserID, workshopID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateAttendance
		}
		registered, err := tx.IsParticipant(ctx, workshopID, p.UserID)
		if err != nil {
			return err
		}
		if !registered {
			return ErrNotRegistered
		}
		res, err = s.record(ctx, tx, w, p.UserID, models.MethodQR, nil)
		return err
	})
	if err != nil {
		s.logRejected("scan", p.UserID, workshopID, err)
		return nil, err
	}
	s.logger.Info("attendance recorded",
		zap.String("method", string(models.MethodQR)),
		zap.String("participant_id", p.UserID.String()),
		zap.String("workshop_id", workshopID.String()),
		zap.Int("points_awarded", res.PointsAwarded),
	)
	return res, nil
}

// ValidateManual records attendance on behalf of a participant. Callers
// without write-any must organize the workshop. The participant is also added
// to the workshop when a seat is free.
func (s *Service) ValidateManual(ctx context.Context, p access.Principal, participantID, workshopID uuid.UUID) (*models.AttendanceResult, error) {
	var res *models.AttendanceResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		w, err := tx.LockWorkshop(ctx, workshopID)
		if err != nil {
			return err
		}
		if !p.CanWriteAny() && !w.OrganizedBy(p.UserID) {
			return ErrForbidden
		}
		u, err := tx.GetUser(ctx, participantID)
		if err != nil {
			return err
		}
		if u.Role != models.RoleParticipant {
			return ErrNotAParticipant
		}
		dup, err := tx.HasAttendance(ctx, participantID, workshopID)
		if err != nil {
			return err
		}
		if dup {
			return ErrDuplicateAttendance
		}
		validator := p.UserID
		if res, err = s.record(ctx, tx, w, participantID, models.MethodManual, &validator); err != nil {
			return err
		}
		if _, err := tx.AddParticipant(ctx, workshopID, participantID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.logRejected("manual", participantID, workshopID, err)
		return nil, err
	}
	s.logger.Info("attendance recorded",
		zap.String("method", string(models.MethodManual)),
		zap.String("participant_id", participantID.String()),
		zap.String("workshop_id", workshopID.String()),
		zap.String("validated_by", p.UserID.String()),
		zap.Int("points_awarded", res.PointsAwarded),
	)
	return res, nil
}

func (s *Service) record(ctx context.Context, tx TxStore, w *models.Workshop, participantID uuid.UUID, method models.AttendanceMethod, validator *uuid.UUID) (*models.AttendanceResult, error) {
	a := &models.Attendance{
		ParticipantID: participantID,
		WorkshopID:    w.ID,
		Method:        method,
		ValidatedBy:   validator,
	}
	if err := tx.InsertAttendance(ctx, a); err != nil {
		return nil, err
	}
	balance, err := tx.AwardPoints(ctx, participantID, w.Points)
	if err != nil {
		return nil, err
	}
	return &models.AttendanceResult{Attendance: *a, PointsAwarded: w.Points, PointsBalance: balance}, nil
}

func (s *Service) logRejected(op string, participantID, workshopID uuid.UUID, err error) {
	if ae, ok := appErr.As(err); ok && ae.Code != appErr.CodeInternal {
		s.logger.Debug("attendance rejected",
			zap.String("op", op),
			zap.String("reason", ae.Reason),
			zap.String("participant_id", participantID.String()),
			zap.String("workshop_id", workshopID.String()),
		)
	}
}

// ListMine returns the caller's attendance, newest first.
func (s *Service) ListMine(ctx context.Context, p access.Principal) ([]models.AttendanceRow, error) {
	return s.store.ListByParticipant(ctx, p.UserID)
}

// CheckMine reports whether the caller attended the workshop.
func (s *Service) CheckMine(ctx context.Context, p access.Principal, workshopID uuid.UUID) (*Check, error) {
	a, err := s.store.Find(ctx, p.UserID, workshopID)
	if errors.Is(err, errNoAttendance) {
		return &Check{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Check{Attended: true, Attendance: a}, nil
}

// ListByWorkshop returns a workshop's attendance. Callers without read-any
// must organize the workshop.
func (s *Service) ListByWorkshop(ctx context.Context, p access.Principal, workshopID uuid.UUID) ([]models.AttendanceRow, error) {
	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if !p.CanReadAny() && !w.OrganizedBy(p.UserID) {
		return nil, ErrForbidden
	}
	return s.store.ListByWorkshop(ctx, workshopID)
}
