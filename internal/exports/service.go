// Package exports produces downloadable CSV attendance lists through the
// background worker and S3.
package exports

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/queue"
)

var (
	ErrNotFound        = appErr.NewReason(appErr.CodeNotFound, "NotFound", "export not found")
	ErrForbidden       = appErr.NewReason(appErr.CodeForbidden, "Forbidden", "not the organizer of this workshop")
	ErrExportsDisabled = appErr.NewReason(appErr.CodeUnavailable, "ExportsDisabled", "exports are not configured")
)

// Store persists export rows.
type Store interface {
	GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error)
	Create(ctx context.Context, workshopID, requestedBy uuid.UUID) (*models.AttendanceExport, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AttendanceExport, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// Enqueuer schedules export jobs.
type Enqueuer interface {
	EnqueueAttendanceExport(ctx context.Context, payload queue.AttendanceExportPayload) error
}

// Presigner signs download URLs.
type Presigner interface {
	PresignExportDownload(ctx context.Context, key string) (string, error)
}

// Service requests exports and hands out download links.
type Service struct {
	store  Store
	queue  Enqueuer
	signer Presigner
	logger *zap.Logger
}

// NewService creates an export service. A nil queue or signer disables exports.
func NewService(store Store, q Enqueuer, signer Presigner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, queue: q, signer: signer, logger: logger}
}

func (s *Service) enabled() bool {
	return s.queue != nil && s.signer != nil
}

// Request creates a pending export of a workshop's attendance and schedules it.
func (s *Service) Request(ctx context.Context, p access.Principal, workshopID uuid.UUID) (*models.AttendanceExport, error) {
	if !s.enabled() {
		return nil, ErrExportsDisabled
	}
	w, err := s.store.GetWorkshop(ctx, workshopID)
	if err != nil {
		return nil, err
	}
	if !p.CanWriteAny() && !w.OrganizedBy(p.UserID) {
		return nil, ErrForbidden
	}
	e, err := s.store.Create(ctx, workshopID, p.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.queue.EnqueueAttendanceExport(ctx, queue.AttendanceExportPayload{ExportID: e.ID, WorkshopID: workshopID}); err != nil {
		if mErr := s.store.MarkFailed(ctx, e.ID, "enqueue failed"); mErr != nil {
			s.logger.Error("mark export failed", zap.String("export_id", e.ID.String()), zap.Error(mErr))
		}
		return nil, appErr.Internal(err, "could not schedule export")
	}
	s.logger.Info("attendance export requested",
		zap.String("export_id", e.ID.String()),
		zap.String("workshop_id", workshopID.String()),
		zap.String("by", p.UserID.String()),
	)
	return e, nil
}

// Get returns an export with a pre-signed download URL once completed.
func (s *Service) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*models.AttendanceExport, error) {
	if !s.enabled() {
		return nil, ErrExportsDisabled
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanReadAny() && (e.RequestedBy == nil || *e.RequestedBy != p.UserID) {
		return nil, ErrNotFound
	}
	if e.Status == models.ExportCompleted && e.S3Key != nil {
		url, err := s.signer.PresignExportDownload(ctx, *e.S3Key)
		if err != nil {
			return nil, appErr.Internal(err, "failed to sign download url")
		}
		e.DownloadURL = url
	}
	return e, nil
}
