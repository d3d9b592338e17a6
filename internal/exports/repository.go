package exports

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/internal/workshops"
	"github.com/eventconnect/backend/pkg/database"
)

const exportColumns = `id, workshop_id, requested_by, status, s3_key, row_count, error, created_at, updated_at`

// Repository handles attendance export rows.
type Repository struct {
	db        database.DBTX
	workshops *workshops.Repository
}

// NewRepository creates an export repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db, workshops: workshops.NewTxRepository(db)}
}

func scanExport(row interface{ Scan(...any) error }) (*models.AttendanceExport, error) {
	var e models.AttendanceExport
	if err := row.Scan(&e.ID, &e.WorkshopID, &e.RequestedBy, &e.Status, &e.S3Key, &e.RowCount, &e.Error, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetWorkshop returns the workshop being exported.
func (r *Repository) GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return r.workshops.Get(ctx, id)
}

// Create inserts a pending export.
func (r *Repository) Create(ctx context.Context, workshopID, requestedBy uuid.UUID) (*models.AttendanceExport, error) {
	e, err := scanExport(r.db.QueryRow(ctx,
		`INSERT INTO attendance_exports (workshop_id, requested_by) VALUES ($1, $2) RETURNING `+exportColumns,
		workshopID, requestedBy))
	if err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}
	return e, nil
}

// Get returns an export by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.AttendanceExport, error) {
	e, err := scanExport(r.db.QueryRow(ctx, `SELECT `+exportColumns+` FROM attendance_exports WHERE id = $1`, id))
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get export %s: %w", id, err)
	}
	return e, nil
}

// MarkCompleted records the uploaded object.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, key string, rowCount int) error {
	tag, err := r.db.Exec(ctx, `UPDATE attendance_exports
		SET status = 'completed', s3_key = $2, row_count = $3, error = NULL, updated_at = NOW()
		WHERE id = $1`, id, key, rowCount)
	if err != nil {
		return fmt.Errorf("complete export %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal failure.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.db.Exec(ctx, `UPDATE attendance_exports
		SET status = 'failed', error = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'completed'`, id, reason)
	if err != nil {
		return fmt.Errorf("fail export %s: %w", id, err)
	}
	return nil
}
