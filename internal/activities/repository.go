package activities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/pkg/database"
)

// Filter narrows activity listings.
type Filter struct {
	Type          models.ActivityType
	UpcomingAfter *time.Time
}

// Repository handles activity persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an activity repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// Create inserts an activity.
func (r *Repository) Create(ctx context.Context, a *models.Activity) error {
	const q = `INSERT INTO activities (title, description, location, starts_at, type, image_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	if err := r.db.QueryRow(ctx, q, a.Title, a.Description, a.Location, a.StartsAt, string(a.Type), a.ImageURL).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// List returns activities ordered by start time.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.Activity, error) {
	var (
		conds []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, string(f.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if f.UpcomingAfter != nil {
		args = append(args, *f.UpcomingAfter)
		conds = append(conds, fmt.Sprintf("starts_at >= $%d", len(args)))
	}
	q := `SELECT id, title, description, location, starts_at, type, image_url, created_at, updated_at FROM activities`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY starts_at ASC"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	list := []models.Activity{}
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Location, &a.StartsAt, &a.Type, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
