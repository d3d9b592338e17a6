package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/pkg/database"
)

// Repository handles notification persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a notification repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// ListForRole returns notifications addressed to role or to everyone, newest first.
func (r *Repository) ListForRole(ctx context.Context, role string, limit int) ([]models.Notification, error) {
	const q = `SELECT n.id, n.message, n.recipient_role, n.type, n.related_workshop_id, n.created_by, n.is_read, n.created_at,
			COALESCE(u.full_name, ''), COALESCE(w.title, '')
		FROM notifications n
		LEFT JOIN users u ON u.id = n.created_by
		LEFT JOIN workshops w ON w.id = n.related_workshop_id
		WHERE n.recipient_role IN ($1, 'all')
		ORDER BY n.created_at DESC, n.id
		LIMIT $2`
	rows, err := r.db.Query(ctx, q, role, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.RecipientRole, &n.Type, &n.RelatedWorkshopID, &n.CreatedBy, &n.IsRead, &n.CreatedAt,
			&n.CreatorName, &n.WorkshopTitle); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// Create inserts a notification.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (message, recipient_role, type, related_workshop_id, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at`
	err := r.db.QueryRow(ctx, q, n.Message, n.RecipientRole, string(n.Type), n.RelatedWorkshopID, n.CreatedBy).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if database.IsForeignKeyViolation(err, "notifications_related_workshop_id_fkey") {
		return ErrUnknownWorkshop
	}
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkRead sets the read flag. Marking an already read notification succeeds.
func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
