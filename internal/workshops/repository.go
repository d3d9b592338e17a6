package workshops

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/pkg/database"
)

const workshopColumns = `id, title, description, location, starts_at, points, max_participants,
	participant_count, organizer_id, qr_token, created_at, updated_at`

// Repository handles workshop and participant persistence.
type Repository struct {
	pool *pgxpool.Pool
	db   database.DBTX
}

// NewRepository creates a workshop repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// NewTxRepository binds a repository to an open transaction or connection.
func NewTxRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// InTx runs fn with a repository bound to a single transaction.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

func scanWorkshop(row interface{ Scan(...any) error }) (*models.Workshop, error) {
	var w models.Workshop
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.Location, &w.StartsAt, &w.Points, &w.MaxParticipants,
		&w.ParticipantCount, &w.OrganizerID, &w.QRToken, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a workshop and fills its generated fields.
func (r *Repository) Create(ctx context.Context, w *models.Workshop) error {
	const q = `INSERT INTO workshops (title, description, location, starts_at, points, max_participants, organizer_id, qr_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, participant_count, created_at, updated_at`
	err := r.db.QueryRow(ctx, q, w.Title, w.Description, w.Location, w.StartsAt, w.Points, w.MaxParticipants, w.OrganizerID, w.QRToken).
		Scan(&w.ID, &w.ParticipantCount, &w.CreatedAt, &w.UpdatedAt)
	switch {
	case database.IsUniqueViolation(err, "workshops_qr_token_key"):
		return ErrTokenCollision
	case database.IsForeignKeyViolation(err, "workshops_organizer_id_fkey"):
		return ErrUnknownOrganizer
	case err != nil:
		return fmt.Errorf("create workshop: %w", err)
	}
	return nil
}

// Get returns a workshop by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	w, err := scanWorkshop(r.db.QueryRow(ctx, `SELECT `+workshopColumns+` FROM workshops WHERE id = $1`, id))
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workshop %s: %w", id, err)
	}
	return w, nil
}

// List returns workshops ordered by start time.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Workshop, error) {
	var (
		conds []string
		args  []any
	)
	if f.UpcomingAfter != nil {
		args = append(args, *f.UpcomingAfter)
		conds = append(conds, fmt.Sprintf("w.starts_at >= $%d", len(args)))
	}
	if f.OrganizerID != nil {
		args = append(args, *f.OrganizerID)
		conds = append(conds, fmt.Sprintf("w.organizer_id = $%d", len(args)))
	}
	if f.ParticipantID != nil {
		args = append(args, *f.ParticipantID)
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM workshop_participants wp WHERE wp.workshop_id = w.id AND wp.user_id = $%d)", len(args)))
	}
	q := `SELECT ` + prefixed("w.", workshopColumns) + ` FROM workshops w`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY w.starts_at ASC"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list workshops: %w", err)
	}
	defer rows.Close()

	list := []models.Workshop{}
	for rows.Next() {
		w, err := scanWorkshop(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, rows.Err()
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Participants returns the users registered to a workshop.
func (r *Repository) Participants(ctx context.Context, workshopID uuid.UUID) ([]models.Participant, error) {
	const q = `SELECT u.id, u.full_name, u.email, u.points, wp.registered_at
		FROM workshop_participants wp JOIN users u ON u.id = wp.user_id
		WHERE wp.workshop_id = $1 ORDER BY wp.registered_at`
	rows, err := r.db.Query(ctx, q, workshopID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	list := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Email, &p.Points, &p.RegisteredAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update applies non-nil fields of in.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Workshop, error) {
	const q = `UPDATE workshops SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			location = COALESCE($4, location),
			starts_at = COALESCE($5, starts_at),
			points = COALESCE($6, points),
			max_participants = COALESCE($7, max_participants),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + workshopColumns
	w, err := scanWorkshop(r.db.QueryRow(ctx, q, id, in.Title, in.Description, in.Location, in.StartsAt, in.Points, in.MaxParticipants))
	switch {
	case database.IsNoRows(err):
		return nil, ErrNotFound
	case database.IsCheckViolation(err, "workshops_participant_count_check"):
		return nil, ErrCapacityBelowCount
	case err != nil:
		return nil, fmt.Errorf("update workshop %s: %w", id, err)
	}
	return w, nil
}

// Delete removes a workshop. Participants and attendance rows cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM workshops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workshop %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockWorkshop reads a workshop and holds its row lock until the transaction ends.
func (r *Repository) LockWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	w, err := scanWorkshop(r.db.QueryRow(ctx, `SELECT `+workshopColumns+` FROM workshops WHERE id = $1 FOR UPDATE`, id))
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock workshop %s: %w", id, err)
	}
	return w, nil
}

// AddParticipant registers userID when the workshop has room and the user is
// not yet registered. The count bump and the membership row are one statement.
func (r *Repository) AddParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error) {
	const q = `WITH bump AS (
			UPDATE workshops SET participant_count = participant_count + 1, updated_at = NOW()
			WHERE id = $1
				AND participant_count < max_participants
				AND NOT EXISTS (SELECT 1 FROM workshop_participants WHERE workshop_id = $1 AND user_id = $2)
			RETURNING id
		)
		INSERT INTO workshop_participants (workshop_id, user_id)
		SELECT id, $2 FROM bump`
	tag, err := r.db.Exec(ctx, q, workshopID, userID)
	if database.IsUniqueViolation(err, "") {
		return false, nil
	}
	if database.IsForeignKeyViolation(err, "workshop_participants_user_id_fkey") {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("add participant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveParticipant unregisters userID and releases the seat.
func (r *Repository) RemoveParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error) {
	const q = `WITH removed AS (
			DELETE FROM workshop_participants WHERE workshop_id = $1 AND user_id = $2
			RETURNING workshop_id
		)
		UPDATE workshops SET participant_count = participant_count - 1, updated_at = NOW()
		WHERE id IN (SELECT workshop_id FROM removed)`
	tag, err := r.db.Exec(ctx, q, workshopID, userID)
	if err != nil {
		return false, fmt.Errorf("remove participant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsParticipant reports whether userID is registered to the workshop.
func (r *Repository) IsParticipant(ctx context.Context, workshopID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM workshop_participants WHERE workshop_id = $1 AND user_id = $2)`,
		workshopID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return ok, nil
}
