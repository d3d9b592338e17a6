package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/internal/workshops"
	"github.com/eventconnect/backend/pkg/database"
)

var errNoAttendance = errors.New("attendance not found")

const rowQuery = `SELECT a.id, a.participant_id, a.workshop_id, a.method, a.validated_by, a.recorded_at,
		u.full_name, u.email, w.title, w.points, COALESCE(v.full_name, '')
	FROM attendance a
	JOIN users u ON u.id = a.participant_id
	JOIN workshops w ON w.id = a.workshop_id
	LEFT JOIN users v ON v.id = a.validated_by`

// Repository handles attendance persistence. Workshop reads and membership
// writes go through a workshops.Repository bound to the same connection.
type Repository struct {
	pool *pgxpool.Pool
	db   database.DBTX
	*workshops.Repository
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool, Repository: workshops.NewTxRepository(pool)}
}

func newTxRepository(db database.DBTX) *Repository {
	return &Repository{db: db, Repository: workshops.NewTxRepository(db)}
}

// InTx runs fn with a repository bound to a single transaction.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, newTxRepository(tx))
	})
}

// GetWorkshop returns a workshop by ID.
func (r *Repository) GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return r.Repository.Get(ctx, id)
}

// GetUser returns the account of a participant.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx, `SELECT id, email, full_name, role, points FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Points)
	if database.IsNoRows(err) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// HasAttendance reports whether the ledger already holds the pair.
func (r *Repository) HasAttendance(ctx context.Context, participantID, workshopID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attendance WHERE participant_id = $1 AND workshop_id = $2)`,
		participantID, workshopID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return ok, nil
}

// InsertAttendance appends to the ledger. A concurrent duplicate loses on the
// unique constraint.
func (r *Repository) InsertAttendance(ctx context.Context, a *models.Attendance) error {
	const q = `INSERT INTO attendance (participant_id, workshop_id, method, validated_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, recorded_at`
	err := r.db.QueryRow(ctx, q, a.ParticipantID, a.WorkshopID, string(a.Method), a.ValidatedBy).Scan(&a.ID, &a.RecordedAt)
	switch {
	case database.IsUniqueViolation(err, "attendance_participant_workshop_key"):
		return ErrDuplicateAttendance
	case database.IsForeignKeyViolation(err, "attendance_workshop_id_fkey"):
		return ErrWorkshopNotFound
	case database.IsForeignKeyViolation(err, "attendance_participant_id_fkey"):
		return ErrParticipantNotFound
	case err != nil:
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// AwardPoints adds points to the user's balance and returns the new balance.
func (r *Repository) AwardPoints(ctx context.Context, userID uuid.UUID, points int) (int, error) {
	var balance int
	err := r.db.QueryRow(ctx,
		`UPDATE users SET points = points + $2, updated_at = NOW() WHERE id = $1 RETURNING points`,
		userID, points).Scan(&balance)
	if database.IsNoRows(err) {
		return 0, ErrParticipantNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("award points: %w", err)
	}
	return balance, nil
}

// Find returns the attendance of a participant at a workshop.
func (r *Repository) Find(ctx context.Context, participantID, workshopID uuid.UUID) (*models.Attendance, error) {
	var a models.Attendance
	err := r.db.QueryRow(ctx,
		`SELECT id, participant_id, workshop_id, method, validated_by, recorded_at
		FROM attendance WHERE participant_id = $1 AND workshop_id = $2`,
		participantID, workshopID).Scan(&a.ID, &a.ParticipantID, &a.WorkshopID, &a.Method, &a.ValidatedBy, &a.RecordedAt)
	if database.IsNoRows(err) {
		return nil, errNoAttendance
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &a, nil
}

// ListByParticipant returns a participant's attendance, newest first.
func (r *Repository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.AttendanceRow, error) {
	return r.listRows(ctx, rowQuery+` WHERE a.participant_id = $1 ORDER BY a.recorded_at DESC`, participantID)
}

// ListByWorkshop returns a workshop's attendance in recording order.
func (r *Repository) ListByWorkshop(ctx context.Context, workshopID uuid.UUID) ([]models.AttendanceRow, error) {
	return r.listRows(ctx, rowQuery+` WHERE a.workshop_id = $1 ORDER BY a.recorded_at ASC`, workshopID)
}

func (r *Repository) listRows(ctx context.Context, q string, arg uuid.UUID) ([]models.AttendanceRow, error) {
	rows, err := r.db.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	list := []models.AttendanceRow{}
	for rows.Next() {
		var a models.AttendanceRow
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.WorkshopID, &a.Method, &a.ValidatedBy, &a.RecordedAt,
			&a.ParticipantName, &a.ParticipantEmail, &a.WorkshopTitle, &a.WorkshopPoints, &a.ValidatorName); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
