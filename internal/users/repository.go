package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/internal/workshops"
	"github.com/eventconnect/backend/pkg/database"
)

const userColumns = `id, email, password_hash, full_name, role, points, created_at, updated_at`

// Repository handles account management queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.Role, &u.Points, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Get returns a user by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// RegisteredWorkshops returns the workshops a user is registered to.
func (r *Repository) RegisteredWorkshops(ctx context.Context, id uuid.UUID) ([]models.Workshop, error) {
	return workshops.NewTxRepository(r.pool).List(ctx, workshops.ListFilter{ParticipantID: &id})
}

// Attendance returns a user's attendance records, newest first.
func (r *Repository) Attendance(ctx context.Context, id uuid.UUID) ([]models.Attendance, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, participant_id, workshop_id, method, validated_by, recorded_at
		FROM attendance WHERE participant_id = $1 ORDER BY recorded_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	list := []models.Attendance{}
	for rows.Next() {
		var a models.Attendance
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.WorkshopID, &a.Method, &a.ValidatedBy, &a.RecordedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Update applies non-nil fields of in.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in Changes) (*models.User, error) {
	const q = `UPDATE users SET
			full_name = COALESCE($2, full_name),
			password_hash = COALESCE($3, password_hash),
			role = COALESCE($4, role),
			points = COALESCE($5, points),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	var role *string
	if in.Role != nil {
		s := string(*in.Role)
		role = &s
	}
	u, err := scanUser(r.pool.QueryRow(ctx, q, id, in.FullName, in.PasswordHash, role, in.Points))
	if database.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return u, nil
}

// List returns every user with the number of workshops they registered to.
func (r *Repository) List(ctx context.Context) ([]models.UserSummary, error) {
	const q = `SELECT u.id, u.email, u.full_name, u.role, u.points, u.created_at,
			(SELECT COUNT(*) FROM workshop_participants wp WHERE wp.user_id = u.id)
		FROM users u ORDER BY u.full_name, u.email`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := []models.UserSummary{}
	for rows.Next() {
		var s models.UserSummary
		if err := rows.Scan(&s.ID, &s.Email, &s.FullName, &s.Role, &s.Points, &s.CreatedAt, &s.WorkshopsRegistered); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Delete removes a non-admin user. Seats the user held are released in the
// same transaction; registrations and attendance cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Workshop rows are locked before the user row, the same order
		// register and unregister take them.
		if _, err := tx.Exec(ctx, `SELECT w.id FROM workshops w
			JOIN workshop_participants wp ON wp.workshop_id = w.id
			WHERE wp.user_id = $1
			ORDER BY w.id
			FOR UPDATE OF w`, id); err != nil {
			return fmt.Errorf("lock workshops of %s: %w", id, err)
		}
		var role models.Role
		err := tx.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&role)
		if database.IsNoRows(err) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user %s: %w", id, err)
		}
		if role == models.RoleAdmin {
			return ErrCannotDeleteAdmin
		}
		// Deleting the membership rows first serializes with a concurrent
		// unregister, so each seat is released exactly once.
		if _, err := tx.Exec(ctx, `WITH removed AS (
				DELETE FROM workshop_participants WHERE user_id = $1 RETURNING workshop_id
			)
			UPDATE workshops SET participant_count = participant_count - 1, updated_at = NOW()
			WHERE id IN (SELECT workshop_id FROM removed)`, id); err != nil {
			return fmt.Errorf("release seats: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete user %s: %w", id, err)
		}
		return nil
	})
}

// Stats returns dashboard totals.
func (r *Repository) Stats(ctx context.Context) (*models.Stats, error) {
	const q = `SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'participant'),
			(SELECT COUNT(*) FROM workshops),
			(SELECT COALESCE(SUM(points), 0) FROM users WHERE role = 'participant'),
			(SELECT COUNT(*) FROM notifications WHERE NOT is_read)`
	var s models.Stats
	if err := r.pool.QueryRow(ctx, q).Scan(&s.TotalParticipants, &s.TotalWorkshops, &s.TotalPoints, &s.ActiveNotifications); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &s, nil
}

// Leaderboard returns the top participants by points.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	const q = `SELECT RANK() OVER (ORDER BY points DESC), id, full_name, points
		FROM users WHERE role = 'participant'
		ORDER BY points DESC, full_name
		LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	list := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.FullName, &e.Points); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
