//go:build integration

// Package databasetest starts a throwaway Postgres for repository tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/pkg/database"
)

const image = "postgres:16-alpine"

// NewPool starts a Postgres container, applies migrations and returns a pool
// that is closed together with the container when the test ends.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("eventconnect"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewPostgresPool(ctx, dsn, database.PoolOptions{MaxConns: 32}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, zap.NewNop()))
	return pool
}

// SeedUser inserts a user with the given role and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role models.Role) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, password_hash, full_name, role) VALUES ($1, 'x', $2, $3) RETURNING id`,
		uuid.NewString()+"@example.com", string(role)+" user", string(role),
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// Points returns a user's point balance.
func Points(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT points FROM users WHERE id = $1`, id).Scan(&n))
	return n
}
