//go:build integration

package workshops_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/attendance"
	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/internal/workshops"
	"github.com/eventconnect/backend/pkg/database/databasetest"
)

func intPtr(n int) *int { return &n }

func TestConcurrentRegistrationAtCapacity(t *testing.T) {
	pool := databasetest.NewPool(t)
	ctx := context.Background()
	svc := workshops.NewService(workshops.NewRepository(pool), workshops.Options{}, nil)

	admin := access.Principal{UserID: databasetest.SeedUser(t, pool, models.RoleAdmin), Role: models.RoleAdmin, Grant: access.Any}
	w, err := svc.Create(ctx, admin, workshops.CreateInput{
		Title:           "Go concurrency",
		StartsAt:        time.Now().Add(24 * time.Hour),
		MaxParticipants: intPtr(5),
	})
	require.NoError(t, err)

	const callers = 30
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for i := 0; i < callers; i++ {
		p := access.Principal{UserID: databasetest.SeedUser(t, pool, models.RoleParticipant), Role: models.RoleParticipant, Grant: access.WriteOwn}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, p, w.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, workshops.ErrFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, callers-5, full)

	var count, rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT participant_count FROM workshops WHERE id = $1`, w.ID).Scan(&count))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM workshop_participants WHERE workshop_id = $1`, w.ID).Scan(&rows))
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, rows)
}

func TestConcurrentRegistrationSameUser(t *testing.T) {
	pool := databasetest.NewPool(t)
	ctx := context.Background()
	svc := workshops.NewService(workshops.NewRepository(pool), workshops.Options{}, nil)

	admin := access.Principal{UserID: databasetest.SeedUser(t, pool, models.RoleAdmin), Role: models.RoleAdmin, Grant: access.Any}
	w, err := svc.Create(ctx, admin, workshops.CreateInput{Title: "Twice", StartsAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	p := access.Principal{UserID: databasetest.SeedUser(t, pool, models.RoleParticipant), Role: models.RoleParticipant, Grant: access.WriteOwn}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ok  int
		dup int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, p, w.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, workshops.ErrAlreadyRegistered) {
				dup++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, dup)

	got, err := svc.Unregister(ctx, p, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ParticipantCount)

	_, err = svc.Unregister(ctx, p, w.ID)
	assert.ErrorIs(t, err, workshops.ErrNotRegistered)
}

func TestDeleteWorkshopCascades(t *testing.T) {
	pool := databasetest.NewPool(t)
	ctx := context.Background()
	svc := workshops.NewService(workshops.NewRepository(pool), workshops.Options{}, nil)
	att := attendance.NewService(attendance.NewRepository(pool), nil)
	count := func(q string, args ...any) int {
		var n int
		require.NoError(t, pool.QueryRow(ctx, q, args...).Scan(&n))
		return n
	}

	admin := access.Principal{UserID: databasetest.SeedUser(t, pool, models.RoleAdmin), Role: models.RoleAdmin, Grant: access.Any}
	doomed, err := svc.Create(ctx, admin, workshops.CreateInput{Title: "Doomed", StartsAt: time.Now().Add(time.Hour), Points: intPtr(10)})
	require.NoError(t, err)
	kept, err := svc.Create(ctx, admin, workshops.CreateInput{Title: "Kept", StartsAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	a := access.Principal{UserID: databasetest.SeedUser(t, pool, models.RoleParticipant), Role: models.RoleParticipant, Grant: access.WriteOwn}
	b := access.Principal{UserID: databasetest.SeedUser(t, pool, models.RoleParticipant), Role: models.RoleParticipant, Grant: access.WriteOwn}
	for _, p := range []access.Principal{a, b} {
		_, err = svc.Register(ctx, p, doomed.ID)
		require.NoError(t, err)
	}
	_, err = svc.Register(ctx, a, kept.ID)
	require.NoError(t, err)
	_, err = att.ValidateScan(ctx, a, doomed.ID, doomed.QRToken)
	require.NoError(t, err)
	_, err = att.ValidateScan(ctx, a, kept.ID, kept.QRToken)
	require.NoError(t, err)

	_, err = svc.Get(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, workshops.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, admin, doomed.ID))
	_, err = svc.Get(ctx, admin, doomed.ID)
	assert.ErrorIs(t, err, workshops.ErrNotFound)

	assert.Zero(t, count(`SELECT COUNT(*) FROM workshop_participants WHERE workshop_id = $1`, doomed.ID))
	assert.Zero(t, count(`SELECT COUNT(*) FROM attendance WHERE workshop_id = $1`, doomed.ID))
	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM workshop_participants WHERE user_id = $1`, a.UserID))
	assert.Equal(t, 1, count(`SELECT COUNT(*) FROM attendance WHERE participant_id = $1`, a.UserID))
	assert.Equal(t, 1, count(`SELECT participant_count FROM workshops WHERE id = $1`, kept.ID))

	registered, err := svc.ListRegistered(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, registered)
}
