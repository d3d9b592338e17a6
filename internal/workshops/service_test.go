package workshops

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
)

func admin() access.Principal {
	return access.Principal{UserID: uuid.New(), Role: models.RoleAdmin, Grant: access.Any}
}

func organizer() access.Principal {
	return access.Principal{UserID: uuid.New(), Role: models.RoleOrganizer, Grant: access.ReadAny | access.WriteOwn}
}

func participant() access.Principal {
	return access.Principal{UserID: uuid.New(), Role: models.RoleParticipant, Grant: access.ReadAny | access.WriteOwn}
}

func newTestService(opts Options) (*Service, *memStore) {
	store := newMemStore()
	return NewService(store, opts, nil), store
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService(Options{})
	org := organizer()

	w, err := svc.Create(context.Background(), org, CreateInput{Title: "Go", StartsAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCapacity, w.MaxParticipants)
	assert.Equal(t, models.DefaultPoints, w.Points)
	assert.True(t, strings.HasPrefix(w.QRToken, QRTokenPrefix))
	assert.True(t, w.OrganizedBy(org.UserID))
}

func TestCreateOrganizerAssignment(t *testing.T) {
	svc, _ := newTestService(Options{})
	other := uuid.New()

	w, err := svc.Create(context.Background(), admin(), CreateInput{Title: "Go", OrganizerID: &other})
	require.NoError(t, err)
	assert.True(t, w.OrganizedBy(other))

	org := organizer()
	w, err = svc.Create(context.Background(), org, CreateInput{Title: "Go", OrganizerID: &other})
	require.NoError(t, err)
	assert.True(t, w.OrganizedBy(org.UserID))
}

func TestCreateRetriesTokenCollision(t *testing.T) {
	svc, store := newTestService(Options{})
	store.createErrs = []error{ErrTokenCollision, nil}

	_, err := svc.Create(context.Background(), admin(), CreateInput{Title: "Go"})
	require.NoError(t, err)

	store.createErrs = []error{ErrTokenCollision, ErrTokenCollision, ErrTokenCollision}
	_, err = svc.Create(context.Background(), admin(), CreateInput{Title: "Go"})
	assert.ErrorIs(t, err, ErrTokenCollision)
}

func TestQRTokensAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := NewQRToken()
		require.NoError(t, err)
		require.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestRegisterCapacityScenario(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 2, Points: 10, QRToken: "WS-123", StartsAt: time.Now().Add(time.Hour)})
	a, b, c := participant(), participant(), participant()

	_, err := svc.Register(ctx, a, w.ID)
	require.NoError(t, err)
	got, err := svc.Register(ctx, b, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ParticipantCount)

	_, err = svc.Register(ctx, c, w.ID)
	assert.ErrorIs(t, err, ErrFull)
	assert.True(t, appErr.IsCode(err, appErr.CodeCapacityExceeded))

	count, members := store.count(w.ID)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, members)
}

func TestRegisterErrors(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 3})
	a := participant()

	_, err := svc.Register(ctx, a, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Register(ctx, a, w.ID)
	require.NoError(t, err)
	_, err = svc.Register(ctx, a, w.ID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	count, _ := store.count(w.ID)
	assert.Equal(t, 1, count)
}

func TestRegisterConcurrentAtCapacity(t *testing.T) {
	svc, store := newTestService(Options{})
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 5})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), participant(), w.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrFull) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 35, refused)
	count, members := store.count(w.ID)
	assert.Equal(t, 5, count)
	assert.Equal(t, 5, members)
}

func TestUnregisterRoundTrip(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 2, StartsAt: time.Now().Add(time.Hour)})
	a := participant()

	_, err := svc.Register(ctx, a, w.ID)
	require.NoError(t, err)
	_, err = svc.Unregister(ctx, a, w.ID)
	require.NoError(t, err)

	count, members := store.count(w.ID)
	assert.Zero(t, count)
	assert.Zero(t, members)
	list, err := svc.ListRegistered(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Unregister(ctx, a, w.ID)
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = svc.Unregister(ctx, a, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnregisterAfterStart(t *testing.T) {
	ctx := context.Background()
	a := participant()

	svc, store := newTestService(Options{})
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 2, StartsAt: time.Now().Add(time.Hour)})
	_, err := svc.Register(ctx, a, w.ID)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = svc.Unregister(ctx, a, w.ID)
	assert.ErrorIs(t, err, ErrWorkshopStarted)
	_, err = svc.Unregister(ctx, participant(), w.ID)
	assert.ErrorIs(t, err, ErrNotRegistered)

	svc.opts.AllowLateUnregister = true
	_, err = svc.Unregister(ctx, a, w.ID)
	assert.NoError(t, err)
}

func TestQRTokenVisibility(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	org := organizer()
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 2, QRToken: "WS-secret", OrganizerID: &org.UserID})

	d, err := svc.Get(ctx, participant(), w.ID)
	require.NoError(t, err)
	assert.Empty(t, d.QRToken)
	assert.Nil(t, d.Participants)

	d, err = svc.Get(ctx, organizer(), w.ID)
	require.NoError(t, err)
	assert.Empty(t, d.QRToken)

	d, err = svc.Get(ctx, org, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "WS-secret", d.QRToken)
	assert.NotNil(t, d.Participants)

	list, err := svc.List(ctx, admin(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "WS-secret", list[0].QRToken)
}

func TestListUpcomingAndOrganized(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	org := organizer()
	store.seed(models.Workshop{Title: "past", StartsAt: time.Now().Add(-time.Hour), OrganizerID: &org.UserID})
	store.seed(models.Workshop{Title: "future", StartsAt: time.Now().Add(time.Hour)})

	list, err := svc.List(ctx, participant(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "future", list[0].Title)

	mine, err := svc.ListOrganized(ctx, access.Principal{UserID: org.UserID, Role: models.RoleOrganizer, Grant: access.Own})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "past", mine[0].Title)

	all, err := svc.ListOrganized(ctx, admin())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateAndDeleteRequireWriteAny(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	org := organizer()
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 2, OrganizerID: &org.UserID})
	title := "Renamed"

	_, err := svc.Update(ctx, org, w.ID, UpdateInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, org, w.ID), ErrForbidden)

	got, err := svc.Update(ctx, admin(), w.ID, UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	require.NoError(t, svc.Delete(ctx, admin(), w.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin(), w.ID), ErrNotFound)
}

func TestUpdateCapacityBelowCount(t *testing.T) {
	svc, store := newTestService(Options{})
	ctx := context.Background()
	w := store.seed(models.Workshop{Title: "W", MaxParticipants: 3})
	for i := 0; i < 2; i++ {
		_, err := svc.Register(ctx, participant(), w.ID)
		require.NoError(t, err)
	}
	one := 1
	_, err := svc.Update(ctx, admin(), w.ID, UpdateInput{MaxParticipants: &one})
	assert.ErrorIs(t, err, ErrCapacityBelowCount)
}
