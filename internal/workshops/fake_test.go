package workshops

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventconnect/backend/internal/models"
)

// memStore is an in-memory Store. Transactions serialize on a mutex and roll
// back by restoring a snapshot.
type memStore struct {
	mu           sync.Mutex
	workshops    map[uuid.UUID]*models.Workshop
	participants map[uuid.UUID]map[uuid.UUID]time.Time
	deleted      map[uuid.UUID]bool
	createErrs   []error
}

func newMemStore() *memStore {
	return &memStore{
		workshops:    map[uuid.UUID]*models.Workshop{},
		participants: map[uuid.UUID]map[uuid.UUID]time.Time{},
		deleted:      map[uuid.UUID]bool{},
	}
}

func (m *memStore) seed(w models.Workshop) *models.Workshop {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	cp := w
	m.workshops[w.ID] = &cp
	m.participants[w.ID] = map[uuid.UUID]time.Time{}
	return &w
}

func (m *memStore) Create(_ context.Context, w *models.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	cp := *w
	m.workshops[w.ID] = &cp
	m.participants[w.ID] = map[uuid.UUID]time.Time{}
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memStore) get(id uuid.UUID) (*models.Workshop, error) {
	w, ok := m.workshops[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f ListFilter) ([]models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.Workshop{}
	for _, w := range m.workshops {
		if f.UpcomingAfter != nil && w.StartsAt.Before(*f.UpcomingAfter) {
			continue
		}
		if f.OrganizerID != nil && !w.OrganizedBy(*f.OrganizerID) {
			continue
		}
		if f.ParticipantID != nil {
			if _, ok := m.participants[w.ID][*f.ParticipantID]; !ok {
				continue
			}
		}
		list = append(list, *w)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	return list, nil
}

func (m *memStore) Participants(_ context.Context, id uuid.UUID) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.Participant{}
	for uid, at := range m.participants[id] {
		list = append(list, models.Participant{UserID: uid, RegisteredAt: at})
	}
	return list, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, in UpdateInput) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workshops[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.MaxParticipants != nil && *in.MaxParticipants < w.ParticipantCount {
		return nil, ErrCapacityBelowCount
	}
	if in.Title != nil {
		w.Title = *in.Title
	}
	if in.Points != nil {
		w.Points = *in.Points
	}
	if in.MaxParticipants != nil {
		w.MaxParticipants = *in.MaxParticipants
	}
	if in.StartsAt != nil {
		w.StartsAt = *in.StartsAt
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workshops[id]; !ok {
		return ErrNotFound
	}
	delete(m.workshops, id)
	delete(m.participants, id)
	return nil
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapWorkshops := make(map[uuid.UUID]models.Workshop, len(m.workshops))
	for id, w := range m.workshops {
		snapWorkshops[id] = *w
	}
	snapParticipants := make(map[uuid.UUID]map[uuid.UUID]time.Time, len(m.participants))
	for id, set := range m.participants {
		cp := make(map[uuid.UUID]time.Time, len(set))
		for k, v := range set {
			cp[k] = v
		}
		snapParticipants[id] = cp
	}
	if err := fn(ctx, memTx{m}); err != nil {
		m.workshops = make(map[uuid.UUID]*models.Workshop, len(snapWorkshops))
		for id, w := range snapWorkshops {
			w := w
			m.workshops[id] = &w
		}
		m.participants = snapParticipants
		return err
	}
	return nil
}

func (m *memStore) count(id uuid.UUID) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workshops[id].ParticipantCount, len(m.participants[id])
}

// memTx runs with memStore.mu held.
type memTx struct{ m *memStore }

func (t memTx) LockWorkshop(_ context.Context, id uuid.UUID) (*models.Workshop, error) {
	return t.m.get(id)
}

func (t memTx) AddParticipant(_ context.Context, workshopID, userID uuid.UUID) (bool, error) {
	w, ok := t.m.workshops[workshopID]
	if !ok || w.ParticipantCount >= w.MaxParticipants {
		return false, nil
	}
	if _, dup := t.m.participants[workshopID][userID]; dup {
		return false, nil
	}
	if t.m.deleted[userID] {
		return false, ErrUserNotFound
	}
	t.m.participants[workshopID][userID] = time.Now()
	w.ParticipantCount++
	return true, nil
}

func (t memTx) RemoveParticipant(_ context.Context, workshopID, userID uuid.UUID) (bool, error) {
	if _, ok := t.m.participants[workshopID][userID]; !ok {
		return false, nil
	}
	delete(t.m.participants[workshopID], userID)
	t.m.workshops[workshopID].ParticipantCount--
	return true, nil
}

func (t memTx) IsParticipant(_ context.Context, workshopID, userID uuid.UUID) (bool, error) {
	_, ok := t.m.participants[workshopID][userID]
	return ok, nil
}
