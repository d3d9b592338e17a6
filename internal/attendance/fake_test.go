package attendance

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventconnect/backend/internal/models"
)

type memState struct {
	workshops    map[uuid.UUID]models.Workshop
	users        map[uuid.UUID]models.User
	participants map[uuid.UUID]map[uuid.UUID]bool
	ledger       []models.Attendance
}

func (s memState) clone() memState {
	out := memState{
		workshops:    make(map[uuid.UUID]models.Workshop, len(s.workshops)),
		users:        make(map[uuid.UUID]models.User, len(s.users)),
		participants: make(map[uuid.UUID]map[uuid.UUID]bool, len(s.participants)),
		ledger:       append([]models.Attendance(nil), s.ledger...),
	}
	for k, v := range s.workshops {
		out.workshops[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, set := range s.participants {
		cp := make(map[uuid.UUID]bool, len(set))
		for u := range set {
			cp[u] = true
		}
		out.participants[k] = cp
	}
	return out
}

// memStore is an in-memory Store whose transactions serialize on a mutex and
// roll back by restoring a snapshot. awardErr makes AwardPoints fail.
type memStore struct {
	mu       sync.Mutex
	state    memState
	awardErr error
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		workshops:    map[uuid.UUID]models.Workshop{},
		users:        map[uuid.UUID]models.User{},
		participants: map[uuid.UUID]map[uuid.UUID]bool{},
	}}
}

func (m *memStore) addUser(role models.Role) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.User{ID: uuid.New(), FullName: string(role), Email: uuid.NewString() + "@example.com", Role: role}
	m.state.users[u.ID] = u
	return u.ID
}

func (m *memStore) addWorkshop(w models.Workshop, registered ...uuid.UUID) models.Workshop {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = uuid.New()
	set := map[uuid.UUID]bool{}
	for _, u := range registered {
		set[u] = true
	}
	w.ParticipantCount = len(set)
	m.state.workshops[w.ID] = w
	m.state.participants[w.ID] = set
	return w
}

func (m *memStore) points(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.users[userID].Points
}

func (m *memStore) ledgerLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.ledger)
}

func (m *memStore) registered(workshopID, userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.participants[workshopID][userID]
}

func (m *memStore) GetWorkshop(_ context.Context, id uuid.UUID) (*models.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m}.GetWorkshop(context.Background(), id)
}

func (m *memStore) Find(_ context.Context, participantID, workshopID uuid.UUID) (*models.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.state.ledger {
		if a.ParticipantID == participantID && a.WorkshopID == workshopID {
			cp := a
			return &cp, nil
		}
	}
	return nil, errNoAttendance
}

func (m *memStore) list(match func(models.Attendance) bool) []models.AttendanceRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AttendanceRow{}
	for _, a := range m.state.ledger {
		if match(a) {
			out = append(out, models.AttendanceRow{
				Attendance:      a,
				ParticipantName: m.state.users[a.ParticipantID].FullName,
				WorkshopTitle:   m.state.workshops[a.WorkshopID].Title,
			})
		}
	}
	return out
}

func (m *memStore) ListByParticipant(_ context.Context, participantID uuid.UUID) ([]models.AttendanceRow, error) {
	rows := m.list(func(a models.Attendance) bool { return a.ParticipantID == participantID })
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].RecordedAt.After(rows[j].RecordedAt) })
	return rows, nil
}

func (m *memStore) ListByWorkshop(_ context.Context, workshopID uuid.UUID) ([]models.AttendanceRow, error) {
	return m.list(func(a models.Attendance) bool { return a.WorkshopID == workshopID }), nil
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.state.clone()
	if err := fn(ctx, memTx{m}); err != nil {
		m.state = snap
		return err
	}
	return nil
}

// memTx runs with memStore.mu held.
type memTx struct{ m *memStore }

func (t memTx) GetWorkshop(_ context.Context, id uuid.UUID) (*models.Workshop, error) {
	w, ok := t.m.state.workshops[id]
	if !ok {
		return nil, ErrWorkshopNotFound
	}
	return &w, nil
}

func (t memTx) LockWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	return t.GetWorkshop(ctx, id)
}

func (t memTx) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := t.m.state.users[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return &u, nil
}

func (t memTx) IsParticipant(_ context.Context, workshopID, userID uuid.UUID) (bool, error) {
	return t.m.state.participants[workshopID][userID], nil
}

func (t memTx) AddParticipant(_ context.Context, workshopID, userID uuid.UUID) (bool, error) {
	w := t.m.state.workshops[workshopID]
	set := t.m.state.participants[workshopID]
	if set[userID] || w.ParticipantCount >= w.MaxParticipants {
		return false, nil
	}
	set[userID] = true
	w.ParticipantCount++
	t.m.state.workshops[workshopID] = w
	return true, nil
}

func (t memTx) HasAttendance(_ context.Context, participantID, workshopID uuid.UUID) (bool, error) {
	for _, a := range t.m.state.ledger {
		if a.ParticipantID == participantID && a.WorkshopID == workshopID {
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) InsertAttendance(ctx context.Context, a *models.Attendance) error {
	if dup, _ := t.HasAttendance(ctx, a.ParticipantID, a.WorkshopID); dup {
		return ErrDuplicateAttendance
	}
	a.ID = uuid.New()
	a.RecordedAt = time.Now()
	t.m.state.ledger = append(t.m.state.ledger, *a)
	return nil
}

func (t memTx) AwardPoints(_ context.Context, userID uuid.UUID, points int) (int, error) {
	if t.m.awardErr != nil {
		return 0, t.m.awardErr
	}
	u, ok := t.m.state.users[userID]
	if !ok {
		return 0, ErrParticipantNotFound
	}
	u.Points += points
	t.m.state.users[userID] = u
	return u.Points, nil
}

var errStorage = errors.New("storage unavailable")
