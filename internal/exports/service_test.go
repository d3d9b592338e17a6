package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/middleware"
	"github.com/eventconnect/backend/internal/models"
	"github.com/eventconnect/backend/pkg/queue"
	"github.com/eventconnect/backend/pkg/response"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) GetWorkshop(ctx context.Context, id uuid.UUID) (*models.Workshop, error) {
	args := m.Called(ctx, id)
	w, _ := args.Get(0).(*models.Workshop)
	return w, args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, workshopID, requestedBy uuid.UUID) (*models.AttendanceExport, error) {
	args := m.Called(ctx, workshopID, requestedBy)
	e, _ := args.Get(0).(*models.AttendanceExport)
	return e, args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, id uuid.UUID) (*models.AttendanceExport, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*models.AttendanceExport)
	return e, args.Error(1)
}

func (m *mockStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type mockQueue struct{ mock.Mock }

func (m *mockQueue) EnqueueAttendanceExport(ctx context.Context, payload queue.AttendanceExportPayload) error {
	return m.Called(ctx, payload).Error(0)
}

type stubSigner struct{}

func (stubSigner) PresignExportDownload(_ context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func TestRequestEnqueuesForOrganizer(t *testing.T) {
	ctx := context.Background()
	organizer := uuid.New()
	w := &models.Workshop{ID: uuid.New(), OrganizerID: &organizer}
	export := &models.AttendanceExport{ID: uuid.New(), WorkshopID: w.ID, Status: models.ExportPending}

	store := new(mockStore)
	store.On("GetWorkshop", ctx, w.ID).Return(w, nil)
	store.On("Create", ctx, w.ID, organizer).Return(export, nil)
	q := new(mockQueue)
	q.On("EnqueueAttendanceExport", ctx, queue.AttendanceExportPayload{ExportID: export.ID, WorkshopID: w.ID}).Return(nil)

	svc := NewService(store, q, stubSigner{}, nil)
	got, err := svc.Request(ctx, access.Principal{UserID: organizer, Role: models.RoleOrganizer, Grant: access.ReadAny | access.WriteOwn}, w.ID)
	require.NoError(t, err)
	assert.Equal(t, export.ID, got.ID)
	store.AssertExpectations(t)
	q.AssertExpectations(t)
}

func TestRequestRejectsOtherOrganizer(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	w := &models.Workshop{ID: uuid.New(), OrganizerID: &owner}
	store := new(mockStore)
	store.On("GetWorkshop", ctx, w.ID).Return(w, nil)

	svc := NewService(store, new(mockQueue), stubSigner{}, nil)
	_, err := svc.Request(ctx, access.Principal{UserID: uuid.New(), Role: models.RoleOrganizer, Grant: access.WriteOwn}, w.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestMarksFailedWhenEnqueueFails(t *testing.T) {
	ctx := context.Background()
	admin := uuid.New()
	w := &models.Workshop{ID: uuid.New()}
	export := &models.AttendanceExport{ID: uuid.New(), WorkshopID: w.ID}

	store := new(mockStore)
	store.On("GetWorkshop", ctx, w.ID).Return(w, nil)
	store.On("Create", ctx, w.ID, admin).Return(export, nil)
	store.On("MarkFailed", ctx, export.ID, "enqueue failed").Return(nil)
	q := new(mockQueue)
	q.On("EnqueueAttendanceExport", ctx, mock.Anything).Return(errors.New("redis down"))

	svc := NewService(store, q, stubSigner{}, nil)
	_, err := svc.Request(ctx, access.Principal{UserID: admin, Role: models.RoleAdmin, Grant: access.Any}, w.ID)
	require.Error(t, err)
	store.AssertExpectations(t)
}

func TestGetSignsCompletedExport(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	key := "exports/w/e.csv"
	done := &models.AttendanceExport{ID: uuid.New(), RequestedBy: &owner, Status: models.ExportCompleted, S3Key: &key}
	pending := &models.AttendanceExport{ID: uuid.New(), RequestedBy: &owner, Status: models.ExportPending}

	store := new(mockStore)
	store.On("Get", ctx, done.ID).Return(done, nil)
	store.On("Get", ctx, pending.ID).Return(pending, nil)
	svc := NewService(store, new(mockQueue), stubSigner{}, nil)
	p := access.Principal{UserID: owner, Role: models.RoleOrganizer, Grant: access.WriteOwn}

	got, err := svc.Get(ctx, p, done.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/"+key, got.DownloadURL)

	got, err = svc.Get(ctx, p, pending.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DownloadURL)

	_, err = svc.Get(ctx, access.Principal{UserID: uuid.New(), Role: models.RoleOrganizer, Grant: access.WriteOwn}, done.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDisabledWithoutStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(new(mockStore), nil, nil, nil), nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextPrincipal, access.Principal{UserID: uuid.New(), Role: models.RoleAdmin, Grant: access.Any})
	})
	r.POST("/exports/workshops/:id/attendance", h.Request)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports/workshops/"+uuid.NewString()+"/attendance", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body response.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ExportsDisabled", body.Reason)
}

func TestWriteCSV(t *testing.T) {
	at := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	rows := []models.AttendanceRow{
		{Attendance: models.Attendance{Method: models.MethodQR, RecordedAt: at}, ParticipantName: "Ada, L.", ParticipantEmail: "ada@example.com", WorkshopPoints: 10},
		{Attendance: models.Attendance{Method: models.MethodManual, RecordedAt: at}, ParticipantName: "Bob", ParticipantEmail: "bob@example.com", ValidatorName: "Org", WorkshopPoints: 10},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"Ada, L.", "ada@example.com", "qr", "", "2026-03-04T10:00:00Z", "10"}, records[1])
	assert.Equal(t, "Org", records[2][3])
}
