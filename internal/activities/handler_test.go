package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventconnect/backend/internal/models"
)

type memStore struct {
	items []models.Activity
	last  Filter
}

func (m *memStore) Create(_ context.Context, a *models.Activity) error {
	a.ID = uuid.New()
	m.items = append(m.items, *a)
	return nil
}

func (m *memStore) List(_ context.Context, f Filter) ([]models.Activity, error) {
	m.last = f
	return m.items, nil
}

func newRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.GET("/activities", h.List)
	r.POST("/activities", h.Create)
	return r
}

func TestCreateActivity(t *testing.T) {
	store := &memStore{}
	r := newRouter(store)

	raw, _ := json.Marshal(map[string]any{
		"title": "Concert", "type": "entertainment", "starts_at": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities", bytes.NewReader(raw)))
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.items, 1)
	assert.Nil(t, store.items[0].ImageURL)

	raw, _ = json.Marshal(map[string]any{"title": "Concert", "type": "party", "image_url": "not a url"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/activities", bytes.NewReader(raw)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "image_url")
	assert.Contains(t, w.Body.String(), "starts_at")
}

func TestListActivitiesFilter(t *testing.T) {
	store := &memStore{}
	r := newRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activities?type=workshop&upcoming=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ActivityWorkshop, store.last.Type)
	assert.NotNil(t, store.last.UpcomingAfter)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activities?type=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
