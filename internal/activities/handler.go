// Package activities serves the event programme (entertainment and workshop slots).
package activities

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/response"
)

// Store persists activities.
type Store interface {
	Create(ctx context.Context, a *models.Activity) error
	List(ctx context.Context, f Filter) ([]models.Activity, error)
}

// CreateRequest is the body for POST /activities.
type CreateRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	Type        string    `json:"type"`
	ImageURL    string    `json:"image_url"`
}

// Validate checks the activity fields.
func (req *CreateRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.StartsAt, validation.Required),
		validation.Field(&req.Type, validation.Required, validation.In(string(models.ActivityEntertainment), string(models.ActivityWorkshop))),
		validation.Field(&req.ImageURL, is.URL),
	)
}

// Handler handles activity HTTP endpoints.
type Handler struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates an activity handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, now: time.Now, logger: logger}
}

// List handles GET /activities?type=&upcoming=true.
func (h *Handler) List(c *gin.Context) {
	f := Filter{Type: models.ActivityType(c.Query("type"))}
	if f.Type != "" && f.Type != models.ActivityEntertainment && f.Type != models.ActivityWorkshop {
		response.Error(c, appErr.Validation(map[string]string{"type": "must be a valid value"}))
		return
	}
	if c.Query("upcoming") == "true" {
		now := h.now()
		f.UpcomingAfter = &now
	}
	list, err := h.store.List(c.Request.Context(), f)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /activities.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, appErr.FromValidation(err))
		return
	}
	a := &models.Activity{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Type:        models.ActivityType(req.Type),
	}
	if req.ImageURL != "" {
		a.ImageURL = &req.ImageURL
	}
	if err := h.store.Create(c.Request.Context(), a); err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.Created(c, a)
}
