package workshops

import (
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/middleware"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/response"
	"github.com/eventconnect/backend/pkg/utils"
)

// CreateRequest is the body for POST /workshops.
type CreateRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	StartsAt        time.Time  `json:"starts_at"`
	Points          *int       `json:"points"`
	MaxParticipants *int       `json:"max_participants"`
	OrganizerID     *uuid.UUID `json:"organizer_id"`
}

// Validate checks the creation fields.
func (req *CreateRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Length(0, 5000)),
		validation.Field(&req.Location, validation.Length(0, 200)),
		validation.Field(&req.StartsAt, validation.Required),
		validation.Field(&req.Points, utils.MinInt(0)),
		validation.Field(&req.MaxParticipants, utils.MinInt(1)),
	)
}

// UpdateRequest is the body for PUT /workshops/:id. Omitted fields are unchanged.
type UpdateRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Location        *string    `json:"location"`
	StartsAt        *time.Time `json:"starts_at"`
	Points          *int       `json:"points"`
	MaxParticipants *int       `json:"max_participants"`
}

// Validate checks the edited fields.
func (req *UpdateRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, utils.NotBlank, validation.Length(1, 200)),
		validation.Field(&req.Description, validation.Length(0, 5000)),
		validation.Field(&req.Location, validation.Length(0, 200)),
		validation.Field(&req.Points, utils.MinInt(0)),
		validation.Field(&req.MaxParticipants, utils.MinInt(1)),
	)
}

// Handler handles workshop HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a workshop handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func principal(c *gin.Context) access.Principal {
	return c.MustGet(middleware.ContextPrincipal).(access.Principal)
}

// Create handles POST /workshops.
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
	w, err := h.svc.Create(c.Request.Context(), principal(c), CreateInput{
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		StartsAt:        req.StartsAt,
		Points:          req.Points,
		MaxParticipants: req.MaxParticipants,
		OrganizerID:     req.OrganizerID,
	})
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.Created(c, w)
}

// List handles GET /workshops?upcoming=true.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), principal(c), c.Query("upcoming") == "true")
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// ListOrganized handles GET /organizer/workshops.
func (h *Handler) ListOrganized(c *gin.Context) {
	list, err := h.svc.ListOrganized(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// ListRegistered handles GET /participant/workshops.
func (h *Handler) ListRegistered(c *gin.Context) {
	list, err := h.svc.ListRegistered(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /workshops/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	d, err := h.svc.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, d)
}

// Update handles PUT /workshops/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, appErr.FromValidation(err))
		return
	}
	w, err := h.svc.Update(c.Request.Context(), principal(c), id, UpdateInput(req))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, w)
}

// Delete handles DELETE /workshops/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), principal(c), id); err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.NoContent(c)
}

// Register handles POST /workshops/:id/register.
func (h *Handler) Register(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	w, err := h.svc.Register(c.Request.Context(), principal(c), id)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, w)
}

// Unregister handles POST /workshops/:id/unregister.
func (h *Handler) Unregister(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	w, err := h.svc.Unregister(c.Request.Context(), principal(c), id)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, w)
}
