package users

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/middleware"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/response"
	"github.com/eventconnect/backend/pkg/utils"
)

var errCurrentPasswordRequired = errors.New("is required to change the password")

// ProfileRequest is the body for PUT /users/me.
type ProfileRequest struct {
	FullName        *string `json:"full_name"`
	Password        *string `json:"password"`
	CurrentPassword string  `json:"current_password"`
}

// Validate checks the profile fields.
func (req *ProfileRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.FullName, utils.NotBlank, validation.Length(1, 120)),
		validation.Field(&req.Password, validation.Length(6, 72)),
		validation.Field(&req.CurrentPassword, validation.By(func(interface{}) error {
			if req.Password != nil && req.CurrentPassword == "" {
				return errCurrentPasswordRequired
			}
			return nil
		})),
	)
}

// AdminRequest is the body for PATCH /users/:id.
type AdminRequest struct {
	FullName *string `json:"full_name"`
	Role     *string `json:"role"`
	Points   *int    `json:"points"`
}

// Validate checks the admin edit fields.
func (req *AdminRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.FullName, utils.NotBlank, validation.Length(1, 120)),
		validation.Field(&req.Role, validation.In(string(models.RoleAdmin), string(models.RoleOrganizer), string(models.RoleParticipant))),
		validation.Field(&req.Points, utils.MinInt(0)),
	)
}

// Handler handles account HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func principal(c *gin.Context) access.Principal {
	return c.MustGet(middleware.ContextPrincipal).(access.Principal)
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, profile)
}

// UpdateMe handles PUT /users/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, appErr.FromValidation(err))
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), principal(c), ProfileInput{
		FullName:        req.FullName,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, u)
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, appErr.FromValidation(err))
		return
	}
	in := AdminInput{FullName: req.FullName, Points: req.Points}
	if req.Role != nil {
		role := models.Role(*req.Role)
		in.Role = &role
	}
	u, err := h.svc.AdminUpdate(c.Request.Context(), principal(c), id, in)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, u)
}

// Delete handles DELETE /users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), principal(c), id); err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.NoContent(c)
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, stats)
}

// Leaderboard handles GET /leaderboard?limit=.
func (h *Handler) Leaderboard(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.svc.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}
