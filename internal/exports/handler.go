package exports

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/middleware"
	"github.com/eventconnect/backend/pkg/response"
)

// Handler handles export endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an export handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func principal(c *gin.Context) access.Principal {
	return c.MustGet(middleware.ContextPrincipal).(access.Principal)
}

// Request handles POST /exports/workshops/:id/attendance.
func (h *Handler) Request(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	e, err := h.svc.Request(c.Request.Context(), principal(c), id)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.Accepted(c, e)
}

// Get handles GET /exports/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid export id")
		return
	}
	e, err := h.svc.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, e)
}
