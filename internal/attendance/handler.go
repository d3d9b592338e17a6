package attendance

import (
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/middleware"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/response"
)

// ScanRequest is the body for POST /attendance/scan.
type ScanRequest struct {
	WorkshopID string `json:"workshop_id"`
	QRToken    string `json:"qr_token"`
}

// Validate checks the scan fields.
func (req *ScanRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.WorkshopID, validation.Required, is.UUID),
		validation.Field(&req.QRToken, validation.Required, validation.Length(1, 128)),
	)
}

// ManualRequest is the body for POST /attendance.
type ManualRequest struct {
	WorkshopID    string `json:"workshop_id"`
	ParticipantID string `json:"participant_id"`
	Method        string `json:"method"`
}

// Validate checks the manual validation fields.
func (req *ManualRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.WorkshopID, validation.Required, is.UUID),
		validation.Field(&req.ParticipantID, validation.Required, is.UUID),
		validation.Field(&req.Method, validation.In(string(models.MethodManual))),
	)
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func principal(c *gin.Context) access.Principal {
	return c.MustGet(middleware.ContextPrincipal).(access.Principal)
}

// Scan handles POST /attendance/scan.
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, appErr.FromValidation(err))
		return
	}
	res, err := h.svc.ValidateScan(c.Request.Context(), principal(c), uuid.MustParse(req.WorkshopID), req.QRToken)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.Created(c, res)
}

// Manual handles POST /attendance.
func (h *Handler) Manual(c *gin.Context) {
	var req ManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, appErr.FromValidation(err))
		return
	}
	res, err := h.svc.ValidateManual(c.Request.Context(), principal(c), uuid.MustParse(req.ParticipantID), uuid.MustParse(req.WorkshopID))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.Created(c, res)
}

// ListMine handles GET /attendance/me.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), principal(c))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// CheckMine handles GET /attendance/me/:workshopId.
func (h *Handler) CheckMine(c *gin.Context) {
	id, err := uuid.Parse(c.Param("workshopId"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	check, err := h.svc.CheckMine(c.Request.Context(), principal(c), id)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, check)
}

// ListByWorkshop handles GET /attendance/workshop/:id.
func (h *Handler) ListByWorkshop(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid workshop id")
		return
	}
	list, err := h.svc.ListByWorkshop(c.Request.Context(), principal(c), id)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}
