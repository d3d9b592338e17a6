package notifications

import (
	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/middleware"
	"github.com/eventconnect/backend/internal/models"
	appErr "github.com/eventconnect/backend/pkg/errors"
	"github.com/eventconnect/backend/pkg/response"
)

// CreateRequest is the body for POST /notifications.
type CreateRequest struct {
	Message           string     `json:"message"`
	RecipientRole     string     `json:"recipient_role"`
	Type              string     `json:"type"`
	RelatedWorkshopID *uuid.UUID `json:"related_workshop_id"`
}

// Validate checks the notification fields.
func (req *CreateRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Message, validation.Required, validation.Length(1, 2000)),
		validation.Field(&req.RecipientRole, validation.Required, validation.In(
			string(models.RoleAdmin), string(models.RoleOrganizer), string(models.RoleParticipant), models.RecipientAll)),
		validation.Field(&req.Type, validation.In(
			string(models.NotificationInfo), string(models.NotificationWarning),
			string(models.NotificationReminder), string(models.NotificationUpdate))),
	)
}

// Handler handles notification HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a notification handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /notifications.
func (h *Handler) List(c *gin.Context) {
	p := c.MustGet(middleware.ContextPrincipal).(access.Principal)
	list, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /notifications.
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
	p := c.MustGet(middleware.ContextPrincipal).(access.Principal)
	n, err := h.svc.Create(c.Request.Context(), p, CreateInput{
		Message:           req.Message,
		RecipientRole:     req.RecipientRole,
		Type:              models.NotificationType(req.Type),
		RelatedWorkshopID: req.RelatedWorkshopID,
	})
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.Created(c, n)
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), id); err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"id": id, "is_read": true})
}
