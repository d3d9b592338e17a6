package models

import (
	"time"

	"github.com/google/uuid"
)

// RecipientAll targets every role.
const RecipientAll = "all"

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationInfo     NotificationType = "info"
	NotificationWarning  NotificationType = "warning"
	NotificationReminder NotificationType = "reminder"
	NotificationUpdate   NotificationType = "update"
)

// Notification is a broadcast message filtered by recipient role.
type Notification struct {
	ID                uuid.UUID        `json:"id"`
	Message           string           `json:"message"`
	RecipientRole     string           `json:"recipient_role"`
	Type              NotificationType `json:"type"`
	RelatedWorkshopID *uuid.UUID       `json:"related_workshop_id,omitempty"`
	CreatedBy         *uuid.UUID       `json:"created_by,omitempty"`
	CreatorName       string           `json:"creator_name,omitempty"`
	WorkshopTitle     string           `json:"workshop_title,omitempty"`
	IsRead            bool             `json:"is_read"`
	CreatedAt         time.Time        `json:"created_at"`
}
