package models

import (
	"time"

	"github.com/google/uuid"
)

// ExportStatus is the lifecycle state of an attendance export.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// AttendanceExport is a CSV export of a workshop's attendance list stored in S3.
type AttendanceExport struct {
	ID          uuid.UUID    `json:"id"`
	WorkshopID  uuid.UUID    `json:"workshop_id"`
	RequestedBy *uuid.UUID   `json:"requested_by,omitempty"`
	Status      ExportStatus `json:"status"`
	S3Key       *string      `json:"-"`
	RowCount    int          `json:"row_count"`
	Error       *string      `json:"error,omitempty"`
	DownloadURL string       `json:"download_url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
