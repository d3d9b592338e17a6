package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceMethod is how an attendance was validated.
type AttendanceMethod string

const (
	MethodQR     AttendanceMethod = "qr"
	MethodManual AttendanceMethod = "manual"
)

// Attendance is proof that a participant was present at a workshop.
type Attendance struct {
	ID            uuid.UUID        `json:"id"`
	ParticipantID uuid.UUID        `json:"participant_id"`
	WorkshopID    uuid.UUID        `json:"workshop_id"`
	Method        AttendanceMethod `json:"method"`
	ValidatedBy   *uuid.UUID       `json:"validated_by,omitempty"`
	RecordedAt    time.Time        `json:"recorded_at"`
}

// AttendanceResult is the outcome of a successful validation.
type AttendanceResult struct {
	Attendance    Attendance `json:"attendance"`
	PointsAwarded int        `json:"points_awarded"`
	PointsBalance int        `json:"points_balance"`
}

// AttendanceRow is an attendance record joined with names for listings and exports.
type AttendanceRow struct {
	Attendance
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
	WorkshopTitle    string `json:"workshop_title"`
	WorkshopPoints   int    `json:"workshop_points"`
	ValidatorName    string `json:"validator_name,omitempty"`
}
