package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the participant limit when none is given.
const DefaultCapacity = 50

// DefaultPoints is the point value when none is given.
const DefaultPoints = 10

// Workshop is a scheduled event with a capacity and a point reward.
type Workshop struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Location         string     `json:"location"`
	StartsAt         time.Time  `json:"starts_at"`
	Points           int        `json:"points"`
	MaxParticipants  int        `json:"max_participants"`
	ParticipantCount int        `json:"participant_count"`
	OrganizerID      *uuid.UUID `json:"organizer_id,omitempty"`
	QRToken          string     `json:"qr_token,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Full reports whether the participant set has reached capacity.
func (w *Workshop) Full() bool {
	return w.ParticipantCount >= w.MaxParticipants
}

// Started reports whether the workshop's scheduled time is at or before now.
func (w *Workshop) Started(now time.Time) bool {
	return !now.Before(w.StartsAt)
}

// OrganizedBy reports whether userID is the workshop's organizer.
func (w *Workshop) OrganizedBy(userID uuid.UUID) bool {
	return w.OrganizerID != nil && *w.OrganizerID == userID
}

// Participant is a registered user as listed on a workshop.
type Participant struct {
	UserID       uuid.UUID `json:"user_id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Points       int       `json:"points"`
	RegisteredAt time.Time `json:"registered_at"`
}

// WorkshopDetail is a workshop with its participant list.
type WorkshopDetail struct {
	Workshop
	Participants []Participant `json:"participants"`
}
