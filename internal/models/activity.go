package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType distinguishes programme entries.
type ActivityType string

const (
	ActivityEntertainment ActivityType = "entertainment"
	ActivityWorkshop      ActivityType = "workshop"
)

// Activity is an event programme entry that carries no registration or points.
type Activity struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	StartsAt    time.Time    `json:"starts_at"`
	Type        ActivityType `json:"type"`
	ImageURL    *string      `json:"image_url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
