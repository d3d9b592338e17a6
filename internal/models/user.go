package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleOrganizer, RoleParticipant}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Points:    u.Points,
		CreatedAt: u.CreatedAt,
	}
}

// UserSummary is a user row in admin listings.
type UserSummary struct {
	UserPublic
	WorkshopsRegistered int `json:"workshops_registered"`
}

// Profile is the caller's own view: account plus registered workshops and attendance.
type Profile struct {
	User       UserPublic   `json:"user"`
	Workshops  []Workshop   `json:"workshops_registered"`
	Attendance []Attendance `json:"attendance"`
}

// LeaderboardEntry is one ranked participant.
type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	FullName string    `json:"full_name"`
	Points   int       `json:"points"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalParticipants   int   `json:"total_participants"`
	TotalWorkshops      int   `json:"total_workshops"`
	TotalPoints         int64 `json:"total_points"`
	ActiveNotifications int   `json:"active_notifications"`
}
