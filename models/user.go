package models

import (
	"strings"
	"time"
)

type User struct {
	ID       string  `json:"id" gorm:"primaryKey;size:191"`
	Name     string  `json:"name" gorm:"not null;size:255"`
	Handle   string  `json:"handle" gorm:"uniqueIndex;not null;size:50"`
	Email    string  `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password string  `json:"-" gorm:"not null;size:255"`
	Avatar   *string `json:"avatar" gorm:"size:500"`

	// Optional coordinates, used by the distance-aware discovery variant
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Onboarding interests drive relevance scoring in discovery
	Interests []Interest `json:"interests" gorm:"many2many:user_interests"`
}

// HasLocation reports whether the user supplied coordinates during onboarding.
func (u *User) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// InterestIDSet returns the user's onboarding interest ids as a lookup set.
func (u *User) InterestIDSet() map[string]bool {
	set := make(map[string]bool, len(u.Interests))
	for _, it := range u.Interests {
		set[it.ID] = true
	}
	return set
}

// GenerateHandleFromName creates a handle candidate from the user's name
func GenerateHandleFromName(name string) string {
	handle := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	handle = strings.ReplaceAll(handle, ".", "")
	handle = strings.ReplaceAll(handle, "-", "_")
	return handle
}
