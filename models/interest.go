package models

import "time"

// Interest is a tag shared by users (onboarding interests) and communities.
type Interest struct {
	ID        string    `json:"id" gorm:"primaryKey;size:191"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null;size:100"`
	Category  string    `json:"category" gorm:"size:100;index"`
	CreatedAt time.Time `json:"created_at"`
}
