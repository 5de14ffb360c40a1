package models

import (
	"time"
)

type Post struct {
	ID          string      `json:"id" gorm:"primaryKey;size:191"`
	CommunityID string      `json:"community_id" gorm:"not null;size:191;index"`
	AuthorID    string      `json:"author_id" gorm:"not null;size:191"`
	Title       string      `json:"title" gorm:"not null;size:255"`
	Body        string      `json:"body" gorm:"type:text"`
	ImageUrls   StringSlice `json:"image_urls" gorm:"type:json"`

	ReactionsCount int `json:"reactions_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Community Community `json:"-" gorm:"foreignKey:CommunityID"`
	Author    User      `json:"author" gorm:"foreignKey:AuthorID"`
}

type PostReaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"not null;size:191;uniqueIndex:uk_post_reactions_post_user"`
	UserID    string    `json:"user_id" gorm:"not null;size:191;uniqueIndex:uk_post_reactions_post_user"`
	CreatedAt time.Time `json:"created_at"`

	Post Post `json:"-" gorm:"foreignKey:PostID"`
	User User `json:"-" gorm:"foreignKey:UserID"`
}
