package models

import (
	"time"
)

type Community struct {
	ID          string  `json:"id" gorm:"primaryKey;size:191"`
	Slug        string  `json:"slug" gorm:"uniqueIndex;not null;size:255"`
	Name        string  `json:"name" gorm:"not null;size:255"`
	Description string  `json:"description" gorm:"type:text"`
	OwnerID     string  `json:"owner_id" gorm:"not null;size:191"`
	IsPrivate   bool    `json:"is_private" gorm:"default:false"`
	IsPaid      bool    `json:"is_paid" gorm:"default:false"`
	Price       *float64 `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty" gorm:"size:10"`

	// Optional home base for local communities, used by distance-aware discovery
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	MemberCount int `json:"member_count" gorm:"default:0"`
	PostCount   int `json:"post_count" gorm:"default:0"`
	EventCount  int `json:"event_count" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Owner     User            `json:"owner" gorm:"foreignKey:OwnerID"`
	Interests []Interest      `json:"interests" gorm:"many2many:community_interests"`
	Stats     *CommunityStats `json:"stats,omitempty" gorm:"foreignKey:CommunityID"`
}

// CommunityStats is refreshed by the recurring stats job and treated as
// read-only everywhere else.
type CommunityStats struct {
	CommunityID     string     `json:"community_id" gorm:"primaryKey;size:191"`
	WeeklyGrowth    int        `json:"weekly_growth" gorm:"default:0"`
	RecentPosts     int        `json:"recent_posts" gorm:"default:0"`
	RecentReactions int        `json:"recent_reactions" gorm:"default:0"`
	LastPostAt      *time.Time `json:"last_post_at"`
	RefreshedAt     time.Time  `json:"refreshed_at"`
}

type CreateCommunityRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	IsPrivate   bool     `json:"is_private"`
	IsPaid      bool     `json:"is_paid"`
	Price       *float64 `json:"price"`
	Currency    *string  `json:"currency"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	InterestIDs []string `json:"interest_ids"`
}

type UpdateCommunityRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	IsPrivate   *bool    `json:"is_private"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	InterestIDs []string `json:"interest_ids"`
}

// CommunityEdge pairs a community with the opaque cursor anchoring it in a page.
type CommunityEdge struct {
	Node   Community `json:"node"`
	Cursor string    `json:"cursor"`
}

type PageInfo struct {
	HasNextPage     bool   `json:"has_next_page"`
	HasPreviousPage bool   `json:"has_previous_page"`
	TotalCount      int    `json:"total_count"`
	Cursor          string `json:"cursor,omitempty"`
}

// CommunityConnection is the paginated envelope returned by the list endpoints.
type CommunityConnection struct {
	Edges    []CommunityEdge `json:"edges"`
	PageInfo PageInfo        `json:"page_info"`
}
