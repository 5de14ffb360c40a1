package models

import "time"

type MemberRole string

const (
	RoleOwner     MemberRole = "OWNER"
	RoleAdmin     MemberRole = "ADMIN"
	RoleModerator MemberRole = "MODERATOR"
	RoleMember    MemberRole = "MEMBER"
)

func (r MemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

type MemberStatus string

const (
	StatusPending  MemberStatus = "PENDING"
	StatusApproved MemberStatus = "APPROVED"
	StatusRejected MemberStatus = "REJECTED"
	StatusBanned   MemberStatus = "BANNED"
)

// Membership is the per-(community, user) lifecycle record. The pair is
// unique at the database level; concurrent joins race on that index.
type Membership struct {
	ID          string       `json:"id" gorm:"primaryKey;size:191"`
	CommunityID string       `json:"community_id" gorm:"not null;size:191;uniqueIndex:uk_memberships_community_user"`
	UserID      string       `json:"user_id" gorm:"not null;size:191;uniqueIndex:uk_memberships_community_user"`
	Role        MemberRole   `json:"role" gorm:"not null;default:'MEMBER';size:20"`
	Status      MemberStatus `json:"status" gorm:"not null;default:'PENDING';size:20;index"`

	RequestedAt time.Time  `json:"requested_at"`
	JoinedAt    *time.Time `json:"joined_at"` // set the first time the membership reaches APPROVED

	// Populated only while status is BANNED.
	BanReason *string    `json:"ban_reason,omitempty" gorm:"size:500"`
	BannedBy  *string    `json:"banned_by,omitempty" gorm:"size:191"`
	BannedAt  *time.Time `json:"banned_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Community Community `json:"-" gorm:"foreignKey:CommunityID"`
	User      User      `json:"user" gorm:"foreignKey:UserID"`
}

type AssignRoleRequest struct {
	Role MemberRole `json:"role" binding:"required"`
}

type BanRequest struct {
	Reason string `json:"reason"`
}

type MembershipEdge struct {
	Node   Membership `json:"node"`
	Cursor string     `json:"cursor"`
}

type MembershipConnection struct {
	Edges    []MembershipEdge `json:"edges"`
	PageInfo PageInfo         `json:"page_info"`
}
