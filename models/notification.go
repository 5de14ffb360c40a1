package models

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationTypeJoinRequest     NotificationType = "join_request"
	NotificationTypeRequestApproved NotificationType = "request_approved"
	NotificationTypeRequestRejected NotificationType = "request_rejected"
	NotificationTypeMemberBanned    NotificationType = "member_banned"
	NotificationTypeMemberUnbanned  NotificationType = "member_unbanned"
	NotificationTypeMemberLeft      NotificationType = "member_left"
	NotificationTypeRoleChanged     NotificationType = "role_changed"
)

type Notification struct {
	ID           string           `json:"id" gorm:"primaryKey;size:191"`
	Type         NotificationType `json:"type" gorm:"not null;size:50"`
	ActorUserID  string           `json:"actor_user_id" gorm:"not null;size:191"`  // Who performed the action
	TargetUserID string           `json:"target_user_id" gorm:"not null;size:191"` // Who receives the notification
	CommunityID  *string          `json:"community_id" gorm:"size:191"`
	IsRead       bool             `json:"is_read" gorm:"default:false"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	ActorUser  User       `json:"actor_user" gorm:"foreignKey:ActorUserID"`
	TargetUser User       `json:"target_user" gorm:"foreignKey:TargetUserID"`
	Community  *Community `json:"community,omitempty" gorm:"foreignKey:CommunityID"`
}

// NotificationResponse represents the API response for notifications
type NotificationResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	ActorUser NotificationUser       `json:"actor_user"`
	Community *NotificationCommunity `json:"community,omitempty"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
	Message   string                 `json:"message"`
	TimeAgo   string                 `json:"time_ago"`
}

type NotificationUser struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Handle string  `json:"handle"`
	Avatar *string `json:"avatar"`
}

type NotificationCommunity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// MembershipEvent is the payload handed to the notification dispatcher on a
// state-machine transition. Delivery is best-effort; the transition that
// produced it never waits on or fails with it.
type MembershipEvent struct {
	Type        NotificationType `json:"type"`
	CommunityID string           `json:"community_id"`
	ActorUserID string           `json:"actor_user_id"`
	// Recipients of the in-app/email notification. For admin-facing events
	// (join_request, member_left) this is the community's admin set.
	RecipientIDs []string `json:"recipient_ids"`
	Reason       string   `json:"reason,omitempty"`
	Role         string   `json:"role,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// GetNotificationMessage returns a human-readable message for the notification
func (n *Notification) GetNotificationMessage() string {
	switch n.Type {
	case NotificationTypeJoinRequest:
		return "requested to join your community"
	case NotificationTypeRequestApproved:
		return "approved your membership request"
	case NotificationTypeRequestRejected:
		return "rejected your membership request"
	case NotificationTypeMemberBanned:
		return "banned you from the community"
	case NotificationTypeMemberUnbanned:
		return "lifted your ban"
	case NotificationTypeMemberLeft:
		return "left your community"
	case NotificationTypeRoleChanged:
		return "changed your role"
	default:
		return "updated your membership"
	}
}

// GetTimeAgo returns a human-readable time difference
func (n *Notification) GetTimeAgo() string {
	now := time.Now()
	diff := now.Sub(n.CreatedAt)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		weeks := int(diff.Hours() / (24 * 7))
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	}
}

// ToResponse converts Notification to NotificationResponse
func (n *Notification) ToResponse() NotificationResponse {
	response := NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		Message:   n.GetNotificationMessage(),
		TimeAgo:   n.GetTimeAgo(),
		ActorUser: NotificationUser{
			ID:     n.ActorUser.ID,
			Name:   n.ActorUser.Name,
			Handle: n.ActorUser.Handle,
			Avatar: n.ActorUser.Avatar,
		},
	}

	if n.Community != nil {
		response.Community = &NotificationCommunity{
			ID:   n.Community.ID,
			Name: n.Community.Name,
			Slug: n.Community.Slug,
		}
	}

	return response
}
