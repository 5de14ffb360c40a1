// File: /services/notification_service.go
package services

import (
	"context"
	"log"

	"github.com/google/uuid"

	"communehub-api/models"
	"communehub-api/repositories"
)

// EmailSender is the SMTP-facing slice of EmailService the dispatcher uses.
type EmailSender interface {
	SendMembershipEmail(toEmail, toName, communityName string, event models.MembershipEvent) error
}

// EventSink is the kafka-facing slice of EventPublisher the dispatcher uses.
type EventSink interface {
	Publish(ctx context.Context, event models.MembershipEvent) error
}

// NotificationService fans a membership event out to the in-app notification
// table, email, and the kafka topic. Every leg is best-effort: a failed leg is
// logged and never blocks the others or the caller.
type NotificationService struct {
	store  repositories.NotificationStore
	email  EmailSender
	events EventSink
}

func NewNotificationService(store repositories.NotificationStore, email EmailSender, events EventSink) *NotificationService {
	return &NotificationService{
		store:  store,
		email:  email,
		events: events,
	}
}

// Dispatch implements the Notifier hook invoked on state-machine transitions.
func (s *NotificationService) Dispatch(ctx context.Context, event models.MembershipEvent) error {
	communityName, err := s.store.CommunityName(ctx, event.CommunityID)
	if err != nil {
		log.Printf("notification: community lookup failed for %s: %v", event.CommunityID, err)
		communityName = "your community"
	}

	notifications := make([]models.Notification, 0, len(event.RecipientIDs))
	communityID := event.CommunityID
	for _, recipientID := range event.RecipientIDs {
		if recipientID == event.ActorUserID {
			continue
		}
		notifications = append(notifications, models.Notification{
			ID:           uuid.New().String(),
			Type:         event.Type,
			ActorUserID:  event.ActorUserID,
			TargetUserID: recipientID,
			CommunityID:  &communityID,
		})
	}
	if err := s.store.CreateNotifications(ctx, notifications); err != nil {
		log.Printf("notification: persisting %s rows failed: %v", event.Type, err)
	}

	if s.email != nil {
		recipients, err := s.store.UsersByIDs(ctx, event.RecipientIDs)
		if err != nil {
			log.Printf("notification: recipient lookup failed: %v", err)
		}
		for _, user := range recipients {
			if user.ID == event.ActorUserID || user.Email == "" {
				continue
			}
			if err := s.email.SendMembershipEmail(user.Email, user.Name, communityName, event); err != nil {
				log.Printf("notification: email to %s failed: %v", user.ID, err)
			}
		}
	}

	if s.events != nil {
		if err := s.events.Publish(ctx, event); err != nil {
			log.Printf("notification: event publish failed for %s: %v", event.Type, err)
		}
	}
	return nil
}

// ListForUser returns the user's most recent in-app notifications.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	notifications, err := s.store.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, wrapInternal(err)
	}
	return notifications, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return wrapInternal(s.store.MarkRead(ctx, userID, notificationID))
}
