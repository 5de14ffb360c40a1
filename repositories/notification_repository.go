package repositories

import (
	"context"

	"gorm.io/gorm"

	"communehub-api/models"
)

// NotificationStore covers what the notification dispatcher needs: recipient
// lookup, the community name for the message, and the in-app rows themselves.
type NotificationStore interface {
	UsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	CommunityName(ctx context.Context, communityID string) (string, error)
	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *NotificationRepository) CommunityName(ctx context.Context, communityID string) (string, error) {
	var name string
	err := r.db.WithContext(ctx).
		Model(&models.Community{}).
		Where("id = ?", communityID).
		Pluck("name", &name).Error
	return name, err
}

func (r *NotificationRepository) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Preload("ActorUser").
		Preload("Community").
		Where("target_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND target_user_id = ?", notificationID, userID).
		Update("is_read", true).Error
}
