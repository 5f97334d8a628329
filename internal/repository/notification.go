package repository

import (
	"context"

	"socially/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository reads and updates a recipient's notifications.
type NotificationRepository interface {
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error)
	// MarkRead flags the given notifications of userID as read, or all of
	// them when ids is empty. Rows owned by other users are never touched.
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	notifications := make([]*models.Notification, 0)
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Post").
		Preload("Comment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, queryError(err, "Failed to load notifications")
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	result := q.Update("read", true)
	if result.Error != nil {
		return 0, writeError(result.Error, "Failed to update notifications")
	}
	return result.RowsAffected, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, queryError(err, "Failed to count notifications")
	}
	return count, nil
}
