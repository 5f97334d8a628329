package service

import (
	"context"

	"socially/internal/models"
	"socially/internal/repository"
)

// NotificationService exposes a recipient's notifications.
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (s *NotificationService) List(ctx context.Context, userID string, page Page) ([]*models.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	page = page.normalize()
	return s.notifications.ListForUser(ctx, userID, page.Limit, page.Offset)
}

// MarkRead marks ids as read, or every unread notification when ids is empty.
// Ids that belong to other recipients are ignored.
func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	if len(ids) > MaxPageSize {
		return 0, models.NewValidationError("Too many notification ids (max 100)")
	}
	return s.notifications.MarkRead(ctx, userID, ids)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	return s.notifications.CountUnread(ctx, userID)
}
