package repository

import (
	"context"
	"errors"

	"socially/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementPlan describes one atomic engagement write. The two variants are
// EngagementOnly and EngagementWithNotification.
type EngagementPlan interface {
	engagement() models.Engagement
}

// EngagementOnly writes the engagement row alone. It is used when the actor
// is also the recipient.
type EngagementOnly struct {
	Engagement models.Engagement
}

func (p EngagementOnly) engagement() models.Engagement { return p.Engagement }

// EngagementWithNotification writes the engagement row and a notification
// for RecipientID in one transaction; either both commit or neither does.
type EngagementWithNotification struct {
	Engagement  models.Engagement
	RecipientID string
}

func (p EngagementWithNotification) engagement() models.Engagement { return p.Engagement }

// EngagementRepository persists likes, comments and follows together with
// their notifications.
type EngagementRepository interface {
	// Apply executes plan and returns the committed notification, or nil
	// when the plan carries none.
	Apply(ctx context.Context, plan EngagementPlan) (*models.Notification, error)
	// DeleteLike removes the like and reports whether one existed.
	DeleteLike(ctx context.Context, userID, postID string) (bool, error)
}

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository creates a new engagement repository.
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

var errUnknownPlan = errors.New("unknown engagement plan")

func (r *engagementRepository) Apply(ctx context.Context, plan EngagementPlan) (*models.Notification, error) {
	if plan == nil || plan.engagement() == nil {
		return nil, models.NewOperationFailedError("Failed to save engagement", errUnknownPlan)
	}

	var notification *models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(plan.engagement()).Error; err != nil {
			return err
		}

		switch p := plan.(type) {
		case EngagementOnly:
			return nil
		case EngagementWithNotification:
			n := p.Engagement.NotificationFor(p.RecipientID)
			if err := tx.Omit(clause.Associations).Create(n).Error; err != nil {
				return err
			}
			notification = n
			return nil
		default:
			return errUnknownPlan
		}
	})
	if err != nil {
		return nil, writeError(err, "Failed to save engagement")
	}
	return notification, nil
}

func (r *engagementRepository) DeleteLike(ctx context.Context, userID, postID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{})
	if result.Error != nil {
		return false, writeError(result.Error, "Failed to remove like")
	}
	return result.RowsAffected > 0, nil
}
