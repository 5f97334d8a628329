package repository

import (
	"context"

	"socially/internal/models"

	"gorm.io/gorm"
)

// FollowRepository reads and removes follow edges. New edges are written
// through EngagementRepository together with their FOLLOW notification.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	// Delete removes the edge and reports whether it existed.
	Delete(ctx context.Context, followerID, followingID string) (bool, error)
	// Suggestions returns up to limit users that viewerID does not follow,
	// excluding viewerID, most-followed first.
	Suggestions(ctx context.Context, viewerID string, limit int) ([]*models.User, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, queryError(err, "Failed to load follow")
	}
	return count > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return false, writeError(result.Error, "Failed to unfollow user")
	}
	return result.RowsAffected > 0, nil
}

func (r *followRepository) Suggestions(ctx context.Context, viewerID string, limit int) ([]*models.User, error) {
	db := readDB(r.db).WithContext(ctx)
	following := db.Session(&gorm.Session{NewDB: true}).
		Model(&models.Follow{}).
		Select("following_id").
		Where("follower_id = ?", viewerID)

	users := make([]*models.User, 0, limit)
	err := db.Model(&models.User{}).
		Select(userWithCounts).
		Where("users.id <> ?", viewerID).
		Where("users.id NOT IN (?)", following).
		Order("followers_count DESC").
		Order("users.created_at ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, queryError(err, "Failed to load suggestions")
	}
	return users, nil
}
