package repository

import (
	"context"

	"socially/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// GetByUsername returns the user with follower, following and post counts.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	// AppearsInPostIDs lists posts whose views embed the user's summary,
	// as author or as commenter.
	AppearsInPostIDs(ctx context.Context, id string) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

const userWithCounts = "users.*, " +
	"(SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id) AS followers_count, " +
	"(SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id) AS following_count, " +
	"(SELECT COUNT(*) FROM posts WHERE posts.author_id = users.id) AS posts_count"

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, lookupError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, lookupError(err, "User", externalID)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := readDB(r.db).WithContext(ctx).
		Model(&models.User{}).
		Select(userWithCounts).
		Where("users.username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, lookupError(err, "User", username)
	}
	return &user, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, queryError(err, "Failed to check username")
	}
	return count > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		return writeError(err, "Failed to create user")
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return writeError(result.Error, "Failed to update user")
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) AppearsInPostIDs(ctx context.Context, id string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Raw(
		"SELECT id FROM posts WHERE author_id = ? UNION SELECT post_id FROM comments WHERE author_id = ?",
		id, id,
	).Scan(&ids).Error
	if err != nil {
		return nil, queryError(err, "Failed to list user posts")
	}
	return ids, nil
}
