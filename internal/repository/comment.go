package repository

import (
	"context"

	"socially/internal/models"

	"gorm.io/gorm"
)

// CommentRepository reads comments. Comments are written through
// EngagementRepository so the notification lands in the same transaction.
type CommentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, lookupError(err, "Comment", id)
	}
	return &comment, nil
}
