package repository

import (
	"context"

	"socially/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id, viewerID string) (*models.Post, error)
	GetAuthorID(ctx context.Context, id string) (string, error)
	List(ctx context.Context, viewerID string, limit, offset int) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID, viewerID string, limit, offset int) ([]*models.Post, error)
	ListLikedBy(ctx context.Context, userID, viewerID string, limit, offset int) ([]*models.Post, error)
	Delete(ctx context.Context, id string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return writeError(err, "Failed to create post")
	}
	return nil
}

// GetByID reads from the primary so a post is visible right after the write
// that created or changed it.
func (r *postRepository) GetByID(ctx context.Context, id, viewerID string) (*models.Post, error) {
	var post models.Post
	err := withPostRelations(applyPostDetails(r.db.WithContext(ctx), viewerID)).
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetAuthorID(ctx context.Context, id string) (string, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Select("id", "author_id").
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return "", lookupError(err, "Post", id)
	}
	return post.AuthorID, nil
}

func (r *postRepository) List(ctx context.Context, viewerID string, limit, offset int) ([]*models.Post, error) {
	return r.find(ctx, viewerID, limit, offset, nil)
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID, viewerID string, limit, offset int) ([]*models.Post, error) {
	return r.find(ctx, viewerID, limit, offset, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id = ?", authorID)
	})
}

func (r *postRepository) ListLikedBy(ctx context.Context, userID, viewerID string, limit, offset int) ([]*models.Post, error) {
	return r.find(ctx, viewerID, limit, offset, func(db *gorm.DB) *gorm.DB {
		liked := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Like{}).
			Select("post_id").
			Where("user_id = ?", userID)
		return db.Where("posts.id IN (?)", liked)
	})
}

func (r *postRepository) find(ctx context.Context, viewerID string, limit, offset int, scope func(*gorm.DB) *gorm.DB) ([]*models.Post, error) {
	q := applyPostDetails(readDB(r.db).WithContext(ctx), viewerID)
	if scope != nil {
		q = scope(q)
	}

	posts := make([]*models.Post, 0)
	err := withPostRelations(q).
		Order("posts.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, queryError(err, "Failed to load posts")
	}
	return posts, nil
}

// Delete removes the post row. Comments, likes and notifications that
// reference it are removed by ON DELETE CASCADE.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if result.Error != nil {
		return writeError(result.Error, "Failed to delete post")
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// applyPostDetails adds subqueries to fetch counts and liked status in a single query.
func applyPostDetails(db *gorm.DB, viewerID string) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

	if viewerID != "" {
		return db.Model(&models.Post{}).
			Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked", viewerID)
	}
	return db.Model(&models.Post{}).Select(selectQuery + ", false AS liked")
}

// withPostRelations loads the author, comments oldest first with their
// authors, and the liking users.
func withPostRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at ASC")
		}).
		Preload("Comments.Author").
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Order("likes.created_at ASC")
		})
}
