package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a text post with an optional image URL. Deleting a post cascades to
// its comments, likes and notifications at the store level.
type Post struct {
	ID       string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AuthorID string    `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Content  string    `gorm:"type:text;not null" json:"content"`
	Image    *string   `json:"image"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments"`
	Likes    []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// Liked reports whether the requesting user liked this post (computed)
	Liked     bool      `gorm:"->;-:migration" json:"liked"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// LikedBy returns the ids of the users who liked the post, in load order.
func (p *Post) LikedBy() []string {
	ids := make([]string, 0, len(p.Likes))
	for _, l := range p.Likes {
		ids = append(ids, l.UserID)
	}
	return ids
}
