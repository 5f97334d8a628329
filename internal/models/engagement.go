package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Engagement is a row written on behalf of an acting user that may notify
// someone else.
type Engagement interface {
	// Actor is the id of the user performing the action.
	Actor() string
	// NotificationFor builds the notification addressed to recipientID.
	NotificationFor(recipientID string) *Notification
}

// Comment is a text reply to a post.
type Comment struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	AuthorID  string    `gorm:"type:varchar(36);not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c *Comment) Actor() string { return c.AuthorID }

func (c *Comment) NotificationFor(recipientID string) *Notification {
	postID, commentID := c.PostID, c.ID
	return &Notification{
		UserID:    recipientID,
		CreatorID: c.AuthorID,
		Type:      NotificationComment,
		PostID:    &postID,
		CommentID: &commentID,
	}
}

// Like marks a user's approval of a post. The composite primary key is the
// uniqueness guarantee for (user, post).
type Like struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey" json:"user_id"`
	PostID    string    `gorm:"type:varchar(36);primaryKey;index" json:"-"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"-"`
}

func (l *Like) Actor() string { return l.UserID }

func (l *Like) NotificationFor(recipientID string) *Notification {
	postID := l.PostID
	return &Notification{
		UserID:    recipientID,
		CreatorID: l.UserID,
		Type:      NotificationLike,
		PostID:    &postID,
	}
}

// Follow is a directed edge from follower to followed user.
type Follow struct {
	FollowerID  string    `gorm:"type:varchar(36);primaryKey;check:chk_follows_not_self,follower_id <> following_id" json:"follower_id"`
	FollowingID string    `gorm:"type:varchar(36);primaryKey;index" json:"following_id"`
	Follower    *User     `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Following   *User     `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (f *Follow) Actor() string { return f.FollowerID }

func (f *Follow) NotificationFor(recipientID string) *Notification {
	return &Notification{
		UserID:    recipientID,
		CreatorID: f.FollowerID,
		Type:      NotificationFollow,
	}
}
