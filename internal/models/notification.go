package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType enumerates what triggered a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
	NotificationFollow  NotificationType = "FOLLOW"
)

// Notification informs UserID (the recipient) about an action by CreatorID.
// Recipient and creator are never the same user.
type Notification struct {
	ID        string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string           `gorm:"type:varchar(36);not null;index:idx_notifications_user_created,priority:1" json:"user_id"`
	CreatorID string           `gorm:"type:varchar(36);not null;index;check:chk_notifications_not_self,creator_id <> user_id" json:"creator_id"`
	Type      NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	PostID    *string          `gorm:"type:varchar(36);index" json:"post_id"`
	CommentID *string          `gorm:"type:varchar(36);index" json:"comment_id"`
	CreatedAt time.Time        `gorm:"index:idx_notifications_user_created,priority:2" json:"created_at"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Creator *User    `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"creator,omitempty"`
	Post    *Post    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"comment,omitempty"`
}

func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
