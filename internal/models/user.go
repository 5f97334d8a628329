// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the internal account mirrored from the external identity provider.
type User struct {
	ID         string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	ExternalID string  `gorm:"size:191;not null;uniqueIndex" json:"-"`
	Email      string  `gorm:"size:255;index" json:"-"`
	Username   string  `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Name       *string `gorm:"size:120" json:"name"`
	Bio        *string `gorm:"type:text" json:"bio,omitempty"`
	Image      *string `json:"image"`
	Location   *string `gorm:"size:120" json:"location,omitempty"`
	Website    *string `gorm:"size:255" json:"website,omitempty"`
	// Profile counters are computed at query time.
	FollowersCount int       `gorm:"->;-:migration" json:"followers_count,omitempty"`
	FollowingCount int       `gorm:"->;-:migration" json:"following_count,omitempty"`
	PostsCount     int       `gorm:"->;-:migration" json:"posts_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"-"`
}

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// ExternalIdentity is the verified principal presented by the identity provider.
type ExternalIdentity struct {
	Subject  string
	Email    string
	Username string
	Name     string
	Picture  string
}
