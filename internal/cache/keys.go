package cache

import "time"

const (
	feedKey          = "view:feed"
	profileKeyPrefix = "view:profile:"
	postKeyPrefix    = "view:post:"
	identityPrefix   = "identity:"
)

const (
	FeedTTL     = 30 * time.Second
	ProfileTTL  = 2 * time.Minute
	PostTTL     = 5 * time.Minute
	IdentityTTL = 15 * time.Minute
)

// FeedKey is the cached anonymous home feed.
func FeedKey() string { return feedKey }

// ProfileKey is the cached public profile of username.
func ProfileKey(username string) string { return profileKeyPrefix + username }

// PostKey is the cached anonymous view of a single post.
func PostKey(postID string) string { return postKeyPrefix + postID }

// IdentityKey maps an external identity subject to an internal user id.
func IdentityKey(subject string) string { return identityPrefix + subject }
