package service

import (
	"context"
	"testing"

	"socially/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_GetProfilePage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	alicePost := e.post(t, alice, "by alice")
	bobPost := e.post(t, bob, "by bob")

	_, err := e.posts.ToggleLike(ctx, alice.ID, bobPost.ID)
	require.NoError(t, err)
	_, err = e.follows.ToggleFollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	page, err := e.profiles.GetProfilePage(ctx, "alice", bob.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, page.User.ID)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, alicePost.ID, page.Posts[0].ID)
	require.Len(t, page.LikedPosts, 1)
	assert.Equal(t, bobPost.ID, page.LikedPosts[0].ID)
	assert.True(t, page.IsFollowing)
	assert.False(t, page.IsOwn)

	own, err := e.profiles.GetProfilePage(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.True(t, own.IsOwn)
	assert.False(t, own.IsFollowing)

	anonymous, err := e.profiles.GetProfilePage(ctx, "alice", "")
	require.NoError(t, err)
	assert.False(t, anonymous.IsFollowing)

	_, err = e.profiles.GetProfilePage(ctx, "nobody", "")
	assertCode(t, err, models.CodeNotFound)
}
