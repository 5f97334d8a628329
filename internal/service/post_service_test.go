package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"socially/internal/cache"
	"socially/internal/models"
	"socially/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreatePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")

	post, err := e.posts.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Content: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Nil(t, post.Image)
	assert.Equal(t, "alice", post.Author.Username)
	assert.Equal(t, 0, e.media.calls)
	assert.Equal(t, int64(1), e.count(t, &models.Post{}, ""))
	assert.Subset(t, e.views.Keys(), []string{cache.FeedKey(), cache.ProfileKey("alice")})
}

func TestPostService_CreatePostWithImage(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, "alice")

	post, err := e.posts.CreatePost(context.Background(), CreatePostInput{AuthorID: alice.ID, Image: []byte("png")})
	require.NoError(t, err)
	require.NotNil(t, post.Image)
	assert.Equal(t, e.media.url, *post.Image)
	assert.Equal(t, 1, e.media.calls)
}

func TestPostService_CreatePostUploadFailureWritesNothing(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, "alice")
	e.media.err = errors.New("bucket unavailable")

	_, err := e.posts.CreatePost(context.Background(), CreatePostInput{
		AuthorID: alice.ID,
		Content:  "with picture",
		Image:    []byte("png"),
	})
	assertCode(t, err, models.CodeMediaUploadFailed)
	assert.Zero(t, e.count(t, &models.Post{}, ""))
	assert.Empty(t, e.views.Keys())
}

func TestPostService_CreatePostValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")

	_, err := e.posts.CreatePost(ctx, CreatePostInput{AuthorID: alice.ID, Content: "   "})
	assertCode(t, err, models.CodeValidation)

	_, err = e.posts.CreatePost(ctx, CreatePostInput{Content: "anonymous"})
	assertCode(t, err, models.CodeUnauthenticated)

	_, err = e.posts.CreatePost(ctx, CreatePostInput{AuthorID: "ghost", Content: "who am i"})
	assertCode(t, err, models.CodeUnauthenticated)

	assert.Zero(t, e.count(t, &models.Post{}, ""))
}

func TestPostService_ToggleLike(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post := e.post(t, alice, "like me")

	res, err := e.posts.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.Post.LikesCount)
	assert.True(t, res.Post.Liked)
	assert.Equal(t, []string{bob.ID}, res.Post.LikedBy())

	assert.Equal(t, int64(1), e.count(t, &models.Notification{}, "user_id = ? AND creator_id = ? AND type = ?", alice.ID, bob.ID, models.NotificationLike))
	sent := e.events.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, alice.ID, sent[0].UserID)

	res, err = e.posts.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.Post.LikesCount)
	assert.Zero(t, e.count(t, &models.Like{}, ""))
	// Unliking leaves the earlier notification in place and sends nothing new.
	assert.Equal(t, int64(1), e.count(t, &models.Notification{}, ""))
	assert.Len(t, e.events.Sent(), 1)

	res, err = e.posts.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, int64(2), e.count(t, &models.Notification{}, ""))
	assert.Contains(t, e.views.Keys(), cache.PostKey(post.ID))
}

func TestPostService_ToggleLikeOwnPostDoesNotNotify(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, "alice")
	post := e.post(t, alice, "narcissus")

	res, err := e.posts.ToggleLike(context.Background(), alice.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, int64(1), e.count(t, &models.Like{}, ""))
	assert.Zero(t, e.count(t, &models.Notification{}, ""))
	assert.Empty(t, e.events.Sent())
}

func TestPostService_ToggleLikeMissingPost(t *testing.T) {
	e := newEnv(t)
	bob := e.user(t, "bob")

	_, err := e.posts.ToggleLike(context.Background(), bob.ID, "missing")
	assertCode(t, err, models.CodeNotFound)

	_, err = e.posts.ToggleLike(context.Background(), "", "missing")
	assertCode(t, err, models.CodeUnauthenticated)
}

func TestPostService_PublishFailureDoesNotFailLike(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post := e.post(t, alice, "hi")
	e.events.err = errors.New("redis down")

	res, err := e.posts.ToggleLike(context.Background(), bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, int64(1), e.count(t, &models.Notification{}, ""))
}

type engagementRepoStub struct {
	repository.EngagementRepository
	applyErr error
}

func (s *engagementRepoStub) DeleteLike(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *engagementRepoStub) Apply(context.Context, repository.EngagementPlan) (*models.Notification, error) {
	return nil, s.applyErr
}

func TestPostService_ToggleLikeConcurrentDuplicate(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post := e.post(t, alice, "race")

	svc := NewPostService(
		repository.NewPostRepository(e.db),
		&engagementRepoStub{applyErr: models.NewOperationFailedError("Failed to save engagement", repository.ErrDuplicateKey)},
		repository.NewCommentRepository(e.db),
		repository.NewUserRepository(e.db),
		e.media, e.views, e.events,
	)

	_, err := svc.ToggleLike(context.Background(), bob.ID, post.ID)
	assertCode(t, err, models.CodeOperationFailed)
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
	assert.Empty(t, e.events.Sent())
}

func TestPostService_CreateComment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post := e.post(t, alice, "discuss")

	comment, err := e.posts.CreateComment(ctx, CreateCommentInput{UserID: bob.ID, PostID: post.ID, Content: "  nice  "})
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Content)
	assert.Equal(t, "bob", comment.Author.Username)

	sent := e.events.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, models.NotificationComment, sent[0].Type)
	require.NotNil(t, sent[0].CommentID)
	assert.Equal(t, comment.ID, *sent[0].CommentID)

	_, err = e.posts.CreateComment(ctx, CreateCommentInput{UserID: alice.ID, PostID: post.ID, Content: "thanks"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.count(t, &models.Comment{}, ""))
	assert.Equal(t, int64(1), e.count(t, &models.Notification{}, ""))
}

func TestPostService_CreateCommentRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, "alice")
	post := e.post(t, alice, "discuss")

	_, err := e.posts.CreateComment(ctx, CreateCommentInput{UserID: alice.ID, PostID: post.ID, Content: " \n\t "})
	assertCode(t, err, models.CodeValidation)

	_, err = e.posts.CreateComment(ctx, CreateCommentInput{UserID: alice.ID, PostID: "missing", Content: "hello"})
	assertCode(t, err, models.CodeNotFound)

	assert.Zero(t, e.count(t, &models.Comment{}, ""))
}

func TestPostService_DeletePost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post := e.post(t, alice, "short lived")

	_, err := e.posts.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	_, err = e.posts.CreateComment(ctx, CreateCommentInput{UserID: bob.ID, PostID: post.ID, Content: "first"})
	require.NoError(t, err)

	err = e.posts.DeletePost(ctx, bob.ID, post.ID)
	assertCode(t, err, models.CodeUnauthorized)
	assert.Equal(t, int64(1), e.count(t, &models.Post{}, ""))

	require.NoError(t, e.posts.DeletePost(ctx, alice.ID, post.ID))
	assert.Zero(t, e.count(t, &models.Post{}, ""))
	assert.Zero(t, e.count(t, &models.Comment{}, ""))
	assert.Zero(t, e.count(t, &models.Like{}, ""))
	assert.Zero(t, e.count(t, &models.Notification{}, ""))

	err = e.posts.DeletePost(ctx, alice.ID, post.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestPostService_ListFeed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	older := e.post(t, alice, "older")
	newer := e.post(t, bob, "newer")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, e.db.Model(&models.Post{}).Where("id = ?", older.ID).Update("created_at", base).Error)
	require.NoError(t, e.db.Model(&models.Post{}).Where("id = ?", newer.ID).Update("created_at", base.Add(time.Hour)).Error)

	_, err := e.posts.ToggleLike(ctx, bob.ID, older.ID)
	require.NoError(t, err)

	feed, err := e.posts.ListFeed(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, newer.ID, feed[0].ID)
	assert.Equal(t, older.ID, feed[1].ID)
	assert.True(t, feed[1].Liked)
	assert.False(t, feed[0].Liked)
	assert.Equal(t, "alice", feed[1].Author.Username)

	anonymous, err := e.posts.ListFeed(ctx, "")
	require.NoError(t, err)
	require.Len(t, anonymous, 2)
	assert.False(t, anonymous[1].Liked)
	assert.Equal(t, 1, anonymous[1].LikesCount)
}

func TestPostService_AnonymousFeedIsCached(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	e.posts.WithViewCache(rdb)
	alice := e.user(t, "alice")
	e.post(t, alice, "cached")

	feed, err := e.posts.ListFeed(ctx, "")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.True(t, mr.Exists(cache.FeedKey()))

	// A row written behind the service's back is not visible until the view expires.
	require.NoError(t, repository.NewPostRepository(e.db).Create(ctx, &models.Post{AuthorID: alice.ID, Content: "sneaky"}))
	feed, err = e.posts.ListFeed(ctx, "")
	require.NoError(t, err)
	assert.Len(t, feed, 1)

	viewerFeed, err := e.posts.ListFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, viewerFeed, 2)
}

func TestPostService_UserPostLists(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, bob := e.user(t, "alice"), e.user(t, "bob")
	post := e.post(t, alice, "mine")
	e.post(t, bob, "theirs")
	_, err := e.posts.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	posts, err := e.posts.GetUserPosts(ctx, "alice", "", Page{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	liked, err := e.posts.GetUserLikedPosts(ctx, "bob", bob.ID, Page{})
	require.NoError(t, err)
	require.Len(t, liked, 1)
	assert.True(t, liked[0].Liked)

	_, err = e.posts.GetUserPosts(ctx, "nobody", "", Page{})
	assertCode(t, err, models.CodeNotFound)

	got, err := e.posts.GetPost(ctx, post.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Content)
}

func TestEngagementPlan(t *testing.T) {
	t.Parallel()

	own := engagementPlan(&models.Like{UserID: "u1", PostID: "p1"}, "u1")
	assert.IsType(t, repository.EngagementOnly{}, own)

	other := engagementPlan(&models.Like{UserID: "u2", PostID: "p1"}, "u1")
	require.IsType(t, repository.EngagementWithNotification{}, other)
	assert.Equal(t, "u1", other.(repository.EngagementWithNotification).RecipientID)
}

func TestPage_Normalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Page{Limit: DefaultPageSize}, Page{}.normalize())
	assert.Equal(t, Page{Limit: MaxPageSize, Offset: 0}, Page{Limit: 1000, Offset: -3}.normalize())
	assert.True(t, Page{}.isFirstPage())
	assert.False(t, Page{Offset: 50}.isFirstPage())
}
