package service

import (
	"context"
	"log/slog"
	"strings"

	"socially/internal/cache"
	"socially/internal/media"
	"socially/internal/middleware"
	"socially/internal/models"
	"socially/internal/observability"
	"socially/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxPostLen    = 5000
	maxCommentLen = 2000
)

// PostService implements the post mutations and feed reads.
type PostService struct {
	posts       repository.PostRepository
	engagements repository.EngagementRepository
	comments    repository.CommentRepository
	users       repository.UserRepository
	media       media.Store
	views       cache.ViewInvalidator
	events      EventPublisher
	rdb         *redis.Client
	constraints media.Constraints
}

type CreatePostInput struct {
	AuthorID string
	Content  string
	Image    []byte
}

type CreateCommentInput struct {
	UserID  string
	PostID  string
	Content string
}

// ToggleLikeResult is the state after a like toggle.
type ToggleLikeResult struct {
	Liked bool         `json:"liked"`
	Post  *models.Post `json:"post"`
}

func NewPostService(
	posts repository.PostRepository,
	engagements repository.EngagementRepository,
	comments repository.CommentRepository,
	users repository.UserRepository,
	store media.Store,
	views cache.ViewInvalidator,
	events EventPublisher,
) *PostService {
	if views == nil {
		views = cache.NewViewInvalidator(nil)
	}
	return &PostService{
		posts:       posts,
		engagements: engagements,
		comments:    comments,
		users:       users,
		media:       store,
		views:       views,
		events:      events,
		constraints: media.PostImageConstraints,
	}
}

// WithViewCache serves anonymous feed and post reads from rdb.
func (s *PostService) WithViewCache(rdb *redis.Client) *PostService {
	s.rdb = rdb
	return s
}

// WithUploadLimit overrides the image size ceiling.
func (s *PostService) WithUploadLimit(maxBytes int64) *PostService {
	if maxBytes > 0 {
		s.constraints = s.constraints.WithMaxBytes(maxBytes)
	}
	return s
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "CreatePost",
		attribute.String("author_id", in.AuthorID),
		attribute.Bool("has_image", len(in.Image) > 0),
	)
	defer func() {
		recordEngagement("post", err)
		observability.EndSpan(span, err)
	}()

	if err := requireUser(in.AuthorID); err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, in.AuthorID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthenticatedError("Unknown user")
		}
		return nil, err
	}

	if strings.TrimSpace(in.Content) == "" && len(in.Image) == 0 {
		return nil, models.NewValidationError("Post needs content or an image")
	}
	if len(in.Content) > maxPostLen {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}

	var image *string
	if len(in.Image) > 0 {
		if s.media == nil {
			return nil, models.NewMediaUploadError(nil)
		}
		url, err := s.media.Upload(ctx, in.Image, s.constraints)
		if err != nil {
			return nil, models.NewMediaUploadError(err)
		}
		image = &url
	}

	post = &models.Post{
		AuthorID: author.ID,
		Content:  in.Content,
		Image:    image,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.views.Invalidate(ctx, cache.FeedKey(), cache.ProfileKey(author.Username))

	post.Author = *author
	post.Comments = []models.Comment{}
	post.Likes = []models.Like{}
	middleware.Logger.InfoContext(ctx, "post created", slog.String("post_id", post.ID))
	return post, nil
}

// ToggleLike flips the viewer's like on a post. Removing a like never
// notifies; adding one notifies the author unless they liked their own post.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (result *ToggleLikeResult, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "ToggleLike",
		attribute.String("user_id", userID),
		attribute.String("post_id", postID),
	)
	kind := "like"
	defer func() {
		recordEngagement(kind, err)
		observability.EndSpan(span, err)
	}()

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	authorID, err := s.posts.GetAuthorID(ctx, postID)
	if err != nil {
		return nil, err
	}

	removed, err := s.engagements.DeleteLike(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if removed {
		kind = "unlike"
	} else {
		notification, err := s.engagements.Apply(ctx, engagementPlan(&models.Like{UserID: userID, PostID: postID}, authorID))
		if err != nil {
			return nil, err
		}
		announce(ctx, s.events, notification)
	}

	s.views.Invalidate(ctx, cache.FeedKey(), cache.PostKey(postID))

	post, err := s.posts.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	return &ToggleLikeResult{Liked: !removed, Post: post}, nil
}

func (s *PostService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "CreateComment",
		attribute.String("user_id", in.UserID),
		attribute.String("post_id", in.PostID),
	)
	defer func() {
		recordEngagement("comment", err)
		observability.EndSpan(span, err)
	}()

	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	authorID, err := s.posts.GetAuthorID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	comment = &models.Comment{PostID: in.PostID, AuthorID: in.UserID, Content: content}
	notification, err := s.engagements.Apply(ctx, engagementPlan(comment, authorID))
	if err != nil {
		return nil, err
	}
	announce(ctx, s.events, notification)

	s.views.Invalidate(ctx, cache.FeedKey(), cache.PostKey(in.PostID))

	return s.comments.GetByID(ctx, comment.ID)
}

// DeletePost removes a post owned by userID. Its comments, likes and
// notifications go with it through the store's cascades.
func (s *PostService) DeletePost(ctx context.Context, userID, postID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "service", "DeletePost",
		attribute.String("user_id", userID),
		attribute.String("post_id", postID),
	)
	defer func() {
		recordEngagement("delete", err)
		observability.EndSpan(span, err)
	}()

	if err := requireUser(userID); err != nil {
		return err
	}
	authorID, err := s.posts.GetAuthorID(ctx, postID)
	if err != nil {
		return err
	}
	if authorID != userID {
		return models.NewUnauthorizedError("Only the author can delete this post")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	keys := []string{cache.FeedKey(), cache.PostKey(postID)}
	if author, err := s.users.GetByID(ctx, authorID); err == nil {
		keys = append(keys, cache.ProfileKey(author.Username))
	}
	s.views.Invalidate(ctx, keys...)

	middleware.Logger.InfoContext(ctx, "post deleted", slog.String("post_id", postID))
	return nil
}

// ListFeed returns the first page of the home feed for viewerID, which may
// be empty for an anonymous visitor.
func (s *PostService) ListFeed(ctx context.Context, viewerID string) ([]*models.Post, error) {
	return s.ListFeedPage(ctx, viewerID, Page{})
}

func (s *PostService) ListFeedPage(ctx context.Context, viewerID string, page Page) ([]*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "service", "ListFeed")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	cacheable := viewerID == "" && page.isFirstPage()
	page = page.normalize()

	var posts []*models.Post
	fetch := func() error {
		var fetchErr error
		posts, fetchErr = s.posts.List(ctx, viewerID, page.Limit, page.Offset)
		return fetchErr
	}
	if cacheable {
		err = cache.Aside(ctx, s.rdb, cache.FeedKey(), &posts, cache.FeedTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, postID, viewerID string) (*models.Post, error) {
	var post *models.Post
	fetch := func() error {
		var err error
		post, err = s.posts.GetByID(ctx, postID, viewerID)
		return err
	}
	var err error
	if viewerID == "" {
		err = cache.Aside(ctx, s.rdb, cache.PostKey(postID), &post, cache.PostTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// GetUserPosts lists the posts written by username.
func (s *PostService) GetUserPosts(ctx context.Context, username, viewerID string, page Page) ([]*models.Post, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.postsByAuthor(ctx, user.ID, viewerID, page)
}

// GetUserLikedPosts lists the posts username has liked.
func (s *PostService) GetUserLikedPosts(ctx context.Context, username, viewerID string, page Page) ([]*models.Post, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.postsLikedBy(ctx, user.ID, viewerID, page)
}

func (s *PostService) postsByAuthor(ctx context.Context, authorID, viewerID string, page Page) ([]*models.Post, error) {
	page = page.normalize()
	return s.posts.ListByAuthor(ctx, authorID, viewerID, page.Limit, page.Offset)
}

func (s *PostService) postsLikedBy(ctx context.Context, userID, viewerID string, page Page) ([]*models.Post, error) {
	page = page.normalize()
	return s.posts.ListLikedBy(ctx, userID, viewerID, page.Limit, page.Offset)
}
