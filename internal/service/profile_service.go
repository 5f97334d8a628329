package service

import (
	"context"

	"socially/internal/models"
	"socially/internal/observability"

	"github.com/sourcegraph/conc/pool"
)

// ProfilePage is everything a profile screen shows.
type ProfilePage struct {
	User        *models.User   `json:"user"`
	Posts       []*models.Post `json:"posts"`
	LikedPosts  []*models.Post `json:"liked_posts"`
	IsFollowing bool           `json:"is_following"`
	IsOwn       bool           `json:"is_own_profile"`
}

// ProfileService assembles profile pages from the user, post and follow
// services.
type ProfileService struct {
	users   *UserService
	posts   *PostService
	follows *FollowService
}

func NewProfileService(users *UserService, posts *PostService, follows *FollowService) *ProfileService {
	return &ProfileService{users: users, posts: posts, follows: follows}
}

// GetProfilePage loads the profile, then its posts, liked posts and follow
// state concurrently.
func (s *ProfileService) GetProfilePage(ctx context.Context, username, viewerID string) (page *ProfilePage, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "GetProfilePage")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetProfileByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page = &ProfilePage{User: user, IsOwn: viewerID != "" && viewerID == user.ID}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		posts, err := s.posts.postsByAuthor(ctx, user.ID, viewerID, Page{})
		page.Posts = posts
		return err
	})
	p.Go(func(ctx context.Context) error {
		liked, err := s.posts.postsLikedBy(ctx, user.ID, viewerID, Page{})
		page.LikedPosts = liked
		return err
	})
	p.Go(func(ctx context.Context) error {
		following, err := s.follows.IsFollowing(ctx, viewerID, user.ID)
		page.IsFollowing = following
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return page, nil
}
