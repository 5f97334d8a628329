package service

import (
	"context"

	"socially/internal/cache"
	"socially/internal/models"
	"socially/internal/observability"
	"socially/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const suggestionLimit = 3

type FollowService struct {
	users       repository.UserRepository
	follows     repository.FollowRepository
	engagements repository.EngagementRepository
	views       cache.ViewInvalidator
	events      EventPublisher
}

func NewFollowService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	engagements repository.EngagementRepository,
	views cache.ViewInvalidator,
	events EventPublisher,
) *FollowService {
	if views == nil {
		views = cache.NewViewInvalidator(nil)
	}
	return &FollowService{
		users:       users,
		follows:     follows,
		engagements: engagements,
		views:       views,
		events:      events,
	}
}

// ToggleFollow follows targetID, or unfollows when the edge already exists.
// It reports whether followerID follows targetID afterwards.
func (s *FollowService) ToggleFollow(ctx context.Context, followerID, targetID string) (following bool, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "ToggleFollow",
		attribute.String("follower_id", followerID),
		attribute.String("target_id", targetID),
	)
	kind := "follow"
	defer func() {
		recordEngagement(kind, err)
		observability.EndSpan(span, err)
	}()

	if err := requireUser(followerID); err != nil {
		return false, err
	}
	if followerID == targetID {
		return false, models.NewValidationError("You cannot follow yourself")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return false, err
	}

	removed, err := s.follows.Delete(ctx, followerID, targetID)
	if err != nil {
		return false, err
	}
	if removed {
		kind = "unfollow"
	} else {
		edge := &models.Follow{FollowerID: followerID, FollowingID: targetID}
		notification, err := s.engagements.Apply(ctx, engagementPlan(edge, targetID))
		if err != nil {
			return false, err
		}
		announce(ctx, s.events, notification)
	}

	keys := []string{cache.ProfileKey(target.Username)}
	if follower, err := s.users.GetByID(ctx, followerID); err == nil {
		keys = append(keys, cache.ProfileKey(follower.Username))
	}
	s.views.Invalidate(ctx, keys...)

	return !removed, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == "" || followerID == targetID {
		return false, nil
	}
	return s.follows.Exists(ctx, followerID, targetID)
}

// Suggestions returns a few users the viewer might want to follow.
func (s *FollowService) Suggestions(ctx context.Context, viewerID string) ([]*models.User, error) {
	if viewerID == "" {
		return []*models.User{}, nil
	}
	return s.follows.Suggestions(ctx, viewerID, suggestionLimit)
}
