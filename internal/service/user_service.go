package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"socially/internal/cache"
	"socially/internal/middleware"
	"socially/internal/models"
	"socially/internal/repository"
	"socially/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	maxUsernameAttempts = 10
	maxNameLen          = 120
	maxBioLen           = 500
	maxLocationLen      = 120
	maxWebsiteLen       = 255
)

// UserService mirrors identity-provider accounts into internal users and
// manages their profiles.
type UserService struct {
	users repository.UserRepository
	views cache.ViewInvalidator
	rdb   *redis.Client
}

type UpdateProfileInput struct {
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
	Website  *string `json:"website"`
}

// NewUserService creates a UserService. rdb may be nil, in which case the
// identity mapping and profile views are not cached.
func NewUserService(users repository.UserRepository, views cache.ViewInvalidator, rdb *redis.Client) *UserService {
	if views == nil {
		views = cache.NewViewInvalidator(rdb)
	}
	return &UserService{users: users, views: views, rdb: rdb}
}

// SyncUser returns the internal user for a verified external identity,
// creating it on first sight.
func (s *UserService) SyncUser(ctx context.Context, identity models.ExternalIdentity) (*models.User, error) {
	if identity.Subject == "" {
		return nil, models.NewUnauthenticatedError("Identity has no subject")
	}

	var cachedID string
	if found, _ := cache.GetJSON(ctx, s.rdb, cache.IdentityKey(identity.Subject), &cachedID); found {
		user, err := s.users.GetByID(ctx, cachedID)
		if err == nil {
			return user, nil
		}
		if !models.HasCode(err, models.CodeNotFound) {
			return nil, err
		}
	}

	user, err := s.users.GetByExternalID(ctx, identity.Subject)
	if err == nil {
		s.rememberIdentity(ctx, identity.Subject, user.ID)
		return user, nil
	}
	if !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}

	username, err := s.uniqueUsername(ctx, identity)
	if err != nil {
		return nil, err
	}
	user = &models.User{
		ExternalID: identity.Subject,
		Email:      identity.Email,
		Username:   username,
		Name:       optional(identity.Name),
		Image:      optional(identity.Picture),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Another request may have synced the same identity concurrently.
		if errors.Is(err, repository.ErrDuplicateKey) {
			if existing, lookupErr := s.users.GetByExternalID(ctx, identity.Subject); lookupErr == nil {
				s.rememberIdentity(ctx, identity.Subject, existing.ID)
				return existing, nil
			}
		}
		return nil, err
	}

	s.rememberIdentity(ctx, identity.Subject, user.ID)
	middleware.Logger.InfoContext(ctx, "user synced from identity provider",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func (s *UserService) rememberIdentity(ctx context.Context, subject, userID string) {
	_ = cache.SetJSON(ctx, s.rdb, cache.IdentityKey(subject), userID, cache.IdentityTTL)
}

// uniqueUsername derives a username from the identity's preferred username
// or email local part and appends a numeric suffix until it is free and not
// reserved.
func (s *UserService) uniqueUsername(ctx context.Context, identity models.ExternalIdentity) (string, error) {
	base := identity.Username
	if base == "" {
		base, _, _ = strings.Cut(identity.Email, "@")
	}
	base = validation.NormalizeUsername(base)

	candidate := base
	for i := 1; i <= maxUsernameAttempts; i++ {
		if !validation.IsReservedUsername(candidate) {
			taken, err := s.users.UsernameExists(ctx, candidate)
			if err != nil {
				return "", err
			}
			if !taken {
				return candidate, nil
			}
		}
		suffix := fmt.Sprintf("%d", i)
		candidate = truncate(base, validation.UsernameMaxLen-len(suffix)) + suffix
	}

	suffix := "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return truncate(base, validation.UsernameMaxLen-len(suffix)) + suffix, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetProfileByUsername returns the public profile with follower, following
// and post counts.
func (s *UserService) GetProfileByUsername(ctx context.Context, username string) (*models.User, error) {
	// No account can hold a malformed or reserved name.
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewNotFoundError("User", username)
	}
	var user *models.User
	err := cache.Aside(ctx, s.rdb, cache.ProfileKey(username), &user, cache.ProfileTTL, func() error {
		var err error
		user, err = s.users.GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*models.User, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	checks := []struct {
		column string
		label  string
		value  *string
		max    int
	}{
		{"name", "Name", in.Name, maxNameLen},
		{"bio", "Bio", in.Bio, maxBioLen},
		{"location", "Location", in.Location, maxLocationLen},
		{"website", "Website", in.Website, maxWebsiteLen},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		v := strings.TrimSpace(*c.value)
		if utf8.RuneCountInString(v) > c.max {
			return nil, models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", c.label, c.max))
		}
		fields[c.column] = optional(v)
	}
	if in.Website != nil {
		if w := strings.TrimSpace(*in.Website); w != "" && !isWebURL(w) {
			return nil, models.NewValidationError("Website must be a valid http(s) URL")
		}
	}
	if len(fields) == 0 {
		return nil, models.NewValidationError("Nothing to update")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, fields); err != nil {
		return nil, err
	}
	s.views.Invalidate(ctx, s.profileViewKeys(ctx, user)...)

	return s.users.GetByUsername(ctx, user.Username)
}

// profileViewKeys lists every cached view that embeds the user's summary.
func (s *UserService) profileViewKeys(ctx context.Context, user *models.User) []string {
	keys := []string{cache.ProfileKey(user.Username), cache.FeedKey()}
	postIDs, err := s.users.AppearsInPostIDs(ctx, user.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "profile view keys incomplete",
			slog.String("user_id", user.ID), slog.String("error", err.Error()))
		return keys
	}
	for _, id := range postIDs {
		keys = append(keys, cache.PostKey(id))
	}
	return keys
}

func isWebURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
