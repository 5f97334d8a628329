package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"socially/internal/database"
	"socially/internal/media"
	"socially/internal/models"
	"socially/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// recordingInvalidator remembers every key it was asked to drop.
type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
}

func (r *recordingInvalidator) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*models.Notification
	err  error
}

func (p *recordingPublisher) PublishNotification(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return p.err
}

func (p *recordingPublisher) Sent() []*models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.Notification(nil), p.sent...)
}

type mediaStub struct {
	url   string
	err   error
	calls int
}

func (m *mediaStub) Upload(_ context.Context, _ []byte, _ media.Constraints) (string, error) {
	m.calls++
	return m.url, m.err
}

// env wires real repositories over SQLite to the services under test.
type env struct {
	db            *gorm.DB
	views         *recordingInvalidator
	events        *recordingPublisher
	media         *mediaStub
	posts         *PostService
	follows       *FollowService
	users         *UserService
	notifications *NotificationService
	profiles      *ProfileService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := newTestDB(t)
	e := &env{
		db:     db,
		views:  &recordingInvalidator{},
		events: &recordingPublisher{},
		media:  &mediaStub{url: "http://cdn.test/media/i/posts/abc/master.jpg"},
	}

	userRepo := repository.NewUserRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	e.posts = NewPostService(
		repository.NewPostRepository(db),
		engagementRepo,
		repository.NewCommentRepository(db),
		userRepo,
		e.media,
		e.views,
		e.events,
	)
	e.follows = NewFollowService(userRepo, repository.NewFollowRepository(db), engagementRepo, e.views, e.events)
	e.users = NewUserService(userRepo, e.views, nil)
	e.notifications = NewNotificationService(repository.NewNotificationRepository(db))
	e.profiles = NewProfileService(e.users, e.posts, e.follows)
	return e
}

func (e *env) user(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.users.SyncUser(context.Background(), models.ExternalIdentity{
		Subject:  "ext-" + username,
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return u
}

func (e *env) post(t *testing.T, author *models.User, content string) *models.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), CreatePostInput{AuthorID: author.ID, Content: content})
	require.NoError(t, err)
	return p
}

func (e *env) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}
