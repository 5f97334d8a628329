package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"socially/internal/database"
	"socially/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database with foreign keys
// enforced and the full schema migrated.
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

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	return gormDB, mock
}

type fixtures struct {
	t   *testing.T
	db  *gorm.DB
	now time.Time
}

func newFixtures(t *testing.T, db *gorm.DB) *fixtures {
	return &fixtures{t: t, db: db, now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// tick returns a strictly increasing timestamp so ordering assertions are stable.
func (f *fixtures) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fixtures) user(username string) *models.User {
	f.t.Helper()
	u := &models.User{ExternalID: "ext-" + username, Username: username, Email: username + "@example.com", CreatedAt: f.tick()}
	require.NoError(f.t, NewUserRepository(f.db).Create(context.Background(), u))
	return u
}

func (f *fixtures) post(author *models.User, content string) *models.Post {
	f.t.Helper()
	p := &models.Post{AuthorID: author.ID, Content: content, CreatedAt: f.tick()}
	require.NoError(f.t, NewPostRepository(f.db).Create(context.Background(), p))
	return p
}

func (f *fixtures) comment(author *models.User, post *models.Post, content string) *models.Comment {
	f.t.Helper()
	c := &models.Comment{AuthorID: author.ID, PostID: post.ID, Content: content, CreatedAt: f.tick()}
	_, err := NewEngagementRepository(f.db).Apply(context.Background(), EngagementOnly{Engagement: c})
	require.NoError(f.t, err)
	return c
}

func (f *fixtures) like(user *models.User, post *models.Post) {
	f.t.Helper()
	_, err := NewEngagementRepository(f.db).Apply(context.Background(), EngagementOnly{
		Engagement: &models.Like{UserID: user.ID, PostID: post.ID, CreatedAt: f.tick()},
	})
	require.NoError(f.t, err)
}

func (f *fixtures) follow(follower, following *models.User) {
	f.t.Helper()
	_, err := NewEngagementRepository(f.db).Apply(context.Background(), EngagementOnly{
		Engagement: &models.Follow{FollowerID: follower.ID, FollowingID: following.ID},
	})
	require.NoError(f.t, err)
}

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
