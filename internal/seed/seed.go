// Package seed populates a database with demo users, posts and engagement.
// Everything is written through the services so counts, notifications and
// stored media look exactly like real traffic.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"

	"socially/internal/cache"
	"socially/internal/media"
	"socially/internal/middleware"
	"socially/internal/models"
	"socially/internal/repository"
	"socially/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	NumUsers           int
	NumPosts           int
	MaxLikesPerPost    int
	MaxCommentsPerPost int
	MaxFollowsPerUser  int
	// ImageEvery attaches a generated image to every Nth post; 0 disables images.
	ImageEvery int
	// RandSeed makes runs reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions mirrors the cmd/seed flag defaults.
func DefaultOptions() Options {
	return Options{
		NumUsers:           20,
		NumPosts:           60,
		MaxLikesPerPost:    8,
		MaxCommentsPerPost: 4,
		MaxFollowsPerUser:  5,
	}
}

// Summary reports what a run created.
type Summary struct {
	Users    int
	Posts    int
	Likes    int
	Comments int
	Follows  int
}

func (s Summary) String() string {
	return fmt.Sprintf("users=%d posts=%d likes=%d comments=%d follows=%d",
		s.Users, s.Posts, s.Likes, s.Comments, s.Follows)
}

// Seeder writes demo data through the application services.
type Seeder struct {
	db      *gorm.DB
	users   *service.UserService
	posts   *service.PostService
	follows *service.FollowService
}

// NewSeeder wires services over db. store may be nil when no images are seeded.
func NewSeeder(db *gorm.DB, store media.Store) *Seeder {
	views := cache.NewViewInvalidator(nil)
	userRepo := repository.NewUserRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	return &Seeder{
		db:    db,
		users: service.NewUserService(userRepo, views, nil),
		posts: service.NewPostService(
			repository.NewPostRepository(db),
			engagementRepo,
			repository.NewCommentRepository(db),
			userRepo,
			store,
			views,
			nil,
		),
		follows: service.NewFollowService(userRepo, repository.NewFollowRepository(db), engagementRepo, views, nil),
	}
}

// ClearAll removes every row the application owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, m := range []interface{}{
		&models.Notification{},
		&models.Like{},
		&models.Comment{},
		&models.Follow{},
		&models.Post{},
		&models.User{},
	} {
		if err := tx.Delete(m).Error; err != nil {
			return fmt.Errorf("clear %T: %w", m, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "database cleared")
	return nil
}

// Run creates users, posts, follows, likes and comments according to opts.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	faker := gofakeit.New(opts.RandSeed)
	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		name := faker.Name()
		u, err := s.users.SyncUser(ctx, models.ExternalIdentity{
			Subject:  "seed|" + faker.UUID(),
			Email:    strings.ToLower(faker.Email()),
			Username: faker.Username(),
			Name:     name,
		})
		if err != nil {
			return sum, fmt.Errorf("seed user %d: %w", i, err)
		}
		bio := faker.Sentence(8)
		city := faker.City()
		if _, err := s.users.UpdateProfile(ctx, u.ID, service.UpdateProfileInput{Bio: &bio, Location: &city}); err != nil {
			return sum, fmt.Errorf("seed profile %s: %w", u.Username, err)
		}
		users = append(users, u)
		sum.Users++
	}
	if len(users) == 0 {
		return sum, nil
	}

	for _, u := range users {
		for n := faker.Number(0, opts.MaxFollowsPerUser); n > 0; n-- {
			target := users[faker.Number(0, len(users)-1)]
			if target.ID == u.ID {
				continue
			}
			following, err := s.follows.ToggleFollow(ctx, u.ID, target.ID)
			if err != nil {
				return sum, fmt.Errorf("seed follow: %w", err)
			}
			if following {
				sum.Follows++
			} else {
				sum.Follows--
			}
		}
	}

	for i := 0; i < opts.NumPosts; i++ {
		author := users[faker.Number(0, len(users)-1)]
		in := service.CreatePostInput{
			AuthorID: author.ID,
			Content:  faker.Paragraph(1, faker.Number(1, 3), 12, " "),
		}
		if opts.ImageEvery > 0 && i%opts.ImageEvery == 0 {
			img, err := placeholderImage(faker)
			if err != nil {
				return sum, err
			}
			in.Image = img
		}
		post, err := s.posts.CreatePost(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("seed post %d: %w", i, err)
		}
		sum.Posts++

		likers := faker.Number(0, opts.MaxLikesPerPost)
		for _, idx := range pick(faker, len(users), likers) {
			if _, err := s.posts.ToggleLike(ctx, users[idx].ID, post.ID); err != nil {
				return sum, fmt.Errorf("seed like: %w", err)
			}
			sum.Likes++
		}

		for n := faker.Number(0, opts.MaxCommentsPerPost); n > 0; n-- {
			commenter := users[faker.Number(0, len(users)-1)]
			if _, err := s.posts.CreateComment(ctx, service.CreateCommentInput{
				UserID:  commenter.ID,
				PostID:  post.ID,
				Content: faker.Sentence(faker.Number(3, 14)),
			}); err != nil {
				return sum, fmt.Errorf("seed comment: %w", err)
			}
			sum.Comments++
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete", slog.String("summary", sum.String()))
	return sum, nil
}

// pick returns up to k distinct indexes in [0, n).
func pick(faker *gofakeit.Faker, n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	faker.ShuffleAnySlice(idx)
	return idx[:k]
}

// placeholderImage draws a two-tone gradient so seeded posts carry real,
// decodable media.
func placeholderImage(faker *gofakeit.Faker) ([]byte, error) {
	const w, h = 320, 200
	from := color.RGBA{R: uint8(faker.Number(0, 255)), G: uint8(faker.Number(0, 255)), B: uint8(faker.Number(0, 255)), A: 255}
	to := color.RGBA{R: uint8(faker.Number(0, 255)), G: uint8(faker.Number(0, 255)), B: uint8(faker.Number(0, 255)), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		c := color.RGBA{
			R: lerp(from.R, to.R, x, w),
			G: lerp(from.G, to.G, x, w),
			B: lerp(from.B, to.B, x, w),
			A: 255,
		}
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder image: %w", err)
	}
	return buf.Bytes(), nil
}

func lerp(a, b uint8, i, n int) uint8 {
	return uint8(int(a) + (int(b)-int(a))*i/n)
}
