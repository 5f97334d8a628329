// Command seed fills the database with demo users, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"socially/internal/bootstrap"
	"socially/internal/config"
	"socially/internal/media"
	"socially/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxLikes := flag.Int("likes", defaults.MaxLikesPerPost, "Maximum likes per post")
	maxComments := flag.Int("comments", defaults.MaxCommentsPerPost, "Maximum comments per post")
	maxFollows := flag.Int("follows", defaults.MaxFollowsPerUser, "Maximum follows per user")
	imageEvery := flag.Int("image-every", 0, "Attach a generated image to every Nth post (0 disables)")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 is random)")
	shouldClean := flag.Bool("clean", false, "Delete all existing data before seeding")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	cfg.SeedOnStart = false

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	var store media.Store
	if *imageEvery > 0 {
		if store, err = media.NewStore(cfg); err != nil {
			log.Fatalf("Failed to initialize media store: %v", err)
		}
	}

	s := seed.NewSeeder(rt.DB, store)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx, seed.Options{
		NumUsers:           *numUsers,
		NumPosts:           *numPosts,
		MaxLikesPerPost:    *maxLikes,
		MaxCommentsPerPost: *maxComments,
		MaxFollowsPerUser:  *maxFollows,
		ImageEvery:         *imageEvery,
		RandSeed:           *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed after %s: %v", sum, err)
	}
	log.Printf("Seeded %s", sum)
}
