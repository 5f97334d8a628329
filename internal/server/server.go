// Package server contains the HTTP and WebSocket handlers for the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"socially/internal/cache"
	"socially/internal/config"
	"socially/internal/database"
	"socially/internal/featureflags"
	"socially/internal/media"
	"socially/internal/middleware"
	"socially/internal/models"
	"socially/internal/notifications"
	"socially/internal/repository"
	"socially/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config      *config.Config
	db          *gorm.DB
	redis       *redis.Client
	app         *fiber.App
	verifier    *middleware.IdentityVerifier
	media       media.Store
	notifier    *notifications.Notifier
	hub         *notifications.Hub
	flags       *featureflags.Flags
	shutdownCtx context.Context
	shutdownFn  context.CancelFunc

	postService         *service.PostService
	userService         *service.UserService
	followService       *service.FollowService
	notificationService *service.NotificationService
	profileService      *service.ProfileService
}

// NewServer connects to the database and Redis and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limiting and realtime delivery are
// then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	store, err := media.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, db, redisClient, store), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store media.Store) *Server {
	s := &Server{
		config:   cfg,
		db:       db,
		redis:    redisClient,
		verifier: middleware.NewIdentityVerifier(cfg),
		media:    store,
		hub:      notifications.NewHub(),
		flags:    featureflags.Parse(cfg.FeatureFlags),
	}

	var events service.EventPublisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		events = s.notifier
	}
	views := cache.NewViewInvalidator(redisClient)

	userRepo := repository.NewUserRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	s.postService = service.NewPostService(
		repository.NewPostRepository(db),
		engagementRepo,
		repository.NewCommentRepository(db),
		userRepo,
		store,
		views,
		events,
	).WithViewCache(redisClient).WithUploadLimit(cfg.MediaMaxUploadBytes())
	s.userService = service.NewUserService(userRepo, views, redisClient)
	s.followService = service.NewFollowService(userRepo, repository.NewFollowRepository(db), engagementRepo, views, events)
	s.notificationService = service.NewNotificationService(repository.NewNotificationRepository(db))
	s.profileService = service.NewProfileService(s.userService, s.postService, s.followService)
	return s
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "socially API",
		BodyLimit:    s.bodyLimit(),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Base64 images grow by a third; leave room for the rest of the body.
func (s *Server) bodyLimit() int {
	return int(s.config.MediaMaxUploadBytes()*4/3) + 1<<20
}

// errorHandler turns errors that escape handlers into the failure envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeOperationFailed
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = models.CodeNotFound
		case fe.Code >= 400 && fe.Code < 500:
			code = models.CodeValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithAppError(c, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	middleware.InitMetrics(app)
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  middleware.CodeRateLimited,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if local, ok := s.media.(*media.LocalStore); ok {
		app.Static("/media/i", local.Root(), fiber.Static{MaxAge: 31536000})
	}

	api := app.Group("/api")
	optional := s.OptionalUser()
	auth := s.Authenticated()

	posts := api.Group("/posts")
	posts.Get("/", with(optional, s.GetFeed)...)
	posts.Get("/:id", with(optional, s.GetPost)...)
	posts.Post("/", with(auth, middleware.RateLimit(s.redis, 10, time.Minute, s.config.IsProduction(), "create_post"), s.CreatePost)...)
	posts.Post("/:id/like", with(auth, s.ToggleLike)...)
	posts.Post("/:id/comments", with(auth, middleware.RateLimit(s.redis, 20, time.Minute, s.config.IsProduction(), "create_comment"), s.CreateComment)...)
	posts.Delete("/:id", with(auth, s.DeletePost)...)

	users := api.Group("/users")
	users.Get("/me", with(auth, s.GetMe)...)
	users.Get("/me/features", with(auth, s.GetFeatures)...)
	users.Put("/me", with(auth, s.UpdateMe)...)
	users.Get("/suggestions", with(auth, s.GetSuggestions)...)
	users.Post("/:id/follow", with(auth, middleware.RateLimit(s.redis, 30, time.Minute, s.config.IsProduction(), "follow"), s.ToggleFollow)...)

	api.Get("/profiles/:username", with(optional, s.GetProfile)...)

	notifs := api.Group("/notifications", auth...)
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Post("/read", s.MarkNotificationsRead)

	api.Get("/ws", with(auth, s.WebsocketHandler())...)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional; a
// missing client is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires realtime delivery and listens on the configured port.
func (s *Server) Start() error {
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	app := s.App()

	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start notification wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down notification hub", slog.String("error", err.Error()))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}
	middleware.Logger.Info("server shutdown complete")
	return nil
}
