// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"accessdesk/internal/config"
	"accessdesk/internal/featureflags"
	"accessdesk/internal/middleware"
	"accessdesk/internal/models"
	"accessdesk/internal/repository"
	"accessdesk/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	userRepo       repository.UserRepository
	softwareRepo   repository.SoftwareRepository
	requestRepo    repository.AccessRequestRepository
	featureFlags   *featureflags.Manager
	requestService *service.RequestService
	catalogService *service.CatalogService
	userService    *service.UserService
}

// NewServer creates a Server over already-initialized dependencies.
// redisClient may be nil; caching, rate limiting and revocation then degrade.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}

	s := &Server{
		config:       cfg,
		db:           db,
		redis:        redisClient,
		userRepo:     repository.NewUserRepository(db),
		softwareRepo: repository.NewSoftwareRepository(db),
		requestRepo:  repository.NewAccessRequestRepository(db),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
	}
	s.requestService = service.NewRequestService(s.requestRepo, s.softwareRepo, s.userRepo)
	s.catalogService = service.NewCatalogService(s.softwareRepo, s.requestRepo, s.featureFlags)
	s.userService = service.NewUserService(s.userRepo)

	return s, nil
}

// App builds the fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "AccessDesk API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	// Tracing runs before the context middleware so the trace ID reaches the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	middleware.InitMetrics(app, "accessdesk-api")
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "AccessDesk Metrics"}))

	loginLimit := s.config.RateLimitLoginPerMinute
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, loginLimit, time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, loginLimit, time.Minute, "login"), s.Login)

	protected := api.Group("", s.AuthRequired())

	me := protected.Group("/auth")
	me.Post("/refresh", s.Refresh)
	me.Post("/logout", s.Logout)
	me.Get("/profile", s.Profile)
	me.Post("/change-password", s.ChangePassword)

	// Specific paths are registered before /:id.
	requests := protected.Group("/requests")
	requests.Get("/", s.ListRequests)
	requests.Get("/pending", s.ListPendingRequests)
	requests.Get("/stats", s.GlobalStats)
	requests.Get("/stats/user", s.MyStats)
	requests.Get("/status/:status", s.ListRequestsByStatus)
	requests.Get("/date-range", s.ListRequestsByDateRange)
	requests.Get("/user/:userId", s.ListUserRequests)
	requests.Get("/software/:softwareId", s.ListSoftwareRequests)
	requests.Post("/", middleware.RateLimit(
		s.redis, s.config.RateLimitRequestsPerMinute, time.Minute, "create_request"), s.CreateRequest)
	requests.Get("/:id", s.GetRequest)
	requests.Patch("/:id", s.UpdateRequestStatus)
	requests.Delete("/:id", s.DeleteRequest)

	software := protected.Group("/software")
	software.Get("/", s.ListSoftware)
	software.Get("/search", s.SearchSoftware)
	software.Get("/access-level/:level", s.ListSoftwareByAccessLevel)
	software.Get("/name/:name", s.GetSoftwareByName)
	software.Get("/:id/stats", s.SoftwareStats)
	software.Get("/:id", s.GetSoftware)
	software.Post("/", s.CreateSoftware)
	software.Put("/:id", s.UpdateSoftware)
	software.Delete("/:id", s.DeleteSoftware)

	users := protected.Group("/users")
	users.Get("/", s.ListUsers)
	users.Post("/", s.CreateUser)
	users.Get("/:id", s.GetUser)

	admin := protected.Group("/admin")
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus != "healthy" {
		overall = "degraded"
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

// Start serves on the configured port until Shutdown.
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
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

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
