// Package server contains the HTTP handlers and middleware wiring for the
// board API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	_ "bulletin/docs" // swagger docs
	"bulletin/internal/config"
	"bulletin/internal/middleware"
	"bulletin/internal/models"
	"bulletin/internal/observability"
	"bulletin/internal/passhash"
	"bulletin/internal/repository"
	"bulletin/internal/service"
	"bulletin/internal/timeutil"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ServiceName labels metrics and the application name.
const ServiceName = "bulletin-api"

// passwordLimitWindow is the window of the per-route password limiter.
const passwordLimitWindow = time.Minute

// BoardService is the set of board use cases the handlers depend on.
type BoardService interface {
	GetTotalCount(ctx context.Context, search string) (int64, error)
	GetList(ctx context.Context, in service.ListBoardsInput) ([]models.BoardSummary, error)
	GetDetail(ctx context.Context, id uint) (service.Outcome, error)
	InsertBoard(ctx context.Context, in service.InsertBoardInput) (service.Outcome, error)
	CheckBoardPassword(ctx context.Context, id uint, password string) (bool, error)
	DeleteBoard(ctx context.Context, in service.DeleteBoardInput) (service.Outcome, error)
	UpdateBoard(ctx context.Context, in service.UpdateBoardInput) (service.Outcome, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	boards         BoardService
	startedAt      time.Time
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case the password limiter fails open.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, hasher *passhash.Hasher) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if db == nil {
		return nil, errors.New("server: database is required")
	}
	if hasher == nil {
		return nil, errors.New("server: password hasher is required")
	}

	repo := repository.NewBoardRepository(db, hasher)

	s := &Server{
		config:    cfg,
		db:        db,
		redis:     redisClient,
		boards:    service.NewBoardService(repo, hasher),
		startedAt: time.Now(),
	}
	if cfg.EnableMetrics {
		s.promMiddleware = observability.HTTPMetrics(ServiceName)
	}
	return s, nil
}

// FiberConfig returns the Fiber settings derived from cfg.
func FiberConfig(cfg *config.Config) fiber.Config {
	return fiber.Config{
		AppName:                 "Bulletin Board API",
		BodyLimit:               cfg.BodyLimitBytes(),
		IdleTimeout:             cfg.IdleTimeout,
		ReadTimeout:             cfg.ReadTimeout,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.TrustedProxyList(),
		ErrorHandler:            ErrorHandler(cfg.IsDevelopment()),
		DisableStartupMessage:   true,
	}
}

// App returns the Fiber application, building it with middleware and routes
// on first use.
func (s *Server) App() *fiber.App {
	if s.app == nil {
		app := fiber.New(FiberConfig(s.config))
		s.SetupMiddleware(app)
		s.SetupRoutes(app)
		s.app = app
	}
	return s.app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New())

	app.Use(middleware.Intercept(middleware.NewRequestLogger(s.config.EnableRequestLogging)))

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	app.Use(cors.New(corsConfig(s.config.AllowedOrigins)))

	window := s.config.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	app.Use(limiter.New(limiter.Config{
		Max:        s.config.RateLimitMax,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RateLimitRejections.WithLabelValues("global").Inc()
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Status:  fiber.StatusTooManyRequests,
				Code:    "Too Many Requests",
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

func corsConfig(origins string) cors.Config {
	origins = strings.TrimSpace(origins)
	if origins == "" {
		origins = "*"
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Content-Type, Authorization, X-Requested-With",
		ExposeHeaders:    "Content-Range, X-Content-Range",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.config.EnableMetrics {
		if s.promMiddleware != nil {
			s.promMiddleware.RegisterAt(app, "/metrics")
		}
		app.Get("/metrics/dashboard", monitor.New(monitor.Config{
			Title: "Bulletin Board Metrics",
		}))
	}

	if s.config.EnableSwagger && s.config.IsDevelopment() {
		app.Get("/docs/*", swagger.HandlerDefault)
	}

	passwordLimit := middleware.RateLimit(s.redis, s.config.Env, s.config.PasswordRateLimit, passwordLimitWindow,
		middleware.PolicyFor(s.config.PasswordRateLimitFailClosed), "board_password")

	api := app.Group(s.config.APIPrefix)
	api.Post("/list", s.ListBoards)
	api.Post("/detail", s.GetBoardDetail)
	api.Post("/insert", s.InsertBoard)
	api.Post("/checkPassword", passwordLimit, s.CheckBoardPassword)
	api.Post("/delete", passwordLimit, s.DeleteBoard)
	api.Post("/update", passwordLimit, s.UpdateBoard)

	app.Use(NotFound)
}

// HealthCheck handles GET /health. It never touches dependencies.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startedAt).Seconds(),
		Version:   s.config.Version,
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Version   string  `json:"version"`
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so a
// server started without it is still ready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if sqlDB, err := s.db.DB(); err != nil {
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
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overallStatus,
		"version": s.config.Version,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, s.config.Port)
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	app := s.App()
	slog.Info("server starting",
		slog.String("addr", s.Addr()),
		slog.String("env", s.config.Env),
		slog.String("api_prefix", s.config.APIPrefix),
	)
	return app.Listen(s.Addr())
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
			slog.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				errs = append(errs, cerr)
				slog.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, rerr)
			slog.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	slog.Info("server shutdown complete", slog.String("uptime", timeutil.FormatUptime(time.Since(s.startedAt))))
	return errors.Join(errs...)
}
