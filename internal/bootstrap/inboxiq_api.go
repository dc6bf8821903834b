package bootstrap

import (
	"context"
	"strings"
	"time"

	"inboxiq/adapter/in/http"
	"inboxiq/config"
	"inboxiq/infra/middleware"
	"inboxiq/pkg/logger"
	"inboxiq/pkg/metrics"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	// LLM-backed endpoints: chat, calendar chat and improve.
	generationRateLimit  = 30
	generationRateWindow = time.Minute
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
		ServerHeader:          "",
		DisableDefaultDate:    true,
	})

	// Global middleware stack (order matters). RequestLogger renders errors
	// itself so the logged status matches the response.
	latency := metrics.NewLatencyRegistry(1000)
	app.Use(middleware.RequestID())
	app.Use(middleware.Latency(latency))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.Recover())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(corsConfig(cfg)))

	// Health check (no auth required)
	http.NewHealthHandler(healthChecks(deps)).WithLatency(latency).Register(app)

	api := app.Group("/api/v1")
	api.Use(middleware.JWTAuth(middleware.AuthConfig{
		Secret:    cfg.JWTSecret,
		Blacklist: middleware.NewTokenBlacklist(deps.Redis),
	}))
	limiter := middleware.NewRateLimiter(generationRateLimit, generationRateWindow).Handler()

	chatHandler := http.NewChatHandler(deps.Chat, deps.Identity)
	chatHandler.Register(api, limiter)
	http.NewDraftHandler(deps.Drafts, deps.Identity).Register(api, limiter)
	http.NewContactHandler(deps.Matcher, deps.Frequent, deps.Identity).Register(api)
	http.NewCalendarHandler(chatHandler, deps.Assistant, deps.Identity).Register(api, limiter)

	logger.WithFields(map[string]any{
		"env":          cfg.Environment,
		"remote_model": cfg.RemoteModelEnabled(),
		"neo4j":        deps.Relationships != nil,
	}).Info("API initialized")

	return app, cleanup, nil
}

// corsConfig never pairs credentials with a wildcard origin.
func corsConfig(cfg *config.Config) cors.Config {
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	return cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}
}

func healthChecks(deps *Dependencies) map[string]http.HealthCheck {
	checks := map[string]http.HealthCheck{
		"postgres": func(ctx context.Context) error { return deps.DB.Ping(ctx) },
		"redis":    func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() },
		"mongodb":  func(ctx context.Context) error { return deps.MongoDB.Ping(ctx, nil) },
	}
	if deps.Neo4j != nil {
		checks["neo4j"] = func(ctx context.Context) error { return deps.Neo4j.VerifyConnectivity(ctx) }
	}
	return checks
}
