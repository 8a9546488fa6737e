package handler

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"

	"docregistry/internal/http/middleware"
	"docregistry/internal/logging"
	"docregistry/internal/service"
)

// RouteConfig carries the collaborators the routes are wired to.
type RouteConfig struct {
	Auth      service.AuthService
	Documents service.DocumentService
	Health    []Dependency
	// LoginRateLimit is the number of login attempts per client IP per
	// minute. Zero disables limiting.
	LoginRateLimit int
	// Metrics, when set, is served at /metrics.
	Metrics prometheus.Gatherer
	// Logger receives failures the handlers cannot map to a client error.
	Logger *slog.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, rc RouteConfig) {
	logger := rc.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	app.Use(withLogger(logger.With("component", "http")))

	app.Get("/health", HealthCheck(rc.Health...))
	app.Get("/healthz", LivenessProbe())
	if rc.Metrics != nil {
		app.Get("/metrics", middleware.MetricsHandler(rc.Metrics))
	}

	login := []fiber.Handler{}
	if rc.LoginRateLimit > 0 {
		login = append(login, limiter.New(limiter.Config{
			Max:        rc.LoginRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return writeError(c, fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many login attempts")
			},
		}))
	}
	app.Post("/auth/login", append(login, Login(rc.Auth))...)

	docs := app.Group("/documents", RequireUser(rc.Auth))
	docs.Post("", UploadDocument(rc.Documents))
	docs.Get("", ListDocuments(rc.Documents))
	docs.Get("/:id", GetDocument(rc.Documents))
	docs.Delete("/:id", DeleteDocument(rc.Documents))
	docs.Put("/:id/content", PutContent(rc.Documents))
	docs.Get("/:id/content", GetContent(rc.Documents))
}
