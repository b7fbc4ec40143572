package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/api/http/handlers"
	"github.com/spec-kit/auth-gateway/internal/auth"
	"github.com/spec-kit/auth-gateway/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Metrics       *handlers.MetricsHandler
	Auth          *handlers.AuthHandler
	Query         *handlers.QueryHandler
	Identity      *auth.IdentityMiddleware
	AuthRateLimit fiber.Handler
}

// RegisterRoutes wires HTTP routes. Probes are registered ahead of the
// identity middleware; every other route sees it. Metrics are admin-only.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Use(cfg.Identity.Handle)

	app.Get("/metrics", auth.RequireRole(domain.RoleAdmin), cfg.Metrics.Snapshot)

	rateLimit := cfg.AuthRateLimit
	if rateLimit == nil {
		rateLimit = RateLimit(0, 0)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", rateLimit, cfg.Auth.Register)
	authGroup.Post("/login", rateLimit, cfg.Auth.Login)
	authGroup.Get("/me", auth.RequireIdentity(), cfg.Auth.Me)

	app.Post("/graphql", cfg.Query.Forward)
}
