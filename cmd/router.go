package main

import (
	"context"
	"net"
	"net/http"

	"github.com/ukydev/store-locator/internal/auth"
	"github.com/ukydev/store-locator/internal/db"
	"github.com/ukydev/store-locator/internal/events"
	"github.com/ukydev/store-locator/internal/handlers"
	"github.com/ukydev/store-locator/internal/metrics"
	"github.com/ukydev/store-locator/internal/middleware"
	"github.com/ukydev/store-locator/internal/models"
)

// routerDeps carries everything the HTTP surface needs.
type routerDeps struct {
	Stores             db.StoreCollection
	Users              db.UserCollection
	Auth               *auth.Service
	Events             events.Publisher
	Metrics            *metrics.Collector
	Ping               func(ctx context.Context) error
	RadiusMeters       float64
	RateLimitPerMinute int
	TrustedProxies     []*net.IPNet
}

// newRouter builds the request mux. Store mutations and operator
// registration require a token; the check and listing are public.
func newRouter(deps routerDeps) http.Handler {
	authMiddleware := middleware.NewAuthMiddleware(deps.Auth)
	rateLimiter := middleware.NewRateLimitMiddleware(deps.TrustedProxies)

	checkHandler := &handlers.CheckHandler{Stores: deps.Stores, RadiusMeters: deps.RadiusMeters, Metrics: deps.Metrics}
	storeHandler := &handlers.StoreHandler{Stores: deps.Stores, Events: deps.Events, Metrics: deps.Metrics}
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Users)
	healthHandler := &handlers.HealthHandler{Ping: deps.Ping}

	manageStores := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequirePermission(models.PermManageStores)(h))
	}

	mux := http.NewServeMux()
	handle := func(pattern, route string, h http.Handler) {
		mux.Handle(pattern, deps.Metrics.Instrument(route, h))
	}

	handle("GET /api/check", "/api/check", rateLimiter.RateLimit(deps.RateLimitPerMinute, 60)(http.HandlerFunc(checkHandler.Check)))
	handle("GET /api/store", "/api/store", http.HandlerFunc(storeHandler.List))
	handle("POST /api/store", "/api/store", manageStores(storeHandler.Create))
	handle("DELETE /api/store", "/api/store", manageStores(storeHandler.Delete))

	handle("POST /api/auth/login", "/api/auth/login", http.HandlerFunc(authHandler.Login))
	handle("POST /api/auth/register", "/api/auth/register",
		authMiddleware.Authenticate(authMiddleware.RequireRole(models.RoleAdmin)(http.HandlerFunc(authHandler.Register))))
	handle("GET /api/auth/profile", "/api/auth/profile", authMiddleware.Authenticate(http.HandlerFunc(authHandler.GetProfile)))

	handle("GET /health", "/health", http.HandlerFunc(healthHandler.Health))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return middleware.Logging(mux)
}
