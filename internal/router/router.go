package router

import (
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamoveo/backend/internal/config"
	"github.com/jamoveo/backend/internal/content"
	"github.com/jamoveo/backend/internal/db"
	"github.com/jamoveo/backend/internal/handlers"
	"github.com/jamoveo/backend/internal/middleware"
	"github.com/jamoveo/backend/internal/services"
	"github.com/jamoveo/backend/internal/socket"
)

// Deps are the long-lived collaborators the HTTP surface is built on.
type Deps struct {
	Queries *db.Queries
	Hub     handlers.Hub
	Content content.Resolver
}

// Router is the HTTP handler plus the background resources it owns.
type Router struct {
	http.Handler
	authLimiter *middleware.RateLimiter
}

// Close stops background goroutines owned by the router.
func (r *Router) Close() {
	r.authLimiter.Stop()
}

func New(cfg *config.Config, deps Deps) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	if cfg.SentryDSN != "" {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenDuration)
	userService := services.NewUserService(deps.Queries, authService, cfg.AdminSecret)

	// Handlers
	policy := handlers.SelectPolicy{RequireAdmin: cfg.RequireAdminToSelect}
	socketCfg := socket.Config{
		WriteWait:      cfg.WSWriteWait,
		PongWait:       cfg.WSPongWait,
		PingInterval:   cfg.WSPingInterval,
		MaxMessageSize: cfg.WSMaxMessageSize,
		SendBuffer:     cfg.WSSendBuffer,
	}
	configHandler := handlers.NewConfigHandler(cfg)
	wsHandler := handlers.NewWSHandler(deps.Hub, policy, cfg.AllowAnonymousViewers, socketCfg, cfg.CORSAllowedOrigins)
	sseHandler := handlers.NewSSEHandler(deps.Hub, cfg.AllowAnonymousViewers, cfg.SSEHeartbeat, cfg.WSSendBuffer)
	sessionHandler := handlers.NewSessionHandler(deps.Hub, deps.Queries, policy)
	songsHandler := handlers.NewSongsHandler(deps.Queries, deps.Content)
	usersHandler := handlers.NewUsersHandler(userService)

	// Rate limiter for credential endpoints
	authRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	r.Handle("/metrics", promhttp.Handler())

	// Realtime viewer transport
	r.With(middleware.OptionalAuthMiddleware(authService), middleware.UpdateRequestContextMiddleware).
		Get("/ws", wsHandler.Serve)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health(deps.Hub))

		// Public configuration (selection policy, instruments)
		r.Get("/config", configHandler.PublicConfig)

		r.Route("/session", func(r chi.Router) {
			r.Use(middleware.OptionalAuthMiddleware(authService))
			r.Use(middleware.UpdateRequestContextMiddleware)

			r.Get("/", sessionHandler.Current)
			r.Get("/stream", sseHandler.Stream)

			r.Group(func(r chi.Router) {
				if cfg.RequireAdminToSelect {
					r.Use(middleware.AuthMiddleware(authService))
					r.Use(middleware.AdminOnlyMiddleware)
				}
				r.Post("/select", sessionHandler.Select)
			})
		})

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", songsHandler.List)
			r.Get("/{id}", songsHandler.Get)
			r.Get("/{id}/content", songsHandler.Content)
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authRateLimiter.Middleware)
				r.Post("/register", usersHandler.Register)
				r.Post("/admin/register", usersHandler.RegisterAdmin)
				r.Post("/login", usersHandler.Login)
			})

			r.With(middleware.AuthMiddleware(authService), middleware.UpdateRequestContextMiddleware).
				Get("/me", usersHandler.Me)
		})
	})

	return &Router{Handler: r, authLimiter: authRateLimiter}
}
