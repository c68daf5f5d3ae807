package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/pkg/log"
	"github.com/go-realtime-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-realtime-nosql/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(log.HTTPMiddleware(log.L()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// Upgrades per client IP: 5/s with a burst of 10.
	upgradeRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler(deps.Connections)
	unreadH := handler.NewUnreadHandler(deps.Unread)
	friendH := handler.NewFriendRequestHandler(deps.Notifications)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// The socket authenticates itself after the upgrade.
		if deps.WebSocket != nil {
			r.With(upgradeRL.Limit).Get("/ws", deps.WebSocket.ServeHTTP)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/unread", unreadH.List)
			r.Get("/unread/summary", unreadH.Summary)
			r.Delete("/unread", unreadH.ClearAll)
			r.Delete("/unread/rooms/{roomId}", unreadH.ClearRoom)
			r.Post("/friend-requests/notify", friendH.Notify)
		})
	})

	return r
}
