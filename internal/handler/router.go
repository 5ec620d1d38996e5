// Package handler wires HTTP routes to core services.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	authhandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/auth"
	chathandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/chat"
	feedhandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/feed"
	streamhandler "github.com/minhhieu-178/AI-Tutor-App/internal/handler/stream"
	"github.com/minhhieu-178/AI-Tutor-App/internal/metrics"
	"github.com/minhhieu-178/AI-Tutor-App/internal/middleware"
	"github.com/minhhieu-178/AI-Tutor-App/pkg/utils"
)

// HealthChecker reports backing store liveness. nil means nothing to check.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string

	AuthHandler   *authhandler.Handler
	ChatHandler   *chathandler.Handler
	StreamHandler *streamhandler.Handler
	FeedHandler   *feedhandler.WebSocketHandler

	MetricsGatherer prometheus.Gatherer
	HealthChecker   HealthChecker
}

// NewRouter assembles the full route tree.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "database unreachable")
				return
			}
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/api", func(api chi.Router) {
		deps.AuthHandler.RegisterRoutes(api)

		api.Group(func(authed chi.Router) {
			authed.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			deps.ChatHandler.RegisterRoutes(authed)
			deps.StreamHandler.RegisterRoutes(authed)
			if deps.FeedHandler != nil {
				deps.FeedHandler.RegisterRoutes(authed)
			}
		})
	})

	return r
}
