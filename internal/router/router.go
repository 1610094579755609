// Package router assembles the HTTP API: routes, middleware and CORS.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"

	"github.com/mmynk/campusbuy/internal/apperr"
	"github.com/mmynk/campusbuy/internal/auth"
	"github.com/mmynk/campusbuy/internal/handler"
	"github.com/mmynk/campusbuy/internal/metrics"
	"github.com/mmynk/campusbuy/internal/middleware"
	"github.com/mmynk/campusbuy/internal/response"
	"github.com/mmynk/campusbuy/internal/service"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Groups        *service.GroupService
	Contributions *service.ContributionService
	Auth          *service.AuthService
	JWT           *auth.JWTManager
	Store         handler.Pinger

	// RateLimiter is optional.
	RateLimiter *middleware.RateLimiter

	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string
}

// New returns the root handler for the API.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(middleware.OptionalAuth(d.JWT))
	r.Use(middleware.Logging)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Handler)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.Error(w, req, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.Envelope{
			Status:  response.StatusError,
			Message: "Method not allowed",
		})
	})

	r.Get("/healthz", handler.Health(d.Store))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	authHandler := handler.NewAuthHandler(d.Auth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh-token", authHandler.Refresh)
	})

	groups := handler.NewGroupHandler(d.Groups)
	contributions := handler.NewContributionHandler(d.Contributions)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.JWT))

		r.Get("/users/me", authHandler.Me)

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", groups.Create)
			r.Get("/", groups.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", groups.Get)
				r.Put("/", groups.Update)
				r.Delete("/", groups.Delete)
				r.Post("/join", groups.Join)
				r.Post("/leave", groups.Leave)
				r.Post("/kick/{memberId}", groups.Kick)
				r.Post("/transfer/{newOwnerId}", groups.Transfer)
				r.Patch("/status", groups.UpdateStatus)
			})
		})

		r.Route("/contributions", func(r chi.Router) {
			r.Post("/", contributions.Create)
			r.Get("/group/{groupId}", contributions.ListByGroup)
		})
	})

	return cors(d.AllowedOrigins)(r)
}

func cors(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
}
