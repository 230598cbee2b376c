package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/ender-accounts/internal/api/handlers"
	"github.com/isdelr/ender-accounts/internal/api/render"
	"github.com/isdelr/ender-accounts/internal/auth"
)

// RouterOptions bundles what NewRouter wires together.
type RouterOptions struct {
	Users          *handlers.UserHandler
	Events         *handlers.EventHandler
	Health         *handlers.HealthHandler
	Authenticator  *auth.Authenticator
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates and configures a new Chi router.
func NewRouter(opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Health != nil {
		r.Get("/healthz", opts.Health.Get)
	}

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", opts.Users.Register)
		r.Post("/login", opts.Users.Login)

		r.Group(func(r chi.Router) {
			r.Use(opts.Authenticator.Middleware)

			r.With(auth.Require(auth.ListAll{})).Get("/", opts.Users.List)
			r.With(auth.Require(auth.ViewOwn{})).Get("/me", opts.Users.GetMe)
			r.Put("/update", opts.Users.Update)
			r.Delete("/delete-direct", opts.Users.Delete)
		})
	})

	if opts.Events != nil {
		r.Route("/api/events", func(r chi.Router) {
			r.Use(opts.Authenticator.Middleware)
			r.With(auth.Require(auth.ListAll{})).Get("/", opts.Events.GetRecent)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusNotFound, render.ErrorBody{
			Status:  http.StatusNotFound,
			Error:   "Not Found",
			Message: "No route for " + r.Method + " " + r.URL.Path,
		})
	})

	return r
}
