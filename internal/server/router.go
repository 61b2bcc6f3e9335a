package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/snapshare/internal/auth"
	"github.com/ayush/snapshare/internal/middleware"
	"github.com/ayush/snapshare/internal/posts"
	"github.com/ayush/snapshare/internal/web"
)

// RouterConfig carries the constructed handlers the router mounts.
type RouterConfig struct {
	AuthHandler        *auth.Handler
	PostsHandler       *posts.Handler
	Sessions           *auth.Manager
	View               *web.Renderer
	CorsAllowedOrigins []string
	RequestLogging     bool
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	if cfg.RequestLogging {
		r.Use(chimw.Logger)
	}
	r.Use(cfg.View.Recoverer)
	r.Use(chimw.RealIP)
	if len(cfg.CorsAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CorsAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(cfg.Sessions.Middleware)

	r.NotFound(cfg.View.NotFound)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public pages
	r.Get("/", cfg.PostsHandler.Feed)
	r.Get("/images/{id}", cfg.PostsHandler.Image)
	r.Get("/register", cfg.AuthHandler.RegisterPage)
	r.Post("/register", cfg.AuthHandler.Register)
	r.Get("/login", cfg.AuthHandler.LoginPage)
	r.Post("/login", cfg.AuthHandler.Login)

	// Pages that need a session
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin)
		r.Get("/logout", cfg.AuthHandler.Logout)
		r.Get("/profile", cfg.PostsHandler.Profile)
		r.Get("/posts/new", cfg.PostsHandler.NewPage)
		r.Post("/posts/new", cfg.PostsHandler.Create)
		r.Get("/posts/{id}/edit", cfg.PostsHandler.EditPage)
		r.Post("/posts/{id}/edit", cfg.PostsHandler.Edit)
		r.Post("/posts/{id}/delete", cfg.PostsHandler.Delete)
		r.Post("/posts/{id}/like", cfg.PostsHandler.Like)
	})

	return r
}
