package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the public and admin routes. limiter guards the login
// endpoint when non-nil; events, if non-nil, is served at GET
// /admin/events behind the session check.
func NewRouter(h *Handler, limiter *LoginLimiter, events http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/articles", h.ListArticles)
	r.Get("/articles/{slug}", h.GetArticle)

	r.Route("/admin", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/login", h.Login)
		})
		r.Delete("/login", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(RequireSession)

			r.Get("/articles", h.AdminListArticles)
			r.Post("/articles", h.CreateArticle)
			r.Put("/articles", h.UpdateArticle)
			r.Delete("/articles", h.DeleteArticle)
			r.Post("/preview", h.Preview)

			if events != nil {
				r.Get("/events", events.ServeHTTP)
			}
		})
	})

	return r
}
