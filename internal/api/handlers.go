package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/markdown"
	"github.com/starford/folio/internal/sse"
)

// EventPublisher receives article change notifications.
type EventPublisher interface {
	PublishArticleEvent(kind, slug string)
}

// Handler holds API route handlers.
type Handler struct {
	repo         *content.Repository
	renderer     *markdown.Renderer
	events       EventPublisher
	password     string
	secureCookie bool
}

// NewHandler creates a Handler. events may be nil.
func NewHandler(repo *content.Repository, renderer *markdown.Renderer, events EventPublisher, password string, secureCookie bool) *Handler {
	return &Handler{
		repo:         repo,
		renderer:     renderer,
		events:       events,
		password:     password,
		secureCookie: secureCookie,
	}
}

func (h *Handler) publish(kind, slug string) {
	if h.events != nil {
		h.events.PublishArticleEvent(kind, slug)
	}
}

// ListArticles handles GET /articles.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListPublished(r.Context())
	if err != nil {
		writeError(w, "list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetArticle handles GET /articles/{slug}.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.repo.GetPublished(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "get article", err)
		return
	}
	writeJSON(w, http.StatusOK, ArticleResponse{
		Article: a,
		HTML:    h.renderer.Render(r.Context(), a.Content),
	})
}

// Login handles POST /admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Password is required"))
		return
	}
	if h.password == "" {
		slog.Error("login rejected: admin password is not configured")
	}
	if h.password == "" || req.Password != h.password {
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid password"))
		return
	}
	http.SetCookie(w, sessionCookie(h.secureCookie))
	writeJSON(w, http.StatusOK, MutationResponse{Success: true})
}

// Logout handles DELETE /admin/login.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, logoutCookie())
	writeJSON(w, http.StatusOK, MutationResponse{Success: true})
}

// AdminListArticles handles GET /admin/articles, drafts included.
func (h *Handler) AdminListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListAll(r.Context())
	if err != nil {
		writeError(w, "admin list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateArticle handles POST /admin/articles.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.repo.Create(r.Context(), req.Slug, req.ArticleInput)
	if err != nil {
		writeError(w, "create article", err)
		return
	}
	h.publish(sse.KindCreated, a.Slug)
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, Slug: a.Slug})
}

// UpdateArticle handles PUT /admin/articles.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req UpdateArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OriginalSlug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("originalSlug is required"))
		return
	}
	a, err := h.repo.Update(r.Context(), req.OriginalSlug, req.Slug, req.ArticleInput)
	if err != nil {
		writeError(w, "update article", err)
		return
	}
	if a.Slug != req.OriginalSlug {
		h.publish(sse.KindDeleted, req.OriginalSlug)
		h.publish(sse.KindCreated, a.Slug)
	} else {
		h.publish(sse.KindUpdated, a.Slug)
	}
	writeJSON(w, http.StatusOK, MutationResponse{Success: true, Slug: a.Slug})
}

// DeleteArticle handles DELETE /admin/articles.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	var req DeleteArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.repo.Delete(r.Context(), req.Slug); err != nil {
		writeError(w, "delete article", err)
		return
	}
	h.publish(sse.KindDeleted, req.Slug)
	writeJSON(w, http.StatusOK, MutationResponse{Success: true})
}

// Preview handles POST /admin/preview. It renders with the same renderer as
// GetArticle and never touches storage.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{HTML: h.renderer.Render(r.Context(), req.Content)})
}
