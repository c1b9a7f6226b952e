package api

import "github.com/starford/folio/internal/models"

// ArticleResponse is the public single-article payload.
type ArticleResponse struct {
	Article *models.Article `json:"article"`
	HTML    string          `json:"html"`
}

// LoginRequest is the body of POST /admin/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// CreateArticleRequest is the body of POST /admin/articles.
type CreateArticleRequest struct {
	Slug string `json:"slug"`
	models.ArticleInput
}

// UpdateArticleRequest is the body of PUT /admin/articles. OriginalSlug
// names the stored article; Slug is its (possibly new) slug.
type UpdateArticleRequest struct {
	OriginalSlug string `json:"originalSlug"`
	Slug         string `json:"slug"`
	models.ArticleInput
}

// DeleteArticleRequest is the body of DELETE /admin/articles.
type DeleteArticleRequest struct {
	Slug string `json:"slug"`
}

// PreviewRequest is the body of POST /admin/preview.
type PreviewRequest struct {
	Content string `json:"content"`
}

// PreviewResponse carries rendered preview HTML.
type PreviewResponse struct {
	HTML string `json:"html"`
}

// MutationResponse acknowledges an admin write.
type MutationResponse struct {
	Success bool   `json:"success"`
	Slug    string `json:"slug,omitempty"`
}
