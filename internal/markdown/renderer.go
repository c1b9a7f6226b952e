// Package markdown turns article bodies into sanitized HTML. Publication and
// editor preview share one Renderer so both produce identical output.
package markdown

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"html"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Cache stores rendered HTML by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, html string) error
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithCache enables caching of rendered output.
func WithCache(c Cache) Option {
	return func(r *Renderer) {
		r.cache = c
	}
}

// WithLogger sets the logger for cache failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// Renderer converts Markdown to HTML with GFM, autolinks and hard line
// breaks, then sanitizes the result with a user-generated-content policy.
// It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	cache  Cache
	logger *slog.Logger
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CacheKey returns the cache key for src.
func CacheKey(src string) string {
	sum := sha256.Sum256([]byte(src))
	return "folio:html:" + hex.EncodeToString(sum[:])
}

// Render returns the HTML for src. Empty input yields "". Rendering never
// fails: a conversion error degrades to the escaped source text.
func (r *Renderer) Render(ctx context.Context, src string) string {
	if src == "" {
		return ""
	}

	key := CacheKey(src)
	if r.cache != nil {
		out, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logger.Warn("render cache get failed", slog.String("error", err.Error()))
		} else if ok {
			return out
		}
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		r.logger.Warn("markdown conversion failed", slog.String("error", err.Error()))
		buf.Reset()
		buf.WriteString("<p>" + html.EscapeString(src) + "</p>")
	}
	out := r.policy.Sanitize(buf.String())

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, out); err != nil {
			r.logger.Warn("render cache set failed", slog.String("error", err.Error()))
		}
	}
	return out
}
