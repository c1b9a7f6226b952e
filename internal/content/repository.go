// Package content resolves articles by slug across the configured storage
// backends. A local backend is always present; a remote backend is optional
// and, when set, is the primary write target and the preferred read source.
//
// The repository keeps no state of its own and takes no locks. Two callers
// creating the same slug at the same time can both pass the existence check
// and both write; the last write wins. A rename across backends is a delete
// followed by a write, so a failure between the two leaves the old slug gone
// and the new one missing; the error of the failing step is returned.
package content

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/codec"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/readtime"
	"github.com/starford/folio/internal/storage"
)

const loadConcurrency = 8

// Option configures a Repository.
type Option func(*Repository)

// WithRemote enables the remote backend.
func WithRemote(b storage.Backend) Option {
	return func(r *Repository) {
		r.remote = b
	}
}

// WithClock overrides the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithLogger sets the logger used for skipped documents.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = l
	}
}

// Repository is the article store.
type Repository struct {
	local  storage.Backend
	remote storage.Backend // nil when disabled
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Repository over local and any backends added by opts.
func New(local storage.Backend, opts ...Option) *Repository {
	r := &Repository{
		local:  local,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Static returns a local-only view for build-time callers that need a
// deterministic slug set independent of the remote store.
func (r *Repository) Static() *Repository {
	cp := *r
	cp.remote = nil
	return &cp
}

// RemoteEnabled reports whether a remote backend is configured.
func (r *Repository) RemoteEnabled() bool { return r.remote != nil }

// backends returns the consulted backends in read-precedence order.
func (r *Repository) backends() []storage.Backend {
	if r.remote != nil {
		return []storage.Backend{r.remote, r.local}
	}
	return []storage.Backend{r.local}
}

func (r *Repository) primary() storage.Backend {
	if r.remote != nil {
		return r.remote
	}
	return r.local
}

// ListSlugs returns the merged, deduplicated slug set in ascending order.
// Stored names that are not valid slugs are skipped with a warning.
func (r *Repository) ListSlugs(ctx context.Context) ([]string, error) {
	backends := r.backends()
	sets := make([][]string, len(backends))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range backends {
		g.Go(func() error {
			slugs, err := b.List(gctx)
			if err != nil {
				return fmt.Errorf("content: list %s: %w", b.Name(), err)
			}
			sets[i] = slugs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, set := range sets {
		for _, s := range set {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			if err := ValidateSlug(s); err != nil {
				r.logger.Warn("skipping invalid slug",
					slog.String("slug", s),
					slog.String("error", err.Error()),
				)
				continue
			}
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Get resolves slug, trying the remote backend first and falling back to
// local when the remote does not hold it.
func (r *Repository) Get(ctx context.Context, slug string) (*models.Article, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	for _, b := range r.backends() {
		data, err := b.Read(ctx, slug)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("content: get %s: %w", slug, err)
		}
		return r.decode(slug, data)
	}
	return nil, fmt.Errorf("content: get %s: %w", slug, apperr.ErrNotFound)
}

// GetPublished is Get for public callers: unpublished articles are
// reported as not found.
func (r *Repository) GetPublished(ctx context.Context, slug string) (*models.Article, error) {
	a, err := r.Get(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !a.Published {
		return nil, fmt.Errorf("content: get %s: %w", slug, apperr.ErrNotFound)
	}
	return a, nil
}

// Exists reports whether any consulted backend holds slug.
func (r *Repository) Exists(ctx context.Context, slug string) (bool, error) {
	holders, err := r.holders(ctx, slug)
	if err != nil {
		return false, err
	}
	return len(holders) > 0, nil
}

func (r *Repository) holders(ctx context.Context, slug string) ([]storage.Backend, error) {
	var out []storage.Backend
	for _, b := range r.backends() {
		ok, err := b.Exists(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("content: exists %s: %w", slug, err)
		}
		if ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// Create stores a new article. It fails with apperr.ErrConflict when the
// slug already resolves in any backend.
func (r *Repository) Create(ctx context.Context, slug string, in models.ArticleInput) (*models.Article, error) {
	if err := validateInput(slug, in); err != nil {
		return nil, err
	}
	exists, err := r.Exists(ctx, slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("content: create %s: %w", slug, apperr.ErrConflict)
	}

	f := fieldsFrom(in, r.today())
	if err := r.primary().Write(ctx, slug, codec.Encode(f)); err != nil {
		return nil, fmt.Errorf("content: create %s: %w", slug, err)
	}
	return newArticle(slug, f), nil
}

// Update rewrites oldSlug. When newSlug differs, newSlug must be free; the
// article is then moved. An empty input date keeps the stored date.
func (r *Repository) Update(ctx context.Context, oldSlug, newSlug string, in models.ArticleInput) (*models.Article, error) {
	if err := ValidateSlug(oldSlug); err != nil {
		return nil, err
	}
	if err := validateInput(newSlug, in); err != nil {
		return nil, err
	}
	holders, err := r.holders(ctx, oldSlug)
	if err != nil {
		return nil, err
	}
	if len(holders) == 0 {
		return nil, fmt.Errorf("content: update %s: %w", oldSlug, apperr.ErrNotFound)
	}

	date := in.Date
	if date == "" {
		current, err := r.Get(ctx, oldSlug)
		if err != nil && !errors.Is(err, apperr.ErrMalformed) {
			return nil, err
		}
		date = r.today()
		if current != nil {
			date = current.Date
		}
	}
	f := fieldsFrom(in, date)
	data := codec.Encode(f)

	if newSlug == oldSlug {
		if err := r.primary().Write(ctx, newSlug, data); err != nil {
			return nil, fmt.Errorf("content: update %s: %w", newSlug, err)
		}
		return newArticle(newSlug, f), nil
	}

	taken, err := r.Exists(ctx, newSlug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("content: rename %s -> %s: %w", oldSlug, newSlug, apperr.ErrConflict)
	}

	if mv, ok := r.local.(storage.Mover); ok && r.remote == nil {
		if err := mv.Move(ctx, oldSlug, newSlug, data); err != nil {
			return nil, fmt.Errorf("content: rename %s -> %s: %w", oldSlug, newSlug, err)
		}
		return newArticle(newSlug, f), nil
	}

	for _, b := range holders {
		if err := b.Delete(ctx, oldSlug); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("content: rename %s -> %s: delete old: %w", oldSlug, newSlug, err)
		}
	}
	if err := r.primary().Write(ctx, newSlug, data); err != nil {
		return nil, fmt.Errorf("content: rename %s -> %s: write new: %w", oldSlug, newSlug, err)
	}
	return newArticle(newSlug, f), nil
}

// Delete removes slug from every backend that holds it.
func (r *Repository) Delete(ctx context.Context, slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	removed := 0
	for _, b := range r.backends() {
		err := b.Delete(ctx, slug)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, apperr.ErrNotFound):
		default:
			return fmt.Errorf("content: delete %s: %w", slug, err)
		}
	}
	if removed == 0 {
		return fmt.Errorf("content: delete %s: %w", slug, apperr.ErrNotFound)
	}
	return nil
}

// ListPublished returns published articles without content, newest first.
func (r *Repository) ListPublished(ctx context.Context) ([]models.ArticleMeta, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ArticleMeta, 0, len(all))
	for i := range all {
		if all[i].Published {
			out = append(out, all[i].Meta())
		}
	}
	return out, nil
}

// ListAll returns every article including drafts and content, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Article, error) {
	return r.loadAll(ctx)
}

// loadAll reads every merged slug. Articles that vanish between listing
// and reading, or whose metadata block is malformed, are skipped.
func (r *Repository) loadAll(ctx context.Context) ([]models.Article, error) {
	slugs, err := r.ListSlugs(ctx)
	if err != nil {
		return nil, err
	}

	loaded := make([]*models.Article, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, slug := range slugs {
		g.Go(func() error {
			a, err := r.Get(gctx, slug)
			switch {
			case err == nil:
				loaded[i] = a
			case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrMalformed), errors.Is(err, apperr.ErrValidation):
				r.logger.Warn("skipping article",
					slog.String("slug", slug),
					slog.String("error", err.Error()),
				)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Article, 0, len(loaded))
	for _, a := range loaded {
		if a != nil {
			out = append(out, *a)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(articles []models.Article) {
	slices.SortFunc(articles, func(a, b models.Article) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
}

func (r *Repository) decode(slug string, data []byte) (*models.Article, error) {
	f, err := codec.Decode(data, r.now())
	if err != nil {
		return nil, fmt.Errorf("content: decode %s: %w", slug, err)
	}
	return newArticle(slug, f), nil
}

func (r *Repository) today() string {
	return r.now().Format(models.DateLayout)
}

func fieldsFrom(in models.ArticleInput, date string) models.Fields {
	if in.Date != "" {
		date = in.Date
	}
	return models.Fields{
		Title:     in.Title,
		Date:      date,
		Excerpt:   in.Excerpt,
		Image:     in.Image,
		Published: in.IsPublished(),
		Content:   in.Content,
	}
}

func newArticle(slug string, f models.Fields) *models.Article {
	return &models.Article{
		Slug:        slug,
		Fields:      f,
		ReadingTime: readtime.Estimate(f.Content),
	}
}
