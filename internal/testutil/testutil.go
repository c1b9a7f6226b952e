// Package testutil provides shared test helpers for article storage.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/folio/internal/codec"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Now is the fixed clock used by test repositories.
var Now = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

// Local creates a local backend under a temporary directory. The article
// root itself is not created until the first write.
func Local(t *testing.T) *storage.Local {
	t.Helper()
	l, err := storage.NewLocal(filepath.Join(t.TempDir(), "content", "articles"), storage.DefaultExtension)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

// Repository creates a local-only repository on a fixed clock.
func Repository(t *testing.T, opts ...content.Option) (*content.Repository, *storage.Local) {
	t.Helper()
	l := Local(t)
	opts = append([]content.Option{content.WithClock(func() time.Time { return Now })}, opts...)
	return content.New(l, opts...), l
}

// Seed writes an encoded article straight to a backend.
func Seed(t *testing.T, b storage.Backend, slug string, f models.Fields) {
	t.Helper()
	if err := b.Write(context.Background(), slug, codec.Encode(f)); err != nil {
		t.Fatalf("seed %s: %v", slug, err)
	}
}
