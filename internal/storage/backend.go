// Package storage defines the article storage abstraction and its local
// file-system and remote object-store implementations.
package storage

import "context"

// Backend is the uniform contract every storage medium implements. Slugs
// are storage keys; each backend maps them to its own physical names.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// List returns every stored slug. A missing root yields an empty list.
	List(ctx context.Context) ([]string, error)
	// Read returns the raw stored text or apperr.ErrNotFound.
	Read(ctx context.Context, slug string) ([]byte, error)
	// Write replaces the stored text for slug entirely.
	Write(ctx context.Context, slug string, data []byte) error
	// Delete removes slug or returns apperr.ErrNotFound.
	Delete(ctx context.Context, slug string) error
	// Exists reports whether slug is stored.
	Exists(ctx context.Context, slug string) (bool, error)
}

// Mover is implemented by backends that can rename a document natively.
// Move stores data under oldSlug and then renames it to newSlug, so a
// failure never leaves the document missing under both names.
type Mover interface {
	Move(ctx context.Context, oldSlug, newSlug string, data []byte) error
}
