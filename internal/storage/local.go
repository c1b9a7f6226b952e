package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/folio/internal/apperr"
)

// DefaultExtension is the file extension of stored articles.
const DefaultExtension = "md"

const tmpPattern = ".folio-tmp-*"

// Local implements Backend on a single flat directory: slug s is stored as
// {root}/{s}.{ext}. The root is created on first write.
type Local struct {
	root string // absolute
	ext  string
}

var (
	_ Backend = (*Local)(nil)
	_ Mover   = (*Local)(nil)
)

// NewLocal creates a Local backend rooted at root. The directory does not
// need to exist yet.
func NewLocal(root, ext string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if ext == "" {
		ext = DefaultExtension
	}
	return &Local{root: abs, ext: strings.TrimPrefix(ext, ".")}, nil
}

// Name implements Backend.
func (l *Local) Name() string { return "local" }

// Root returns the absolute root directory.
func (l *Local) Root() string { return l.root }

// Ext returns the file extension without the leading dot.
func (l *Local) Ext() string { return l.ext }

// pathFor maps a slug to its file, rejecting anything that is not a plain
// file name (separators, traversal, hidden files).
func (l *Local) pathFor(slug string) (string, error) {
	if slug == "" || strings.HasPrefix(slug, ".") || strings.ContainsAny(slug, `/\`) || slug != filepath.Base(slug) {
		return "", apperr.Validation(fmt.Errorf("storage: invalid slug %q", slug))
	}
	return filepath.Join(l.root, slug+"."+l.ext), nil
}

// List implements Backend. Only regular files with the configured
// extension directly under root are reported.
func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, apperr.Unavailable(l.Name(), fmt.Errorf("list: %w", err))
	}
	suffix := "." + l.ext
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, suffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, suffix))
	}
	return out, nil
}

// Read implements Backend.
func (l *Local) Read(_ context.Context, slug string) ([]byte, error) {
	p, err := l.pathFor(slug)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, l.classify("read", slug, err)
	}
	return data, nil
}

// Write atomically replaces the file: tmp file → fsync → rename.
func (l *Local) Write(_ context.Context, slug string, data []byte) error {
	p, err := l.pathFor(slug)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return apperr.Unavailable(l.Name(), fmt.Errorf("mkdir: %w", err))
	}
	if err := writeAtomic(l.root, p, data); err != nil {
		return apperr.Unavailable(l.Name(), err)
	}
	return nil
}

func writeAtomic(dir, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	success = true
	return nil
}

// Delete implements Backend.
func (l *Local) Delete(_ context.Context, slug string) error {
	p, err := l.pathFor(slug)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return l.classify("delete", slug, err)
	}
	return nil
}

// Exists implements Backend.
func (l *Local) Exists(_ context.Context, slug string) (bool, error) {
	p, err := l.pathFor(slug)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, apperr.Unavailable(l.Name(), fmt.Errorf("stat %s: %w", slug, err))
	}
	return info.Mode().IsRegular(), nil
}

// Move rewrites oldSlug in place and renames the file to newSlug with a
// single rename(2). If the rename fails the new content stays readable
// under oldSlug.
func (l *Local) Move(_ context.Context, oldSlug, newSlug string, data []byte) error {
	oldPath, err := l.pathFor(oldSlug)
	if err != nil {
		return err
	}
	newPath, err := l.pathFor(newSlug)
	if err != nil {
		return err
	}
	if _, err := os.Stat(oldPath); err != nil {
		return l.classify("move", oldSlug, err)
	}
	if err := writeAtomic(l.root, oldPath, data); err != nil {
		return apperr.Unavailable(l.Name(), err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return apperr.Unavailable(l.Name(), fmt.Errorf("move %s -> %s: %w", oldSlug, newSlug, err))
	}
	return nil
}

func (l *Local) classify(op, slug string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s %s: %w", op, slug, apperr.ErrNotFound)
	}
	return apperr.Unavailable(l.Name(), fmt.Errorf("%s %s: %w", op, slug, err))
}
