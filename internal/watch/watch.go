// Package watch reports out-of-band edits to the local article directory.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback receives a debounced change. kind is "created", "updated"
// or "deleted".
type EventCallback func(kind, slug string)

const debounce = 150 * time.Millisecond

// Run watches root (non-recursively) for files with extension ext and calls
// cb once per slug per burst of changes, until ctx is cancelled. It never
// writes to root. A missing root disables the watcher.
func Run(ctx context.Context, root, ext string, logger *slog.Logger, cb EventCallback) error {
	ext = "." + strings.TrimPrefix(ext, ".")

	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("watcher: root missing, disabled", slog.String("root", root))
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	known := existing(root, ext)
	pending := make(map[string]string)
	logger.Info("watcher: started", slog.String("root", root), slog.Int("articles", len(known)))

	var timer *time.Timer
	var flushCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			flushCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			for slug, kind := range pending {
				logger.Debug("watcher: change", slog.String("slug", slug), slog.String("op", kind))
				if cb != nil {
					cb(kind, slug)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			slug, ok := slugOf(ev.Name, ext)
			if !ok {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(known, slug)
				if pending[slug] == "created" {
					delete(pending, slug)
					continue
				}
				pending[slug] = "deleted"
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				_, was := known[slug]
				known[slug] = struct{}{}
				switch {
				case was && pending[slug] == "created":
				case was, pending[slug] == "deleted":
					pending[slug] = "updated"
				default:
					pending[slug] = "created"
				}
			default:
				continue
			}
			schedule()

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}

func slugOf(path, ext string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	slug := strings.TrimSuffix(name, ext)
	return slug, slug != ""
}

func existing(root, ext string) map[string]struct{} {
	out := make(map[string]struct{})
	entries, err := os.ReadDir(root)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slug, ok := slugOf(e.Name(), ext); ok {
			out[slug] = struct{}{}
		}
	}
	return out
}
