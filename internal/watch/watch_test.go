package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, slug string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+slug)
	r.mu.Unlock()
}

func (r *recorder) has(e string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.events, e)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, root string) *recorder {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	done := make(chan error, 1)
	go func() { done <- Run(ctx, root, "md", logger, rec.record) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return rec
}

func TestRun_CreateUpdateDelete(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root)
	path := filepath.Join(root, "fresh.md")

	_ = os.WriteFile(path, []byte("v1"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return rec.has("created:fresh") }, "create not reported")

	_ = os.WriteFile(path, []byte("v2"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return rec.has("updated:fresh") }, "update not reported")

	_ = os.Remove(path)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return rec.has("deleted:fresh") }, "delete not reported")
}

func TestRun_ExistingFileIsUpdate(t *testing.T) {
	root := t.TempDir()
	_ = os.WriteFile(filepath.Join(root, "old.md"), []byte("v1"), 0o644)
	rec := startWatcher(t, root)

	// Atomic replace: the target reappears via rename.
	tmp := filepath.Join(root, ".folio-tmp-1")
	_ = os.WriteFile(tmp, []byte("v2"), 0o644)
	_ = os.Rename(tmp, filepath.Join(root, "old.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return rec.has("updated:old") }, "replace not reported as update")
	if rec.has("created:old") {
		t.Errorf("existing article reported as created: %v", rec.snapshot())
	}
}

func TestRun_IgnoresOtherFiles(t *testing.T) {
	root := t.TempDir()
	rec := startWatcher(t, root)

	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, ".hidden.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "real.md"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool { return rec.has("created:real") }, "article not reported")
	for _, e := range rec.snapshot() {
		if e != "created:real" {
			t.Errorf("unexpected event %q", e)
		}
	}
}

func TestRun_MissingRootDisables(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	err := Run(context.Background(), filepath.Join(t.TempDir(), "nope"), "md", logger, nil)
	if err != nil {
		t.Fatalf("Run on missing root: %v", err)
	}
}
