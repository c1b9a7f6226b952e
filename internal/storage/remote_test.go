package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
)

// memStore is an in-memory ObjectStore. Presigned URLs point at an
// httptest server that serves the stored objects.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	srv     *httptest.Server
	fail    error // returned by every call when set
	block   bool  // StatObject waits for ctx cancellation
	missing bool  // bucket does not exist
	status  int   // forced status for presigned fetches
}

func newMemStore(t *testing.T) *memStore {
	t.Helper()
	m := &memStore{objects: map[string][]byte{}}
	m.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/bucket/")
		m.mu.Lock()
		data, ok := m.objects[key]
		status := m.status
		m.mu.Unlock()
		if status != 0 {
			http.Error(w, "forced", status)
			return
		}
		if !ok {
			http.Error(w, "<Error><Code>NoSuchKey</Code></Error>", http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(m.srv.Close)
	return m
}

func noSuchKey() error {
	return minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}
}

func (m *memStore) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan minio.ObjectInfo, len(m.objects)+1)
	defer close(ch)
	if m.fail != nil {
		ch <- minio.ObjectInfo{Err: m.fail}
		return ch
	}
	if m.missing {
		ch <- minio.ObjectInfo{Err: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: http.StatusNotFound}}
		return ch
	}
	for k := range m.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			ch <- minio.ObjectInfo{Key: k}
		}
	}
	return ch
}

func (m *memStore) StatObject(ctx context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if m.block {
		<-ctx.Done()
		return minio.ObjectInfo{}, ctx.Err()
	}
	if m.fail != nil {
		return minio.ObjectInfo{}, m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return minio.ObjectInfo{}, noSuchKey()
	}
	return minio.ObjectInfo{Key: key}, nil
}

func (m *memStore) PutObject(_ context.Context, _, key string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	if m.fail != nil {
		return minio.UploadInfo{}, m.fail
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return minio.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) PresignedGetObject(_ context.Context, bucket, key string, _ time.Duration, _ url.Values) (*url.URL, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	return url.Parse(m.srv.URL + "/" + bucket + "/" + key)
}

func newTestRemote(t *testing.T) (*Remote, *memStore) {
	t.Helper()
	store := newMemStore(t)
	r, err := NewRemote(store, RemoteConfig{Bucket: "bucket", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	return r, store
}

func TestRemote_WriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRemote(t)

	require.NoError(t, r.Write(ctx, "hello-world", []byte("---\ntitle: \"Hi\"\n---\n\nbody")))
	require.Contains(t, store.objects, "articles/hello-world.md")

	got, err := r.Read(ctx, "hello-world")
	require.NoError(t, err)
	require.Equal(t, "---\ntitle: \"Hi\"\n---\n\nbody", string(got))

	require.NoError(t, r.Write(ctx, "hello-world", []byte("replaced")))
	got, err = r.Read(ctx, "hello-world")
	require.NoError(t, err)
	require.Equal(t, "replaced", string(got))
}

func TestRemote_ListStripsPrefixAndExtension(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRemote(t)
	store.objects["articles/x.md"] = []byte("x")
	store.objects["articles/y.md"] = []byte("y")
	store.objects["articles/notes.txt"] = []byte("ignored")
	store.objects["articles/nested/z.md"] = []byte("ignored")
	store.objects["images/cover.md"] = []byte("other prefix")

	slugs, err := r.List(ctx)
	require.NoError(t, err)
	sort.Strings(slugs)
	require.Equal(t, []string{"x", "y"}, slugs)
}

func TestRemote_ListMissingBucketIsEmpty(t *testing.T) {
	r, store := newTestRemote(t)
	store.missing = true

	slugs, err := r.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, slugs)
}

func TestRemote_NotFound(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRemote(t)

	_, err := r.Read(ctx, "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.ErrorIs(t, r.Delete(ctx, "ghost"), apperr.ErrNotFound)

	ok, err := r.Exists(ctx, "ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemote_DeleteRemovesObject(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRemote(t)
	store.objects["articles/bye.md"] = []byte("bye")

	ok, err := r.Exists(ctx, "bye")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Delete(ctx, "bye"))
	require.NotContains(t, store.objects, "articles/bye.md")
}

func TestRemote_FailuresAreUnavailable(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRemote(t)
	store.fail = errors.New("dial tcp: connection refused")

	_, err := r.List(ctx)
	require.ErrorIs(t, err, apperr.ErrBackendUnavailable)
	_, err = r.Read(ctx, "a")
	require.ErrorIs(t, err, apperr.ErrBackendUnavailable)
	require.ErrorIs(t, r.Write(ctx, "a", []byte("x")), apperr.ErrBackendUnavailable)
	require.ErrorIs(t, r.Delete(ctx, "a"), apperr.ErrBackendUnavailable)
	_, err = r.Exists(ctx, "a")
	require.ErrorIs(t, err, apperr.ErrBackendUnavailable)
}

func TestRemote_TimeoutSurfacesUnavailable(t *testing.T) {
	r, store := newTestRemote(t)
	store.block = true

	start := time.Now()
	_, err := r.Exists(context.Background(), "slow")
	require.ErrorIs(t, err, apperr.ErrBackendUnavailable)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestRemote_ServerErrorOnFetchIsUnavailable(t *testing.T) {
	r, store := newTestRemote(t)
	store.status = http.StatusBadGateway

	_, err := r.Read(context.Background(), "any")
	require.ErrorIs(t, err, apperr.ErrBackendUnavailable)
}

func TestRemote_OversizedObjects(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(t)
	r, err := NewRemote(store, RemoteConfig{Bucket: "bucket", Timeout: 10 * time.Second})
	require.NoError(t, err)

	exact := make([]byte, maxObjectBytes)
	require.NoError(t, r.Write(ctx, "at-limit", exact))
	got, err := r.Read(ctx, "at-limit")
	require.NoError(t, err)
	require.Len(t, got, maxObjectBytes)

	require.ErrorIs(t, r.Write(ctx, "too-big", make([]byte, maxObjectBytes+1)), apperr.ErrValidation)

	store.mu.Lock()
	store.objects["articles/too-big.md"] = make([]byte, maxObjectBytes+1)
	store.mu.Unlock()
	_, err = r.Read(ctx, "too-big")
	require.ErrorIs(t, err, apperr.ErrMalformed)
}

func TestRemote_RejectsInvalidSlug(t *testing.T) {
	r, _ := newTestRemote(t)
	require.ErrorIs(t, r.Write(context.Background(), "../escape", []byte("x")), apperr.ErrValidation)
}

func TestNewRemote_RequiresBucket(t *testing.T) {
	_, err := NewRemote(newMemStore(t), RemoteConfig{})
	require.Error(t, err)
}
