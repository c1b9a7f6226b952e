package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/starford/folio/internal/apperr"
)

// DefaultPrefix is the object key prefix articles are stored under.
const DefaultPrefix = "articles/"

const (
	defaultRemoteTimeout = 10 * time.Second
	defaultPresignExpiry = time.Minute
	maxObjectBytes       = 10 << 20
)

// ObjectStore is the subset of *minio.Client used by Remote.
type ObjectStore interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

var _ ObjectStore = (*minio.Client)(nil)

// RemoteConfig configures a Remote backend.
type RemoteConfig struct {
	Bucket        string
	Prefix        string        // defaults to DefaultPrefix
	Ext           string        // defaults to DefaultExtension
	Timeout       time.Duration // per call; defaults to 10s
	PresignExpiry time.Duration // lifetime of read URLs; defaults to 1m
	HTTPClient    *http.Client  // fetches presigned URLs
}

// Remote implements Backend on an S3-compatible bucket: slug s is the
// object {prefix}{s}.{ext}. Writes are unversioned full-object replaces.
// Every call is bounded by the configured timeout; network failures and
// timeouts surface as apperr.ErrBackendUnavailable.
type Remote struct {
	store   ObjectStore
	bucket  string
	prefix  string
	ext     string
	timeout time.Duration
	expiry  time.Duration
	http    *http.Client
}

var _ Backend = (*Remote)(nil)

// NewRemote creates a Remote backend over store.
func NewRemote(store ObjectStore, cfg RemoteConfig) (*Remote, error) {
	if store == nil {
		return nil, fmt.Errorf("storage: remote object store is nil")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: remote bucket is required")
	}
	r := &Remote{
		store:   store,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		ext:     strings.TrimPrefix(cfg.Ext, "."),
		timeout: cfg.Timeout,
		expiry:  cfg.PresignExpiry,
		http:    cfg.HTTPClient,
	}
	if r.prefix == "" {
		r.prefix = DefaultPrefix
	}
	if !strings.HasSuffix(r.prefix, "/") {
		r.prefix += "/"
	}
	if r.ext == "" {
		r.ext = DefaultExtension
	}
	if r.timeout <= 0 {
		r.timeout = defaultRemoteTimeout
	}
	if r.expiry <= 0 {
		r.expiry = defaultPresignExpiry
	}
	if r.http == nil {
		r.http = &http.Client{}
	}
	return r, nil
}

// Name implements Backend.
func (r *Remote) Name() string { return "remote" }

func (r *Remote) key(slug string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, `/\`) || strings.Contains(slug, "..") {
		return "", apperr.Validation(fmt.Errorf("storage: invalid slug %q", slug))
	}
	return r.prefix + slug + "." + r.ext, nil
}

// List implements Backend. A missing bucket yields an empty list.
func (r *Remote) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	suffix := "." + r.ext
	out := []string{}
	for obj := range r.store.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{Prefix: r.prefix, Recursive: true}) {
		if obj.Err != nil {
			if minio.ToErrorResponse(obj.Err).Code == "NoSuchBucket" {
				return []string{}, nil
			}
			return nil, apperr.Unavailable(r.Name(), fmt.Errorf("list: %w", obj.Err))
		}
		name := strings.TrimPrefix(obj.Key, r.prefix)
		if !strings.HasSuffix(name, suffix) || strings.Contains(name, "/") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, suffix))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Unavailable(r.Name(), fmt.Errorf("list: %w", err))
	}
	return out, nil
}

// Read resolves a presigned retrieval URL for the object and fetches it.
func (r *Remote) Read(ctx context.Context, slug string) ([]byte, error) {
	key, err := r.key(slug)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u, err := r.store.PresignedGetObject(ctx, r.bucket, key, r.expiry, nil)
	if err != nil {
		return nil, r.classify("presign", slug, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", slug, err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, apperr.Unavailable(r.Name(), fmt.Errorf("fetch %s: %w", slug, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("storage: read %s: %w", slug, apperr.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, apperr.Unavailable(r.Name(), fmt.Errorf("fetch %s: status %d", slug, resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes+1))
	if err != nil {
		return nil, apperr.Unavailable(r.Name(), fmt.Errorf("fetch %s: %w", slug, err))
	}
	if len(data) > maxObjectBytes {
		return nil, fmt.Errorf("storage: read %s: %w: object exceeds %d bytes", slug, apperr.ErrMalformed, maxObjectBytes)
	}
	return data, nil
}

// Write implements Backend with an idempotent full-object replace.
func (r *Remote) Write(ctx context.Context, slug string, data []byte) error {
	key, err := r.key(slug)
	if err != nil {
		return err
	}
	if len(data) > maxObjectBytes {
		return apperr.Validation(fmt.Errorf("storage: write %s: document exceeds %d bytes", slug, maxObjectBytes))
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.store.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/markdown; charset=utf-8",
	})
	if err != nil {
		return apperr.Unavailable(r.Name(), fmt.Errorf("put %s: %w", slug, err))
	}
	return nil
}

// Delete removes the object, returning apperr.ErrNotFound when absent.
func (r *Remote) Delete(ctx context.Context, slug string) error {
	key, err := r.key(slug)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.store.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{}); err != nil {
		return r.classify("delete", slug, err)
	}
	if err := r.store.RemoveObject(ctx, r.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return r.classify("delete", slug, err)
	}
	return nil
}

// Exists implements Backend.
func (r *Remote) Exists(ctx context.Context, slug string) (bool, error) {
	key, err := r.key(slug)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.store.StatObject(ctx, r.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMissing(err) {
			return false, nil
		}
		return false, apperr.Unavailable(r.Name(), fmt.Errorf("stat %s: %w", slug, err))
	}
	return true, nil
}

func (r *Remote) classify(op, slug string, err error) error {
	if isMissing(err) {
		return fmt.Errorf("storage: %s %s: %w", op, slug, apperr.ErrNotFound)
	}
	return apperr.Unavailable(r.Name(), fmt.Errorf("%s %s: %w", op, slug, err))
}

func isMissing(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || (resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket")
}
