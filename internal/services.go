package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/markdown"
	"github.com/starford/folio/internal/storage"
)

// services are the components shared by every entry point.
type services struct {
	local    *storage.Local
	repo     *content.Repository
	renderer *markdown.Renderer
	registry *prometheus.Registry
	closers  []func() error
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOut: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// build wires storage, the repository and the renderer. Remote storage is
// attached only when remote.enabled is set; the Redis cache is optional and
// skipped with a warning when unreachable.
func (a *application) build(ctx context.Context, logger *slog.Logger) (*services, error) {
	cfg := a.config
	s := &services{registry: prometheus.NewRegistry()}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := storage.NewMetrics(s.registry)

	local, err := storage.NewLocal(cfg.Content.LocalRoot, cfg.Content.Extension)
	if err != nil {
		return nil, fmt.Errorf("init local storage: %w", err)
	}
	s.local = local

	repoOpts := []content.Option{content.WithLogger(logger)}
	if cfg.Remote.Enabled {
		client, err := storage.DialMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.Remote.Endpoint,
			AccessKey: cfg.Remote.AccessKey,
			SecretKey: cfg.Remote.SecretKey,
			Region:    cfg.Remote.Region,
			UseSSL:    cfg.Remote.UseSSL,
			Bucket:    cfg.Remote.Bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("init remote storage: %w", err)
		}
		remote, err := storage.NewRemote(client, storage.RemoteConfig{
			Bucket:        cfg.Remote.Bucket,
			Prefix:        cfg.Remote.Prefix,
			Ext:           cfg.Content.Extension,
			Timeout:       cfg.Remote.Timeout,
			PresignExpiry: cfg.Remote.PresignExpiry,
		})
		if err != nil {
			return nil, fmt.Errorf("init remote storage: %w", err)
		}
		repoOpts = append(repoOpts, content.WithRemote(storage.Instrument(remote, metrics)))
	}
	s.repo = content.New(storage.Instrument(local, metrics), repoOpts...)

	renderOpts := []markdown.Option{markdown.WithLogger(logger)}
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, rendering without cache",
				slog.String("addr", cfg.Cache.RedisAddr),
				slog.String("error", err.Error()))
			_ = client.Close()
		} else {
			renderOpts = append(renderOpts, markdown.WithCache(markdown.NewRedisCache(client, cfg.Cache.TTL)))
			s.closers = append(s.closers, client.Close)
		}
	}
	s.renderer = markdown.New(renderOpts...)

	return s, nil
}

func (s *services) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// ListSlugs returns the slugs of local articles only, as used for static
// page generation. The remote store is never contacted.
func ListSlugs(ctx context.Context, opts ...Option) ([]string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.logger()

	static := *app.config
	static.Remote.Enabled = false
	app.config = &static

	s, err := app.build(ctx, logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.repo.Static().ListSlugs(ctx)
}
