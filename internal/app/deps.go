package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/pipeline"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
)

const (
	janitorTimeout    = 30 * time.Second
	limiterIdleTTL    = 10 * time.Minute
	authLimiterPrefix = "vidtube:ratelimit:auth"
	metricsNamespace  = "vidtube"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background work and closes clients.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	trustedProxies, err := pipeline.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure trusted proxies: %w", err)
	}

	store, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}

	janitor := media.NewJanitor(store, media.JanitorConfig{
		Workers: cfg.JanitorWorkers,
		Timeout: janitorTimeout,
	}, logger)
	probe := media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout)
	mediaService := media.NewService(store, probe, janitor, cfg.UploadDir)

	users := repositories.NewPostgresUserRepository(pool)
	sessions := auth.NewManager(auth.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, repositories.NewPostgresSlotStore(pool))

	requestMetrics := metrics.New(metricsNamespace)

	closers := []func(context.Context) error{janitor.Shutdown}

	var limiter pipeline.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = middleware.NewRedisRateLimiter(client, authLimiterPrefix, cfg.AuthRateLimit, cfg.AuthRateWindow, logger)
		closers = append(closers, func(context.Context) error { return client.Close() })
	} else {
		limiter = middleware.NewIPRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.AuthRateLimit, limiterIdleTTL)
	}

	deps := handlers.Dependencies{
		Pipeline: pipeline.New(pipeline.Config{
			Tokens:         sessions,
			Users:          users,
			Metrics:        requestMetrics,
			BodyLimit:      cfg.BodyLimitBytes,
			TrustedProxies: trustedProxies,
		}),
		Users:          users,
		Sessions:       sessions,
		Videos:         repositories.NewPostgresVideoRepository(pool),
		Comments:       repositories.NewPostgresCommentRepository(pool),
		Tweets:         repositories.NewPostgresTweetRepository(pool),
		Playlists:      repositories.NewPostgresPlaylistRepository(pool),
		Likes:          repositories.NewPostgresLikeRepository(pool),
		Subscriptions:  repositories.NewPostgresSubscriptionRepository(pool),
		Dashboard:      repositories.NewPostgresDashboardRepository(pool),
		Media:          mediaService,
		AuthLimiter:    limiter,
		Metrics:        requestMetrics.Handler(),
		CookieSecure:   cfg.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	cleanup := func(ctx context.Context) error {
		var errs []error
		for _, closeFn := range closers {
			if err := closeFn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	return deps, cleanup, nil
}
