package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/auth"
	"github.com/cliptide/backend/internal/config"
	"github.com/cliptide/backend/internal/db"
	"github.com/cliptide/backend/internal/enrichment"
	"github.com/cliptide/backend/internal/handlers"
	"github.com/cliptide/backend/internal/lifecycle"
	"github.com/cliptide/backend/internal/mediaprovider"
	"github.com/cliptide/backend/internal/middleware"
	"github.com/cliptide/backend/internal/repositories"
	"github.com/cliptide/backend/internal/storage"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour

	rateLimiterEntryTTL = 10 * time.Minute
	transcriptCacheTTL  = time.Minute
)

// buildDependencies assembles the full collaborator graph for the HTTP layer.
// The returned cleanup drains background workers and must be called on shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	comments := repositories.NewPostgresCommentRepository(pool)
	subscriptions := repositories.NewPostgresSubscriptionRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	sessions := auth.NewManager(accessTokenTTL, refreshTokenTTL, sessionStore)

	objectStore, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure object storage: %w", err)
	}

	coordinator := assets.NewCoordinator(objectStore, cfg.ExternalCallTimeout)

	urls := mediaprovider.URLs{
		ImageCDNBase:  cfg.MediaProvider.ImageCDNBase,
		StreamCDNBase: cfg.MediaProvider.StreamCDNBase,
	}

	ingestor := assets.NewThumbnailIngestor(coordinator, urls, videos, assets.ThumbnailIngestorConfig{
		FetchTimeout: cfg.ExternalCallTimeout,
	}, slog.Default())

	queue := enrichment.NewHTTPQueue(cfg.Enrichment.QueueURL, cfg.Enrichment.Token, cfg.ExternalCallTimeout)
	transcripts := enrichment.NewTranscriptFetcher(cfg.ExternalCallTimeout, transcriptCacheTTL)
	trigger := enrichment.NewTrigger(queue, transcripts, cfg.Enrichment.CallbackURL)

	reconciler := lifecycle.NewReconciler(videos, ingestor, trigger, urls)

	provider := mediaprovider.NewClient(cfg.MediaProvider.APIBaseURL, cfg.MediaProvider.Token, cfg.ExternalCallTimeout)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, rateLimiterEntryTTL)

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Videos:        videos,
		Comments:      comments,
		Subscriptions: subscriptions,
		Reconciler:    reconciler,
		Assets:        coordinator,
		Uploads:       provider,
		Limiter:       limiter,
		MediaURLs:     urls,

		MediaWebhookSecret:    cfg.MediaProvider.WebhookSecret,
		IdentityWebhookSecret: cfg.Identity.WebhookSecret,
		CallbackSecret:        cfg.Enrichment.CallbackSecret,
		CORSOrigin:            cfg.CORSOrigin,
	}

	cleanup := func(ctx context.Context) error {
		return ingestor.Shutdown(ctx)
	}

	return deps, cleanup, nil
}
