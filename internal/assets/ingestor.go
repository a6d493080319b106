package assets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/mediaprovider"
)

// ThumbnailUpdater persists a derived thumbnail pointer onto a video record.
type ThumbnailUpdater interface {
	SetThumbnail(ctx context.Context, videoID string, p Pointer) error
}

// IngestJob asks for a video's thumbnail to be copied from the provider CDN
// into application-owned storage. Previous carries the pointer being replaced
// so the old object can be cleaned up.
type IngestJob struct {
	VideoID    string
	PlaybackID string
	Previous   Pointer
}

// ThumbnailIngestorConfig controls the concurrency characteristics of the ingestor.
type ThumbnailIngestorConfig struct {
	QueueSize    int
	Workers      int
	FetchTimeout time.Duration
}

// ThumbnailIngestor copies poster frames into durable storage after a video's
// ready transition has been committed. The copy happens off the webhook request
// path; the committed record is the source of truth, so a redelivered webhook
// never re-enqueues the same job.
type ThumbnailIngestor struct {
	coordinator *Coordinator
	urls        mediaprovider.URLs
	updater     ThumbnailUpdater
	client      *http.Client
	logger      *slog.Logger

	jobs   chan IngestJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var errIngestorClosed = errors.New("thumbnail ingestor closed")

// NewThumbnailIngestor constructs a background worker pool that derives thumbnails.
func NewThumbnailIngestor(coordinator *Coordinator, urls mediaprovider.URLs, updater ThumbnailUpdater, cfg ThumbnailIngestorConfig, logger *slog.Logger) *ThumbnailIngestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &ThumbnailIngestor{
		coordinator: coordinator,
		urls:        urls,
		updater:     updater,
		client:      &http.Client{Timeout: cfg.FetchTimeout},
		logger:      logger,
		jobs:        make(chan IngestJob, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules thumbnail derivation for the supplied video.
func (i *ThumbnailIngestor) Enqueue(ctx context.Context, job IngestJob) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *ThumbnailIngestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Workers drain the channel to close so jobs accepted before Shutdown still run.
func (i *ThumbnailIngestor) worker() {
	defer i.wg.Done()

	for job := range i.jobs {
		i.handleJob(job)
	}
}

func (i *ThumbnailIngestor) handleJob(job IngestJob) {
	if i.coordinator == nil || i.updater == nil {
		i.logger.Error("thumbnail ingestor missing dependencies", "hasCoordinator", i.coordinator != nil, "hasUpdater", i.updater != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*i.client.Timeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, i.logger.With("videoId", job.VideoID, "playbackId", job.PlaybackID))

	src := URLSource{Client: i.client, URL: i.urls.Thumbnail(job.PlaybackID)}
	owned := Owned{
		Scope:   "thumbnails/" + job.VideoID,
		Current: job.Previous,
		Persist: func(ctx context.Context, p Pointer) error {
			return i.updater.SetThumbnail(ctx, job.VideoID, p)
		},
	}

	if _, err := i.coordinator.Replace(ctx, owned, SystemCaller, src); err != nil {
		// The record is already ready and playable; a missing derived
		// thumbnail is not a lifecycle failure.
		i.logger.Error("thumbnail ingestion failed", "videoId", job.VideoID, "playbackId", job.PlaybackID, "error", err)
	}
}
