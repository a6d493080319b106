package enrichment

import (
	"context"
	"fmt"

	"github.com/cliptide/backend/internal/logging"
)

// TranscriptChecker confirms transcript text is actually fetchable before jobs
// are submitted.
type TranscriptChecker interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Trigger is the fire-and-forget submission point for text enrichment. One
// TranscriptReady event fans out into a title job and a description job, each
// carrying its own idempotency key.
type Trigger struct {
	queue       Queue
	transcripts TranscriptChecker
	callbackURL string
}

// NewTrigger wires the trigger's collaborators. transcripts may be nil to skip
// the availability probe.
func NewTrigger(queue Queue, transcripts TranscriptChecker, callbackURL string) *Trigger {
	return &Trigger{queue: queue, transcripts: transcripts, callbackURL: callbackURL}
}

// EnqueueTextJobs submits a title job and a description job for the asset.
// Returns ErrTranscriptUnavailable (wrapped) when the transcript 404s; the
// caller logs and acknowledges, since the asset's state is unaffected.
func (t *Trigger) EnqueueTextJobs(ctx context.Context, externalAssetID, transcriptURL string) error {
	if t == nil || t.queue == nil {
		return ErrQueueUnavailable
	}

	if t.transcripts != nil {
		if _, err := t.transcripts.Fetch(ctx, transcriptURL); err != nil {
			return fmt.Errorf("probe transcript for %s: %w", externalAssetID, err)
		}
	}

	logger := logging.FromContext(ctx)

	for _, kind := range []Kind{KindTitle, KindDescription} {
		job := Job{
			ExternalAssetID: externalAssetID,
			Kind:            kind,
			TranscriptURL:   transcriptURL,
			CallbackURL:     t.callbackURL,
		}
		jobID, err := t.queue.Enqueue(ctx, job, IdempotencyKey(externalAssetID, kind))
		if err != nil {
			return fmt.Errorf("enqueue %s job: %w", kind, err)
		}
		logger.Info("enrichment job enqueued", "externalAssetId", externalAssetID, "kind", string(kind), "jobId", jobID)
	}

	return nil
}
