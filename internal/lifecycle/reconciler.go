package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/enrichment"
	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/mediaprovider"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/webhooks"
)

// Outcome describes how the reconciler disposed of an event. Everything except
// an infrastructure error is acknowledged to the provider; redelivering a
// duplicate, stale, or unknown event can never change the result.
type Outcome string

const (
	// OutcomeApplied means the event moved the record forward.
	OutcomeApplied Outcome = "applied"
	// OutcomeDuplicate means the event had already been applied; redelivery no-op.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored means the event would have regressed the record or hit a
	// terminal state; dropped and logged as an anomaly.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeUnknownAsset means no record matches the event's identifiers.
	OutcomeUnknownAsset Outcome = "unknown_asset"
)

// ThumbnailEnqueuer schedules post-commit thumbnail derivation.
type ThumbnailEnqueuer interface {
	Enqueue(ctx context.Context, job assets.IngestJob) error
}

// Enricher submits title and description generation jobs for an asset's transcript.
type Enricher interface {
	EnqueueTextJobs(ctx context.Context, externalAssetID, transcriptURL string) error
}

// Reconciler applies normalized provider events to video records as forward-only,
// idempotent state transitions. The authoritative state write commits inside the
// store transaction before any slow side effect runs, so redeliveries observe
// the new state and perform no duplicate work.
type Reconciler struct {
	store    Store
	thumbs   ThumbnailEnqueuer
	enricher Enricher
	urls     mediaprovider.URLs
}

// NewReconciler wires the reconciler's collaborators.
func NewReconciler(store Store, thumbs ThumbnailEnqueuer, enricher Enricher, urls mediaprovider.URLs) *Reconciler {
	return &Reconciler{store: store, thumbs: thumbs, enricher: enricher, urls: urls}
}

// Apply reconciles one lifecycle event. A non-nil error means infrastructure
// failure; the caller should respond non-2xx so the provider redelivers.
func (r *Reconciler) Apply(ctx context.Context, event webhooks.Event) (Outcome, error) {
	ctx, span := logging.StartSpan(ctx, "lifecycle.apply")
	defer span.End()

	logger := logging.FromContext(ctx).With("event", event.Name(), "externalAssetId", event.ExternalAssetID())

	switch {
	case event.AssetCreated != nil:
		return r.applyCreated(ctx, event.AssetCreated)
	case event.AssetReady != nil:
		return r.applyReady(ctx, event.AssetReady)
	case event.AssetErrored != nil:
		return r.applyErrored(ctx, event.AssetErrored)
	case event.TranscriptReady != nil:
		return r.applyTranscript(ctx, event.TranscriptReady)
	}

	logger.Warn("empty lifecycle event dropped")
	return OutcomeIgnored, nil
}

func (r *Reconciler) applyCreated(ctx context.Context, ev *webhooks.AssetCreated) (Outcome, error) {
	logger := logging.FromContext(ctx)
	outcome := OutcomeDuplicate

	_, changed, err := r.store.Transition(ctx, ev.ExternalAssetID, ev.UploadID, func(v *models.Video) (bool, error) {
		if v.State.Rank() > models.StateProcessing.Rank() {
			// The record already moved past creation; a created event now is
			// a stale redelivery.
			outcome = OutcomeIgnored
			logger.Warn("stale asset created event", "externalAssetId", ev.ExternalAssetID, "state", string(v.State))
			return false, nil
		}
		switch v.State {
		case models.StateWaitingUpload:
			if v.ExternalAssetID == "" {
				v.ExternalAssetID = ev.ExternalAssetID
			}
			v.State = models.StateProcessing
			return true, nil
		case models.StateProcessing:
			// Provider redelivered; already recorded.
			return false, nil
		}
		return false, fmt.Errorf("unexpected processing state %q", v.State)
	})
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			logger.Warn("asset created for unknown upload", "externalAssetId", ev.ExternalAssetID, "uploadId", ev.UploadID)
			return OutcomeUnknownAsset, nil
		}
		return "", fmt.Errorf("apply asset created: %w", err)
	}

	if changed {
		return OutcomeApplied, nil
	}
	return outcome, nil
}

func (r *Reconciler) applyReady(ctx context.Context, ev *webhooks.AssetReady) (Outcome, error) {
	logger := logging.FromContext(ctx)
	outcome := OutcomeDuplicate

	// The upload id rides along so a ready event that outruns the created
	// event still finds the row awaiting correlation.
	video, changed, err := r.store.Transition(ctx, ev.ExternalAssetID, ev.UploadID, func(v *models.Video) (bool, error) {
		switch v.State {
		case models.StateWaitingUpload, models.StateProcessing:
			r.promote(v, ev)
			return true, nil
		case models.StateReady:
			if v.PlaybackID == ev.PlaybackID {
				// Identical redelivery; side effects already ran off the
				// committed record.
				return false, nil
			}
			// Re-ingest: the provider assigned a fresh playback id, so the
			// derived assets are replaced wholesale.
			r.promote(v, ev)
			return true, nil
		case models.StateErrored:
			outcome = OutcomeIgnored
			logger.Warn("asset ready event on terminal record", "externalAssetId", ev.ExternalAssetID)
			return false, nil
		}
		return false, fmt.Errorf("unexpected processing state %q", v.State)
	})
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			logger.Warn("asset ready for unknown asset", "externalAssetId", ev.ExternalAssetID)
			return OutcomeUnknownAsset, nil
		}
		return "", fmt.Errorf("apply asset ready: %w", err)
	}

	if !changed {
		return outcome, nil
	}

	// The ready state is durable; thumbnail derivation runs off the request
	// path and replaces the previous pointer (if any) under the
	// upload-then-delete contract.
	job := assets.IngestJob{
		VideoID:    video.ID,
		PlaybackID: ev.PlaybackID,
		Previous:   assets.Pointer{URL: video.ThumbnailURL, Key: video.ThumbnailKey},
	}
	if err := r.thumbs.Enqueue(ctx, job); err != nil {
		logger.Error("enqueue thumbnail ingestion", "videoId", video.ID, "error", err)
	}

	return OutcomeApplied, nil
}

func (r *Reconciler) applyErrored(ctx context.Context, ev *webhooks.AssetErrored) (Outcome, error) {
	logger := logging.FromContext(ctx)
	outcome := OutcomeDuplicate

	_, changed, err := r.store.Transition(ctx, ev.ExternalAssetID, ev.UploadID, func(v *models.Video) (bool, error) {
		if v.State == models.StateErrored {
			// Terminal; redelivery or repeated failure notice.
			return false, nil
		}
		if v.ExternalAssetID == "" {
			v.ExternalAssetID = ev.ExternalAssetID
		}
		v.State = models.StateErrored
		v.ErrorReason = ev.Reason
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			logger.Warn("asset errored for unknown asset", "externalAssetId", ev.ExternalAssetID)
			return OutcomeUnknownAsset, nil
		}
		return "", fmt.Errorf("apply asset errored: %w", err)
	}

	if changed {
		logger.Info("asset entered terminal error state", "externalAssetId", ev.ExternalAssetID, "reason", ev.Reason)
		return OutcomeApplied, nil
	}
	return outcome, nil
}

func (r *Reconciler) applyTranscript(ctx context.Context, ev *webhooks.TranscriptReady) (Outcome, error) {
	logger := logging.FromContext(ctx)

	// State is untouched; the event only gates enrichment. The record must
	// exist so completions have somewhere to land.
	if _, err := r.store.FindByExternalAssetID(ctx, ev.ExternalAssetID); err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			logger.Warn("transcript ready for unknown asset", "externalAssetId", ev.ExternalAssetID)
			return OutcomeUnknownAsset, nil
		}
		return "", fmt.Errorf("apply transcript ready: %w", err)
	}

	if err := r.enricher.EnqueueTextJobs(ctx, ev.ExternalAssetID, ev.TranscriptURL); err != nil {
		if errors.Is(err, enrichment.ErrTranscriptUnavailable) {
			logger.Warn("transcript not fetchable, enrichment skipped", "externalAssetId", ev.ExternalAssetID, "url", ev.TranscriptURL)
			return OutcomeIgnored, nil
		}
		return "", fmt.Errorf("enqueue enrichment jobs: %w", err)
	}

	return OutcomeApplied, nil
}

// ApplyEnrichment lands a completed background job's single text field on the
// matching record. Last write wins; there is no merge with concurrent user
// edits.
func (r *Reconciler) ApplyEnrichment(ctx context.Context, completion enrichment.Completion) (Outcome, error) {
	logger := logging.FromContext(ctx).With("externalAssetId", completion.ExternalAssetID, "kind", string(completion.Kind))

	if completion.Error != "" {
		logger.Warn("enrichment job failed, field left unchanged", "jobError", completion.Error)
		return OutcomeIgnored, nil
	}

	outcome := OutcomeDuplicate
	_, changed, err := r.store.Transition(ctx, completion.ExternalAssetID, "", func(v *models.Video) (bool, error) {
		if v.State == models.StateErrored {
			outcome = OutcomeIgnored
			logger.Warn("enrichment completion on terminal record")
			return false, nil
		}
		switch completion.Kind {
		case enrichment.KindTitle:
			if v.Title == completion.Text {
				return false, nil
			}
			v.Title = completion.Text
		case enrichment.KindDescription:
			if v.Description == completion.Text {
				return false, nil
			}
			v.Description = completion.Text
		default:
			outcome = OutcomeIgnored
			logger.Warn("enrichment completion with unknown kind")
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownAsset) {
			logger.Warn("enrichment completion for unknown asset")
			return OutcomeUnknownAsset, nil
		}
		return "", fmt.Errorf("apply enrichment completion: %w", err)
	}

	if changed {
		return OutcomeApplied, nil
	}
	return outcome, nil
}

func (r *Reconciler) promote(v *models.Video, ev *webhooks.AssetReady) {
	if v.ExternalAssetID == "" {
		v.ExternalAssetID = ev.ExternalAssetID
	}
	v.State = models.StateReady
	v.PlaybackID = ev.PlaybackID
	v.Duration = ev.Duration
	v.PreviewURL = r.urls.AnimatedPreview(ev.PlaybackID)
	v.ErrorReason = ""
}
