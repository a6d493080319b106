package webhooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecognizedEvent marks provider events this service does not act on:
// unknown event types and recognized types whose payloads fail validation.
// Redelivery cannot make either normalize, so handlers acknowledge them with
// a 2xx and the provider stops redelivering.
var ErrUnrecognizedEvent = errors.New("unrecognized webhook event")

// Event is the closed set of lifecycle events this service reconciles. Exactly
// one of the pointer fields is set.
type Event struct {
	AssetCreated    *AssetCreated
	AssetReady      *AssetReady
	AssetErrored    *AssetErrored
	TranscriptReady *TranscriptReady
}

// AssetCreated signals that the provider accepted an upload and assigned an
// asset identifier. UploadID correlates the event back to the direct-upload
// session recorded at initiation.
type AssetCreated struct {
	UploadID        string
	ExternalAssetID string
}

// AssetReady signals the asset is playable. UploadID is carried so a ready
// event arriving before the created event can still correlate to its
// direct-upload row.
type AssetReady struct {
	UploadID              string
	ExternalAssetID       string
	PlaybackID            string
	Duration              float64
	StaticRenditionsReady bool
}

// AssetErrored signals the provider gave up processing the asset.
type AssetErrored struct {
	UploadID        string
	ExternalAssetID string
	Reason          string
}

// TranscriptReady signals generated transcript text is available for fetch.
type TranscriptReady struct {
	ExternalAssetID string
	TranscriptURL   string
}

// ExternalAssetID returns the asset identifier the event is keyed by.
func (e Event) ExternalAssetID() string {
	switch {
	case e.AssetCreated != nil:
		return e.AssetCreated.ExternalAssetID
	case e.AssetReady != nil:
		return e.AssetReady.ExternalAssetID
	case e.AssetErrored != nil:
		return e.AssetErrored.ExternalAssetID
	case e.TranscriptReady != nil:
		return e.TranscriptReady.ExternalAssetID
	}
	return ""
}

// Name returns a stable label for logging.
func (e Event) Name() string {
	switch {
	case e.AssetCreated != nil:
		return "asset_created"
	case e.AssetReady != nil:
		return "asset_ready"
	case e.AssetErrored != nil:
		return "asset_errored"
	case e.TranscriptReady != nil:
		return "transcript_ready"
	}
	return "unknown"
}

type assetCreatedPayload struct {
	ID       string `json:"id"`
	UploadID string `json:"upload_id"`
}

type assetReadyPayload struct {
	ID          string  `json:"id"`
	UploadID    string  `json:"upload_id"`
	Duration    float64 `json:"duration"`
	PlaybackIDs []struct {
		ID     string `json:"id"`
		Policy string `json:"policy"`
	} `json:"playback_ids"`
	StaticRenditions struct {
		Status string `json:"status"`
	} `json:"static_renditions"`
}

type assetErroredPayload struct {
	ID       string `json:"id"`
	UploadID string `json:"upload_id"`
	Errors   struct {
		Type     string   `json:"type"`
		Messages []string `json:"messages"`
	} `json:"errors"`
}

type transcriptPayload struct {
	AssetID string `json:"asset_id"`
	URL     string `json:"url"`
	Name    string `json:"name"`
}

// Normalize converts a provider event envelope into a typed lifecycle Event.
// Payload shapes are validated here so nothing loosely typed travels deeper
// into the system; anything not matching a known variant, whether an unknown
// type or an unusable payload, is ErrUnrecognizedEvent (possibly wrapped with
// the validation detail).
func Normalize(eventType string, data json.RawMessage) (Event, error) {
	switch eventType {
	case "video.asset.created":
		var payload assetCreatedPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("%w: decode asset created payload: %v", ErrUnrecognizedEvent, err)
		}
		if payload.ID == "" {
			return Event{}, fmt.Errorf("%w: asset created payload missing asset id", ErrUnrecognizedEvent)
		}
		return Event{AssetCreated: &AssetCreated{
			UploadID:        payload.UploadID,
			ExternalAssetID: payload.ID,
		}}, nil

	case "video.asset.ready":
		var payload assetReadyPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("%w: decode asset ready payload: %v", ErrUnrecognizedEvent, err)
		}
		if payload.ID == "" || len(payload.PlaybackIDs) == 0 || payload.PlaybackIDs[0].ID == "" {
			return Event{}, fmt.Errorf("%w: asset ready payload missing asset or playback id", ErrUnrecognizedEvent)
		}
		return Event{AssetReady: &AssetReady{
			UploadID:              payload.UploadID,
			ExternalAssetID:       payload.ID,
			PlaybackID:            payload.PlaybackIDs[0].ID,
			Duration:              payload.Duration,
			StaticRenditionsReady: strings.EqualFold(payload.StaticRenditions.Status, "ready"),
		}}, nil

	case "video.asset.errored":
		var payload assetErroredPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("%w: decode asset errored payload: %v", ErrUnrecognizedEvent, err)
		}
		if payload.ID == "" {
			return Event{}, fmt.Errorf("%w: asset errored payload missing asset id", ErrUnrecognizedEvent)
		}
		reason := payload.Errors.Type
		if len(payload.Errors.Messages) > 0 {
			reason = strings.Join(payload.Errors.Messages, "; ")
		}
		return Event{AssetErrored: &AssetErrored{
			UploadID:        payload.UploadID,
			ExternalAssetID: payload.ID,
			Reason:          reason,
		}}, nil

	case "video.asset.track.ready":
		var payload transcriptPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return Event{}, fmt.Errorf("%w: decode track ready payload: %v", ErrUnrecognizedEvent, err)
		}
		if payload.AssetID == "" || payload.URL == "" {
			return Event{}, fmt.Errorf("%w: track ready payload missing asset id or url", ErrUnrecognizedEvent)
		}
		return Event{TranscriptReady: &TranscriptReady{
			ExternalAssetID: payload.AssetID,
			TranscriptURL:   payload.URL,
		}}, nil
	}

	return Event{}, ErrUnrecognizedEvent
}

// Envelope is the outer JSON shape shared by provider webhooks.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
