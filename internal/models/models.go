package models

import "time"

// User represents an account within the Cliptide platform. Accounts are created
// locally through signup or mirrored from the identity provider via webhook, in
// which case ExternalID carries the provider-assigned identifier.
type User struct {
	ID         string
	ExternalID string
	Email      string
	Password   string
	BannerURL  string
	BannerKey  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProcessingState tracks where a video sits in the ingest pipeline. The state
// only moves forward: waiting_upload -> processing -> ready, with errored as a
// terminal branch.
type ProcessingState string

const (
	StateWaitingUpload ProcessingState = "waiting_upload"
	StateProcessing    ProcessingState = "processing"
	StateReady         ProcessingState = "ready"
	StateErrored       ProcessingState = "errored"
)

// Rank orders processing states so stale webhook deliveries can be detected.
// Higher values are further along the pipeline; errored sorts last because it
// is terminal.
func (s ProcessingState) Rank() int {
	switch s {
	case StateWaitingUpload:
		return 0
	case StateProcessing:
		return 1
	case StateReady:
		return 2
	case StateErrored:
		return 3
	default:
		return -1
	}
}

// Video is the durable record for one uploaded video. UploadID identifies the
// direct-upload session created at upload initiation; ExternalAssetID is
// assigned by the media provider once ingest begins and never changes after
// that. PlaybackID, ThumbnailURL, and Duration are populated on the ready
// transition and are never cleared except by a terminal error.
type Video struct {
	ID              string
	OwnerID         string
	UploadID        string
	ExternalAssetID string
	PlaybackID      string
	State           ProcessingState
	Title           string
	Description     string
	ThumbnailURL    string
	ThumbnailKey    string
	PreviewURL      string
	Duration        float64
	ErrorReason     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Comment is a single top-level comment on a video.
type Comment struct {
	ID        string
	VideoID   string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Subscription records that SubscriberID follows ChannelID's uploads.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
