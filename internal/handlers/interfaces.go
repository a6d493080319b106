package handlers

import (
	"context"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/enrichment"
	"github.com/cliptide/backend/internal/lifecycle"
	"github.com/cliptide/backend/internal/mediaprovider"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/webhooks"
)

// UserStore captures the persistence operations required by the user-facing handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpsertByExternalID(ctx context.Context, user models.User) error
	DeleteByExternalID(ctx context.Context, externalID string) error
	SetBanner(ctx context.Context, userID string, p assets.Pointer) error
}

// SessionManager issues, refreshes, and authenticates session tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// VideoStore captures persistence for upload and playback workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	UpdateMeta(ctx context.Context, id, title, description string) error
	SetThumbnail(ctx context.Context, videoID string, p assets.Pointer) error
	ListFeed(ctx context.Context, userID string) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	ListForSubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// UploadProvider initiates direct uploads at the managed media provider.
type UploadProvider interface {
	CreateDirectUpload(ctx context.Context, corsOrigin, passthrough string) (mediaprovider.DirectUpload, error)
}

// EventReconciler applies verified provider events to video records.
type EventReconciler interface {
	Apply(ctx context.Context, event webhooks.Event) (lifecycle.Outcome, error)
	ApplyEnrichment(ctx context.Context, completion enrichment.Completion) (lifecycle.Outcome, error)
}

// AssetReplacer swaps a stored binary asset for a new one.
type AssetReplacer interface {
	Replace(ctx context.Context, owned assets.Owned, callerID string, src assets.Source) (assets.Pointer, error)
}
