package repositories

import (
	"context"

	"github.com/cliptide/backend/internal/models"
)

// SubscriptionRepository defines data access for channel subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub models.Subscription) error
	Delete(ctx context.Context, subscriberID, channelID string) error
	ListForSubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error)
}

// CommentRepository defines data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error)
}
