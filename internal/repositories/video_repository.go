package repositories

import (
	"context"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindByExternalAssetID(ctx context.Context, externalAssetID string) (models.Video, error)
	FindByUploadID(ctx context.Context, uploadID string) (models.Video, error)
	UpdateMeta(ctx context.Context, id, title, description string) error
	SetThumbnail(ctx context.Context, videoID string, p assets.Pointer) error
	ListFeed(ctx context.Context, userID string) ([]models.Video, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
}
