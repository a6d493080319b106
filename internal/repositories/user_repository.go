package repositories

import (
	"context"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	UpsertByExternalID(ctx context.Context, user models.User) error
	DeleteByExternalID(ctx context.Context, externalID string) error
	SetBanner(ctx context.Context, userID string, p assets.Pointer) error
}
