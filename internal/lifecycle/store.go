package lifecycle

import (
	"context"
	"errors"

	"github.com/cliptide/backend/internal/models"
)

// ErrUnknownAsset indicates no video record matches the event's asset or
// upload identifier. Store implementations must return it (possibly wrapped)
// so the reconciler can acknowledge the event instead of triggering provider
// retries that can never succeed.
var ErrUnknownAsset = errors.New("no video record for asset")

// Store is the slice of the video record store the reconciler depends on.
//
// Transition performs an atomic read-modify-write on the record matching
// externalAssetID, falling back to uploadID when the asset identifier has not
// been persisted yet (the first AssetCreated delivery). The decision function
// runs under a row-level lock and reports whether it mutated the record; when
// it returns false the stored record is left untouched and the returned bool
// is false. Concurrent deliveries for the same asset serialize on the lock;
// distinct assets never contend.
type Store interface {
	Transition(ctx context.Context, externalAssetID, uploadID string, apply func(v *models.Video) (bool, error)) (models.Video, bool, error)
	FindByExternalAssetID(ctx context.Context, externalAssetID string) (models.Video, error)
}
