package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cliptide/backend/internal/logging"
)

var (
	// ErrNotOwner indicates the caller does not own the entity whose asset
	// they attempted to replace.
	ErrNotOwner = errors.New("caller does not own asset")
	// ErrStorageUnavailable indicates the coordinator has no storage backend.
	ErrStorageUnavailable = errors.New("asset storage unavailable")
)

// Pointer references one stored binary asset. Key identifies the object inside
// the application-owned bucket and is eligible for deletion once replaced; URL
// is the public location served to clients.
type Pointer struct {
	URL string
	Key string
}

// Storage is the contract with the object store. Delete of an already-absent
// key must succeed so cleanup stays idempotent.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Source supplies the bytes for a new asset.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, string, error)
}

// Owned describes the entity an asset hangs off: who owns it, which object is
// currently attached, and how to persist a new pointer onto the owning record.
type Owned struct {
	OwnerID string
	Scope   string
	Current Pointer
	Persist func(ctx context.Context, p Pointer) error
}

// Coordinator replaces binary assets (thumbnails, banners) attached to owner
// entities without leaking storage or dropping the previous working asset
// before the new one is live.
type Coordinator struct {
	storage Storage
	timeout time.Duration
}

// NewCoordinator constructs a Coordinator bounded by the provided per-call
// timeout for storage I/O.
func NewCoordinator(storage Storage, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Coordinator{storage: storage, timeout: timeout}
}

// SystemCaller marks a replacement driven by webhook reconciliation rather
// than an end-user request; ownership checks do not apply.
const SystemCaller = ""

// Replace uploads the new asset, persists its pointer on the owning record,
// and only then deletes the previously attached object. The ordering is
// deliberate: upload-before-delete guarantees the entity always points at some
// valid asset, at the cost of transiently storing two objects. A failed delete
// of the old key after the new pointer is live is logged and swallowed; the
// orphan is a non-corrupting leak reconciled elsewhere.
func (c *Coordinator) Replace(ctx context.Context, owned Owned, callerID string, src Source) (Pointer, error) {
	if c == nil || c.storage == nil {
		return Pointer{}, ErrStorageUnavailable
	}
	if callerID != SystemCaller && callerID != owned.OwnerID {
		return Pointer{}, ErrNotOwner
	}

	body, contentType, err := src.Open(ctx)
	if err != nil {
		return Pointer{}, fmt.Errorf("open asset source: %w", err)
	}
	defer body.Close()

	key := c.objectKey(owned.Scope, contentType)

	uploadCtx, cancel := context.WithTimeout(ctx, c.timeout)
	url, err := c.storage.Upload(uploadCtx, key, contentType, body)
	cancel()
	if err != nil {
		return Pointer{}, fmt.Errorf("upload replacement asset: %w", err)
	}

	next := Pointer{URL: url, Key: key}

	if owned.Persist != nil {
		if err := owned.Persist(ctx, next); err != nil {
			// The pointer never became live; remove the fresh object so the
			// failed attempt does not leak.
			c.deleteQuietly(ctx, key, "rollback unpersisted asset")
			return Pointer{}, fmt.Errorf("persist asset pointer: %w", err)
		}
	}

	if owned.Current.Key != "" && owned.Current.Key != key {
		c.deleteQuietly(ctx, owned.Current.Key, "delete replaced asset")
	}

	return next, nil
}

func (c *Coordinator) deleteQuietly(ctx context.Context, key, op string) {
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.storage.Delete(deleteCtx, key); err != nil {
		logging.FromContext(ctx).Error("asset cleanup failed", "op", op, "key", key, "error", err)
	}
}

func (c *Coordinator) objectKey(scope, contentType string) string {
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	}
	if scope == "" {
		scope = "assets"
	}
	return fmt.Sprintf("%s/%s%s", scope, uuid.NewString(), ext)
}
