package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/db"
	"github.com/cliptide/backend/internal/lifecycle"
	"github.com/cliptide/backend/internal/models"
)

// Empty asset identifiers are stored as NULL so the unique index only guards
// records the provider has actually correlated.
const videoColumns = `id, owner_id, upload_id, COALESCE(external_asset_id, ''), playback_id, state,
        title, description, thumbnail_url, thumbnail_key, preview_url,
        duration_seconds, error_reason, created_at, updated_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
// It also serves as the lifecycle store, applying state transitions under a
// row lock so concurrent webhook deliveries for the same asset serialise.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create persists a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, upload_id, external_asset_id, playback_id, state,
            title, description, thumbnail_url, thumbnail_key, preview_url,
            duration_seconds, error_reason, created_at, updated_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `, video.ID, video.OwnerID, video.UploadID, video.ExternalAssetID, video.PlaybackID, video.State,
		video.Title, video.Description, video.ThumbnailURL, video.ThumbnailKey, video.PreviewURL,
		video.Duration, video.ErrorReason, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a video by its internal identifier.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	return r.findBy(ctx, "id", id)
}

// FindByExternalAssetID fetches a video by the media provider's asset id. A
// miss reports lifecycle.ErrUnknownAsset so webhook callers can acknowledge
// events for assets this deployment never created.
func (r *PostgresVideoRepository) FindByExternalAssetID(ctx context.Context, externalAssetID string) (models.Video, error) {
	video, err := r.findBy(ctx, "external_asset_id", externalAssetID)
	if errors.Is(err, ErrNotFound) {
		return models.Video{}, lifecycle.ErrUnknownAsset
	}
	return video, err
}

// FindByUploadID fetches a video by the provider upload that created it.
func (r *PostgresVideoRepository) FindByUploadID(ctx context.Context, uploadID string) (models.Video, error) {
	return r.findBy(ctx, "upload_id", uploadID)
}

func (r *PostgresVideoRepository) findBy(ctx context.Context, column, value string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s
        FROM videos
        WHERE %s = $1
    `, videoColumns, column), value)

	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video by %s: %w", column, err)
	}

	return video, nil
}

// UpdateMeta sets a video's title and description.
func (r *PostgresVideoRepository) UpdateMeta(ctx context.Context, id, title, description string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, updated_at = NOW()
        WHERE id = $1
    `, id, title, description)
	if err != nil {
		return fmt.Errorf("update video meta: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SetThumbnail persists a replaced thumbnail pointer onto the video record.
func (r *PostgresVideoRepository) SetThumbnail(ctx context.Context, videoID string, p assets.Pointer) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET thumbnail_url = $2, thumbnail_key = $3, updated_at = NOW()
        WHERE id = $1
    `, videoID, p.URL, p.Key)
	if err != nil {
		return fmt.Errorf("update video thumbnail: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFeed returns ready videos from channels the user subscribes to, newest first.
func (r *PostgresVideoRepository) ListFeed(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT %s
        FROM videos
        WHERE state = $1
          AND owner_id IN (
              SELECT channel_id FROM subscriptions WHERE subscriber_id = $2
          )
        ORDER BY created_at DESC
    `, videoColumns), models.StateReady, userID)
	if err != nil {
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	return collectVideos(rows)
}

// ListByOwner returns all of a user's videos regardless of state, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, fmt.Sprintf(`
        SELECT %s
        FROM videos
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, videoColumns), ownerID)
	if err != nil {
		return nil, fmt.Errorf("query videos by owner: %w", err)
	}
	defer rows.Close()

	return collectVideos(rows)
}

// Transition loads the video for an asset under a row lock, applies the
// mutation, and writes the result back before committing. The lookup prefers
// external_asset_id and falls back to upload_id for records that have not yet
// been correlated with a provider asset.
func (r *PostgresVideoRepository) Transition(ctx context.Context, externalAssetID, uploadID string, apply func(v *models.Video) (bool, error)) (models.Video, bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Video{}, false, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	video, err := lockVideo(ctx, tx, externalAssetID, uploadID)
	if err != nil {
		return models.Video{}, false, err
	}

	changed, err := apply(&video)
	if err != nil {
		return models.Video{}, false, err
	}
	if !changed {
		return video, false, nil
	}

	tag, err := tx.Exec(ctx, `
        UPDATE videos
        SET external_asset_id = NULLIF($2, ''), playback_id = $3, state = $4,
            title = $5, description = $6, preview_url = $7,
            duration_seconds = $8, error_reason = $9, updated_at = NOW()
        WHERE id = $1
    `, video.ID, video.ExternalAssetID, video.PlaybackID, video.State,
		video.Title, video.Description, video.PreviewURL,
		video.Duration, video.ErrorReason)
	if err != nil {
		return models.Video{}, false, fmt.Errorf("update video state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Video{}, false, lifecycle.ErrUnknownAsset
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Video{}, false, fmt.Errorf("commit transition: %w", err)
	}

	return video, true, nil
}

func lockVideo(ctx context.Context, tx pgx.Tx, externalAssetID, uploadID string) (models.Video, error) {
	if externalAssetID != "" {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            SELECT %s
            FROM videos
            WHERE external_asset_id = $1
            FOR UPDATE
        `, videoColumns), externalAssetID)

		video, err := scanVideo(row)
		if err == nil {
			return video, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, fmt.Errorf("lock video by asset id: %w", err)
		}
	}

	if uploadID == "" {
		return models.Video{}, lifecycle.ErrUnknownAsset
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s
        FROM videos
        WHERE upload_id = $1 AND external_asset_id IS NULL
        FOR UPDATE
    `, videoColumns), uploadID)

	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, lifecycle.ErrUnknownAsset
		}
		return models.Video{}, fmt.Errorf("lock video by upload id: %w", err)
	}

	return video, nil
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	err := row.Scan(&video.ID, &video.OwnerID, &video.UploadID, &video.ExternalAssetID, &video.PlaybackID, &video.State,
		&video.Title, &video.Description, &video.ThumbnailURL, &video.ThumbnailKey, &video.PreviewURL,
		&video.Duration, &video.ErrorReason, &video.CreatedAt, &video.UpdatedAt)
	return video, err
}

func collectVideos(rows pgx.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
var _ lifecycle.Store = (*PostgresVideoRepository)(nil)
var _ assets.ThumbnailUpdater = (*PostgresVideoRepository)(nil)
