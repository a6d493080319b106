package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/db"
	"github.com/cliptide/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, external_id, email, password_hash, banner_url, banner_key, created_at, updated_at)
        VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
    `, user.ID, user.ExternalID, user.Email, user.Password, user.BannerURL, user.BannerKey, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by their internal identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findBy(ctx, "id", id)
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *PostgresUserRepository) findBy(ctx context.Context, column, value string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, fmt.Sprintf(`
        SELECT id, COALESCE(external_id, ''), email, password_hash, banner_url, banner_key, created_at, updated_at
        FROM users
        WHERE %s = $1
    `, column), value)

	var user models.User
	if err := row.Scan(&user.ID, &user.ExternalID, &user.Email, &user.Password, &user.BannerURL, &user.BannerKey, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", column, err)
	}

	return user, nil
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, password_hash = $3, updated_at = $4
        WHERE id = $1
    `, user.ID, user.Email, user.Password, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpsertByExternalID mirrors an identity-provider user into the local store.
// Redelivered identity webhooks land on the conflict branch and are harmless.
func (r *PostgresUserRepository) UpsertByExternalID(ctx context.Context, user models.User) error {
	if user.ExternalID == "" {
		return fmt.Errorf("upsert user: external id is required")
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, external_id, email, password_hash, banner_url, banner_key, created_at, updated_at)
        VALUES ($1, $2, $3, '', '', '', $4, $5)
        ON CONFLICT (external_id)
        DO UPDATE SET email = EXCLUDED.email, updated_at = EXCLUDED.updated_at
    `, user.ID, user.ExternalID, user.Email, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user by external id: %w", err)
	}

	return nil
}

// DeleteByExternalID removes a user mirrored from the identity provider.
// Deleting an unknown external id is a no-op so redeliveries stay idempotent.
func (r *PostgresUserRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `DELETE FROM users WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("delete user by external id: %w", err)
	}

	return nil
}

// SetBanner persists a replaced banner pointer onto the user record.
func (r *PostgresUserRepository) SetBanner(ctx context.Context, userID string, p assets.Pointer) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET banner_url = $2, banner_key = $3, updated_at = NOW()
        WHERE id = $1
    `, userID, p.URL, p.Key)
	if err != nil {
		return fmt.Errorf("update user banner: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create persists a new subscription.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, sub models.Subscription) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

// Delete removes a subscription pair.
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListForSubscriber returns the channels a user follows, newest first.
func (r *PostgresSubscriptionRepository) ListForSubscriber(ctx context.Context, subscriberID string) ([]models.Subscription, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, subscriber_id, channel_id, created_at
        FROM subscriptions
        WHERE subscriber_id = $1
        ORDER BY created_at DESC
    `, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.SubscriberID, &sub.ChannelID, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create persists a new comment.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, author_id, body, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, comment.ID, comment.VideoID, comment.AuthorID, comment.Body, comment.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// ListForVideo returns a video's comments, newest first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string) ([]models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, video_id, author_id, body, created_at
        FROM comments
        WHERE video_id = $1
        ORDER BY created_at DESC
    `, videoID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.VideoID, &comment.AuthorID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
var _ CommentRepository = (*PostgresCommentRepository)(nil)
