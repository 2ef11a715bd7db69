package repositories

import (
	"context"
	"fmt"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Create persists a new subscription. An existing pair yields ErrConflict and
// an unknown user ErrNotFound.
func (r *PostgresSubscriptionRepository) Create(ctx context.Context, subscription models.Subscription) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, subscription.ID, subscription.SubscriberID, subscription.ChannelID, subscription.CreatedAt, subscription.UpdatedAt)
	if err != nil {
		return writeError("insert subscription", err)
	}

	return nil
}

// Exists reports whether the subscriber follows the channel.
func (r *PostgresSubscriptionRepository) Exists(ctx context.Context, key models.SubscriptionKey) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
        )
    `, key.SubscriberID, key.ChannelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select subscription: %w", err)
	}

	return exists, nil
}

// Delete removes the subscription.
func (r *PostgresSubscriptionRepository) Delete(ctx context.Context, key models.SubscriptionKey) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
    `, key.SubscriberID, key.ChannelID)
	if err != nil {
		return 0, fmt.Errorf("delete subscription: %w", err)
	}

	return tag.RowsAffected(), nil
}
