package repositories

import (
	"context"
	"fmt"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresDashboardRepository computes channel aggregates in PostgreSQL.
type PostgresDashboardRepository struct {
	pool db.Pool
}

// NewPostgresDashboardRepository constructs a dashboard repository backed by PostgreSQL.
func NewPostgresDashboardRepository(pool db.Pool) *PostgresDashboardRepository {
	return &PostgresDashboardRepository{pool: pool}
}

// ChannelStats counts the channel's videos, views, video likes and subscribers.
func (r *PostgresDashboardRepository) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var (
		exists bool
		stats  models.ChannelStats
	)
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM users WHERE id = $1),
               (SELECT COUNT(*) FROM videos WHERE owner_id = $1),
               (SELECT COALESCE(SUM(views), 0)::BIGINT FROM videos WHERE owner_id = $1),
               (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.target_id
                 WHERE l.target = 'video' AND v.owner_id = $1),
               (SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1)
    `, channelID).Scan(&exists, &stats.TotalVideos, &stats.TotalViews, &stats.TotalLikes, &stats.TotalSubscribers)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("select channel stats: %w", err)
	}

	if !exists {
		return models.ChannelStats{}, ErrNotFound
	}

	return stats, nil
}
