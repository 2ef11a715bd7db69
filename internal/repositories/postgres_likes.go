package repositories

import (
	"context"
	"fmt"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Exists reports whether the user currently likes the target.
func (r *PostgresLikeRepository) Exists(ctx context.Context, key models.LikeKey) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM likes WHERE liked_by = $1 AND target = $2 AND target_id = $3
        )
    `, key.LikedBy, string(key.Target), key.TargetID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select like: %w", err)
	}

	return exists, nil
}

// Add records a like.
func (r *PostgresLikeRepository) Add(ctx context.Context, like models.Like) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, liked_by, target, target_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, like.ID, like.LikedBy, string(like.Target), like.TargetID, like.CreatedAt)
	if err != nil {
		return writeError("insert like", err)
	}

	return nil
}

// Remove deletes the user's likes on the target and reports how many went.
func (r *PostgresLikeRepository) Remove(ctx context.Context, key models.LikeKey) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes WHERE liked_by = $1 AND target = $2 AND target_id = $3
    `, key.LikedBy, string(key.Target), key.TargetID)
	if err != nil {
		return 0, fmt.Errorf("delete like: %w", err)
	}

	return tag.RowsAffected(), nil
}

// LikedVideos returns the published videos the user liked, most recent like first.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoWithOwnerColumns+`
        FROM likes l
        JOIN videos v ON v.id = l.target_id
        JOIN users o ON o.id = v.owner_id
        WHERE l.liked_by = $1 AND l.target = 'video' AND v.is_published
        ORDER BY l.created_at DESC, l.id DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}

	return collectVideosWithOwner(rows, "liked videos")
}
