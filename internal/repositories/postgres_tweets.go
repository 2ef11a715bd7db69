package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/models"
)

const tweetColumns = `t.id, t.owner_id, t.content, t.created_at, t.updated_at`

func scanTweet(row rowScanner) (models.Tweet, error) {
	var tweet models.Tweet
	err := row.Scan(&tweet.ID, &tweet.OwnerID, &tweet.Content, &tweet.CreatedAt, &tweet.UpdatedAt)
	return tweet, err
}

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create persists a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		return writeError("insert tweet", err)
	}

	return nil
}

// FindByID fetches a tweet by identifier.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tweet, err := scanTweet(conn.QueryRow(ctx, `SELECT `+tweetColumns+` FROM tweets t WHERE t.id = $1`, id))
	if err != nil {
		return models.Tweet{}, readError("select tweet", err)
	}

	return tweet, nil
}

// ListByOwner returns the owner's tweets, newest first.
func (r *PostgresTweetRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+tweetColumns+`
        FROM tweets t
        WHERE t.owner_id = $1
        ORDER BY t.created_at DESC, t.id DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	tweets := make([]models.Tweet, 0)
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tweet: %w", err)
		}
		tweets = append(tweets, tweet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}

	return tweets, nil
}

// Update replaces the tweet content.
func (r *PostgresTweetRepository) Update(ctx context.Context, id, content string, at time.Time) (models.Tweet, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Tweet{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tweet, err := scanTweet(conn.QueryRow(ctx, `
        UPDATE tweets AS t
        SET content = $2, updated_at = $3
        WHERE t.id = $1
        RETURNING `+tweetColumns, id, content, at))
	if err != nil {
		return models.Tweet{}, readError("update tweet", err)
	}

	return tweet, nil
}

// Delete removes the tweet and its likes.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteWithLikes(ctx, r.pool, models.LikeTargetTweet, "tweets", id)
}
