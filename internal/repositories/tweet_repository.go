package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// TweetRepository exposes data access for channel tweets.
type TweetRepository interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	Update(ctx context.Context, id, content string, at time.Time) (models.Tweet, error)
	// Delete removes the tweet and the likes on it.
	Delete(ctx context.Context, id string) (int64, error)
}
