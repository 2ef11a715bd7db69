package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// LikeRepository exposes data access for likes on videos, comments and tweets.
type LikeRepository interface {
	Exists(ctx context.Context, key models.LikeKey) (bool, error)
	Add(ctx context.Context, like models.Like) error
	Remove(ctx context.Context, key models.LikeKey) (int64, error)
	LikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}
