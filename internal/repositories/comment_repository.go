package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string, page models.PageRequest) (models.Page[models.Comment], error)
	Update(ctx context.Context, id, content string, at time.Time) (models.Comment, error)
	// Delete removes the comment and the likes on it.
	Delete(ctx context.Context, id string) (int64, error)
}
