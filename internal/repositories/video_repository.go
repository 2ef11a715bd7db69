package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, query models.VideoQuery) (models.Page[models.Video], error)
	ListByOwner(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id string, update models.VideoUpdate, at time.Time) (models.Video, error)
	UpdateThumbnail(ctx context.Context, id, url string, at time.Time) (models.Video, error)
	SetPublished(ctx context.Context, id string, published bool, at time.Time) (models.Video, error)
	IncrementViews(ctx context.Context, id string) (models.Video, error)
	// Delete removes the video together with the comments, likes, playlist
	// entries and watch-history entries that reference it.
	Delete(ctx context.Context, id string) (int64, error)
}

// VideoSortColumns maps the accepted sortBy values to their columns.
var VideoSortColumns = map[string]string{
	"title":     "v.title",
	"duration":  "v.duration",
	"views":     "v.views",
	"userId":    "v.owner_id",
	"createdAt": "v.created_at",
	"updatedAt": "v.updated_at",
}
