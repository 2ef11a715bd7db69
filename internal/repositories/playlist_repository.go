package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// PlaylistRepository exposes data access for playlists.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id string, update models.PlaylistUpdate, at time.Time) (models.Playlist, error)
	// AddVideo appends the video unless the playlist already holds it.
	AddVideo(ctx context.Context, id, videoID string, at time.Time) (models.Playlist, error)
	RemoveVideo(ctx context.Context, id, videoID string, at time.Time) (models.Playlist, error)
	Delete(ctx context.Context, id string) (int64, error)
}
