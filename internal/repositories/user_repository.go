package repositories

import (
	"context"
	"time"

	"github.com/vidtube/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	// FindByLogin matches either the username or the email address.
	FindByLogin(ctx context.Context, username, email string) (models.User, error)
	UpdateAccount(ctx context.Context, id string, update models.AccountUpdate, at time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	UpdateAvatar(ctx context.Context, id, url string, at time.Time) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string, at time.Time) (models.User, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
}
