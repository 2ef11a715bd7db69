package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, username, email string) (models.User, error)
	UpdateAccount(ctx context.Context, id string, update models.AccountUpdate, at time.Time) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	UpdateAvatar(ctx context.Context, id, url string, at time.Time) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string, at time.Time) (models.User, error)
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]models.Video, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
}

// SessionManager issues, refreshes and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, id auth.Identity) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures persistence for videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, query models.VideoQuery) (models.Page[models.Video], error)
	ListByOwner(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error)
	UpdateDetails(ctx context.Context, id string, update models.VideoUpdate, at time.Time) (models.Video, error)
	UpdateThumbnail(ctx context.Context, id, url string, at time.Time) (models.Video, error)
	SetPublished(ctx context.Context, id string, published bool, at time.Time) (models.Video, error)
	IncrementViews(ctx context.Context, id string) (models.Video, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// CommentStore captures persistence for comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	ListByVideo(ctx context.Context, videoID string, page models.PageRequest) (models.Page[models.Comment], error)
	Update(ctx context.Context, id, content string, at time.Time) (models.Comment, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error)
	Update(ctx context.Context, id, content string, at time.Time) (models.Tweet, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// PlaylistStore captures persistence for playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error)
	Update(ctx context.Context, id string, update models.PlaylistUpdate, at time.Time) (models.Playlist, error)
	AddVideo(ctx context.Context, id, videoID string, at time.Time) (models.Playlist, error)
	RemoveVideo(ctx context.Context, id, videoID string, at time.Time) (models.Playlist, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// LikeStore captures persistence for likes.
type LikeStore interface {
	Exists(ctx context.Context, key models.LikeKey) (bool, error)
	Add(ctx context.Context, like models.Like) error
	Remove(ctx context.Context, key models.LikeKey) (int64, error)
	LikedVideos(ctx context.Context, userID string) ([]models.Video, error)
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, subscription models.Subscription) error
	Exists(ctx context.Context, key models.SubscriptionKey) (bool, error)
	Delete(ctx context.Context, key models.SubscriptionKey) (int64, error)
}

// DashboardStore computes channel aggregates.
type DashboardStore interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
}

// MediaService uploads request files to the object store and removes stale ones.
type MediaService interface {
	Upload(ctx context.Context, folder media.Folder, file *multipart.FileHeader) *media.Asset
	Remove(ctx context.Context, locations ...string) error
	Discard(ctx context.Context, locations ...string)
}
