package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"sort"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type inMemoryUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	history map[string][]string
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User), history: make(map[string][]string)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByLogin(_ context.Context, username, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) UpdateAccount(_ context.Context, id string, update models.AccountUpdate, at time.Time) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID == id {
			continue
		}
		if (update.Username != nil && other.Username == *update.Username) || (update.Email != nil && other.Email == *update.Email) {
			return models.User{}, repositories.ErrConflict
		}
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Fullname != nil {
		user.Fullname = *update.Fullname
	}
	user.UpdatedAt = at
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) UpdatePassword(_ context.Context, id, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = hash
	user.UpdatedAt = at
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) UpdateAvatar(_ context.Context, id, url string, at time.Time) (models.User, error) {
	return s.mutate(id, at, func(u *models.User) { u.Avatar = url })
}

func (s *inMemoryUserStore) UpdateCoverImage(_ context.Context, id, url string, at time.Time) (models.User, error) {
	return s.mutate(id, at, func(u *models.User) { u.CoverImage = url })
}

func (s *inMemoryUserStore) mutate(id string, at time.Time, fn func(*models.User)) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = at
	s.users[id] = user
	return user, nil
}

func (s *inMemoryUserStore) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return models.ChannelProfile{ID: user.ID, Username: user.Username, Email: user.Email, Fullname: user.Fullname}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) WatchHistory(_ context.Context, userID string) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	ids := s.history[userID]
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, models.Video{ID: ids[i]})
	}
	return out, nil
}

func (s *inMemoryUserStore) AddToWatchHistory(_ context.Context, userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.history[userID][:0]
	for _, id := range s.history[userID] {
		if id != videoID {
			kept = append(kept, id)
		}
	}
	s.history[userID] = append(kept, videoID)
	return nil
}

type inMemoryVideoStore struct {
	mu        sync.Mutex
	videos    map[string]models.Video
	lastQuery models.VideoQuery
}

func newInMemoryVideoStore() *inMemoryVideoStore {
	return &inMemoryVideoStore{videos: make(map[string]models.Video)}
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.videos[video.ID]; exists {
		return repositories.ErrConflict
	}
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideoStore) List(_ context.Context, query models.VideoQuery) (models.Page[models.Video], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = query
	var items []models.Video
	for _, video := range s.videos {
		if video.IsPublished {
			items = append(items, video)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	total := int64(len(items))
	start := query.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + query.Limit
	if end > len(items) {
		end = len(items)
	}
	return models.Page[models.Video]{Items: items[start:end], Total: total, Page: query.Page, Limit: query.Limit}, nil
}

func (s *inMemoryVideoStore) ListByOwner(_ context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	for _, video := range s.videos {
		if video.OwnerID == ownerID && (includeUnpublished || video.IsPublished) {
			out = append(out, video)
		}
	}
	return out, nil
}

func (s *inMemoryVideoStore) UpdateDetails(_ context.Context, id string, update models.VideoUpdate, at time.Time) (models.Video, error) {
	return s.mutate(id, at, func(v *models.Video) {
		if update.Title != nil {
			v.Title = *update.Title
		}
		if update.Description != nil {
			v.Description = *update.Description
		}
	})
}

func (s *inMemoryVideoStore) UpdateThumbnail(_ context.Context, id, url string, at time.Time) (models.Video, error) {
	return s.mutate(id, at, func(v *models.Video) { v.Thumbnail = url })
}

func (s *inMemoryVideoStore) SetPublished(_ context.Context, id string, published bool, at time.Time) (models.Video, error) {
	return s.mutate(id, at, func(v *models.Video) { v.IsPublished = published })
}

func (s *inMemoryVideoStore) IncrementViews(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) mutate(id string, at time.Time, fn func(*models.Video)) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	fn(&video)
	video.UpdatedAt = at
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return 0, nil
	}
	delete(s.videos, id)
	return 1, nil
}

type inMemoryCommentStore struct {
	mu       sync.Mutex
	comments map[string]models.Comment
}

func newInMemoryCommentStore() *inMemoryCommentStore {
	return &inMemoryCommentStore{comments: make(map[string]models.Comment)}
}

func (s *inMemoryCommentStore) Create(_ context.Context, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	return nil
}

func (s *inMemoryCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *inMemoryCommentStore) ListByVideo(_ context.Context, videoID string, page models.PageRequest) (models.Page[models.Comment], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Comment
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			items = append(items, comment)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	total := int64(len(items))
	start := page.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return models.Page[models.Comment]{Items: items[start:end], Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *inMemoryCommentStore) Update(_ context.Context, id, content string, at time.Time) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	comment.UpdatedAt = at
	s.comments[id] = comment
	return comment, nil
}

func (s *inMemoryCommentStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return 0, nil
	}
	delete(s.comments, id)
	return 1, nil
}

type inMemoryTweetStore struct {
	mu     sync.Mutex
	tweets map[string]models.Tweet
}

func newInMemoryTweetStore() *inMemoryTweetStore {
	return &inMemoryTweetStore{tweets: make(map[string]models.Tweet)}
}

func (s *inMemoryTweetStore) Create(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tweets[tweet.ID] = tweet
	return nil
}

func (s *inMemoryTweetStore) FindByID(_ context.Context, id string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return tweet, nil
}

func (s *inMemoryTweetStore) ListByOwner(_ context.Context, ownerID string) ([]models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Tweet
	for _, tweet := range s.tweets {
		if tweet.OwnerID == ownerID {
			out = append(out, tweet)
		}
	}
	return out, nil
}

func (s *inMemoryTweetStore) Update(_ context.Context, id, content string, at time.Time) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tweet, ok := s.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	tweet.Content = content
	tweet.UpdatedAt = at
	s.tweets[id] = tweet
	return tweet, nil
}

func (s *inMemoryTweetStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tweets[id]; !ok {
		return 0, nil
	}
	delete(s.tweets, id)
	return 1, nil
}

type inMemoryPlaylistStore struct {
	mu        sync.Mutex
	playlists map[string]models.Playlist
}

func newInMemoryPlaylistStore() *inMemoryPlaylistStore {
	return &inMemoryPlaylistStore{playlists: make(map[string]models.Playlist)}
}

func (s *inMemoryPlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *inMemoryPlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *inMemoryPlaylistStore) ListByOwner(_ context.Context, ownerID string) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Playlist
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			out = append(out, playlist)
		}
	}
	return out, nil
}

func (s *inMemoryPlaylistStore) Update(_ context.Context, id string, update models.PlaylistUpdate, at time.Time) (models.Playlist, error) {
	return s.mutate(id, at, func(p *models.Playlist) {
		if update.Name != nil {
			p.Name = *update.Name
		}
		if update.Description != nil {
			p.Description = *update.Description
		}
	})
}

func (s *inMemoryPlaylistStore) AddVideo(_ context.Context, id, videoID string, at time.Time) (models.Playlist, error) {
	return s.mutate(id, at, func(p *models.Playlist) {
		if !containsString(p.Videos, videoID) {
			p.Videos = append(p.Videos, videoID)
		}
	})
}

func (s *inMemoryPlaylistStore) RemoveVideo(_ context.Context, id, videoID string, at time.Time) (models.Playlist, error) {
	return s.mutate(id, at, func(p *models.Playlist) {
		kept := []string{}
		for _, v := range p.Videos {
			if v != videoID {
				kept = append(kept, v)
			}
		}
		p.Videos = kept
	})
}

func (s *inMemoryPlaylistStore) mutate(id string, at time.Time, fn func(*models.Playlist)) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	fn(&playlist)
	playlist.UpdatedAt = at
	s.playlists[id] = playlist
	return playlist, nil
}

func (s *inMemoryPlaylistStore) Delete(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return 0, nil
	}
	delete(s.playlists, id)
	return 1, nil
}

type inMemoryLikeStore struct {
	mu    sync.Mutex
	likes []models.Like
}

func (s *inMemoryLikeStore) Exists(_ context.Context, key models.LikeKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, like := range s.likes {
		if like.LikedBy == key.LikedBy && like.Target == key.Target && like.TargetID == key.TargetID {
			return true, nil
		}
	}
	return false, nil
}

func (s *inMemoryLikeStore) Add(_ context.Context, like models.Like) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes = append(s.likes, like)
	return nil
}

func (s *inMemoryLikeStore) Remove(_ context.Context, key models.LikeKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	kept := s.likes[:0]
	for _, like := range s.likes {
		if like.LikedBy == key.LikedBy && like.Target == key.Target && like.TargetID == key.TargetID {
			removed++
			continue
		}
		kept = append(kept, like)
	}
	s.likes = kept
	return removed, nil
}

func (s *inMemoryLikeStore) LikedVideos(_ context.Context, userID string) ([]models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Video
	for _, like := range s.likes {
		if like.LikedBy == userID && like.Target == models.LikeTargetVideo {
			out = append(out, models.Video{ID: like.TargetID})
		}
	}
	return out, nil
}

func (s *inMemoryLikeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.likes)
}

type inMemorySubscriptionStore struct {
	mu   sync.Mutex
	subs map[models.SubscriptionKey]models.Subscription
}

func newInMemorySubscriptionStore() *inMemorySubscriptionStore {
	return &inMemorySubscriptionStore{subs: make(map[models.SubscriptionKey]models.Subscription)}
}

func (s *inMemorySubscriptionStore) Create(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.SubscriptionKey{SubscriberID: sub.SubscriberID, ChannelID: sub.ChannelID}
	if _, exists := s.subs[key]; exists {
		return repositories.ErrConflict
	}
	s.subs[key] = sub
	return nil
}

func (s *inMemorySubscriptionStore) Exists(_ context.Context, key models.SubscriptionKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[key]
	return ok, nil
}

func (s *inMemorySubscriptionStore) Delete(_ context.Context, key models.SubscriptionKey) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[key]; !ok {
		return 0, nil
	}
	delete(s.subs, key)
	return 1, nil
}

type stubDashboardStore struct {
	stats map[string]models.ChannelStats
}

func (s stubDashboardStore) ChannelStats(_ context.Context, channelID string) (models.ChannelStats, error) {
	stats, ok := s.stats[channelID]
	if !ok {
		return models.ChannelStats{}, repositories.ErrNotFound
	}
	return stats, nil
}

type fakeMedia struct {
	mu         sync.Mutex
	failFolder media.Folder
	removeErr  error
	uploaded   []string
	removed    []string
	discarded  []string
}

func (m *fakeMedia) Upload(_ context.Context, folder media.Folder, file *multipart.FileHeader) *media.Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	if folder == m.failFolder {
		return nil
	}
	url := "https://media.test/" + string(folder) + "/" + file.Filename
	m.uploaded = append(m.uploaded, url)
	asset := &media.Asset{URL: url, Size: file.Size}
	if folder == media.FolderVideos {
		asset.Duration = 12.5
	}
	return asset
}

func (m *fakeMedia) Remove(_ context.Context, locations ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, locations...)
	return nil
}

func (m *fakeMedia) Discard(_ context.Context, locations ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, location := range locations {
		if location != "" {
			m.discarded = append(m.discarded, location)
		}
	}
}

var errStoreDown = errors.New("store unavailable")
