package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
)

// PlaylistHandler implements playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	NowFunc   func() time.Time
}

type createPlaylistRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Videos      []string `json:"videos"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Create handles POST /playlists.
func (h PlaylistHandler) Create(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	var req createPlaylistRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Result{}, err
	}
	name := strings.TrimSpace(req.Name)
	if err := pipeline.Require("Playlist name is required", pipeline.F("name", name)); err != nil {
		return pipeline.Result{}, err
	}

	videos := make([]string, 0, len(req.Videos))
	seen := make(map[string]struct{}, len(req.Videos))
	for i, raw := range req.Videos {
		id, err := pipeline.ParseID(fmt.Sprintf("videos[%d]", i), raw)
		if err != nil {
			return pipeline.Result{}, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if _, err := visibleVideo(ctx, h.Videos, id, callerID(ctx)); err != nil {
			return pipeline.Result{}, err
		}
		seen[id] = struct{}{}
		videos = append(videos, id)
	}

	now := clock(h.NowFunc)
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     callerID(ctx),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Videos:      videos,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		return pipeline.Result{}, apierror.Internal(err, "Something went wrong while creating the playlist")
	}
	return pipeline.Created(playlist, "Playlist created successfully"), nil
}

// List handles GET /playlists and returns the caller's playlists.
func (h PlaylistHandler) List(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	playlists, err := h.Playlists.ListByOwner(ctx, callerID(ctx))
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	return pipeline.OK(playlists, "Playlists fetched successfully"), nil
}

// Get handles GET /playlists/playlist/{playlistId}.
func (h PlaylistHandler) Get(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	playlist, err := h.Playlists.FindByID(ctx, pipeline.ID(ctx, "playlistId"))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Playlist not found")
	}
	return pipeline.OK(playlist, "Playlist fetched successfully"), nil
}

// Update handles PATCH /playlists/playlist/{playlistId}.
func (h PlaylistHandler) Update(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "playlistId")

	var req updatePlaylistRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Result{}, err
	}
	update := models.PlaylistUpdate{
		Name:        trimmed(req.Name, false),
		Description: trimmed(req.Description, false),
	}
	if update.Name == nil && update.Description == nil {
		return pipeline.Result{}, apierror.BadRequest("Name or description is required")
	}

	if _, err := loadOwned(ctx, h.Playlists.FindByID, id, callerID(ctx), "Playlist"); err != nil {
		return pipeline.Result{}, err
	}

	playlist, err := h.Playlists.Update(ctx, id, update, clock(h.NowFunc))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Playlist not found")
	}
	return pipeline.OK(playlist, "Playlist updated successfully"), nil
}

// AddVideo handles PATCH /playlists/playlist/{playlistId}/add-video.
func (h PlaylistHandler) AddVideo(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "playlistId")
	videoID := pipeline.ID(ctx, "videoId")

	if _, err := loadOwned(ctx, h.Playlists.FindByID, id, callerID(ctx), "Playlist"); err != nil {
		return pipeline.Result{}, err
	}
	if _, err := visibleVideo(ctx, h.Videos, videoID, callerID(ctx)); err != nil {
		return pipeline.Result{}, err
	}

	playlist, err := h.Playlists.AddVideo(ctx, id, videoID, clock(h.NowFunc))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Playlist not found")
	}
	return pipeline.OK(playlist, "Video added to playlist"), nil
}

// RemoveVideo handles PATCH /playlists/playlist/{playlistId}/remove-video.
func (h PlaylistHandler) RemoveVideo(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "playlistId")
	videoID := pipeline.ID(ctx, "videoId")

	existing, err := loadOwned(ctx, h.Playlists.FindByID, id, callerID(ctx), "Playlist")
	if err != nil {
		return pipeline.Result{}, err
	}
	if !containsString(existing.Videos, videoID) {
		return pipeline.Result{}, apierror.NotFound("Video is not in the playlist")
	}

	playlist, err := h.Playlists.RemoveVideo(ctx, id, videoID, clock(h.NowFunc))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Playlist not found")
	}
	return pipeline.OK(playlist, "Video removed from playlist"), nil
}

// Delete handles DELETE /playlists/playlist/{playlistId}.
func (h PlaylistHandler) Delete(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	return deleteOwned(ctx, h.Playlists.FindByID, h.Playlists.Delete, pipeline.ID(ctx, "playlistId"), callerID(ctx), "Playlist")
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
