package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
	"github.com/vidtube/backend/internal/repositories"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// VideoHandler implements video endpoints.
type VideoHandler struct {
	Videos         VideoStore
	Users          UserStore
	Media          MediaService
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type videoPage struct {
	Videos      []models.Video `json:"videos"`
	TotalVideos int64          `json:"totalVideos"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	TotalPages  int            `json:"totalPages"`
	HasPrevPage bool           `json:"hasPrevPage"`
	HasNextPage bool           `json:"hasNextPage"`
}

type publishState struct {
	IsPublished bool `json:"isPublished"`
}

// List handles GET /videos.
func (h VideoHandler) List(r *http.Request) (pipeline.Result, error) {
	page, err := pipeline.ParsePage(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		return pipeline.Result{}, err
	}

	params := r.URL.Query()
	sort, err := parseVideoSort(params.Get("sortBy"), params.Get("sortType"))
	if err != nil {
		return pipeline.Result{}, err
	}

	query := models.VideoQuery{
		PageRequest: page,
		Search:      strings.TrimSpace(params.Get("query")),
		Sort:        sort,
	}
	if owner := params.Get("userId"); strings.TrimSpace(owner) != "" {
		if query.OwnerID, err = pipeline.ParseID("userId", owner); err != nil {
			return pipeline.Result{}, err
		}
	}

	result, err := h.Videos.List(r.Context(), query)
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	if result.Items == nil {
		result.Items = []models.Video{}
	}

	return pipeline.OK(videoPage{
		Videos:      result.Items,
		TotalVideos: result.Total,
		Page:        result.Page,
		Limit:       result.Limit,
		TotalPages:  result.TotalPages(),
		HasPrevPage: result.HasPrev(),
		HasNextPage: result.HasNext(),
	}, "Videos fetched successfully"), nil
}

// parseVideoSort restricts sortBy to the known columns and sortType to the two
// directions. Without either the newest videos come first.
func parseVideoSort(sortBy, sortType string) (models.VideoSort, error) {
	sort := models.VideoSort{Field: "createdAt", Descending: true}

	sortBy = strings.TrimSpace(sortBy)
	if sortBy != "" {
		if _, ok := repositories.VideoSortColumns[sortBy]; !ok {
			return models.VideoSort{}, apierror.BadRequest("Invalid sortBy field", "sortBy must be one of title, duration, views, userId, createdAt, updatedAt")
		}
		sort.Field = sortBy
	}

	switch strings.ToLower(strings.TrimSpace(sortType)) {
	case "":
	case "asc", "ascending":
		sort.Descending = false
	case "desc", "descending":
		sort.Descending = true
	default:
		return models.VideoSort{}, apierror.BadRequest("Invalid sortType", "sortType must be ascending or descending")
	}
	return sort, nil
}

// Publish handles POST /videos/publish-video.
func (h VideoHandler) Publish(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	if err := pipeline.ParseMultipart(r, h.MaxUploadBytes); err != nil {
		return pipeline.Result{}, err
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if err := pipeline.Require("All fields are required", pipeline.F("title", title), pipeline.F("description", description)); err != nil {
		return pipeline.Result{}, err
	}

	videoFile := formFile(r, "videoFile")
	if videoFile == nil {
		return pipeline.Result{}, apierror.BadRequest("Video file is required")
	}
	thumbnailFile := formFile(r, "thumbnail")
	if thumbnailFile == nil {
		return pipeline.Result{}, apierror.BadRequest("Thumbnail is required")
	}

	video := h.Media.Upload(ctx, media.FolderVideos, videoFile)
	if video == nil {
		return pipeline.Result{}, apierror.Internal(errors.New("video upload returned no asset"), "Error while uploading video")
	}
	thumbnail := h.Media.Upload(ctx, media.FolderThumbnails, thumbnailFile)
	if thumbnail == nil {
		h.Media.Discard(ctx, video.URL)
		return pipeline.Result{}, apierror.Internal(errors.New("thumbnail upload returned no asset"), "Error while uploading thumbnail")
	}

	now := h.now()
	record := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     callerID(ctx),
		VideoFile:   video.URL,
		Thumbnail:   thumbnail.URL,
		Title:       title,
		Description: description,
		Duration:    video.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Videos.Create(ctx, record); err != nil {
		h.Media.Discard(ctx, video.URL, thumbnail.URL)
		return pipeline.Result{}, apierror.Internal(err, "Something went wrong while publishing the video")
	}

	logging.FromContext(ctx).Info("video published", "videoId", record.ID)
	return pipeline.Created(record, "Video published successfully"), nil
}

// Get handles GET /videos/{videoId}. Each successful fetch counts as a view
// and lands in the caller's watch history.
func (h VideoHandler) Get(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "videoId")
	viewer := callerID(ctx)

	video, err := visibleVideo(ctx, h.Videos, id, viewer)
	if err != nil {
		return pipeline.Result{}, err
	}

	viewed, err := h.Videos.IncrementViews(ctx, id)
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Video not found")
	}
	if viewed.Owner == nil {
		viewed.Owner = video.Owner
	}

	if err := h.Users.AddToWatchHistory(ctx, viewer, id); err != nil {
		return pipeline.Result{}, apierror.From(err)
	}

	return pipeline.OK(viewed, "Video fetched successfully"), nil
}

// Update handles PATCH /videos/{videoId}.
func (h VideoHandler) Update(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "videoId")

	var req updateVideoRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return pipeline.Result{}, err
	}
	update := models.VideoUpdate{
		Title:       trimmed(req.Title, false),
		Description: trimmed(req.Description, false),
	}
	if update.Title == nil && update.Description == nil {
		return pipeline.Result{}, apierror.BadRequest("Title or description is required")
	}

	if _, err := loadOwned(ctx, h.Videos.FindByID, id, callerID(ctx), "Video"); err != nil {
		return pipeline.Result{}, err
	}

	video, err := h.Videos.UpdateDetails(ctx, id, update, h.now())
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Video not found")
	}
	return pipeline.OK(video, "Video updated successfully"), nil
}

// UpdateThumbnail handles PATCH /videos/update-thumbnail/{videoId}.
func (h VideoHandler) UpdateThumbnail(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "videoId")

	existing, err := loadOwned(ctx, h.Videos.FindByID, id, callerID(ctx), "Video")
	if err != nil {
		return pipeline.Result{}, err
	}

	if err := pipeline.ParseMultipart(r, h.MaxUploadBytes); err != nil {
		return pipeline.Result{}, err
	}
	file := formFile(r, "thumbnail")
	if file == nil {
		return pipeline.Result{}, apierror.BadRequest("Thumbnail is required")
	}

	thumbnail := h.Media.Upload(ctx, media.FolderThumbnails, file)
	if thumbnail == nil {
		return pipeline.Result{}, apierror.Internal(errors.New("thumbnail upload returned no asset"), "Error while uploading thumbnail")
	}

	video, err := h.Videos.UpdateThumbnail(ctx, id, thumbnail.URL, h.now())
	if err != nil {
		h.Media.Discard(ctx, thumbnail.URL)
		return pipeline.Result{}, apierror.FromStore(err, "Video not found")
	}

	h.Media.Discard(ctx, existing.Thumbnail)
	return pipeline.OK(video, "Thumbnail updated successfully"), nil
}

// Delete handles DELETE /videos/{videoId}. Media goes first so a storage
// failure leaves the record in place.
func (h VideoHandler) Delete(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "videoId")

	video, err := loadOwned(ctx, h.Videos.FindByID, id, callerID(ctx), "Video")
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return deleteOutcome(0, "Video"), nil
		}
		return pipeline.Result{}, err
	}

	if err := h.Media.Remove(ctx, video.VideoFile, video.Thumbnail); err != nil {
		return pipeline.Result{}, apierror.Internal(err, "Failed to delete video media")
	}

	count, err := h.Videos.Delete(ctx, id)
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	return deleteOutcome(count, "Video"), nil
}

// TogglePublish handles PATCH /videos/toggle-publish-status.
func (h VideoHandler) TogglePublish(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "videoId")

	if _, err := loadOwned(ctx, h.Videos.FindByID, id, callerID(ctx), "Video"); err != nil {
		return pipeline.Result{}, err
	}

	published, err := toggle(ctx, publishRelation{videos: h.Videos, now: h.now}, id)
	if err != nil {
		return pipeline.Result{}, err
	}

	message := "Video is unpublished"
	if published {
		message = "Video is published"
	}
	return pipeline.OK(publishState{IsPublished: published}, message), nil
}

func (h VideoHandler) now() time.Time {
	return clock(h.NowFunc)
}
