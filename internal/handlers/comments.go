package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
)

// CommentHandler implements comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

type contentRequest struct {
	Content string `json:"content"`
}

type commentPage struct {
	Comments      []models.Comment `json:"comments"`
	TotalComments int64            `json:"totalComments"`
	TotalPages    int              `json:"totalPages"`
	CurrentPage   int              `json:"currentPage"`
	ResultPerPage int              `json:"resultPerPage"`
	HasPrevPage   bool             `json:"hasPrevPage"`
	HasNextPage   bool             `json:"hasNextPage"`
	PrevPage      *int             `json:"prevPage"`
	NextPage      *int             `json:"nextPage"`
}

// List handles GET /comments/{videoId}.
func (h CommentHandler) List(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	videoID := pipeline.ID(ctx, "videoId")

	page, err := pipeline.ParsePage(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		return pipeline.Result{}, err
	}
	if _, err := visibleVideo(ctx, h.Videos, videoID, callerID(ctx)); err != nil {
		return pipeline.Result{}, err
	}

	result, err := h.Comments.ListByVideo(ctx, videoID, page)
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	if result.Items == nil {
		result.Items = []models.Comment{}
	}

	return pipeline.OK(commentPage{
		Comments:      result.Items,
		TotalComments: result.Total,
		TotalPages:    result.TotalPages(),
		CurrentPage:   result.Page,
		ResultPerPage: result.Limit,
		HasPrevPage:   result.HasPrev(),
		HasNextPage:   result.HasNext(),
		PrevPage:      result.PrevPage(),
		NextPage:      result.NextPage(),
	}, "Comments fetched successfully"), nil
}

// Add handles POST /comments/{videoId}.
func (h CommentHandler) Add(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	videoID := pipeline.ID(ctx, "videoId")

	content, err := readContent(r)
	if err != nil {
		return pipeline.Result{}, err
	}
	if _, err := visibleVideo(ctx, h.Videos, videoID, callerID(ctx)); err != nil {
		return pipeline.Result{}, err
	}

	now := clock(h.NowFunc)
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   callerID(ctx),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Video not found")
	}
	return pipeline.Created(comment, "Comment added successfully"), nil
}

// Update handles PATCH /comments/{commentId}.
func (h CommentHandler) Update(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "commentId")

	content, err := readContent(r)
	if err != nil {
		return pipeline.Result{}, err
	}
	if _, err := loadOwned(ctx, h.Comments.FindByID, id, callerID(ctx), "Comment"); err != nil {
		return pipeline.Result{}, err
	}

	comment, err := h.Comments.Update(ctx, id, content, clock(h.NowFunc))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Comment not found")
	}
	return pipeline.OK(comment, "Comment updated successfully"), nil
}

// Delete handles DELETE /comments/{commentId}.
func (h CommentHandler) Delete(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	return deleteOwned(ctx, h.Comments.FindByID, h.Comments.Delete, pipeline.ID(ctx, "commentId"), callerID(ctx), "Comment")
}

func readContent(r *http.Request) (string, error) {
	var req contentRequest
	if err := pipeline.DecodeJSON(r, &req); err != nil {
		return "", err
	}
	content := strings.TrimSpace(req.Content)
	if err := pipeline.Require("Content is required", pipeline.F("content", content)); err != nil {
		return "", err
	}
	return content, nil
}
