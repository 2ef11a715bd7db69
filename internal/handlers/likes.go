package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
)

// LikeHandler implements like toggles for videos, comments and tweets.
type LikeHandler struct {
	Likes    LikeStore
	Videos   VideoStore
	Comments CommentStore
	Tweets   TweetStore
	NowFunc  func() time.Time
}

type likeState struct {
	IsLiked bool `json:"isLiked"`
}

// ToggleVideoLike handles PATCH /likes/toggle-video-like/{videoId}.
func (h LikeHandler) ToggleVideoLike(r *http.Request) (pipeline.Result, error) {
	return h.toggleLike(r, models.LikeTargetVideo, "videoId", func(ctx context.Context, id string) error {
		_, err := visibleVideo(ctx, h.Videos, id, callerID(ctx))
		return err
	})
}

// ToggleCommentLike handles PATCH /likes/toggle-comment-like/{commentId}.
func (h LikeHandler) ToggleCommentLike(r *http.Request) (pipeline.Result, error) {
	return h.toggleLike(r, models.LikeTargetComment, "commentId", func(ctx context.Context, id string) error {
		_, err := h.Comments.FindByID(ctx, id)
		return targetError(err, "Comment not found")
	})
}

// ToggleTweetLike handles PATCH /likes/toggle-tweet-like/{tweetId}.
func (h LikeHandler) ToggleTweetLike(r *http.Request) (pipeline.Result, error) {
	return h.toggleLike(r, models.LikeTargetTweet, "tweetId", func(ctx context.Context, id string) error {
		_, err := h.Tweets.FindByID(ctx, id)
		return targetError(err, "Tweet not found")
	})
}

func (h LikeHandler) toggleLike(r *http.Request, target models.LikeTarget, param string, exists func(context.Context, string) error) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, param)

	if err := exists(ctx, id); err != nil {
		return pipeline.Result{}, err
	}

	key := models.LikeKey{LikedBy: callerID(ctx), Target: target, TargetID: id}
	liked, err := toggle(ctx, likeRelation{likes: h.Likes, now: h.now}, key)
	if err != nil {
		return pipeline.Result{}, err
	}

	message := "unliked"
	if liked {
		message = "liked"
	}
	return pipeline.OK(likeState{IsLiked: liked}, message), nil
}

// LikedVideos handles GET /likes/get-liked-videos.
func (h LikeHandler) LikedVideos(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	videos, err := h.Likes.LikedVideos(ctx, callerID(ctx))
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return pipeline.OK(videos, "Liked videos fetched successfully"), nil
}

func targetError(err error, message string) error {
	if err == nil {
		return nil
	}
	return apierror.FromStore(err, message)
}

func (h LikeHandler) now() time.Time {
	return clock(h.NowFunc)
}
