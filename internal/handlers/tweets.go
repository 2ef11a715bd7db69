package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
)

// TweetHandler implements tweet endpoints.
type TweetHandler struct {
	Tweets  TweetStore
	NowFunc func() time.Time
}

// Create handles POST /tweets.
func (h TweetHandler) Create(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	content, err := readContent(r)
	if err != nil {
		return pipeline.Result{}, err
	}

	now := clock(h.NowFunc)
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   callerID(ctx),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		return pipeline.Result{}, apierror.Internal(err, "Something went wrong while creating the tweet")
	}
	return pipeline.Created(tweet, "Tweet created successfully"), nil
}

// List handles GET /tweets and returns the caller's tweets.
func (h TweetHandler) List(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	tweets, err := h.Tweets.ListByOwner(ctx, callerID(ctx))
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	if tweets == nil {
		tweets = []models.Tweet{}
	}
	return pipeline.OK(tweets, "Tweets fetched successfully"), nil
}

// Update handles PATCH /tweets/tweetId/{tweetId}.
func (h TweetHandler) Update(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	id := pipeline.ID(ctx, "tweetId")

	content, err := readContent(r)
	if err != nil {
		return pipeline.Result{}, err
	}
	if _, err := loadOwned(ctx, h.Tweets.FindByID, id, callerID(ctx), "Tweet"); err != nil {
		return pipeline.Result{}, err
	}

	tweet, err := h.Tweets.Update(ctx, id, content, clock(h.NowFunc))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Tweet not found")
	}
	return pipeline.OK(tweet, "Tweet updated successfully"), nil
}

// Delete handles DELETE /tweets/tweetId/{tweetId}.
func (h TweetHandler) Delete(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	return deleteOwned(ctx, h.Tweets.FindByID, h.Tweets.Delete, pipeline.ID(ctx, "tweetId"), callerID(ctx), "Tweet")
}
