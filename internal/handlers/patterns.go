package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/status"
)

// Relation is a state that is either present or absent for a key.
type Relation[K any] interface {
	Exists(ctx context.Context, key K) (bool, error)
	Insert(ctx context.Context, key K) error
	Remove(ctx context.Context, key K) (int64, error)
}

// toggle flips the relation for key and reports whether it is now present.
// Check and act are separate store calls: two concurrent toggles may both see
// the relation absent and both insert.
func toggle[K any](ctx context.Context, rel Relation[K], key K) (bool, error) {
	present, err := rel.Exists(ctx, key)
	if err != nil {
		return false, apierror.From(err)
	}
	if present {
		if _, err := rel.Remove(ctx, key); err != nil {
			return false, apierror.From(err)
		}
		return false, nil
	}
	if err := rel.Insert(ctx, key); err != nil {
		return false, apierror.From(err)
	}
	return true, nil
}

type likeRelation struct {
	likes LikeStore
	now   func() time.Time
}

func (l likeRelation) Exists(ctx context.Context, key models.LikeKey) (bool, error) {
	return l.likes.Exists(ctx, key)
}

func (l likeRelation) Insert(ctx context.Context, key models.LikeKey) error {
	return l.likes.Add(ctx, models.Like{
		ID:        uuid.NewString(),
		LikedBy:   key.LikedBy,
		Target:    key.Target,
		TargetID:  key.TargetID,
		CreatedAt: l.now(),
	})
}

func (l likeRelation) Remove(ctx context.Context, key models.LikeKey) (int64, error) {
	return l.likes.Remove(ctx, key)
}

// publishRelation treats a video's published flag as a relation keyed by id.
type publishRelation struct {
	videos VideoStore
	now    func() time.Time
}

func (p publishRelation) Exists(ctx context.Context, id string) (bool, error) {
	video, err := p.videos.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return video.IsPublished, nil
}

func (p publishRelation) Insert(ctx context.Context, id string) error {
	_, err := p.videos.SetPublished(ctx, id, true, p.now())
	return err
}

func (p publishRelation) Remove(ctx context.Context, id string) (int64, error) {
	if _, err := p.videos.SetPublished(ctx, id, false, p.now()); err != nil {
		return 0, err
	}
	return 1, nil
}

type ownedResource interface {
	OwnerOf() string
}

// loadOwned fetches the resource and checks that callerID owns it.
func loadOwned[T ownedResource](ctx context.Context, find func(context.Context, string) (T, error), id, callerID, noun string) (T, error) {
	item, err := find(ctx, id)
	if err != nil {
		var zero T
		return zero, apierror.FromStore(err, noun+" not found")
	}
	if item.OwnerOf() != callerID {
		var zero T
		return zero, apierror.Unauthorized("You are not allowed to modify this " + strings.ToLower(noun))
	}
	return item, nil
}

// visibleVideo loads a video the viewer may see. Unpublished videos exist
// only for their owner.
func visibleVideo(ctx context.Context, videos VideoStore, id, viewerID string) (models.Video, error) {
	video, err := videos.FindByID(ctx, id)
	if err != nil {
		return models.Video{}, apierror.FromStore(err, "Video not found")
	}
	if !video.IsPublished && video.OwnerID != viewerID {
		return models.Video{}, apierror.NotFound("Video not found")
	}
	return video, nil
}

// deleteOwned runs the owner check then remove. A resource that is already
// gone reports isDeleted false with NotFound.
func deleteOwned[T ownedResource](
	ctx context.Context,
	find func(context.Context, string) (T, error),
	remove func(context.Context, string) (int64, error),
	id, callerID, noun string,
) (pipeline.Result, error) {
	if _, err := loadOwned(ctx, find, id, callerID, noun); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return deleteOutcome(0, noun), nil
		}
		return pipeline.Result{}, err
	}

	count, err := remove(ctx, id)
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	return deleteOutcome(count, noun), nil
}

type deleteResult struct {
	IsDeleted bool `json:"isDeleted"`
}

func deleteOutcome(count int64, noun string) pipeline.Result {
	if count == 0 {
		return pipeline.Result{
			Status:  status.NotFound,
			Data:    deleteResult{IsDeleted: false},
			Message: noun + " not found",
		}
	}
	return pipeline.OK(deleteResult{IsDeleted: true}, noun+" deleted successfully")
}

func callerID(ctx context.Context) string {
	user, _ := pipeline.CurrentUser(ctx)
	return user.ID
}
