package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
)

// DashboardHandler reports channel aggregates. Nothing is cached.
type DashboardHandler struct {
	Dashboard DashboardStore
	Videos    VideoStore
	Users     UserStore
}

// ChannelStats handles GET /dashboard/get-channel-stats/{channelId}.
func (h DashboardHandler) ChannelStats(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()

	stats, err := h.Dashboard.ChannelStats(ctx, pipeline.ID(ctx, "channelId"))
	if err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Channel not found")
	}
	return pipeline.OK(stats, "Channel stats fetched successfully"), nil
}

// ChannelVideos handles GET /dashboard/get-channel-videos/{channelId}. The
// owner also sees unpublished videos.
func (h DashboardHandler) ChannelVideos(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	channelID := pipeline.ID(ctx, "channelId")

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Channel not found")
	}

	videos, err := h.Videos.ListByOwner(ctx, channelID, channelID == callerID(ctx))
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	if videos == nil {
		videos = []models.Video{}
	}
	return pipeline.OK(videos, "Channel videos fetched successfully"), nil
}
