package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// DashboardRepository computes channel-level aggregates on demand.
type DashboardRepository interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
}
