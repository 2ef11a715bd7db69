package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// SubscriptionRepository defines data access for channel subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscription models.Subscription) error
	Exists(ctx context.Context, key models.SubscriptionKey) (bool, error)
	Delete(ctx context.Context, key models.SubscriptionKey) (int64, error)
}
