package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/pipeline"
	"github.com/vidtube/backend/internal/repositories"
)

// SubscriptionHandler implements channel subscription endpoints. Both ids
// come from the body or query string.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
	NowFunc       func() time.Time
}

type subscriptionState struct {
	IsSubscribed bool `json:"isSubscribed"`
}

// Status handles GET /subscriptions.
func (h SubscriptionHandler) Status(r *http.Request) (pipeline.Result, error) {
	key := subscriptionKey(r)

	subscribed, err := h.Subscriptions.Exists(r.Context(), key)
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	return pipeline.OK(subscriptionState{IsSubscribed: subscribed}, "Subscription status fetched successfully"), nil
}

// Subscribe handles POST /subscriptions.
func (h SubscriptionHandler) Subscribe(r *http.Request) (pipeline.Result, error) {
	ctx := r.Context()
	key := subscriptionKey(r)

	if err := h.checkSubscriber(r, key); err != nil {
		return pipeline.Result{}, err
	}
	if key.SubscriberID == key.ChannelID {
		return pipeline.Result{}, apierror.BadRequest("You cannot subscribe to your own channel")
	}
	if _, err := h.Users.FindByID(ctx, key.ChannelID); err != nil {
		return pipeline.Result{}, apierror.FromStore(err, "Channel not found")
	}

	now := clock(h.NowFunc)
	subscription := models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: key.SubscriberID,
		ChannelID:    key.ChannelID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Subscriptions.Create(ctx, subscription); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return pipeline.Result{}, apierror.Conflict("Already subscribed to this channel")
		}
		return pipeline.Result{}, apierror.FromStore(err, "Channel not found")
	}
	return pipeline.Created(subscription, "Subscribed successfully"), nil
}

// Unsubscribe handles DELETE /subscriptions.
func (h SubscriptionHandler) Unsubscribe(r *http.Request) (pipeline.Result, error) {
	key := subscriptionKey(r)

	if err := h.checkSubscriber(r, key); err != nil {
		return pipeline.Result{}, err
	}

	count, err := h.Subscriptions.Delete(r.Context(), key)
	if err != nil {
		return pipeline.Result{}, apierror.From(err)
	}
	return deleteOutcome(count, "Subscription"), nil
}

func (h SubscriptionHandler) checkSubscriber(r *http.Request, key models.SubscriptionKey) error {
	if key.SubscriberID != callerID(r.Context()) {
		return apierror.Unauthorized("You can only manage your own subscriptions")
	}
	return nil
}

func subscriptionKey(r *http.Request) models.SubscriptionKey {
	ctx := r.Context()
	return models.SubscriptionKey{
		SubscriberID: pipeline.ID(ctx, "subscriberId"),
		ChannelID:    pipeline.ID(ctx, "channelId"),
	}
}
