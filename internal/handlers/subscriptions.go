package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

// SubscriptionHandler provides channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Sessions      SessionManager
	NowFunc       func() time.Time
}

// Handle dispatches /api/v1/subscriptions by method.
func (h SubscriptionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodDelete:
		h.remove(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h SubscriptionHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	subs, err := h.Subscriptions.ListForSubscriber(ctx, userID)
	if err != nil {
		logger.Error("list subscriptions failed", "userId", userID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load subscriptions"})
		return
	}

	views := make([]subscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		views = append(views, subscriptionResponse{
			ChannelID: sub.ChannelID,
			CreatedAt: sub.CreatedAt,
		})
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]subscriptionResponse{"subscriptions": views})
}

func (h SubscriptionHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		logger.Warn("invalid subscription payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "channelId is required"})
		return
	}

	if req.ChannelID == userID {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot subscribe to yourself"})
		return
	}

	sub := models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: userID,
		ChannelID:    req.ChannelID,
		CreatedAt:    h.now(),
	}

	if err := h.Subscriptions.Create(ctx, sub); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "already subscribed"})
		case errors.Is(err, repositories.ErrNotFound):
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "channel not found"})
		default:
			logger.Error("create subscription failed", "userId", userID, "channelId", req.ChannelID, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to subscribe"})
		}
		return
	}

	respondJSON(ctx, w, http.StatusCreated, subscriptionResponse{ChannelID: sub.ChannelID, CreatedAt: sub.CreatedAt})
}

func (h SubscriptionHandler) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChannelID == "" {
		logger.Warn("invalid unsubscribe payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "channelId is required"})
		return
	}

	if err := h.Subscriptions.Delete(ctx, userID, req.ChannelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "subscription not found"})
			return
		}
		logger.Error("delete subscription failed", "userId", userID, "channelId", req.ChannelID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to unsubscribe"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type subscriptionRequest struct {
	ChannelID string `json:"channelId"`
}

type subscriptionResponse struct {
	ChannelID string    `json:"channelId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h SubscriptionHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
