package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cliptide/backend/internal/enrichment"
	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/webhooks"
)

// maxWebhookBody bounds inbound webhook payloads. Provider events are small;
// anything larger is hostile or broken.
const maxWebhookBody = 1 << 20

// WebhookHandler terminates the three signed webhook surfaces: media provider
// lifecycle events, identity provider user events, and enrichment queue
// completion callbacks. Every branch that is not an infrastructure failure
// responds 2xx so providers stop redelivering events that can never change the
// stored result.
type WebhookHandler struct {
	Reconciler EventReconciler
	Users      UserStore

	MediaSecret    string
	IdentitySecret string
	CallbackSecret string

	NowFunc func() time.Time
}

// Media handles POST /api/v1/webhooks/media.
func (h WebhookHandler) Media(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	rawBody, ok := readWebhookBody(w, r)
	if !ok {
		return
	}

	// Verification runs over the exact bytes received; decoding happens only
	// after the payload is attributed to the provider.
	if err := webhooks.VerifyMediaSignature(rawBody, r.Header.Get("Mux-Signature"), h.MediaSecret, h.now); err != nil {
		logger.Warn("media webhook rejected", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var envelope webhooks.Envelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		logger.Warn("media webhook malformed payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	event, err := webhooks.Normalize(envelope.Type, envelope.Data)
	if err != nil {
		// Unknown types and unusable payloads alike get acknowledged;
		// redelivery cannot make them normalize.
		logger.Info("media webhook event ignored", "type", envelope.Type, "reason", err)
		respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	outcome, err := h.Reconciler.Apply(ctx, event)
	if err != nil {
		logger.Error("media webhook reconciliation failed", "type", envelope.Type, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "event processing failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": string(outcome)})
}

// Identity handles POST /api/v1/webhooks/identity.
func (h WebhookHandler) Identity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	rawBody, ok := readWebhookBody(w, r)
	if !ok {
		return
	}

	err := webhooks.VerifyIdentitySignature(
		rawBody,
		r.Header.Get("Webhook-Id"),
		r.Header.Get("Webhook-Timestamp"),
		r.Header.Get("Webhook-Signature"),
		h.IdentitySecret,
	)
	if err != nil {
		logger.Warn("identity webhook rejected", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var envelope identityEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil || envelope.Data.ID == "" {
		logger.Warn("identity webhook malformed payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	switch envelope.Type {
	case "user.created", "user.updated":
		if envelope.Data.primaryEmail() == "" {
			logger.Warn("identity webhook missing email", "externalId", envelope.Data.ID)
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		now := h.now()
		user := models.User{
			ID:         uuid.NewString(),
			ExternalID: envelope.Data.ID,
			Email:      envelope.Data.primaryEmail(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := h.Users.UpsertByExternalID(ctx, user); err != nil {
			logger.Error("identity webhook upsert failed", "externalId", envelope.Data.ID, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "event processing failed"})
			return
		}
	case "user.deleted":
		if err := h.Users.DeleteByExternalID(ctx, envelope.Data.ID); err != nil {
			logger.Error("identity webhook delete failed", "externalId", envelope.Data.ID, "error", err)
			respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "event processing failed"})
			return
		}
	default:
		logger.Info("identity webhook event ignored", "type", envelope.Type)
		respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "applied"})
}

// Enrichment handles POST /api/v1/webhooks/enrichment.
func (h WebhookHandler) Enrichment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	rawBody, ok := readWebhookBody(w, r)
	if !ok {
		return
	}

	if err := webhooks.VerifyCallbackSignature(rawBody, r.Header.Get("X-Callback-Signature"), h.CallbackSecret); err != nil {
		logger.Warn("enrichment callback rejected", "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var completion enrichment.Completion
	if err := json.Unmarshal(rawBody, &completion); err != nil || completion.ExternalAssetID == "" {
		logger.Warn("enrichment callback malformed payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	outcome, err := h.Reconciler.ApplyEnrichment(ctx, completion)
	if err != nil {
		logger.Error("enrichment callback reconciliation failed", "externalAssetId", completion.ExternalAssetID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "event processing failed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": string(outcome)})
}

func (h WebhookHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func readWebhookBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	ctx := r.Context()

	rawBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logging.FromContext(ctx).Warn("webhook body unreadable", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}

	return rawBody, true
}

type identityEnvelope struct {
	Type string       `json:"type"`
	Data identityData `json:"data"`
}

type identityData struct {
	ID             string `json:"id"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (d identityData) primaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}
