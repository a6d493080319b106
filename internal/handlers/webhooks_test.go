package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cliptide/backend/internal/lifecycle"
)

const (
	testMediaSecret    = "media-secret"
	testCallbackSecret = "callback-secret"
)

var (
	testIdentityKey    = []byte("identity-signing-key-32-bytes!!!")
	testIdentitySecret = "whsec_" + base64.StdEncoding.EncodeToString(testIdentityKey)
)

func signMedia(body []byte, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testMediaSecret))
	fmt.Fprintf(mac, "%s.", timestamp)
	mac.Write(body)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func signIdentity(body []byte, msgID, timestamp string) string {
	mac := hmac.New(sha256.New, testIdentityKey)
	fmt.Fprintf(mac, "%s.%s.", msgID, timestamp)
	mac.Write(body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signCallback(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testCallbackSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newWebhookHandler(reconciler *reconcilerStub, users *inMemoryUserStore, now time.Time) WebhookHandler {
	return WebhookHandler{
		Reconciler:     reconciler,
		Users:          users,
		MediaSecret:    testMediaSecret,
		IdentitySecret: testIdentitySecret,
		CallbackSecret: testCallbackSecret,
		NowFunc:        func() time.Time { return now },
	}
}

func TestWebhookHandlerMediaApplied(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{outcome: lifecycle.OutcomeApplied}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	body := []byte(`{"type":"video.asset.ready","data":{"id":"asset-1","playback_ids":[{"id":"pb-1"}],"duration":31.4}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/media", bytes.NewReader(body))
	req.Header.Set("Mux-Signature", signMedia(body, now))
	rec := httptest.NewRecorder()

	handler.Media(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(reconciler.events) != 1 {
		t.Fatalf("expected one reconciled event, got %d", len(reconciler.events))
	}
	if got := reconciler.events[0].ExternalAssetID(); got != "asset-1" {
		t.Fatalf("unexpected asset id %q", got)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != string(lifecycle.OutcomeApplied) {
		t.Fatalf("unexpected status %q", resp["status"])
	}
}

func TestWebhookHandlerMediaRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{outcome: lifecycle.OutcomeApplied}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	body := []byte(`{"type":"video.asset.ready","data":{"id":"asset-1","playback_ids":[{"id":"pb-1"}]}}`)
	header := signMedia(body, now)
	tampered := bytes.Replace(body, []byte("asset-1"), []byte("asset-2"), 1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/media", bytes.NewReader(tampered))
	req.Header.Set("Mux-Signature", header)
	rec := httptest.NewRecorder()

	handler.Media(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(reconciler.events) != 0 {
		t.Fatalf("tampered payload must not reach the reconciler, got %d events", len(reconciler.events))
	}
}

func TestWebhookHandlerMediaRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{outcome: lifecycle.OutcomeApplied}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	body := []byte(`{"type":"video.asset.ready","data":{"id":"asset-1","playback_ids":[{"id":"pb-1"}]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/media", bytes.NewReader(body))
	req.Header.Set("Mux-Signature", signMedia(body, now.Add(-10*time.Minute)))
	rec := httptest.NewRecorder()

	handler.Media(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(reconciler.events) != 0 {
		t.Fatalf("stale delivery must not reach the reconciler")
	}
}

func TestWebhookHandlerMediaIgnoresUnrecognizedEvent(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{outcome: lifecycle.OutcomeApplied}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	body := []byte(`{"type":"video.asset.live_stream_completed","data":{"id":"asset-1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/media", bytes.NewReader(body))
	req.Header.Set("Mux-Signature", signMedia(body, now))
	rec := httptest.NewRecorder()

	handler.Media(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unrecognized events must be acked with 200, got %d", rec.Code)
	}
	if len(reconciler.events) != 0 {
		t.Fatalf("unrecognized events must not be reconciled")
	}
}

func TestWebhookHandlerMediaAcksUnusablePayload(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{outcome: lifecycle.OutcomeApplied}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	// A known type with an unusable payload must be acked, not 4xx'd; a
	// non-2xx would have the provider redeliver the same bytes forever.
	body := []byte(`{"type":"video.asset.ready","data":{"id":"asset-1","playback_ids":[]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/media", bytes.NewReader(body))
	req.Header.Set("Mux-Signature", signMedia(body, now))
	rec := httptest.NewRecorder()

	handler.Media(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unusable payloads must be acked with 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(reconciler.events) != 0 {
		t.Fatalf("unusable payloads must not be reconciled, got %d events", len(reconciler.events))
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ignored" {
		t.Fatalf("unexpected status %q", resp["status"])
	}
}

func TestWebhookHandlerMediaInfrastructureFailure(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{err: errors.New("store down")}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	body := []byte(`{"type":"video.asset.errored","data":{"id":"asset-1","errors":{"messages":["bad input"]}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/media", bytes.NewReader(body))
	req.Header.Set("Mux-Signature", signMedia(body, now))
	rec := httptest.NewRecorder()

	handler.Media(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("infra failure must 500 so the provider redelivers, got %d", rec.Code)
	}
}

func TestWebhookHandlerIdentityUpsertAndDelete(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	users := newInMemoryUserStore()
	handler := newWebhookHandler(&reconcilerStub{}, users, now)

	created := []byte(`{"type":"user.created","data":{"id":"idp-1","email_addresses":[{"email_address":"new@example.com"}]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(created))
	req.Header.Set("Webhook-Id", "msg-1")
	req.Header.Set("Webhook-Timestamp", "1709294400")
	req.Header.Set("Webhook-Signature", signIdentity(created, "msg-1", "1709294400"))
	rec := httptest.NewRecorder()

	handler.Identity(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := users.FindByEmail(req.Context(), "new@example.com"); err != nil {
		t.Fatalf("expected mirrored user: %v", err)
	}

	deleted := []byte(`{"type":"user.deleted","data":{"id":"idp-1"}}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(deleted))
	req.Header.Set("Webhook-Id", "msg-2")
	req.Header.Set("Webhook-Timestamp", "1709294401")
	req.Header.Set("Webhook-Signature", signIdentity(deleted, "msg-2", "1709294401"))
	rec = httptest.NewRecorder()

	handler.Identity(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(users.deleted) != 1 || users.deleted[0] != "idp-1" {
		t.Fatalf("expected delete for idp-1, got %v", users.deleted)
	}
}

func TestWebhookHandlerIdentityRejectsBadSignature(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	users := newInMemoryUserStore()
	handler := newWebhookHandler(&reconcilerStub{}, users, now)

	body := []byte(`{"type":"user.created","data":{"id":"idp-1","email_addresses":[{"email_address":"new@example.com"}]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(body))
	req.Header.Set("Webhook-Id", "msg-1")
	req.Header.Set("Webhook-Timestamp", "1709294400")
	req.Header.Set("Webhook-Signature", "v1,bm90LXRoZS1zaWduYXR1cmU=")
	rec := httptest.NewRecorder()

	handler.Identity(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(users.users) != 0 {
		t.Fatalf("unverified payload must not touch the store")
	}
}

func TestWebhookHandlerEnrichmentCallback(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{outcome: lifecycle.OutcomeApplied}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	body := []byte(`{"externalAssetId":"asset-1","kind":"title","text":"Generated Title"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/enrichment", bytes.NewReader(body))
	req.Header.Set("X-Callback-Signature", signCallback(body))
	rec := httptest.NewRecorder()

	handler.Enrichment(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(reconciler.completions) != 1 {
		t.Fatalf("expected one completion, got %d", len(reconciler.completions))
	}
	if reconciler.completions[0].Text != "Generated Title" {
		t.Fatalf("unexpected completion %+v", reconciler.completions[0])
	}
}

func TestWebhookHandlerEnrichmentRejectsBadSignature(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	reconciler := &reconcilerStub{outcome: lifecycle.OutcomeApplied}
	handler := newWebhookHandler(reconciler, newInMemoryUserStore(), now)

	body := []byte(`{"externalAssetId":"asset-1","kind":"title","text":"Generated Title"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/enrichment", bytes.NewReader(body))
	req.Header.Set("X-Callback-Signature", "not-a-signature")
	rec := httptest.NewRecorder()

	handler.Enrichment(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(reconciler.completions) != 0 {
		t.Fatalf("unverified completion must not be applied")
	}
}
