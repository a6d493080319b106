package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

type inMemorySubscriptionStore struct {
	subs map[string]models.Subscription
}

func newInMemorySubscriptionStore() *inMemorySubscriptionStore {
	return &inMemorySubscriptionStore{subs: make(map[string]models.Subscription)}
}

func (s *inMemorySubscriptionStore) Create(_ context.Context, sub models.Subscription) error {
	for _, existing := range s.subs {
		if existing.SubscriberID == sub.SubscriberID && existing.ChannelID == sub.ChannelID {
			return repositories.ErrConflict
		}
	}
	s.subs[sub.ID] = sub
	return nil
}

func (s *inMemorySubscriptionStore) Delete(_ context.Context, subscriberID, channelID string) error {
	for id, existing := range s.subs {
		if existing.SubscriberID == subscriberID && existing.ChannelID == channelID {
			delete(s.subs, id)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *inMemorySubscriptionStore) ListForSubscriber(_ context.Context, subscriberID string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range s.subs {
		if sub.SubscriberID == subscriberID {
			out = append(out, sub)
		}
	}
	return out, nil
}

type stubSubscriptionStore struct {
	createErr error
	deleteErr error
	listErr   error
}

func (s *stubSubscriptionStore) Create(context.Context, models.Subscription) error {
	return s.createErr
}

func (s *stubSubscriptionStore) Delete(context.Context, string, string) error {
	return s.deleteErr
}

func (s *stubSubscriptionStore) ListForSubscriber(context.Context, string) ([]models.Subscription, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []models.Subscription{{ID: "sub-1", ChannelID: "channel-1"}}, nil
}

func TestSubscriptionHandlerCreate(t *testing.T) {
	sessions, authz := newTestSession(t, "user-1")
	store := newInMemorySubscriptionStore()
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	handler := SubscriptionHandler{Subscriptions: store, Sessions: sessions, NowFunc: func() time.Time { return now }}

	body := []byte(`{"channelId":"channel-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", bytes.NewReader(body))
	req.Header.Set("Authorization", authz)
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var resp subscriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ChannelID != "channel-1" || !resp.CreatedAt.Equal(now) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(store.subs) != 1 {
		t.Fatalf("expected subscription to be stored")
	}
}

func TestSubscriptionHandlerCreateFailures(t *testing.T) {
	sessions, authz := newTestSession(t, "user-1")
	body := []byte(`{"channelId":"channel-1"}`)

	cases := []struct {
		name       string
		handler    SubscriptionHandler
		authz      string
		body       []byte
		wantStatus int
	}{
		{"unauthenticated", SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore(), Sessions: sessions}, "", body, http.StatusUnauthorized},
		{"badJSON", SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore(), Sessions: sessions}, authz, []byte("{"), http.StatusBadRequest},
		{"missingChannel", SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore(), Sessions: sessions}, authz, []byte(`{"channelId":""}`), http.StatusBadRequest},
		{"selfSubscribe", SubscriptionHandler{Subscriptions: newInMemorySubscriptionStore(), Sessions: sessions}, authz, []byte(`{"channelId":"user-1"}`), http.StatusBadRequest},
		{"conflict", SubscriptionHandler{Subscriptions: &stubSubscriptionStore{createErr: repositories.ErrConflict}, Sessions: sessions}, authz, body, http.StatusConflict},
		{"unknownChannel", SubscriptionHandler{Subscriptions: &stubSubscriptionStore{createErr: repositories.ErrNotFound}, Sessions: sessions}, authz, body, http.StatusNotFound},
		{"internal", SubscriptionHandler{Subscriptions: &stubSubscriptionStore{createErr: errors.New("boom")}, Sessions: sessions}, authz, body, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", bytes.NewReader(tc.body))
			if tc.authz != "" {
				req.Header.Set("Authorization", tc.authz)
			}
			rec := httptest.NewRecorder()

			tc.handler.Handle(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

func TestSubscriptionHandlerListAndDelete(t *testing.T) {
	sessions, authz := newTestSession(t, "user-1")
	store := newInMemorySubscriptionStore()
	store.subs["sub-1"] = models.Subscription{ID: "sub-1", SubscriberID: "user-1", ChannelID: "channel-1"}
	handler := SubscriptionHandler{Subscriptions: store, Sessions: sessions}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
	req.Header.Set("Authorization", authz)
	rec := httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var resp map[string][]subscriptionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp["subscriptions"]) != 1 || resp["subscriptions"][0].ChannelID != "channel-1" {
		t.Fatalf("unexpected response %+v", resp)
	}

	body := []byte(`{"channelId":"channel-1"}`)
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/subscriptions", bytes.NewReader(body))
	req.Header.Set("Authorization", authz)
	rec = httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rec.Code)
	}
	if len(store.subs) != 0 {
		t.Fatalf("expected subscription to be removed")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/subscriptions", bytes.NewReader(body))
	req.Header.Set("Authorization", authz)
	rec = httptest.NewRecorder()

	handler.Handle(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}
}
