package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cliptide/backend/internal/mediaprovider"
	"github.com/cliptide/backend/internal/models"
)

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestUploadHandlerCreate(t *testing.T) {
	sessions, authz := newTestSession(t, "user-1")
	store := newInMemoryVideoStore()
	provider := &uploadProviderStub{upload: mediaprovider.DirectUpload{
		UploadID:  "upload-1",
		UploadURL: "https://uploads.example.com/upload-1",
	}}

	now := time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)
	handler := UploadHandler{
		Videos:   store,
		Sessions: sessions,
		Provider: provider,
		NowFunc:  func() time.Time { return now },
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
	req.Header.Set("Authorization", authz)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UploadURL != "https://uploads.example.com/upload-1" {
		t.Fatalf("unexpected upload url %q", resp.UploadURL)
	}

	video, ok := store.videos[resp.VideoID]
	if !ok {
		t.Fatalf("expected video record to be created")
	}
	if video.State != models.StateWaitingUpload {
		t.Fatalf("expected waiting_upload state, got %s", video.State)
	}
	if video.UploadID != "upload-1" || video.OwnerID != "user-1" {
		t.Fatalf("unexpected record %+v", video)
	}
	if provider.passthrough != video.ID {
		t.Fatalf("expected passthrough to carry the video id, got %q", provider.passthrough)
	}
}

func TestUploadHandlerCreateFailures(t *testing.T) {
	sessions, authz := newTestSession(t, "user-1")

	t.Run("unauthenticated", func(t *testing.T) {
		handler := UploadHandler{Videos: newInMemoryVideoStore(), Sessions: sessions, Provider: &uploadProviderStub{}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("rateLimited", func(t *testing.T) {
		handler := UploadHandler{Videos: newInMemoryVideoStore(), Sessions: sessions, Provider: &uploadProviderStub{}, Limiter: denyAllLimiter{}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
		req.Header.Set("Authorization", authz)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 got %d", rec.Code)
		}
	})

	t.Run("providerDown", func(t *testing.T) {
		handler := UploadHandler{
			Videos:   newInMemoryVideoStore(),
			Sessions: sessions,
			Provider: &uploadProviderStub{err: errors.New("gateway timeout")},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
		req.Header.Set("Authorization", authz)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502 got %d", rec.Code)
		}
	})

	t.Run("storeFailure", func(t *testing.T) {
		store := newInMemoryVideoStore()
		store.createErr = errors.New("insert failed")
		handler := UploadHandler{
			Videos:   store,
			Sessions: sessions,
			Provider: &uploadProviderStub{upload: mediaprovider.DirectUpload{UploadID: "upload-1"}},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)
		req.Header.Set("Authorization", authz)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500 got %d", rec.Code)
		}
	})

	t.Run("wrongMethod", func(t *testing.T) {
		handler := UploadHandler{Videos: newInMemoryVideoStore(), Sessions: sessions, Provider: &uploadProviderStub{}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 got %d", rec.Code)
		}
	})
}
