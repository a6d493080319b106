package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/mediaprovider"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

// maxThumbnailUpload bounds custom thumbnail uploads.
const maxThumbnailUpload = 8 << 20

// VideoHandler provides endpoints for browsing and editing videos.
type VideoHandler struct {
	Videos   VideoStore
	Sessions SessionManager
	Assets   AssetReplacer
	URLs     mediaprovider.URLs
}

// Feed handles GET /api/v1/videos/feed.
func (h VideoHandler) Feed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	videos, err := h.Videos.ListFeed(ctx, userID)
	if err != nil {
		logger.Error("list feed failed", "userId", userID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load feed"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, videoListResponse{Videos: videoViews(videos, h.URLs)})
}

// Mine handles GET /api/v1/videos/mine.
func (h VideoHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	videos, err := h.Videos.ListByOwner(ctx, userID)
	if err != nil {
		logger.Error("list owned videos failed", "userId", userID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load videos"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, videoListResponse{Videos: videoViews(videos, h.URLs)})
}

// ByID handles GET and PATCH /api/v1/videos/{id}.
func (h VideoHandler) ByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPatch:
		h.patchMeta(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h VideoHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
			return
		}
		logger.Error("load video failed", "videoId", r.PathValue("id"), "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load video"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, videoView(video, h.URLs))
}

func (h VideoHandler) patchMeta(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
			return
		}
		logger.Error("load video failed", "videoId", r.PathValue("id"), "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load video"})
		return
	}

	if video.OwnerID != userID {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "not the video owner"})
		return
	}

	var req videoMetaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid video meta payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	title := video.Title
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	description := video.Description
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}

	// User edits are last-writer-wins against background enrichment; no merge.
	if err := h.Videos.UpdateMeta(ctx, video.ID, title, description); err != nil {
		logger.Error("update video meta failed", "videoId", video.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to update video"})
		return
	}

	video.Title = title
	video.Description = description
	respondJSON(ctx, w, http.StatusOK, videoView(video, h.URLs))
}

// Thumbnail handles POST /api/v1/videos/{id}/thumbnail: an owner-supplied
// custom thumbnail replacing whatever is currently attached.
func (h VideoHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
			return
		}
		logger.Error("load video failed", "videoId", r.PathValue("id"), "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load video"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxThumbnailUpload)
	file, header, err := r.FormFile("thumbnail")
	if err != nil {
		logger.Warn("invalid thumbnail upload", "videoId", video.ID, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "thumbnail file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	owned := assets.Owned{
		OwnerID: video.OwnerID,
		Scope:   "thumbnails/" + video.ID,
		Current: assets.Pointer{URL: video.ThumbnailURL, Key: video.ThumbnailKey},
		Persist: func(ctx context.Context, p assets.Pointer) error {
			return h.Videos.SetThumbnail(ctx, video.ID, p)
		},
	}

	pointer, err := h.Assets.Replace(ctx, owned, userID, assets.ReaderSource{Reader: file, ContentType: contentType})
	if err != nil {
		if errors.Is(err, assets.ErrNotOwner) {
			respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "not the video owner"})
			return
		}
		logger.Error("replace thumbnail failed", "videoId", video.ID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store thumbnail"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"thumbnailUrl": pointer.URL})
}

type videoMetaRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type videoListResponse struct {
	Videos []videoResponse `json:"videos"`
}

type videoResponse struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	State        string    `json:"state"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PlaybackID   string    `json:"playbackId,omitempty"`
	PlaybackURL  string    `json:"playbackUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	PreviewURL   string    `json:"previewUrl,omitempty"`
	Duration     float64   `json:"durationSeconds,omitempty"`
	ErrorReason  string    `json:"errorReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func videoView(video models.Video, urls mediaprovider.URLs) videoResponse {
	resp := videoResponse{
		ID:           video.ID,
		OwnerID:      video.OwnerID,
		State:        string(video.State),
		Title:        video.Title,
		Description:  video.Description,
		PlaybackID:   video.PlaybackID,
		ThumbnailURL: video.ThumbnailURL,
		PreviewURL:   video.PreviewURL,
		Duration:     video.Duration,
		ErrorReason:  video.ErrorReason,
		CreatedAt:    video.CreatedAt,
	}
	if video.PlaybackID != "" {
		resp.PlaybackURL = urls.HLS(video.PlaybackID)
	}
	return resp
}

func videoViews(videos []models.Video, urls mediaprovider.URLs) []videoResponse {
	views := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		views = append(views, videoView(video, urls))
	}
	return views
}
