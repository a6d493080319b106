package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/models"
)

// UploadHandler initiates direct-to-provider video uploads.
type UploadHandler struct {
	Videos     VideoStore
	Sessions   SessionManager
	Provider   UploadProvider
	Limiter    RateLimiter
	CORSOrigin string
	NowFunc    func() time.Time
}

// Create handles POST /api/v1/uploads. It asks the provider for a direct
// upload slot and records a waiting_upload video row keyed by the upload id,
// which is how the first AssetCreated webhook finds the record.
func (h UploadHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "uploads") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many upload requests"})
		return
	}

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	if h.Videos == nil || h.Provider == nil {
		logger.Error("upload dependencies unavailable", "hasVideos", h.Videos != nil, "hasProvider", h.Provider != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "upload services unavailable"})
		return
	}

	videoID := uuid.NewString()

	upload, err := h.Provider.CreateDirectUpload(ctx, h.CORSOrigin, videoID)
	if err != nil {
		logger.Error("create direct upload failed", "error", err)
		respondJSON(ctx, w, http.StatusBadGateway, map[string]string{"error": "upload provider unavailable"})
		return
	}

	now := h.now()
	video := models.Video{
		ID:        videoID,
		OwnerID:   userID,
		UploadID:  upload.UploadID,
		State:     models.StateWaitingUpload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("persist upload record failed", "videoId", videoID, "uploadId", upload.UploadID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to record upload"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, uploadResponse{
		VideoID:   video.ID,
		UploadID:  upload.UploadID,
		UploadURL: upload.UploadURL,
	})
}

type uploadResponse struct {
	VideoID   string `json:"videoId"`
	UploadID  string `json:"uploadId"`
	UploadURL string `json:"uploadUrl"`
}

func (h UploadHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
