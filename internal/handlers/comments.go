package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

// maxCommentLength bounds comment bodies.
const maxCommentLength = 2000

// CommentHandler provides comment endpoints under /api/v1/videos/{id}/comments.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	Sessions SessionManager
	NowFunc  func() time.Time
}

// Handle dispatches by method.
func (h CommentHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h CommentHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	videoID := r.PathValue("id")
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
			return
		}
		logger.Error("load video failed", "videoId", videoID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load comments"})
		return
	}

	comments, err := h.Comments.ListForVideo(ctx, videoID)
	if err != nil {
		logger.Error("list comments failed", "videoId", videoID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load comments"})
		return
	}

	views := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		views = append(views, commentView(comment))
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]commentResponse{"comments": views})
}

func (h CommentHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, err := callerID(ctx, h.Sessions, r)
	if err != nil {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	videoID := r.PathValue("id")
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "video not found"})
			return
		}
		logger.Error("load video failed", "videoId", videoID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to post comment"})
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid comment payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "comment body is required"})
		return
	}
	if len(body) > maxCommentLength {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "comment body too long"})
		return
	}

	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		AuthorID:  userID,
		Body:      body,
		CreatedAt: h.now(),
	}

	if err := h.Comments.Create(ctx, comment); err != nil {
		logger.Error("create comment failed", "videoId", videoID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to post comment"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, commentView(comment))
}

type commentRequest struct {
	Body string `json:"body"`
}

type commentResponse struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func commentView(comment models.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		VideoID:   comment.VideoID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
