package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/repositories"
)

// maxBannerUpload bounds profile banner uploads.
const maxBannerUpload = 8 << 20

// UserHandler provides profile endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Assets   AssetReplacer
}

// Banner handles POST /api/v1/users/banner: replaces the caller's profile
// banner through the asset coordinator.
func (h UserHandler) Banner(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		logger.Error("load user failed", "userId", userID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to load profile"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBannerUpload)
	file, header, err := r.FormFile("banner")
	if err != nil {
		logger.Warn("invalid banner upload", "userId", userID, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "banner file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	owned := assets.Owned{
		OwnerID: user.ID,
		Scope:   "banners/" + user.ID,
		Current: assets.Pointer{URL: user.BannerURL, Key: user.BannerKey},
		Persist: func(ctx context.Context, p assets.Pointer) error {
			return h.Users.SetBanner(ctx, user.ID, p)
		},
	}

	pointer, err := h.Assets.Replace(ctx, owned, userID, assets.ReaderSource{Reader: file, ContentType: contentType})
	if err != nil {
		logger.Error("replace banner failed", "userId", userID, "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store banner"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"bannerUrl": pointer.URL})
}
