package handlers

import (
	"net/http"
	"time"

	"github.com/cliptide/backend/internal/mediaprovider"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Comments      CommentStore
	Subscriptions SubscriptionStore
	Reconciler    EventReconciler
	Assets        AssetReplacer
	Uploads       UploadProvider
	Limiter       RateLimiter
	MediaURLs     mediaprovider.URLs

	MediaWebhookSecret    string
	IdentityWebhookSecret string
	CallbackSecret        string
	CORSOrigin            string

	NowFunc func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, NowFunc: deps.NowFunc}
	webhooks := WebhookHandler{
		Reconciler:     deps.Reconciler,
		Users:          deps.Users,
		MediaSecret:    deps.MediaWebhookSecret,
		IdentitySecret: deps.IdentityWebhookSecret,
		CallbackSecret: deps.CallbackSecret,
		NowFunc:        deps.NowFunc,
	}
	uploads := UploadHandler{
		Videos:     deps.Videos,
		Sessions:   deps.Sessions,
		Provider:   deps.Uploads,
		Limiter:    deps.Limiter,
		CORSOrigin: deps.CORSOrigin,
		NowFunc:    deps.NowFunc,
	}
	videos := VideoHandler{Videos: deps.Videos, Sessions: deps.Sessions, Assets: deps.Assets, URLs: deps.MediaURLs}
	users := UserHandler{Users: deps.Users, Sessions: deps.Sessions, Assets: deps.Assets}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Sessions: deps.Sessions, NowFunc: deps.NowFunc}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Sessions: deps.Sessions, NowFunc: deps.NowFunc}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/password-reset", auth.RequestPasswordReset)
	mux.HandleFunc("/api/v1/webhooks/media", webhooks.Media)
	mux.HandleFunc("/api/v1/webhooks/identity", webhooks.Identity)
	mux.HandleFunc("/api/v1/webhooks/enrichment", webhooks.Enrichment)
	mux.HandleFunc("/api/v1/uploads", uploads.Create)
	mux.HandleFunc("/api/v1/videos/feed", videos.Feed)
	mux.HandleFunc("/api/v1/videos/mine", videos.Mine)
	mux.HandleFunc("/api/v1/videos/{id}", videos.ByID)
	mux.HandleFunc("/api/v1/videos/{id}/thumbnail", videos.Thumbnail)
	mux.HandleFunc("/api/v1/videos/{id}/comments", comments.Handle)
	mux.HandleFunc("/api/v1/users/banner", users.Banner)
	mux.HandleFunc("/api/v1/subscriptions", subscriptions.Handle)
}
