package handlers

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cliptide/backend/internal/assets"
	"github.com/cliptide/backend/internal/auth"
	"github.com/cliptide/backend/internal/enrichment"
	"github.com/cliptide/backend/internal/lifecycle"
	"github.com/cliptide/backend/internal/mediaprovider"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
	"github.com/cliptide/backend/internal/webhooks"
)

type inMemoryUserStore struct {
	users   map[string]models.User
	deleted []string
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) UpsertByExternalID(_ context.Context, user models.User) error {
	for id, existing := range s.users {
		if existing.ExternalID == user.ExternalID {
			existing.Email = user.Email
			existing.UpdatedAt = user.UpdatedAt
			s.users[id] = existing
			return nil
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) DeleteByExternalID(_ context.Context, externalID string) error {
	s.deleted = append(s.deleted, externalID)
	for id, existing := range s.users {
		if existing.ExternalID == externalID {
			delete(s.users, id)
		}
	}
	return nil
}

func (s *inMemoryUserStore) SetBanner(_ context.Context, userID string, p assets.Pointer) error {
	user, ok := s.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.BannerURL = p.URL
	user.BannerKey = p.Key
	s.users[userID] = user
	return nil
}

type inMemoryVideoStore struct {
	videos    map[string]models.Video
	feed      []models.Video
	feedUser  string
	createErr error
	feedErr   error
}

func newInMemoryVideoStore() *inMemoryVideoStore {
	return &inMemoryVideoStore{videos: make(map[string]models.Video)}
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.videos[video.ID] = video
	return nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideoStore) UpdateMeta(_ context.Context, id, title, description string) error {
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Title = title
	video.Description = description
	s.videos[id] = video
	return nil
}

func (s *inMemoryVideoStore) SetThumbnail(_ context.Context, videoID string, p assets.Pointer) error {
	video, ok := s.videos[videoID]
	if !ok {
		return repositories.ErrNotFound
	}
	video.ThumbnailURL = p.URL
	video.ThumbnailKey = p.Key
	s.videos[videoID] = video
	return nil
}

func (s *inMemoryVideoStore) ListFeed(_ context.Context, userID string) ([]models.Video, error) {
	s.feedUser = userID
	if s.feedErr != nil {
		return nil, s.feedErr
	}
	return s.feed, nil
}

func (s *inMemoryVideoStore) ListByOwner(_ context.Context, ownerID string) ([]models.Video, error) {
	var out []models.Video
	for _, video := range s.videos {
		if video.OwnerID == ownerID {
			out = append(out, video)
		}
	}
	return out, nil
}

type reconcilerStub struct {
	events      []webhooks.Event
	completions []enrichment.Completion
	outcome     lifecycle.Outcome
	err         error
}

func (r *reconcilerStub) Apply(_ context.Context, event webhooks.Event) (lifecycle.Outcome, error) {
	r.events = append(r.events, event)
	if r.err != nil {
		return "", r.err
	}
	return r.outcome, nil
}

func (r *reconcilerStub) ApplyEnrichment(_ context.Context, completion enrichment.Completion) (lifecycle.Outcome, error) {
	r.completions = append(r.completions, completion)
	if r.err != nil {
		return "", r.err
	}
	return r.outcome, nil
}

type replacerStub struct {
	owned    assets.Owned
	callerID string
	body     []byte
	pointer  assets.Pointer
	err      error
}

func (r *replacerStub) Replace(ctx context.Context, owned assets.Owned, callerID string, src assets.Source) (assets.Pointer, error) {
	r.owned = owned
	r.callerID = callerID
	if callerID != assets.SystemCaller && callerID != owned.OwnerID {
		return assets.Pointer{}, assets.ErrNotOwner
	}
	if body, contentType, err := src.Open(ctx); err == nil {
		r.body, _ = io.ReadAll(body)
		body.Close()
		_ = contentType
	}
	if r.err != nil {
		return assets.Pointer{}, r.err
	}
	if owned.Persist != nil {
		if err := owned.Persist(ctx, r.pointer); err != nil {
			return assets.Pointer{}, err
		}
	}
	return r.pointer, nil
}

type uploadProviderStub struct {
	upload      mediaprovider.DirectUpload
	passthrough string
	err         error
}

func (p *uploadProviderStub) CreateDirectUpload(_ context.Context, _, passthrough string) (mediaprovider.DirectUpload, error) {
	p.passthrough = passthrough
	if p.err != nil {
		return mediaprovider.DirectUpload{}, p.err
	}
	return p.upload, nil
}

// newTestSession issues a real access token for userID and returns the manager
// plus the Authorization header value.
func newTestSession(t *testing.T, userID string) (*auth.Manager, string) {
	t.Helper()
	manager := auth.NewManager(time.Minute, time.Hour, auth.NewInMemorySessionStore())
	tokens, err := manager.Issue(context.Background(), userID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return manager, "Bearer " + tokens.AccessToken
}
