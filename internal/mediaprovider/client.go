package mediaprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrProviderUnavailable indicates the client is missing credentials or a base URL.
var ErrProviderUnavailable = errors.New("media provider unavailable")

// DirectUpload is the provider-issued upload session a client PUTs video bytes to.
type DirectUpload struct {
	UploadID  string
	UploadURL string
}

// Client is a thin REST client for the managed encoding service. It only
// covers the calls this backend makes; everything else arrives via webhook.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs a provider client with a bounded request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type createUploadRequest struct {
	CORSOrigin       string           `json:"cors_origin"`
	NewAssetSettings newAssetSettings `json:"new_asset_settings"`
}

type newAssetSettings struct {
	PlaybackPolicy []string `json:"playback_policy"`
	Passthrough    string   `json:"passthrough,omitempty"`
}

type createUploadResponse struct {
	Data struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"data"`
}

// CreateDirectUpload opens an upload session at the provider. The passthrough
// value is echoed back on the asset's webhook events.
func (c *Client) CreateDirectUpload(ctx context.Context, corsOrigin, passthrough string) (DirectUpload, error) {
	if c == nil || c.baseURL == "" || c.token == "" {
		return DirectUpload{}, ErrProviderUnavailable
	}

	payload, err := json.Marshal(createUploadRequest{
		CORSOrigin: corsOrigin,
		NewAssetSettings: newAssetSettings{
			PlaybackPolicy: []string{"public"},
			Passthrough:    passthrough,
		},
	})
	if err != nil {
		return DirectUpload{}, fmt.Errorf("encode upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video/v1/uploads", bytes.NewReader(payload))
	if err != nil {
		return DirectUpload{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return DirectUpload{}, fmt.Errorf("create direct upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return DirectUpload{}, fmt.Errorf("create direct upload: unexpected status %d", resp.StatusCode)
	}

	var decoded createUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return DirectUpload{}, fmt.Errorf("decode upload response: %w", err)
	}
	if decoded.Data.ID == "" || decoded.Data.URL == "" {
		return DirectUpload{}, fmt.Errorf("upload response missing id or url")
	}

	return DirectUpload{UploadID: decoded.Data.ID, UploadURL: decoded.Data.URL}, nil
}
