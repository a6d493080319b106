package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// URLSource fetches asset bytes from a remote URL, typically the media
// provider's image CDN.
type URLSource struct {
	Client *http.Client
	URL    string
}

// Open issues the fetch and returns the response body along with its content type.
func (s URLSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build asset fetch request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch asset %s: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch asset %s: unexpected status %d", s.URL, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return resp.Body, contentType, nil
}

// ReaderSource wraps caller-supplied bytes, e.g. a multipart upload.
type ReaderSource struct {
	Reader      io.Reader
	ContentType string
}

// Open returns the wrapped reader.
func (s ReaderSource) Open(context.Context) (io.ReadCloser, string, error) {
	if s.Reader == nil {
		return nil, "", fmt.Errorf("reader source: no content")
	}
	contentType := s.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return io.NopCloser(s.Reader), contentType, nil
}
