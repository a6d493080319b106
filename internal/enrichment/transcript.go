package enrichment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrTranscriptUnavailable indicates the provider has not (or no longer)
// serves the transcript at the supplied URL. Recoverable: the asset's
// lifecycle state is unaffected.
var ErrTranscriptUnavailable = errors.New("transcript unavailable")

const maxTranscriptBytes = 1 << 20

type transcriptEntry struct {
	text    string
	expires time.Time
}

// TranscriptFetcher retrieves transcript text from provider-supplied URLs with
// a TTL cache, so checking availability for the title job and the description
// job hits the URL once.
type TranscriptFetcher struct {
	client *http.Client
	ttl    time.Duration

	mu    sync.RWMutex
	items map[string]transcriptEntry
}

// NewTranscriptFetcher returns a fetcher that caches transcript text for the
// provided TTL.
func NewTranscriptFetcher(timeout, ttl time.Duration) *TranscriptFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TranscriptFetcher{
		client: &http.Client{Timeout: timeout},
		ttl:    ttl,
		items:  make(map[string]transcriptEntry),
	}
}

// Fetch returns the transcript text at url, serving from cache when fresh.
func (f *TranscriptFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f == nil || f.client == nil {
		return "", errors.New("transcript fetcher unavailable")
	}

	now := time.Now()

	f.mu.RLock()
	entry, ok := f.items[url]
	f.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.text, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrTranscriptUnavailable
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("fetch transcript: unexpected status %d", resp.StatusCode)
	}

	text, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return "", fmt.Errorf("read transcript body: %w", err)
	}

	f.mu.Lock()
	f.items[url] = transcriptEntry{text: string(text), expires: now.Add(f.ttl)}
	f.mu.Unlock()

	return string(text), nil
}
