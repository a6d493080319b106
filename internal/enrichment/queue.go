package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrQueueUnavailable indicates the HTTP queue client is not configured.
var ErrQueueUnavailable = errors.New("enrichment queue unavailable")

// HTTPQueue submits jobs to the managed queue over its publish endpoint.
type HTTPQueue struct {
	queueURL string
	token    string
	http     *http.Client
}

// NewHTTPQueue constructs a queue client with a bounded request timeout.
func NewHTTPQueue(queueURL, token string, timeout time.Duration) *HTTPQueue {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPQueue{
		queueURL: queueURL,
		token:    token,
		http:     &http.Client{Timeout: timeout},
	}
}

type enqueueResponse struct {
	JobID string `json:"jobId"`
}

// Enqueue publishes the job spec. The queue deduplicates on the idempotency key.
func (q *HTTPQueue) Enqueue(ctx context.Context, job Job, idempotencyKey string) (string, error) {
	if q == nil || q.queueURL == "" {
		return "", ErrQueueUnavailable
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode enrichment job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.queueURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if q.token != "" {
		req.Header.Set("Authorization", "Bearer "+q.token)
	}

	resp, err := q.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("enqueue enrichment job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("enqueue enrichment job: unexpected status %d", resp.StatusCode)
	}

	var decoded enqueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode enqueue response: %w", err)
	}

	return decoded.JobID, nil
}

var _ Queue = (*HTTPQueue)(nil)
