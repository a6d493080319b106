// Package enrichment submits background title/description generation jobs to
// the managed queue and models their completion callbacks.
package enrichment

import (
	"context"
	"fmt"
)

// Kind identifies which single field an enrichment job produces.
type Kind string

const (
	KindTitle       Kind = "title"
	KindDescription Kind = "description"
)

// Valid reports whether the kind is one this service understands.
func (k Kind) Valid() bool {
	return k == KindTitle || k == KindDescription
}

// Job describes the work submitted to the queue. The queue's worker fetches the
// transcript, generates the text, and POSTs a Completion to CallbackURL.
type Job struct {
	ExternalAssetID string `json:"externalAssetId"`
	Kind            Kind   `json:"kind"`
	TranscriptURL   string `json:"transcriptUrl"`
	CallbackURL     string `json:"callbackUrl"`
}

// Completion is the signed payload delivered to the callback endpoint when a
// job finishes. Error is set when the job failed; Text is then empty.
type Completion struct {
	ExternalAssetID string `json:"externalAssetId"`
	Kind            Kind   `json:"kind"`
	Text            string `json:"text"`
	Error           string `json:"error,omitempty"`
}

// IdempotencyKey dedupes a job per (asset, kind) pair. Duplicate
// TranscriptReady deliveries submit the same key and the queue drops the
// second enqueue.
func IdempotencyKey(externalAssetID string, kind Kind) string {
	return fmt.Sprintf("%s:%s", externalAssetID, kind)
}

// Queue is the contract with the managed queue collaborator. Idempotency-key
// de-duplication is the queue's responsibility.
type Queue interface {
	Enqueue(ctx context.Context, job Job, idempotencyKey string) (string, error)
}
