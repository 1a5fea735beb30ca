package storage

import (
	"context"
	"time"

	"github.com/mlgkav/email-agent/core"
)

// Filter restricts vector search results by message metadata.
// Zero-valued fields match everything.
type Filter struct {
	// Classification limits results to one label (human or automated).
	Classification core.Classification

	// Since and Until bound the message timestamp: Since <= Timestamp < Until.
	Since time.Time
	Until time.Time

	// From is a case-insensitive substring match on the sender address.
	From string
}

// VectorIndex is the persisted store of embedded chunks.
// Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// Upsert persists entries keyed by chunk identity. Re-ingesting the same
	// chunk overwrites rather than duplicates. The batch is all-or-nothing:
	// on error none of it is considered committed.
	Upsert(ctx context.Context, entries ...*core.IndexEntry) error

	// Search returns up to k entries nearest to the query vector, ordered by
	// ascending cosine distance. Ties prefer the more recent message
	// timestamp. queryVersion must match the embedding version stamped on
	// stored entries; a mismatch returns core.ErrVersionMismatch.
	Search(ctx context.Context, vector []float32, queryVersion string, k int, filter *Filter) ([]*core.SearchResult, error)

	// DeleteMessage removes all chunks belonging to a message and returns
	// how many entries were deleted. Supports re-ingestion after heuristic
	// or chunking changes.
	DeleteMessage(ctx context.Context, messageID core.ID) (int, error)

	// HasMessage reports whether any chunk of the message is indexed.
	HasMessage(ctx context.Context, messageID core.ID) (bool, error)
}

// WatermarkRepository persists per-mailbox sync cursors.
// A watermark is advanced only after its batch is durably persisted.
type WatermarkRepository interface {
	// Load retrieves the watermark for a mailbox.
	// Returns nil, nil if the mailbox has never been synced.
	Load(ctx context.Context, mailbox string) (*core.Watermark, error)

	// Save persists the watermark atomically.
	Save(ctx context.Context, w *core.Watermark) error
}
