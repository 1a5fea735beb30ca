package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated by content-based hashing so that re-processing the same
// input always yields the same identity.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Classification labels a message as human correspondence or automated mail.
type Classification int

const (
	// ClassificationHuman marks mail written by a person.
	ClassificationHuman Classification = iota + 1
	// ClassificationAutomated marks bulk, notification, or machine-generated mail.
	ClassificationAutomated
)

// String returns the label used in CLI output and index metadata.
func (c Classification) String() string {
	switch c {
	case ClassificationHuman:
		return "human"
	case ClassificationAutomated:
		return "automated"
	default:
		return "unknown"
	}
}

// Message is one fetched email. Messages are read-only after fetch; a new
// heuristic version re-classifies but never mutates the fetched content.
type Message struct {
	Id               ID
	Mailbox          string
	UID              uint32
	MessageID        string // RFC 5322 Message-ID header, may be empty
	From             string
	Subject          string
	Timestamp        time.Time
	TextBody         string
	HTMLBody         string
	Headers          map[string]string
	Size             int64
	Unread           bool
	Classification   Classification
	HeuristicVersion int
}

// Body returns the text to index: the plain-text body, falling back to HTML.
func (m *Message) Body() string {
	if m.TextBody != "" {
		return m.TextBody
	}
	return m.HTMLBody
}

// Chunk is a contiguous text segment derived from one Message.
// Ordinals are contiguous starting at 0 per message.
type Chunk struct {
	Id        ID
	MessageId ID
	Ordinal   int
	Start     int // rune offset of the non-overlapping span in the normalized body
	Text      string
	Overlap   int // runes shared with the previous chunk at the head of Text
}

// ChunkID derives the stable chunk identity from its parent message,
// ordinal, and text. Re-chunking identical content yields identical IDs.
func ChunkID(messageID ID, ordinal int, text string) ID {
	buf := make([]byte, 0, 16+len(text))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(messageID))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(ordinal))
	buf = append(buf, text...)
	return IDFromContent(string(buf))
}

// IndexEntry is the persisted unit in the vector index: one embedded chunk
// plus the message metadata needed for display and filtering.
type IndexEntry struct {
	ChunkId          ID
	MessageId        ID
	Ordinal          int
	Text             string
	Vector           []float32
	From             string
	Subject          string
	Timestamp        time.Time
	Classification   Classification
	HeuristicVersion int
	EmbeddingVersion string
	InsertedAt       time.Time
}

// Watermark tracks the most recent fully ingested point of one mailbox.
// It advances only after a batch is durably persisted, so a crashed run
// re-ingests at most one batch.
type Watermark struct {
	Mailbox       string
	UIDValidity   uint32
	LastUID       uint32
	LastTimestamp time.Time
	UpdatedAt     time.Time
}

// IsZero reports whether the watermark has never been advanced.
func (w Watermark) IsZero() bool {
	return w.UIDValidity == 0 && w.LastUID == 0
}

// SearchResult is one vector search hit: the stored entry and its distance
// from the query (cosine distance, smaller is more similar).
type SearchResult struct {
	Entry    *IndexEntry
	Distance float32
}

// EmbeddingFailure reports one chunk that could not be embedded after
// retries were exhausted. Failures are isolated per chunk; they never abort
// the rest of the run.
type EmbeddingFailure struct {
	ChunkId ID
	Err     error
}

// RunSummary is the outcome of one ingestion run.
type RunSummary struct {
	Mailbox       string
	Fetched       int
	Skipped       int // already-ingested messages (dedup by identity)
	ChunksIndexed int
	Failures      []EmbeddingFailure
	Watermark     Watermark
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Failed reports whether any unit of the run failed to fully ingest.
func (s *RunSummary) Failed() bool {
	return len(s.Failures) > 0
}
