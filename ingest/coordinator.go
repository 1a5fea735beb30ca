// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mlgkav/email-agent/chunk"
	"github.com/mlgkav/email-agent/classify"
	"github.com/mlgkav/email-agent/core"
	"github.com/mlgkav/email-agent/mail"
	"github.com/mlgkav/email-agent/storage"
)

// State is the coordinator's position in the ingestion cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateClassifying
	StateChunking
	StateEmbedding
	StatePersisting
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateClassifying:
		return "classifying"
	case StateChunking:
		return "chunking"
	case StateEmbedding:
		return "embedding"
	case StatePersisting:
		return "persisting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Coordinator drives one mailbox through the ingestion cycle batch by
// batch: fetch, classify, chunk, embed, persist, advance the watermark.
//
// The watermark only moves after a batch is durably persisted, so a crash
// or cancellation loses at most one batch of work; content-hash identities
// make the re-ingestion of that batch idempotent.
type Coordinator struct {
	fetcher      mail.Fetcher
	index        storage.VectorIndex
	watermarks   storage.WatermarkRepository
	orchestrator *Orchestrator

	fetchBatch   int
	chunkMaxLen  int
	chunkOverlap int
	logger       *slog.Logger

	mu    sync.Mutex
	state State
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator) error

// WithFetchBatch sets how many messages are pulled per cycle. Default is 50.
func WithFetchBatch(n int) CoordinatorOption {
	return func(c *Coordinator) error {
		if n < 1 {
			n = 1
		}
		c.fetchBatch = n
		return nil
	}
}

// WithChunkParams sets the chunk size and overlap in runes.
func WithChunkParams(maxLen, overlap int) CoordinatorOption {
	return func(c *Coordinator) error {
		if overlap >= maxLen {
			return chunk.ErrInvalidParams
		}
		c.chunkMaxLen = maxLen
		c.chunkOverlap = overlap
		return nil
	}
}

// WithCoordinatorLogger sets a custom logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCoordinator creates an ingestion coordinator.
func NewCoordinator(
	fetcher mail.Fetcher,
	index storage.VectorIndex,
	watermarks storage.WatermarkRepository,
	orchestrator *Orchestrator,
	opts ...CoordinatorOption,
) (*Coordinator, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}
	if watermarks == nil {
		return nil, ErrWatermarksRequired
	}
	if orchestrator == nil {
		return nil, ErrOrchestratorRequired
	}

	c := &Coordinator{
		fetcher:      fetcher,
		index:        index,
		watermarks:   watermarks,
		orchestrator: orchestrator,
		fetchBatch:   50,
		chunkMaxLen:  chunk.DefaultMaxLen,
		chunkOverlap: chunk.DefaultOverlap,
		logger:       slog.Default().With("component", "ingestion-coordinator"),
		state:        StateIdle,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// State returns the coordinator's current position in the cycle.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	from := c.state
	c.state = s
	c.mu.Unlock()
	if from != s {
		c.logger.Debug("state transition", "from", from, "to", s)
	}
}

// Run ingests the mailbox up to limit messages (0 means no limit) and
// returns a summary. The summary is returned even on error so partial
// progress is visible. Per-chunk embedding failures are recorded in the
// summary and do not abort the run; fetch, persist, and watermark failures
// do.
func (c *Coordinator) Run(ctx context.Context, mailbox string, limit int) (*core.RunSummary, error) {
	if mailbox == "" {
		return nil, core.ErrEmptyMailbox
	}

	summary := &core.RunSummary{
		Mailbox:   mailbox,
		StartedAt: time.Now().UTC(),
	}
	defer func() { summary.FinishedAt = time.Now().UTC() }()

	watermark, err := c.loadWatermark(ctx, mailbox)
	if err != nil {
		c.setState(StateFailed)
		return summary, err
	}

	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateIdle)
			summary.Watermark = watermark
			return summary, err
		}

		batchLimit := c.fetchBatch
		if limit > 0 {
			remaining := limit - summary.Fetched
			if remaining <= 0 {
				break
			}
			if remaining < batchLimit {
				batchLimit = remaining
			}
		}

		c.setState(StateFetching)
		result, err := c.fetcher.Fetch(ctx, watermark, batchLimit)
		if err != nil {
			c.setState(StateFailed)
			summary.Watermark = watermark
			return summary, fmt.Errorf("fetching %s: %w", mailbox, err)
		}

		// A UIDVALIDITY change invalidates the old watermark; the fetcher
		// has already restarted from the beginning of the mailbox.
		if watermark.UIDValidity != result.UIDValidity {
			watermark = core.Watermark{
				Mailbox:     mailbox,
				UIDValidity: result.UIDValidity,
			}
		}

		if len(result.Messages) == 0 {
			break
		}

		newWatermark, err := c.ingestBatch(ctx, watermark, result.Messages, summary)
		if err != nil {
			summary.Watermark = watermark
			return summary, err
		}
		watermark = newWatermark

		if len(result.Messages) < batchLimit {
			break
		}
	}

	c.setState(StateIdle)
	summary.Watermark = watermark

	c.logger.Info("ingestion run complete",
		"mailbox", mailbox,
		"fetched", summary.Fetched,
		"skipped", summary.Skipped,
		"chunks", summary.ChunksIndexed,
		"failures", len(summary.Failures))

	return summary, nil
}

func (c *Coordinator) loadWatermark(ctx context.Context, mailbox string) (core.Watermark, error) {
	stored, err := c.watermarks.Load(ctx, mailbox)
	if err != nil {
		return core.Watermark{}, fmt.Errorf("loading watermark for %s: %w", mailbox, err)
	}
	if stored == nil {
		return core.Watermark{Mailbox: mailbox}, nil
	}
	return *stored, nil
}

// ingestBatch carries one batch of messages through classify, chunk, embed,
// and persist, then advances the watermark. The watermark moves past every
// message in the batch, including deduplicated ones and ones with failed
// chunks; failures are reported in the summary instead of blocking sync.
func (c *Coordinator) ingestBatch(ctx context.Context, watermark core.Watermark, messages []*core.Message, summary *core.RunSummary) (core.Watermark, error) {
	summary.Fetched += len(messages)

	c.setState(StateClassifying)
	fresh := make([]*core.Message, 0, len(messages))
	for _, msg := range messages {
		indexed, err := c.index.HasMessage(ctx, msg.Id)
		if err != nil {
			c.setState(StateFailed)
			return watermark, fmt.Errorf("dedup check: %w", err)
		}
		if indexed {
			summary.Skipped++
			continue
		}
		classify.Apply(msg)
		fresh = append(fresh, msg)
	}

	c.setState(StateChunking)
	var payloads []Payload
	byChunk := make(map[core.ID]*core.Message)
	for _, msg := range fresh {
		chunks, err := chunk.Split(msg, c.chunkMaxLen, c.chunkOverlap)
		if err != nil {
			// Empty bodies are common (calendar invites, attachments only).
			c.logger.Debug("skipping unchunkable message", "uid", msg.UID, "err", err)
			summary.Skipped++
			continue
		}
		for _, ch := range chunks {
			byChunk[ch.Id] = msg
			payloads = append(payloads, Payload{
				Chunk: ch,
				Text:  embedPayload(msg, ch),
			})
		}
	}

	c.setState(StateEmbedding)
	embedded, failures, err := c.orchestrator.Embed(ctx, payloads)
	if err != nil {
		c.setState(StateFailed)
		return watermark, fmt.Errorf("embedding batch: %w", err)
	}
	summary.Failures = append(summary.Failures, failures...)

	c.setState(StatePersisting)
	entries := make([]*core.IndexEntry, 0, len(embedded))
	version := c.orchestrator.Version()
	for _, e := range embedded {
		msg := byChunk[e.Chunk.Id]
		entries = append(entries, &core.IndexEntry{
			ChunkId:          e.Chunk.Id,
			MessageId:        e.Chunk.MessageId,
			Ordinal:          e.Chunk.Ordinal,
			Text:             e.Chunk.Text,
			Vector:           e.Vector,
			From:             msg.From,
			Subject:          msg.Subject,
			Timestamp:        msg.Timestamp,
			Classification:   msg.Classification,
			HeuristicVersion: msg.HeuristicVersion,
			EmbeddingVersion: version,
		})
	}

	if len(entries) > 0 {
		if err := c.index.Upsert(ctx, entries...); err != nil {
			c.setState(StateFailed)
			return watermark, fmt.Errorf("persisting batch: %w", err)
		}
		summary.ChunksIndexed += len(entries)
	}

	last := messages[len(messages)-1]
	advanced := watermark
	advanced.LastUID = last.UID
	advanced.LastTimestamp = last.Timestamp
	if err := c.watermarks.Save(ctx, &advanced); err != nil {
		c.setState(StateFailed)
		return watermark, fmt.Errorf("advancing watermark: %w", err)
	}

	return advanced, nil
}

// embedPayload is the text sent to the embedding service: the subject gives
// the model context the chunk body alone may lack.
func embedPayload(msg *core.Message, ch *core.Chunk) string {
	if msg.Subject == "" {
		return ch.Text
	}
	return fmt.Sprintf("Subject: %s\n\n%s", msg.Subject, ch.Text)
}
