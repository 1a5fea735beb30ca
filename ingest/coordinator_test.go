package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlgkav/email-agent/ai/mock"
	"github.com/mlgkav/email-agent/core"
	"github.com/mlgkav/email-agent/mail"
	"github.com/mlgkav/email-agent/storage"
	"github.com/mlgkav/email-agent/storage/badger"
)

// scriptedFetcher serves a fixed mailbox from memory, honoring the
// watermark and limit the way an IMAP server would.
type scriptedFetcher struct {
	uidValidity uint32
	messages    []*core.Message
	fetchErr    error
}

func (f *scriptedFetcher) Fetch(ctx context.Context, since core.Watermark, limit int) (*mail.FetchResult, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	result := &mail.FetchResult{
		Mailbox:     "INBOX",
		UIDValidity: f.uidValidity,
	}

	startUID := uint32(0)
	if !since.IsZero() && since.UIDValidity == f.uidValidity {
		startUID = since.LastUID
	}

	for _, msg := range f.messages {
		if msg.UID <= startUID {
			continue
		}
		result.Messages = append(result.Messages, msg)
		if limit > 0 && len(result.Messages) >= limit {
			break
		}
	}
	return result, nil
}

func testMessage(uid uint32, from, subject, body string) *core.Message {
	return &core.Message{
		Id:        core.IDFromContent(fmt.Sprintf("<%d@example.com>", uid)),
		Mailbox:   "INBOX",
		UID:       uid,
		MessageID: fmt.Sprintf("<%d@example.com>", uid),
		From:      from,
		Subject:   subject,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(uid) * time.Hour),
		TextBody:  body,
		Headers:   map[string]string{},
	}
}

func testMailbox() []*core.Message {
	return []*core.Message{
		testMessage(1, "Alice <alice@example.com>", "lunch",
			"Hi Bob,\n\nLunch tomorrow?\n\nCheers,\nAlice"),
		testMessage(2, "noreply@shop.example.com", "Your order shipped",
			"Your order #1234 has shipped and will arrive Thursday."),
		testMessage(3, "Carol <carol@example.com>", "project update",
			"Hi team,\n\nThe project is on track for the June release.\n\nBest,\nCarol"),
	}
}

func newTestCoordinator(t *testing.T, fetcher mail.Fetcher) (*Coordinator, storage.VectorIndex, storage.WatermarkRepository) {
	t.Helper()

	index, watermarks, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	orch, err := NewOrchestrator(mock.NewEmbedder(8, "test-model"), WithMaxAttempts(1))
	require.NoError(t, err)
	t.Cleanup(orch.Release)

	coord, err := NewCoordinator(fetcher, index, watermarks, orch)
	require.NoError(t, err)
	return coord, index, watermarks
}

func TestCoordinatorRun(t *testing.T) {
	fetcher := &scriptedFetcher{uidValidity: 7, messages: testMailbox()}
	coord, index, watermarks := newTestCoordinator(t, fetcher)

	summary, err := coord.Run(context.Background(), "INBOX", 0)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 3, summary.ChunksIndexed, "each short message yields one chunk")
	assert.False(t, summary.Failed())
	assert.Equal(t, StateIdle, coord.State())

	// Watermark advanced to the last message and persisted.
	assert.Equal(t, uint32(3), summary.Watermark.LastUID)
	stored, err := watermarks.Load(context.Background(), "INBOX")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, uint32(3), stored.LastUID)
	assert.Equal(t, uint32(7), stored.UIDValidity)

	// All three messages are in the index with classifications stamped.
	for _, msg := range fetcher.messages {
		has, err := index.HasMessage(context.Background(), msg.Id)
		require.NoError(t, err)
		assert.True(t, has, "uid %d should be indexed", msg.UID)
	}
}

func TestCoordinatorIdempotentReRun(t *testing.T) {
	fetcher := &scriptedFetcher{uidValidity: 7, messages: testMailbox()}
	coord, _, watermarks := newTestCoordinator(t, fetcher)

	_, err := coord.Run(context.Background(), "INBOX", 0)
	require.NoError(t, err)

	// Nothing new: the watermark excludes everything.
	second, err := coord.Run(context.Background(), "INBOX", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Fetched)
	assert.Equal(t, 0, second.ChunksIndexed)

	// Force a refetch by resetting the watermark; dedup must skip all.
	require.NoError(t, watermarks.Save(context.Background(), &core.Watermark{
		Mailbox:     "INBOX",
		UIDValidity: 7,
	}))
	third, err := coord.Run(context.Background(), "INBOX", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, third.Fetched)
	assert.Equal(t, 3, third.Skipped, "already-indexed messages are deduplicated")
	assert.Equal(t, 0, third.ChunksIndexed)
}

func TestCoordinatorUIDValidityChange(t *testing.T) {
	fetcher := &scriptedFetcher{uidValidity: 7, messages: testMailbox()}
	coord, _, watermarks := newTestCoordinator(t, fetcher)

	_, err := coord.Run(context.Background(), "INBOX", 0)
	require.NoError(t, err)

	// Server renumbered the mailbox.
	fetcher.uidValidity = 8

	summary, err := coord.Run(context.Background(), "INBOX", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Fetched, "a stale watermark restarts the sync")
	assert.Equal(t, 3, summary.Skipped, "content identities keep the restart idempotent")

	stored, err := watermarks.Load(context.Background(), "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(8), stored.UIDValidity)
	assert.Equal(t, uint32(3), stored.LastUID)
}

func TestCoordinatorWatermarkSafety(t *testing.T) {
	fetcher := &scriptedFetcher{uidValidity: 7, messages: testMailbox()}

	index, watermarks, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	orch, err := NewOrchestrator(mock.NewEmbedder(8, "test-model"), WithMaxAttempts(1))
	require.NoError(t, err)
	t.Cleanup(orch.Release)

	failing := &failingIndex{VectorIndex: index}
	coord, err := NewCoordinator(fetcher, failing, watermarks, orch)
	require.NoError(t, err)

	summary, err := coord.Run(context.Background(), "INBOX", 0)
	require.Error(t, err)
	assert.Equal(t, StateFailed, coord.State())

	// Persist failed, so the watermark must not have moved.
	stored, loadErr := watermarks.Load(context.Background(), "INBOX")
	require.NoError(t, loadErr)
	assert.Nil(t, stored, "watermark advances only after a durable persist")
	assert.Equal(t, uint32(0), summary.Watermark.LastUID)
}

func TestCoordinatorPartialEmbeddingFailure(t *testing.T) {
	// Ten one-chunk messages; the embedding service dies after nine calls.
	var messages []*core.Message
	for uid := uint32(1); uid <= 10; uid++ {
		messages = append(messages, testMessage(uid, "Alice <alice@example.com>",
			fmt.Sprintf("note %d", uid),
			fmt.Sprintf("Hi Bob,\n\nNote number %d.\n\nCheers,\nAlice", uid)))
	}
	fetcher := &scriptedFetcher{uidValidity: 7, messages: messages}

	index, watermarks, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	embedder := mock.NewEmbedder(8, "test-model")
	embedder.FailAfter(9, errors.New("service unavailable"))
	orch, err := NewOrchestrator(embedder,
		WithBatchSize(1),
		WithPoolSize(1),
		WithMaxAttempts(1))
	require.NoError(t, err)
	t.Cleanup(orch.Release)

	coord, err := NewCoordinator(fetcher, index, watermarks, orch)
	require.NoError(t, err)

	summary, err := coord.Run(context.Background(), "INBOX", 0)
	require.NoError(t, err, "partial success is not total failure")

	assert.Equal(t, 10, summary.Fetched)
	assert.Equal(t, 9, summary.ChunksIndexed)
	require.Len(t, summary.Failures, 1)
	assert.True(t, summary.Failed())

	// The batch still committed and the watermark covers all ten.
	stored, err := watermarks.Load(context.Background(), "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(10), stored.LastUID)
}

func TestCoordinatorFetchError(t *testing.T) {
	fetcher := &scriptedFetcher{
		uidValidity: 7,
		fetchErr:    &mail.TransportError{Op: "dial", Err: errors.New("connection refused")},
	}
	coord, _, _ := newTestCoordinator(t, fetcher)

	_, err := coord.Run(context.Background(), "INBOX", 0)
	require.Error(t, err)

	var transportErr *mail.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, StateFailed, coord.State())
}

func TestCoordinatorLimit(t *testing.T) {
	fetcher := &scriptedFetcher{uidValidity: 7, messages: testMailbox()}
	coord, _, watermarks := newTestCoordinator(t, fetcher)

	summary, err := coord.Run(context.Background(), "INBOX", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Fetched)

	stored, err := watermarks.Load(context.Background(), "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), stored.LastUID, "limit stops after a committed batch")
}

func TestCoordinatorEmptyMailboxName(t *testing.T) {
	fetcher := &scriptedFetcher{uidValidity: 7}
	coord, _, _ := newTestCoordinator(t, fetcher)

	_, err := coord.Run(context.Background(), "", 0)
	assert.ErrorIs(t, err, core.ErrEmptyMailbox)
}

// failingIndex wraps a VectorIndex and fails every Upsert.
type failingIndex struct {
	storage.VectorIndex
}

func (f *failingIndex) Upsert(ctx context.Context, entries ...*core.IndexEntry) error {
	return errors.New("disk full")
}
