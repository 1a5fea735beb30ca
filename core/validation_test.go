package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMessage() *Message {
	return &Message{
		Id:        IDFromContent("<msg@example.com>"),
		Mailbox:   "INBOX",
		UID:       1,
		From:      "alice@example.com",
		Timestamp: time.Now().Add(-time.Hour),
		TextBody:  "hello",
	}
}

func TestValidateMessage(t *testing.T) {
	require.NoError(t, ValidateMessage(validMessage()))

	t.Run("nil", func(t *testing.T) {
		assert.ErrorIs(t, ValidateMessage(nil), ErrInvalidMessage)
	})

	t.Run("empty mailbox", func(t *testing.T) {
		msg := validMessage()
		msg.Mailbox = ""
		assert.ErrorIs(t, ValidateMessage(msg), ErrEmptyMailbox)
	})

	t.Run("no body at all", func(t *testing.T) {
		msg := validMessage()
		msg.TextBody = ""
		assert.ErrorIs(t, ValidateMessage(msg), ErrEmptyBody)
	})

	t.Run("HTML body is enough", func(t *testing.T) {
		msg := validMessage()
		msg.TextBody = ""
		msg.HTMLBody = "<p>hello</p>"
		assert.NoError(t, ValidateMessage(msg))
	})

	t.Run("future timestamp", func(t *testing.T) {
		msg := validMessage()
		msg.Timestamp = time.Now().Add(time.Hour)
		assert.ErrorIs(t, ValidateMessage(msg), ErrInvalidTimestamp)
	})
}

func validEntry() *IndexEntry {
	return &IndexEntry{
		ChunkId:          1,
		MessageId:        2,
		Text:             "hello",
		Vector:           []float32{1, 0, 0},
		Classification:   ClassificationHuman,
		HeuristicVersion: 1,
		EmbeddingVersion: "test-model",
		Timestamp:        time.Now().Add(-time.Hour),
	}
}

func TestValidateEntry(t *testing.T) {
	require.NoError(t, ValidateEntry(validEntry()))

	t.Run("nil", func(t *testing.T) {
		assert.ErrorIs(t, ValidateEntry(nil), ErrInvalidEntry)
	})

	t.Run("empty text", func(t *testing.T) {
		entry := validEntry()
		entry.Text = ""
		assert.ErrorIs(t, ValidateEntry(entry), ErrInvalidEntry)
	})

	t.Run("empty vector", func(t *testing.T) {
		entry := validEntry()
		entry.Vector = nil
		assert.ErrorIs(t, ValidateEntry(entry), ErrInvalidEntry)
	})

	t.Run("missing embedding version", func(t *testing.T) {
		entry := validEntry()
		entry.EmbeddingVersion = ""
		assert.ErrorIs(t, ValidateEntry(entry), ErrInvalidEntry)
	})

	t.Run("unknown classification", func(t *testing.T) {
		entry := validEntry()
		entry.Classification = Classification(9)
		assert.ErrorIs(t, ValidateEntry(entry), ErrInvalidClassification)
	})
}
