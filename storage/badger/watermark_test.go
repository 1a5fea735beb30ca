package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlgkav/email-agent/core"
	"github.com/mlgkav/email-agent/storage"
)

func newTestWatermarks(t *testing.T) storage.WatermarkRepository {
	t.Helper()
	_, watermarks, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return watermarks
}

func TestWatermarkLoadNeverSynced(t *testing.T) {
	watermarks := newTestWatermarks(t)

	w, err := watermarks.Load(context.Background(), "INBOX")
	require.NoError(t, err)
	assert.Nil(t, w, "a mailbox that was never synced has no watermark")
}

func TestWatermarkSaveLoad(t *testing.T) {
	watermarks := newTestWatermarks(t)
	ctx := context.Background()

	w := &core.Watermark{
		Mailbox:       "INBOX",
		UIDValidity:   7,
		LastUID:       42,
		LastTimestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, watermarks.Save(ctx, w))

	loaded, err := watermarks.Load(ctx, "INBOX")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint32(7), loaded.UIDValidity)
	assert.Equal(t, uint32(42), loaded.LastUID)
	assert.False(t, loaded.UpdatedAt.IsZero(), "Save stamps UpdatedAt")
}

func TestWatermarkPerMailbox(t *testing.T) {
	watermarks := newTestWatermarks(t)
	ctx := context.Background()

	require.NoError(t, watermarks.Save(ctx, &core.Watermark{Mailbox: "INBOX", UIDValidity: 1, LastUID: 10}))
	require.NoError(t, watermarks.Save(ctx, &core.Watermark{Mailbox: "Archive", UIDValidity: 2, LastUID: 20}))

	inbox, err := watermarks.Load(ctx, "INBOX")
	require.NoError(t, err)
	archive, err := watermarks.Load(ctx, "Archive")
	require.NoError(t, err)

	assert.Equal(t, uint32(10), inbox.LastUID)
	assert.Equal(t, uint32(20), archive.LastUID)
}

func TestWatermarkOverwrite(t *testing.T) {
	watermarks := newTestWatermarks(t)
	ctx := context.Background()

	require.NoError(t, watermarks.Save(ctx, &core.Watermark{Mailbox: "INBOX", UIDValidity: 7, LastUID: 10}))
	require.NoError(t, watermarks.Save(ctx, &core.Watermark{Mailbox: "INBOX", UIDValidity: 7, LastUID: 25}))

	loaded, err := watermarks.Load(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(25), loaded.LastUID, "the newest watermark wins")
}
