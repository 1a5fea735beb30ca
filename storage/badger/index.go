package badger

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mlgkav/email-agent/core"
	"github.com/mlgkav/email-agent/storage"
)

// Index implements storage.VectorIndex on BadgerDB.
// Entries are stored under their chunk ID; a secondary message→chunk index
// supports delete-by-message and dedup checks.
type Index struct {
	backend *Backend
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex creates a new vector index on the given backend.
func NewIndex(backend *Backend) *Index {
	return &Index{backend: backend}
}

// Upsert persists entries keyed by chunk identity within one transaction.
// Re-ingesting the same chunk overwrites the previous entry, so the
// operation is idempotent. On error nothing is committed.
func (x *Index) Upsert(ctx context.Context, entries ...*core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return x.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := core.ValidateEntry(entry); err != nil {
				return err
			}

			if entry.InsertedAt.IsZero() {
				entry.InsertedAt = time.Now().UTC()
			}

			key := makeEntryKey(entry.ChunkId)
			if err := tx.Set(key, storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}

			idxKey := makeMessageChunkKey(entry.MessageId, entry.ChunkId)
			if err := tx.Set(idxKey, storage.MarshalID(entry.ChunkId)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Search scans all entries and returns the k nearest by cosine distance.
// Vectors are stored normalized, so distance is 1 - dot product.
func (x *Index) Search(ctx context.Context, vector []float32, queryVersion string, k int, filter *storage.Filter) ([]*core.SearchResult, error) {
	if k <= 0 || len(vector) == 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult

	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := iter.Item()
			// Skip the message→chunk index and watermark keys; the prefix
			// iterator already excludes them, this guards prefix collisions.
			if !bytes.HasPrefix(item.Key(), []byte(entryPrefix+":")) {
				continue
			}

			var entry *core.IndexEntry
			err := item.Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalIndexEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if entry == nil || len(entry.Vector) == 0 {
				continue
			}

			// Vectors from different embedding service versions are not
			// comparable; surface it instead of returning garbage distances.
			if entry.EmbeddingVersion != queryVersion {
				return core.ErrVersionMismatch
			}

			if !matchesFilter(entry, filter) {
				continue
			}

			similarity := dotProduct(vector, entry.Vector)
			results = append(results, &core.SearchResult{
				Entry:    entry,
				Distance: 1 - similarity,
			})
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Ascending distance; distance ties prefer the more recent message.
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		if a.Entry.Timestamp.After(b.Entry.Timestamp) {
			return -1
		}
		if a.Entry.Timestamp.Before(b.Entry.Timestamp) {
			return 1
		}
		return 0
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// DeleteMessage removes all chunks belonging to a message.
func (x *Index) DeleteMessage(ctx context.Context, messageID core.ID) (int, error) {
	deleted := 0
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialMessageChunkKey(messageID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		var entryKeys [][]byte
		var idxKeys [][]byte
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, startKey) {
				break
			}

			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			entryKeys = append(entryKeys, makeEntryKey(chunkID))
			idxKeys = append(idxKeys, iter.Item().KeyCopy(nil))
		}
		// The iterator must be closed before tx.Commit below; Commit
		// discards the transaction, which panics on open iterators.
		iter.Close()

		for i := range entryKeys {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := tx.Delete(entryKeys[i]); err != nil {
				return err
			}
			if err := tx.Delete(idxKeys[i]); err != nil {
				return err
			}
			deleted++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// HasMessage reports whether any chunk of the message is indexed.
func (x *Index) HasMessage(ctx context.Context, messageID core.ID) (bool, error) {
	found := false
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialMessageChunkKey(messageID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		iter.Seek(startKey)
		found = iter.Valid() && bytes.HasPrefix(iter.Item().Key(), startKey)
		return nil
	}, false)
	return found, err
}

// matchesFilter applies the metadata predicate to one entry.
func matchesFilter(entry *core.IndexEntry, filter *storage.Filter) bool {
	if filter == nil {
		return true
	}
	if filter.Classification != 0 && entry.Classification != filter.Classification {
		return false
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && !entry.Timestamp.Before(filter.Until) {
		return false
	}
	if filter.From != "" && !strings.Contains(strings.ToLower(entry.From), strings.ToLower(filter.From)) {
		return false
	}
	return true
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
