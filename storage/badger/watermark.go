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


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mlgkav/email-agent/core"
	"github.com/mlgkav/email-agent/storage"
)

// WatermarkRepository implements storage.WatermarkRepository for BadgerDB.
type WatermarkRepository struct {
	backend *Backend
}

var _ storage.WatermarkRepository = (*WatermarkRepository)(nil)

// NewWatermarkRepository creates a new WatermarkRepository.
func NewWatermarkRepository(backend *Backend) *WatermarkRepository {
	return &WatermarkRepository{
		backend: backend,
	}
}

// Save persists the watermark for a mailbox.
func (r *WatermarkRepository) Save(ctx context.Context, w *core.Watermark) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		w.UpdatedAt = time.Now().UTC()
		key := makeWatermarkKey(w.Mailbox)
		if err := tx.Set(key, storage.MarshalWatermark(w)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Load retrieves the watermark for a mailbox.
// Returns nil, nil if the mailbox has never been synced.
func (r *WatermarkRepository) Load(ctx context.Context, mailbox string) (*core.Watermark, error) {
	var w *core.Watermark
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeWatermarkKey(mailbox)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			w, unmarshalErr = storage.UnmarshalWatermark(val)
			return unmarshalErr
		})
	}, false)

	return w, err
}
