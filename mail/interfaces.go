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


package mail

import (
	"context"

	"github.com/mlgkav/email-agent/core"
)

// FetchResult is the outcome of one incremental fetch: the messages newer
// than the watermark plus the mailbox state needed to advance it.
type FetchResult struct {
	Mailbox     string
	UIDValidity uint32
	Messages    []*core.Message
}

// Fetcher retrieves messages from a mailbox, newest watermark first.
//
// Implementations must be read-only: fetching never alters message flags or
// mailbox state on the server. Messages are returned in ascending UID order
// so the caller can advance its watermark batch by batch. Fetch performs no
// retries itself; transient failures surface as *TransportError and retry
// policy belongs to the caller.
type Fetcher interface {
	// Fetch returns up to limit messages with UID greater than
	// since.LastUID. A limit <= 0 means no limit. When the mailbox's
	// UIDVALIDITY differs from since.UIDValidity the watermark is stale and
	// the fetch restarts from the beginning of the mailbox.
	Fetch(ctx context.Context, since core.Watermark, limit int) (*FetchResult, error)
}
