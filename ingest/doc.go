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


// Package ingest drives mailbox ingestion: the Coordinator advances a
// mailbox batch by batch through fetch, classify, chunk, embed, and
// persist, and the Orchestrator fans embedding batches out over a bounded
// worker pool with retries and per-chunk failure isolation.
//
// Durability contract: the watermark advances only after a batch is
// persisted, so an interrupted run re-does at most one batch, and
// content-hash identities make that re-work idempotent.
package ingest
