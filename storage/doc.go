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


// Package storage provides the storage abstraction layer for email-agent.
//
// This package defines the VectorIndex and WatermarkRepository interfaces
// that decouple the ingestion and query pipelines from any concrete store.
// Any backend that supports vector upsert, nearest-neighbor search with a
// metadata filter, and delete-by-key can satisfy them, including the
// in-memory variant used by tests.
//
// # Thread Safety
//
// All implementations must be thread-safe. Upserts are atomic per batch and
// watermark saves are atomic per mailbox; no cross-entity transactions are
// required.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
