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

import "errors"

var (
	// ErrFetcherRequired indicates a nil fetcher was provided.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrIndexRequired indicates a nil vector index was provided.
	ErrIndexRequired = errors.New("vector index is required")

	// ErrWatermarksRequired indicates a nil watermark repository was provided.
	ErrWatermarksRequired = errors.New("watermark repository is required")

	// ErrEmbedderRequired indicates a nil embedder was provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrOrchestratorRequired indicates a nil embedding orchestrator was provided.
	ErrOrchestratorRequired = errors.New("embedding orchestrator is required")

	// ErrInvalidMaxAttempts indicates maxAttempts must be greater than zero.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than zero")

	// ErrEmbeddingCountMismatch indicates the embedding service returned a
	// different number of vectors than texts submitted.
	ErrEmbeddingCountMismatch = errors.New("embedding service returned wrong number of vectors")
)
