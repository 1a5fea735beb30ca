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
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/mlgkav/email-agent/ai"
	"github.com/mlgkav/email-agent/core"
)

// Payload pairs a chunk with the exact text sent to the embedding service.
// Text may carry context the stored chunk does not, such as the message
// subject; when empty the chunk text is used.
type Payload struct {
	Chunk *core.Chunk
	Text  string
}

// Embedded pairs a chunk with its unit-length vector.
type Embedded struct {
	Chunk  *core.Chunk
	Vector []float32
}

// Orchestrator turns chunks into vectors: it batches payloads, runs batches
// concurrently on a bounded worker pool, retries transient failures with
// exponential backoff, and isolates failures per chunk so one bad batch
// never aborts the rest.
type Orchestrator struct {
	embedder    ai.Embedder
	pool        *ants.Pool
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithBatchSize sets how many payloads are embedded per service call.
// Default is 16.
func WithBatchSize(size int) OrchestratorOption {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		o.batchSize = size
		return nil
	}
}

// WithPoolSize sets the worker pool size for concurrent batches.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) OrchestratorOption {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		if o.pool != nil {
			o.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithMaxAttempts sets how many times a failing batch is attempted before
// its chunks are reported as failures. Default is 3.
func WithMaxAttempts(attempts int) OrchestratorOption {
	return func(o *Orchestrator) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the initial retry delay. Default is 500ms.
func WithBaseDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) error {
		if delay > 0 {
			o.baseDelay = delay
		}
		return nil
	}
}

// WithOrchestratorLogger sets a custom logger.
// Default is slog.Default().
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an embedding orchestrator.
func NewOrchestrator(embedder ai.Embedder, opts ...OrchestratorOption) (*Orchestrator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		embedder:    embedder,
		pool:        pool,
		batchSize:   16,
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		logger:      slog.Default().With("component", "embedding-orchestrator"),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// Version returns the embedding version stamp of the underlying service.
func (o *Orchestrator) Version() string {
	return o.embedder.Version()
}

// Embed generates a vector for every payload. Results come back in payload
// order. Chunks whose batch exhausted its retries are returned as failures
// and omitted from the results; an error is returned only when the whole
// operation cannot proceed (cancellation, pool shutdown).
func (o *Orchestrator) Embed(ctx context.Context, payloads []Payload) ([]Embedded, []core.EmbeddingFailure, error) {
	if len(payloads) == 0 {
		return nil, nil, nil
	}

	// One slot per payload so concurrent batches restore order by index.
	slots := make([][]float32, len(payloads))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []core.EmbeddingFailure
	)

	for start := 0; start < len(payloads); start += o.batchSize {
		end := start + o.batchSize
		if end > len(payloads) {
			end = len(payloads)
		}
		batchStart, batchEnd := start, end

		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			batchFailures := o.embedBatch(ctx, payloads, slots, batchStart, batchEnd)
			if len(batchFailures) > 0 {
				mu.Lock()
				failures = append(failures, batchFailures...)
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, nil, err
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	results := make([]Embedded, 0, len(payloads))
	for i, vector := range slots {
		if vector == nil {
			continue
		}
		results = append(results, Embedded{
			Chunk:  payloads[i].Chunk,
			Vector: vector,
		})
	}

	return results, failures, nil
}

// embedBatch embeds payloads[start:end] with retries, writing vectors into
// their slots. On exhausted retries every chunk in the batch becomes one
// failure report.
func (o *Orchestrator) embedBatch(ctx context.Context, payloads []Payload, slots [][]float32, start, end int) []core.EmbeddingFailure {
	texts := make([]string, 0, end-start)
	for _, p := range payloads[start:end] {
		text := p.Text
		if text == "" {
			text = p.Chunk.Text
		}
		texts = append(texts, text)
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		result, embedErr := o.embedder.EmbedTexts(ctx, texts)
		if embedErr != nil {
			return embedErr
		}
		if len(result) != len(texts) {
			return ErrEmbeddingCountMismatch
		}
		vectors = result
		return nil
	}, o.maxAttempts, o.baseDelay)

	if err != nil {
		o.logger.Warn("embedding batch exhausted retries",
			"chunks", end-start,
			"attempts", o.maxAttempts,
			"err", err)
		failures := make([]core.EmbeddingFailure, 0, end-start)
		for _, p := range payloads[start:end] {
			failures = append(failures, core.EmbeddingFailure{
				ChunkId: p.Chunk.Id,
				Err:     err,
			})
		}
		return failures
	}

	for i, vector := range vectors {
		slots[start+i] = NormalizeVector(vector)
	}
	return nil
}

// Release releases the worker pool.
// The orchestrator should not be used after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}
