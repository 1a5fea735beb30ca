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
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlgkav/email-agent/ai/mock"
	"github.com/mlgkav/email-agent/core"
)

func makePayloads(n int) []Payload {
	payloads := make([]Payload, n)
	messageID := core.IDFromContent("<orch@example.com>")
	for i := range payloads {
		text := fmt.Sprintf("chunk number %d with some text", i)
		payloads[i] = Payload{
			Chunk: &core.Chunk{
				Id:        core.ChunkID(messageID, i, text),
				MessageId: messageID,
				Ordinal:   i,
				Text:      text,
			},
		}
	}
	return payloads
}

func TestOrchestratorEmbedOrder(t *testing.T) {
	embedder := mock.NewEmbedder(8, "test-model")
	orch, err := NewOrchestrator(embedder,
		WithBatchSize(3),
		WithPoolSize(4),
		WithMaxAttempts(1))
	require.NoError(t, err)
	defer orch.Release()

	payloads := makePayloads(10)
	embedded, failures, err := orch.Embed(context.Background(), payloads)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, embedded, 10)

	for i, e := range embedded {
		assert.Equal(t, i, e.Chunk.Ordinal, "results must come back in payload order")
		assert.Len(t, e.Vector, 8)
	}
}

func TestOrchestratorEmbedEmpty(t *testing.T) {
	orch, err := NewOrchestrator(mock.NewEmbedder(8, "test-model"))
	require.NoError(t, err)
	defer orch.Release()

	embedded, failures, err := orch.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, embedded)
	assert.Empty(t, failures)
}

func TestOrchestratorPartialFailure(t *testing.T) {
	// One chunk per batch; after 9 successful calls the service fails.
	embedder := mock.NewEmbedder(8, "test-model")
	embedder.FailAfter(9, errors.New("service unavailable"))

	orch, err := NewOrchestrator(embedder,
		WithBatchSize(1),
		WithPoolSize(1),
		WithMaxAttempts(1))
	require.NoError(t, err)
	defer orch.Release()

	payloads := makePayloads(10)
	embedded, failures, err := orch.Embed(context.Background(), payloads)
	require.NoError(t, err, "per-chunk failures must not abort the run")

	assert.Len(t, embedded, 9, "the nine successful chunks survive")
	require.Len(t, failures, 1)
	assert.Equal(t, payloads[9].Chunk.Id, failures[0].ChunkId)
	require.Error(t, failures[0].Err)
}

func TestOrchestratorRetriesTransientFailure(t *testing.T) {
	flaky := &flakyEmbedder{inner: mock.NewEmbedder(8, "test-model"), failuresLeft: 2}

	orch, err := NewOrchestrator(flaky,
		WithBatchSize(4),
		WithMaxAttempts(3),
		WithBaseDelay(time.Millisecond))
	require.NoError(t, err)
	defer orch.Release()

	embedded, failures, err := orch.Embed(context.Background(), makePayloads(4))
	require.NoError(t, err)
	assert.Empty(t, failures, "transient failures are absorbed by retries")
	assert.Len(t, embedded, 4)
}

func TestOrchestratorNormalizesVectors(t *testing.T) {
	orch, err := NewOrchestrator(mock.NewEmbedder(8, "test-model"), WithMaxAttempts(1))
	require.NoError(t, err)
	defer orch.Release()

	embedded, _, err := orch.Embed(context.Background(), makePayloads(3))
	require.NoError(t, err)

	for _, e := range embedded {
		var sum float64
		for _, v := range e.Vector {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-5, "stored vectors must be unit length")
	}
}

func TestOrchestratorVersion(t *testing.T) {
	orch, err := NewOrchestrator(mock.NewEmbedder(8, "embeddinggemma"))
	require.NoError(t, err)
	defer orch.Release()

	assert.Equal(t, "embeddinggemma", orch.Version())
}

// flakyEmbedder fails its first N calls, then delegates.
type flakyEmbedder struct {
	inner        *mock.Embedder
	mu           sync.Mutex
	failuresLeft int
}

func (f *flakyEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := f.maybeFail(); err != nil {
		return nil, err
	}
	return f.inner.EmbedText(ctx, text)
}

func (f *flakyEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := f.maybeFail(); err != nil {
		return nil, err
	}
	return f.inner.EmbedTexts(ctx, texts)
}

func (f *flakyEmbedder) Version() string { return f.inner.Version() }

func (f *flakyEmbedder) maybeFail() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return errors.New("transient failure")
	}
	return nil
}
