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


package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/mlgkav/email-agent/ai"
)

// Embedder is a deterministic ai.Embedder for tests. The same text always
// yields the same unit-length vector, so similarity comparisons are stable
// across runs.
type Embedder struct {
	mu         sync.Mutex
	dimensions int
	version    string
	calls      int
	failAfter  int
	failErr    error
}

var _ ai.Embedder = (*Embedder)(nil)

// NewEmbedder creates a mock embedder producing vectors of the given
// dimensionality, stamped with the given version.
func NewEmbedder(dimensions int, version string) *Embedder {
	if dimensions <= 0 {
		dimensions = 16
	}
	return &Embedder{
		dimensions: dimensions,
		version:    version,
		failAfter:  -1,
	}
}

// FailAfter makes the embedder return err on every call after the first n
// successful calls. Used to exercise partial-failure paths.
func (e *Embedder) FailAfter(n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failAfter = n
	e.failErr = err
}

// Calls returns how many embed calls have been made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// EmbedText returns a deterministic normalized vector derived from text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := e.checkCall(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vectorFor(text), nil
}

// EmbedTexts returns deterministic normalized vectors, one per input text.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.checkCall(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vectorFor(text)
	}
	return vectors, nil
}

// Version returns the configured embedding version stamp.
func (e *Embedder) Version() string {
	return e.version
}

func (e *Embedder) checkCall() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failAfter >= 0 && e.calls > e.failAfter {
		return e.failErr
	}
	return nil
}

// vectorFor seeds each component from an FNV hash of the text and the
// component index, then normalizes to unit length.
func (e *Embedder) vectorFor(text string) []float32 {
	vector := make([]float32, e.dimensions)
	var sumSquares float64
	for i := range vector {
		h := fnv.New64a()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		// Map the hash into [-1, 1)
		v := float64(int64(h.Sum64())) / math.MaxInt64
		vector[i] = float32(v)
		sumSquares += v * v
	}
	norm := float32(math.Sqrt(sumSquares))
	if norm == 0 {
		vector[0] = 1
		return vector
	}
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
