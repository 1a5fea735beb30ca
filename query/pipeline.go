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


package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mlgkav/email-agent/ai"
	"github.com/mlgkav/email-agent/core"
	"github.com/mlgkav/email-agent/ingest"
	"github.com/mlgkav/email-agent/storage"
)

// DefaultContextBudget is the default size of the assembled context in
// characters. It bounds prompt growth regardless of k.
const DefaultContextBudget = 6000

// DefaultTopK is the number of chunks retrieved when the caller does not
// say otherwise.
const DefaultTopK = 5

// Answer is the outcome of one question.
type Answer struct {
	Text string
	// NoContext is true when retrieval found nothing relevant; Text is
	// empty and the generation service was never invoked.
	NoContext bool
}

// Pipeline answers natural-language questions over the mailbox index:
// embed the question, retrieve the nearest chunks, assemble a bounded
// context, and generate an answer citing its sources.
type Pipeline struct {
	embedder      ai.Embedder
	generator     ai.Generator
	index         storage.VectorIndex
	contextBudget int
	logger        *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline) error

// WithContextBudget sets the maximum assembled context size in characters.
// Chunks that do not fit are dropped whole, lowest-ranked first.
func WithContextBudget(chars int) PipelineOption {
	return func(p *Pipeline) error {
		if chars > 0 {
			p.contextBudget = chars
		}
		return nil
	}
}

// WithPipelineLogger sets a custom logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a query pipeline.
func NewPipeline(embedder ai.Embedder, generator ai.Generator, index storage.VectorIndex, opts ...PipelineOption) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	p := &Pipeline{
		embedder:      embedder,
		generator:     generator,
		index:         index,
		contextBudget: DefaultContextBudget,
		logger:        slog.Default().With("component", "query-pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Answer embeds the question, retrieves the k nearest chunks matching the
// filter, and generates an answer grounded in them. The returned entries
// are the chunks actually included in the prompt, in rank order; they are
// the citations for the answer.
//
// A question with no retrieved context returns Answer.NoContext=true
// without calling the generation service. A version mismatch between the
// query embedder and stored entries surfaces as core.ErrVersionMismatch.
func (p *Pipeline) Answer(ctx context.Context, question string, k int, filter *storage.Filter) (*Answer, []*core.IndexEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil, ErrEmptyQuestion
	}
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := p.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding question: %w", err)
	}
	vector = ingest.NormalizeVector(vector)

	results, err := p.index.Search(ctx, vector, p.embedder.Version(), k, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("searching index: %w", err)
	}

	if len(results) == 0 {
		p.logger.Debug("no context retrieved", "question_len", len(question))
		return &Answer{NoContext: true}, nil, nil
	}

	prompt, cited := p.buildPrompt(question, results)

	text, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("generating answer: %w", err)
	}

	p.logger.Debug("answered question",
		"retrieved", len(results),
		"cited", len(cited),
		"answer_len", len(text))

	return &Answer{Text: strings.TrimSpace(text)}, cited, nil
}

// buildPrompt assembles the retrieval-augmented prompt. Chunks are added in
// rank order until the context budget is exhausted; the best chunk is always
// included so an oversized first hit cannot empty the context.
func (p *Pipeline) buildPrompt(question string, results []*core.SearchResult) (string, []*core.IndexEntry) {
	var contextBlocks strings.Builder
	var cited []*core.IndexEntry

	for _, result := range results {
		block := renderSource(len(cited)+1, result.Entry)
		if len(cited) > 0 && contextBlocks.Len()+len(block) > p.contextBudget {
			break
		}
		contextBlocks.WriteString(block)
		cited = append(cited, result.Entry)
	}

	var b strings.Builder
	b.WriteString("You are an assistant answering questions about the user's email. ")
	b.WriteString("Answer using only the sources below. ")
	b.WriteString("Cite sources inline as [source N]. ")
	b.WriteString("If the sources do not contain the answer, say so.\n\n")
	b.WriteString("Sources:\n\n")
	b.WriteString(contextBlocks.String())
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")

	return b.String(), cited
}

// renderSource formats one chunk as a tagged context block.
func renderSource(n int, entry *core.IndexEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[source %d] From: %s | Subject: %s | Date: %s\n",
		n, entry.From, entry.Subject, entry.Timestamp.Format("2006-01-02"))
	b.WriteString(entry.Text)
	b.WriteString("\n\n")
	return b.String()
}
