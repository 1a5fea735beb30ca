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


// Package emailagent bundles the storage backend, AI services, and pipeline
// factories behind one handle so embedders of the library open everything
// with a single call.
package emailagent

import (
	"log/slog"

	"github.com/mlgkav/email-agent/ai"
	"github.com/mlgkav/email-agent/ai/openai"
	"github.com/mlgkav/email-agent/ingest"
	"github.com/mlgkav/email-agent/mail"
	"github.com/mlgkav/email-agent/query"
	"github.com/mlgkav/email-agent/storage"
	"github.com/mlgkav/email-agent/storage/badger"
)

// Agent owns the index, the watermark store, and the AI provider for one
// local database.
type Agent struct {
	backend    *badger.Backend
	index      storage.VectorIndex
	watermarks storage.WatermarkRepository
	provider   ai.AIProvider
	logger     *slog.Logger
}

// AgentOption configures an Agent.
type AgentOption func(*agentOptions)

type agentOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig sets the AI service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) AgentOption {
	return func(o *agentOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// NewAgent opens the database at filePath and wires up the AI services.
func NewAgent(filePath string, opts ...AgentOption) (*Agent, error) {
	options := &agentOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &Agent{
		backend:    backend,
		index:      badger.NewIndex(backend),
		watermarks: badger.NewWatermarkRepository(backend),
		provider:   provider,
		logger:     slog.Default(),
	}, nil
}

// Close releases the AI provider and the database.
func (a *Agent) Close() error {
	if err := a.provider.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Index returns the vector index.
func (a *Agent) Index() storage.VectorIndex {
	return a.index
}

// Watermarks returns the per-mailbox watermark repository.
func (a *Agent) Watermarks() storage.WatermarkRepository {
	return a.watermarks
}

// Provider returns the AI services.
func (a *Agent) Provider() ai.AIProvider {
	return a.provider
}

// NewOrchestrator creates an embedding orchestrator backed by the agent's
// embedder. The caller releases it when done.
func (a *Agent) NewOrchestrator(opts ...ingest.OrchestratorOption) (*ingest.Orchestrator, error) {
	return ingest.NewOrchestrator(a.provider.Embedder(), opts...)
}

// NewCoordinator creates an ingestion coordinator for the given fetcher.
func (a *Agent) NewCoordinator(fetcher mail.Fetcher, orchestrator *ingest.Orchestrator, opts ...ingest.CoordinatorOption) (*ingest.Coordinator, error) {
	return ingest.NewCoordinator(fetcher, a.index, a.watermarks, orchestrator, opts...)
}

// NewQueryPipeline creates a question-answering pipeline over the index.
func (a *Agent) NewQueryPipeline(opts ...query.PipelineOption) (*query.Pipeline, error) {
	return query.NewPipeline(a.provider.Embedder(), a.provider.Generator(), a.index, opts...)
}
