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


// Package ai provides abstractions for the AI services used by email-agent.
//
// This package defines interfaces for text embeddings and answer
// generation. It follows the dependency inversion principle, allowing the
// ingestion and query pipelines to depend on abstractions rather than
// concrete service clients.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: generates version-stamped vector embeddings from text
//   - Generator: synthesizes an answer from a retrieval-augmented prompt
//   - AIProvider: aggregates both services for convenient initialization
//
// Production implementations live in ai/openai (any OpenAI-compatible API);
// deterministic test doubles live in ai/mock.
package ai
