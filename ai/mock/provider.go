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

import "github.com/mlgkav/email-agent/ai"

// Provider bundles the mock embedder and generator behind ai.AIProvider.
type Provider struct {
	Emb *Embedder
	Gen *Generator
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider creates a provider with a 16-dimension embedder stamped with
// version and a generator returning response.
func NewProvider(version, response string) *Provider {
	return &Provider{
		Emb: NewEmbedder(16, version),
		Gen: NewGenerator(response),
	}
}

func (p *Provider) Embedder() ai.Embedder   { return p.Emb }
func (p *Provider) Generator() ai.Generator { return p.Gen }
func (p *Provider) Close() error            { return nil }
