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

	"github.com/poiesic/docent/ai"
)

// MockProvider bundles a MockEmbedder and a MockGenerator behind ai.AIProvider.
type MockProvider struct {
	embedder  *MockEmbedder
	generator *MockGenerator

	// PingErr is what Ping reports; nil means the model service is reachable.
	PingErr error
}

// NewMockProvider returns a provider with default mocks, typed as the
// interface the production constructors return.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockGenerator())
}

// NewMockProviderWithServices wraps preconfigured mocks.
func NewMockProviderWithServices(embedder *MockEmbedder, generator *MockGenerator) *MockProvider {
	return &MockProvider{embedder: embedder, generator: generator}
}

func (p *MockProvider) Embedder() ai.Embedder { return p.embedder }
func (p *MockProvider) Generator() ai.Generator { return p.generator }
func (p *MockProvider) Ping(context.Context) error { return p.PingErr }
func (p *MockProvider) Close() error { return nil }
func (p *MockProvider) GetMockEmbedder() *MockEmbedder { return p.embedder }
func (p *MockProvider) GetMockGenerator() *MockGenerator { return p.generator }
