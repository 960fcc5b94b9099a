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


// Package ollama provides an ai.AIProvider backed by Ollama's native API.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/langchain"
	"github.com/tmc/langchaingo/llms/ollama"
)

const providerName = "ollama"

// Provider implements ai.AIProvider using an Ollama server.
// It manages embedder and generator instances.
type Provider struct {
	config     *ai.Config
	httpClient *http.Client
	embedder   *langchain.Embedder
	generator  *langchain.Generator
	logger     *slog.Logger
}

// NewProvider creates a new AI provider talking to Ollama.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to Ollama-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	return newProvider(config)
}

func newProvider(config *ai.Config) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: config.RequestTimeout}
	if config.Provider != ai.ProviderOllama {
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, config.Provider)
	}
	logger := slog.Default().With("component", "ollama-provider")

	embedLLM, err := ollama.New(
		ollama.WithServerURL(config.EmbeddingHost),
		ollama.WithModel(config.EmbeddingModel),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := langchain.NewEmbedder(embedLLM,
		langchain.WithProviderName(providerName),
		langchain.WithDimension(config.Dimension),
	)
	if err != nil {
		return nil, err
	}

	chatLLM, err := ollama.New(
		ollama.WithServerURL(config.ChatHost),
		ollama.WithModel(config.ChatModel),
		ollama.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}
	generator := langchain.NewGenerator(chatLLM,
		langchain.WithProviderName(providerName),
		langchain.WithTemperature(config.Temperature),
	)

	return &Provider{
		config:     config,
		httpClient: httpClient,
		embedder:   embedder,
		generator:  generator,
		logger:     logger,
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the answer generation service.
func (p *Provider) Generator() ai.Generator {
	return p.generator
}

// Ping lists the server's local models to confirm it is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.ChatHost+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return langchain.ClassifyError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET /api/tags returned %d", ai.ErrProviderConnection, resp.StatusCode)
	}
	return nil
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	p.httpClient.CloseIdleConnections()
	return nil
}
