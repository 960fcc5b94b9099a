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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/langchain"
	"github.com/tmc/langchaingo/llms/openai"
)

const providerName = "openai"

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It manages embedder and generator instances.
type Provider struct {
	config     *ai.Config
	httpClient *http.Client
	embedder   *langchain.Embedder
	generator  *langchain.Generator
	logger     *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider != ai.ProviderOpenAI {
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, config.Provider)
	}

	// Local OpenAI-compatible services don't require authentication but the client wants a token.
	token := config.APIKey
	if token == "" {
		token = "none"
	}
	httpClient := &http.Client{Timeout: config.RequestTimeout}

	embedClient, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := langchain.NewEmbedder(embedClient,
		langchain.WithProviderName(providerName),
		langchain.WithDimension(config.Dimension),
	)
	if err != nil {
		return nil, err
	}

	chatClient, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken(token),
		openai.WithModel(config.ChatModel),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, err
	}
	generator := langchain.NewGenerator(chatClient,
		langchain.WithProviderName(providerName),
		langchain.WithTemperature(config.Temperature),
	)

	return &Provider{
		config:     config,
		httpClient: httpClient,
		embedder:   embedder,
		generator:  generator,
		logger:     slog.Default().With("component", "openai-provider"),
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

// Ping embeds a short sample text. OpenAI-compatible servers share no common
// health endpoint, so a real request is the only reliable check.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.embedder.EmbedText(ctx, "ping")
	return err
}

// Close releases resources held by the provider.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	p.httpClient.CloseIdleConnections()
	return nil
}
