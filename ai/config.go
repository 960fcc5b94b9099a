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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Supported provider backends.
const (
	// ProviderOllama talks to Ollama's native API (/api/chat, /api/embed).
	ProviderOllama = "ollama"
	// ProviderOpenAI talks to any OpenAI-compatible API (Ollama /v1, vLLM, LocalAI, ...).
	ProviderOpenAI = "openai"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the backend: ProviderOllama or ProviderOpenAI.
	Provider string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434"
	EmbeddingHost string

	// ChatHost is the base URL for the text generation service API.
	// Example: "http://localhost:11434"
	ChatHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "bge-m3", "nomic-embed-text"
	EmbeddingModel string

	// ChatModel is the model identifier used to generate answers.
	// Example: "llama3", "qwen2.5:7b"
	ChatModel string

	// APIKey is sent to OpenAI-compatible services. Local services accept any value.
	APIKey string

	// Dimension is the expected embedding vector length. Zero disables the check.
	Dimension int

	// Temperature controls answer randomness.
	Temperature float64

	// RequestTimeout bounds a single provider HTTP request.
	RequestTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider selects the provider backend.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the generation service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the generation model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithAPIKey sets the API key for OpenAI-compatible services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimension sets the expected embedding dimension.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithTemperature sets the generation temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithRequestTimeout sets the per-request timeout.
func WithRequestTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = d
	}
}

// DefaultConfig returns a Config for a local Ollama server.
// By default, embedding and chat use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434"
	return &Config{
		Provider:       ProviderOllama,
		EmbeddingHost:  defaultHost,
		ChatHost:       defaultHost,
		EmbeddingModel: "bge-m3",
		ChatModel:      "llama3",
		Dimension:      1024,
		Temperature:    0.1,
		RequestTimeout: 5 * time.Minute,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://gpu-box:11434"),
//	    WithChatModel("qwen2.5:7b"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts hosts in the form the selected provider expects.
// OpenAI-compatible APIs are served under /v1; Ollama's native API is not.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.EmbeddingHost = c.normalizeHost(c.EmbeddingHost)
	c.ChatHost = c.normalizeHost(c.ChatHost)
}

func (c *Config) normalizeHost(host string) string {
	if host == "" {
		return host
	}
	host = strings.TrimSuffix(host, "/")
	switch c.Provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
	case ProviderOllama:
		host = strings.TrimSuffix(host, "/v1")
	}
	return host
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigRequired
	}
	c.Normalize()

	if c.Provider != ProviderOllama && c.Provider != ProviderOpenAI {
		return errors.New("ai config: Provider must be \"ollama\" or \"openai\"")
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.Dimension < 0 {
		return errors.New("ai config: Dimension cannot be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("ai config: RequestTimeout must be positive")
	}
	return nil
}
