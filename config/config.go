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


// Package config loads application settings from a YAML file, a .env file
// and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/chunker"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// AIConfig configures the model service.
type AIConfig struct {
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Dimension      int     `yaml:"embedding_dimension"`
	APIKey         string  `yaml:"api_key,omitempty"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSecs    int     `yaml:"timeout_secs"`
}

// ChunkingConfig configures how extracted text is split.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig configures search and question answering.
type RetrievalConfig struct {
	TopK         int    `yaml:"top_k"`
	KeywordLimit int    `yaml:"keyword_limit"`
	HistoryTurns int    `yaml:"history_turns"`
	Language     string `yaml:"response_language"`
}

// IngestionConfig configures background document processing.
type IngestionConfig struct {
	Workers int `yaml:"workers"`
}

// Config is the root application configuration.
type Config struct {
	ListenAddr      string          `yaml:"listen_addr"`
	DataDir         string          `yaml:"data_dir"`
	UploadDir       string          `yaml:"upload_dir"`
	MaxUploadSizeMB int             `yaml:"max_upload_size_mb"`
	AI              AIConfig        `yaml:"ai"`
	Chunking        ChunkingConfig  `yaml:"chunking"`
	Retrieval       RetrievalConfig `yaml:"retrieval"`
	Ingestion       IngestionConfig `yaml:"ingestion"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr:      ":8000",
		DataDir:         "data",
		UploadDir:       filepath.Join("data", "uploads"),
		MaxUploadSizeMB: 100,
		AI: AIConfig{
			Provider:       ai.ProviderOllama,
			BaseURL:        "http://localhost:11434",
			ChatModel:      "llama3",
			EmbeddingModel: "bge-m3",
			Dimension:      1024,
			Temperature:    0.1,
			TimeoutSecs:    300,
		},
		Chunking: ChunkingConfig{
			Size:    chunker.DefaultSize,
			Overlap: chunker.DefaultOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:         5,
			KeywordLimit: 10,
			HistoryTurns: 5,
			Language:     "English",
		},
		Ingestion: IngestionConfig{Workers: 4},
	}
}

// Load reads the YAML file at path, fills unset fields with defaults and
// applies environment overrides. A missing file, or an empty path, yields the
// defaults. Variables from a .env file in the working directory are loaded
// without replacing ones already set.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidConfig, name, v)
		}
		*dst = n
		return nil
	}

	str("OLLAMA_BASE_URL", &c.AI.BaseURL)
	str("AI_PROVIDER", &c.AI.Provider)
	str("LLM_MODEL", &c.AI.ChatModel)
	str("EMBEDDING_MODEL", &c.AI.EmbeddingModel)
	str("AI_API_KEY", &c.AI.APIKey)
	str("UPLOAD_DIR", &c.UploadDir)
	str("DATA_DIR", &c.DataDir)
	str("LISTEN_ADDR", &c.ListenAddr)
	str("RESPONSE_LANGUAGE", &c.Retrieval.Language)

	return errors.Join(
		num("EMBEDDING_DIMENSION", &c.AI.Dimension),
		num("CHUNK_SIZE", &c.Chunking.Size),
		num("CHUNK_OVERLAP", &c.Chunking.Overlap),
		num("TOP_K", &c.Retrieval.TopK),
		num("MAX_UPLOAD_SIZE_MB", &c.MaxUploadSizeMB),
	)
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.DataDir != "", "data_dir is required")
	check(c.UploadDir != "", "upload_dir is required")
	check(c.MaxUploadSizeMB > 0, "max_upload_size_mb must be positive, got %d", c.MaxUploadSizeMB)
	check(c.Chunking.Size > 0, "chunking.size must be positive, got %d", c.Chunking.Size)
	check(c.Chunking.Overlap >= 0 && c.Chunking.Overlap < c.Chunking.Size,
		"chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	check(c.Retrieval.TopK > 0, "retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	check(c.Retrieval.KeywordLimit > 0, "retrieval.keyword_limit must be positive, got %d", c.Retrieval.KeywordLimit)
	check(c.Retrieval.HistoryTurns >= 0, "retrieval.history_turns cannot be negative")
	check(c.Ingestion.Workers > 0, "ingestion.workers must be positive, got %d", c.Ingestion.Workers)

	if err := c.AIConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

// AIConfig converts the model service settings for the ai packages.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.AI.Provider),
		ai.WithHost(c.AI.BaseURL),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithDimension(c.AI.Dimension),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithRequestTimeout(time.Duration(c.AI.TimeoutSecs)*time.Second),
	)
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

// DatabasePath returns the directory holding the database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "db")
}
