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


// Package docent answers questions about an organization's own documents.
//
// A Database opens the store, connects to the model service and wires the
// ingestion pipeline, the retrieval engine and the conversation orchestrator
// together. Uploaded files are kept under the upload directory and processed
// in the background.
package docent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/ai/ollama"
	"github.com/poiesic/docent/ai/openai"
	"github.com/poiesic/docent/chat"
	"github.com/poiesic/docent/chunker"
	"github.com/poiesic/docent/config"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/embedding"
	"github.com/poiesic/docent/extract"
	"github.com/poiesic/docent/ingestion"
	"github.com/poiesic/docent/reembed"
	"github.com/poiesic/docent/search"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
)

// DefaultMaxUploadBytes is the upload size limit when none is configured.
const DefaultMaxUploadBytes = 100 * 1024 * 1024

// Database owns the store, the model provider and the services built on them.
type Database struct {
	repos     *badger.Repositories
	provider  ai.AIProvider
	embedder  *embedding.Client
	pipeline  *ingestion.Pipeline
	searcher  *search.Searcher
	chat      *chat.Orchestrator
	uploadDir string
	maxUpload int64
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig     *ai.Config
	provider     ai.AIProvider
	inMemory     bool
	uploadDir    string
	maxUpload    int64
	chunkSize    int
	chunkOverlap int
	workers      int
	topK         int
	keywordLimit int
	historyTurns int
	language     string
	logger       *slog.Logger
}

// WithAIConfig sets the model service configuration.
func WithAIConfig(cfg *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses an already constructed provider instead of building one
// from the AI configuration. The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all data in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithUploadDir sets where uploaded files are stored.
func WithUploadDir(dir string) DatabaseOption {
	return func(o *databaseOptions) {
		o.uploadDir = dir
	}
}

// WithMaxUploadBytes sets the upload size limit.
func WithMaxUploadBytes(n int64) DatabaseOption {
	return func(o *databaseOptions) {
		o.maxUpload = n
	}
}

// WithChunking sets the chunk size and overlap, in characters.
func WithChunking(size, overlap int) DatabaseOption {
	return func(o *databaseOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithWorkers sets the number of documents processed concurrently.
func WithWorkers(n int) DatabaseOption {
	return func(o *databaseOptions) {
		o.workers = n
	}
}

// WithRetrieval sets the number of chunks retrieved per question, the
// keyword match limit and the number of history turns sent with a question.
func WithRetrieval(topK, keywordLimit, historyTurns int) DatabaseOption {
	return func(o *databaseOptions) {
		o.topK = topK
		o.keywordLimit = keywordLimit
		o.historyTurns = historyTurns
	}
}

// WithLanguage sets the answer language.
func WithLanguage(language string) DatabaseOption {
	return func(o *databaseOptions) {
		o.language = language
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, cfg.Provider)
	}
}

// OpenConfigured opens the database described by cfg.
func OpenConfigured(cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	base := []DatabaseOption{
		WithAIConfig(cfg.AIConfig()),
		WithUploadDir(cfg.UploadDir),
		WithMaxUploadBytes(cfg.MaxUploadBytes()),
		WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap),
		WithWorkers(cfg.Ingestion.Workers),
		WithRetrieval(cfg.Retrieval.TopK, cfg.Retrieval.KeywordLimit, cfg.Retrieval.HistoryTurns),
		WithLanguage(cfg.Retrieval.Language),
	}
	return NewDatabase(cfg.DatabasePath(), append(base, opts...)...)
}

// NewDatabase opens the database at filePath and wires every service.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig:     ai.DefaultConfig(),
		uploadDir:    filepath.Join(filepath.Dir(filePath), "uploads"),
		maxUpload:    DefaultMaxUploadBytes,
		chunkSize:    chunker.DefaultSize,
		chunkOverlap: chunker.DefaultOverlap,
		workers:      4,
		topK:         search.DefaultTopK,
		keywordLimit: search.DefaultKeywordLimit,
		historyTurns: chat.DefaultHistoryTurns,
		language:     chat.DefaultLanguage,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	textChunker, err := chunker.New(options.chunkSize, options.chunkOverlap)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(options.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	repos, err := badger.NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		if provider, err = NewProvider(options.aiConfig); err != nil {
			repos.Close()
			return nil, err
		}
	}

	db := &Database{
		repos:     repos,
		provider:  provider,
		uploadDir: options.uploadDir,
		maxUpload: options.maxUpload,
		logger:    options.logger,
	}
	if err := db.wire(options, textChunker); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *Database) wire(options *databaseOptions, textChunker *chunker.Chunker) error {
	var err error
	db.embedder, err = embedding.NewClient(db.provider.Embedder(), embedding.WithLogger(db.logger))
	if err != nil {
		return err
	}

	db.pipeline, err = ingestion.NewPipeline(
		db.repos.Documents,
		db.repos.Chunks,
		extract.NewRegistry(extract.WithLogger(db.logger)),
		db.embedder,
		ingestion.WithPoolSize(options.workers),
		ingestion.WithChunker(textChunker),
		ingestion.WithLogger(db.logger),
	)
	if err != nil {
		return err
	}

	db.searcher, err = search.NewSearcher(db.repos.Chunks, db.embedder,
		search.WithTopK(options.topK),
		search.WithKeywordLimit(options.keywordLimit),
		search.WithLogger(db.logger),
	)
	if err != nil {
		return err
	}

	db.chat, err = chat.NewOrchestrator(db.repos.Chats, db.searcher, db.provider.Generator(),
		chat.WithTopK(options.topK),
		chat.WithHistoryTurns(options.historyTurns),
		chat.WithLanguage(options.language),
		chat.WithLogger(db.logger),
	)
	return err
}

// Close stops background processing and releases the provider and store.
func (db *Database) Close() error {
	if db.pipeline != nil {
		db.pipeline.Release()
	}
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}
	if err := db.repos.Close(); err != nil {
		db.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

// Chat returns the conversation orchestrator.
func (db *Database) Chat() *chat.Orchestrator {
	return db.chat
}

// Searcher returns the retrieval engine.
func (db *Database) Searcher() *search.Searcher {
	return db.searcher
}

// Pipeline returns the ingestion pipeline.
func (db *Database) Pipeline() *ingestion.Pipeline {
	return db.pipeline
}

// DocumentRepository returns the document store.
func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.repos.Documents
}

// ChunkRepository returns the chunk store.
func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.repos.Chunks
}

// Ping checks that the model service is reachable.
func (db *Database) Ping(ctx context.Context) error {
	return db.provider.Ping(ctx)
}

// NewReembedder creates a reembedder over the stored chunks using the
// configured embedding model.
func (db *Database) NewReembedder(cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.repos.Documents, db.repos.Chunks, db.embedder, cfg, progress)
}

// Upload validates a file, stores its bytes under the upload directory and
// schedules it for processing. size is the length announced by the client.
func (db *Database) Upload(ctx context.Context, owner, filename, contentType string, body io.Reader, size int64) (*core.Document, error) {
	fileType, err := core.ValidateUpload(filename, contentType, size, db.maxUpload)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(db.uploadDir, uuid.NewString()+"."+string(fileType))
	written, err := writeFile(path, body, db.maxUpload)
	if err != nil {
		return nil, err
	}
	if written == 0 {
		os.Remove(path)
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrEmptyFile)
	}

	doc, err := db.repos.Documents.AddDocument(ctx, &core.Document{
		Filename: filepath.Base(filename),
		Path:     path,
		Type:     fileType,
		Size:     written,
		Owner:    owner,
	})
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	if err := db.pipeline.Submit(doc.ID); err != nil {
		db.logger.Error("error scheduling document", "document", doc.ID, "err", err)
		if _, derr := db.repos.Documents.DeleteDocument(context.WithoutCancel(ctx), doc.ID); derr != nil {
			db.logger.Error("error removing unscheduled document", "document", doc.ID, "err", derr)
		}
		os.Remove(path)
		return nil, err
	}
	db.logger.Info("document uploaded", "document", doc.ID, "filename", doc.Filename, "size", written)
	return doc, nil
}

// writeFile copies at most limit bytes of body to path.
func writeFile(path string, body io.Reader, limit int64) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("storing upload: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(body, limit+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("storing upload: %w", err)
	}
	if n > limit {
		os.Remove(path)
		return 0, fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrFileTooLarge)
	}
	return n, nil
}

// ListDocuments returns the documents of owner, newest first.
func (db *Database) ListDocuments(ctx context.Context, owner string) ([]*core.Document, error) {
	return db.repos.Documents.ListDocuments(ctx, owner)
}

// GetDocument returns a document owned by owner.
func (db *Database) GetDocument(ctx context.Context, owner string, id core.ID) (*core.Document, error) {
	doc, err := db.repos.Documents.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	if doc.Owner != owner {
		return nil, fmt.Errorf("document %s: %w: %w", id, storage.ErrNotFound, storage.ErrOwnerMismatch)
	}
	return doc, nil
}

// DeleteDocument removes a document owned by owner, its chunks and its
// stored file.
func (db *Database) DeleteDocument(ctx context.Context, owner string, id core.ID) error {
	if _, err := db.GetDocument(ctx, owner, id); err != nil {
		return err
	}
	doc, err := db.repos.Documents.DeleteDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.Path != "" {
		if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			db.logger.Warn("stored file not removed", "document", id, "path", doc.Path, "err", err)
		}
	}
	return nil
}
