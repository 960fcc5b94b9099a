package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docent/chunker"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/extract"
	"github.com/poiesic/docent/storage"
	"golang.org/x/sync/singleflight"
)

// Pipeline processes uploaded documents in the background.
type Pipeline struct {
	documents  storage.DocumentRepository
	chunks     storage.ChunkRepository
	extractor  extract.Extractor
	embeddings *embeddingProcessor
	chunker    *chunker.Chunker
	pool       *ants.Pool
	inflight   singleflight.Group
	jobs       sync.WaitGroup
	closed     atomic.Bool
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker sets the chunker. Default is 500 runes with an overlap of 50.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	extractor extract.Extractor,
	embedder Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	defaultChunker, err := chunker.New(chunker.DefaultSize, chunker.DefaultOverlap)
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		documents: documents,
		chunks:    chunks,
		extractor: extractor,
		chunker:   defaultChunker,
		pool:      pool,
		logger:    slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.logger = p.logger.With("component", "ingestion")
	p.embeddings = newEmbeddingProcessor(embedder, p.logger)
	return p, nil
}

// Submit schedules the document for background processing and returns at
// once. Failures during processing are recorded on the document.
func (p *Pipeline) Submit(id core.ID) error {
	if p.closed.Load() {
		return ErrPipelineClosed
	}

	p.jobs.Add(1)
	err := p.pool.Submit(func() {
		defer p.jobs.Done()
		if _, err := p.Process(context.Background(), id); err != nil {
			p.logger.Error("error processing document", "document", id, "err", err)
		}
	})
	if err != nil {
		p.jobs.Done()
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPipelineClosed
		}
		return err
	}
	return nil
}

// Process runs the document through the pipeline and returns its final state.
// Concurrent calls for the same document share a single run.
func (p *Pipeline) Process(ctx context.Context, id core.ID) (*core.Document, error) {
	v, err, shared := p.inflight.Do(string(id), func() (any, error) {
		return p.process(ctx, id)
	})
	if shared {
		p.logger.Debug("joined in-flight processing", "document", id)
	}
	if err != nil {
		return nil, err
	}
	return v.(*core.Document), nil
}

// Wait blocks until every submitted job has finished.
func (p *Pipeline) Wait() {
	p.jobs.Wait()
}

// Release stops accepting jobs, waits for running ones and frees the pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.closed.Swap(true) {
		return
	}
	p.jobs.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}
