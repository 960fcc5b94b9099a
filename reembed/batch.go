package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Embedder turns chunk texts into vectors, in order.
// *embedding.Client satisfies it and applies its own retry policy.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// BatchProcessor re-embeds one batch of chunks and stores the new vectors.
type BatchProcessor struct {
	chunks   storage.ChunkRepository
	embedder Embedder
}

func NewBatchProcessor(chunks storage.ChunkRepository, embedder Embedder) *BatchProcessor {
	return &BatchProcessor{
		chunks:   chunks,
		embedder: embedder,
	}
}

func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := bp.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(chunks), len(embeddings))
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}

	if err := bp.chunks.UpdateEmbeddings(ctx, chunks...); err != nil {
		return fmt.Errorf("failed to update chunks: %w", err)
	}
	return nil
}
