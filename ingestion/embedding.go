package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docent/core"
)

// Embedder produces one vector per text, in input order.
// *embedding.Client satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// embeddingProcessor attaches embeddings to chunk texts.
type embeddingProcessor struct {
	embedder Embedder
	logger   *slog.Logger
}

func newEmbeddingProcessor(embedder Embedder, logger *slog.Logger) *embeddingProcessor {
	return &embeddingProcessor{
		embedder: embedder,
		logger:   logger.With("processor", "embeddings"),
	}
}

// process embeds texts and returns them as chunks with contiguous indexes.
func (ep *embeddingProcessor) process(ctx context.Context, texts []string) ([]*core.Chunk, error) {
	ep.logger.Debug("generating embeddings for chunks", "chunks", len(texts))

	embeddings, err := ep.embedder.Embed(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(embeddings))
	}

	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Index:     i,
			Content:   text,
			Embedding: embeddings[i],
		}
	}
	return chunks, nil
}
