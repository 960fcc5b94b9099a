package langchain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docent/ai"
	"github.com/tmc/langchaingo/embeddings"
)

// Embedder implements ai.Embedder over a langchaingo embedding client.
type Embedder struct {
	embedder  embeddings.Embedder
	provider  string
	dimension int
	logger    *slog.Logger
}

// NewEmbedder wraps client. Newlines are stripped before embedding.
func NewEmbedder(client embeddings.EmbedderClient, opts ...Option) (*Embedder, error) {
	o := newOptions("embedder", opts)

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:  embedder,
		provider:  o.provider,
		dimension: o.dimension,
		logger:    o.logger,
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Every returned vector is non-empty and, when a dimension is configured,
// has exactly that length.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, ClassifyError(e.provider, err)
	}

	if len(vectors) != len(texts) {
		e.logger.Warn("embedder returned wrong number of vectors", "want", len(texts), "got", len(vectors))
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ai.ErrEmptyEmbedding, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: text %d", ai.ErrEmptyEmbedding, i)
		}
		if e.dimension > 0 && len(v) != e.dimension {
			return nil, fmt.Errorf("%w: %w: got %d, want %d", ai.ErrProviderModel, ai.ErrDimensionMismatch, len(v), e.dimension)
		}
	}
	return vectors, nil
}
