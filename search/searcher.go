package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Defaults for result sizes.
const (
	DefaultTopK         = 5
	DefaultKeywordLimit = 10
)

// QueryEmbedder embeds a search query.
// *embedding.Client satisfies it.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher provides vector, keyword and hybrid search over document chunks.
type Searcher struct {
	chunks       storage.ChunkRepository
	embedder     QueryEmbedder
	topK         int
	keywordLimit int
	logger       *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithTopK sets how many chunks vector retrieval returns. Default is 5.
func WithTopK(k int) Option {
	return func(s *Searcher) error {
		if k <= 0 {
			return fmt.Errorf("top k must be positive, got %d", k)
		}
		s.topK = k
		return nil
	}
}

// WithKeywordLimit caps keyword matches. Default is 10.
func WithKeywordLimit(limit int) Option {
	return func(s *Searcher) error {
		if limit <= 0 {
			return fmt.Errorf("keyword limit must be positive, got %d", limit)
		}
		s.keywordLimit = limit
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunks storage.ChunkRepository, embedder QueryEmbedder, opts ...Option) (*Searcher, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		chunks:       chunks,
		embedder:     embedder,
		topK:         DefaultTopK,
		keywordLimit: DefaultKeywordLimit,
		logger:       slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// TopK returns the configured number of retrieved chunks.
func (s *Searcher) TopK() int {
	return s.topK
}

// Retrieve returns the k chunks of completed documents closest to query,
// nearest first. A non-positive k uses the configured default.
func (s *Searcher) Retrieve(ctx context.Context, query string, k int) ([]*core.RetrievedChunk, error) {
	if k <= 0 {
		k = s.topK
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	chunks, err := s.chunks.FindSimilar(ctx, embedding, k)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	return chunks, nil
}

// Search finds documents matching query in the given mode.
func (s *Searcher) Search(ctx context.Context, query string, mode Mode) ([]*core.SearchHit, error) {
	return s.SearchWithMonitor(ctx, query, mode, nil)
}

// SearchWithMonitor searches like Search and reports each stage to monitor.
// No document appears twice in the result.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, mode Mode, monitor SearchMonitor) ([]*core.SearchHit, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if !mode.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(query, mode)

	hits := []*core.SearchHit{}
	seen := make(map[core.ID]bool)

	if mode == ModeVector || mode == ModeHybrid {
		chunks, err := s.Retrieve(ctx, query, s.topK)
		switch {
		case err == nil:
			monitor.AfterVectorSearch(chunks)
			hits = appendVectorHits(hits, seen, chunks)
		case mode == ModeHybrid && ctx.Err() == nil:
			s.logger.Warn("vector search failed, using keyword results only", "err", err)
			monitor.VectorSearchFailed(err)
		default:
			return nil, err
		}
	}

	if mode == ModeKeyword || mode == ModeHybrid {
		matches, err := s.chunks.FindByKeyword(ctx, query, s.keywordLimit)
		if err != nil {
			s.logger.Error("error running keyword search", "err", err)
			return nil, err
		}
		monitor.AfterKeywordSearch(matches)
		hits = appendKeywordHits(hits, seen, matches, query)
	}

	monitor.Finish(hits)
	return hits, nil
}

// appendVectorHits adds one hit per new document, keeping the nearest chunk.
func appendVectorHits(hits []*core.SearchHit, seen map[core.ID]bool, chunks []*core.RetrievedChunk) []*core.SearchHit {
	for _, rc := range chunks {
		id := rc.Chunk.DocumentID
		if seen[id] {
			continue
		}
		seen[id] = true
		score := rc.Score
		hits = append(hits, &core.SearchHit{
			DocumentID: id,
			Filename:   rc.Filename,
			Snippet:    leadingSnippet(rc.Chunk.Content),
			Score:      &score,
		})
	}
	return hits
}

// appendKeywordHits adds one unscored hit per new document.
func appendKeywordHits(hits []*core.SearchHit, seen map[core.ID]bool, matches []*storage.KeywordMatch, query string) []*core.SearchHit {
	for _, m := range matches {
		if seen[m.DocumentID] {
			continue
		}
		seen[m.DocumentID] = true
		hits = append(hits, &core.SearchHit{
			DocumentID: m.DocumentID,
			Filename:   m.Filename,
			Snippet:    matchSnippet(m.Content, query),
		})
	}
	return hits
}
