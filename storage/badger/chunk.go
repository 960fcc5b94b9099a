package badger

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
// Chunks are written by DocumentRepository.CompleteDocument.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *ChunkRepository) Close() error {
	return nil
}

// GetChunks returns the chunks of a document ordered by index, with embeddings.
func (r *ChunkRepository) GetChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			vector, err := readVector(tx, documentID, chunk.Index)
			if err != nil {
				return err
			}
			chunk.Embedding = vector
			chunks = append(chunks, chunk)
		}
		return nil
	})
	return chunks, err
}

// CountChunks returns the number of chunks stored for a document.
func (r *ChunkRepository) CountChunks(ctx context.Context, documentID core.ID) (int, error) {
	count := 0
	err := r.backend.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// UpdateEmbeddings replaces the embeddings of existing chunks.
func (r *ChunkRepository) UpdateEmbeddings(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if len(chunk.Embedding) == 0 {
				return fmt.Errorf("%w: chunk %s has no embedding", core.ErrInvalidChunk, chunk.ID)
			}
			val, err := getValue(tx, makeChunkKey(chunk.DocumentID, chunk.Index))
			if err != nil {
				return err
			}
			if val == nil {
				return fmt.Errorf("%w: chunk %s:%d", storage.ErrNotFound, chunk.DocumentID, chunk.Index)
			}
			if err := tx.Set(makeVectorKey(chunk.DocumentID, chunk.Index), storage.MarshalVector(chunk.Embedding)); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindSimilar scans the vectors of completed documents and returns the limit
// closest chunks by cosine distance.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	queryNorm := norm(vector)

	var results []*core.RetrievedChunk
	err := r.backend.View(func(tx *badger.Txn) error {
		filenames, err := completedDocuments(tx)
		if err != nil {
			return err
		}
		if len(filenames) == 0 {
			return nil
		}

		type candidate struct {
			documentID core.ID
			index      int
			distance   float64
		}
		var candidates []candidate
		mismatched := 0

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			documentID, index, ok := parseVectorKey(iter.Item().Key())
			if !ok {
				continue
			}
			if _, completed := filenames[documentID]; !completed {
				continue
			}

			var stored []float32
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				stored, err = storage.UnmarshalVector(val)
				return err
			}); err != nil {
				return err
			}
			if len(stored) != len(vector) {
				mismatched++
				continue
			}
			candidates = append(candidates, candidate{
				documentID: documentID,
				index:      index,
				distance:   cosineDistance(vector, queryNorm, stored),
			})
		}

		if mismatched > 0 {
			r.backend.logger.Warn("skipped vectors with a different dimension",
				"count", mismatched, "want", len(vector))
		}

		// Sort by distance ascending
		slices.SortStableFunc(candidates, func(a, b candidate) int {
			switch {
			case a.distance < b.distance:
				return -1
			case a.distance > b.distance:
				return 1
			default:
				return 0
			}
		})
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}

		for _, c := range candidates {
			chunk, err := readChunk(tx, c.documentID, c.index)
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			results = append(results, &core.RetrievedChunk{
				Chunk:    chunk,
				Filename: filenames[c.documentID],
				Distance: c.distance,
				Score:    math.Round((1-c.distance)*10000) / 10000,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindByKeyword returns chunks of completed documents whose content or
// filename contains query, ignoring case.
func (r *ChunkRepository) FindByKeyword(ctx context.Context, query string, limit int) ([]*storage.KeywordMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty keyword", storage.ErrInvalidQuery)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	needle := strings.ToLower(query)

	var matches []*storage.KeywordMatch
	err := r.backend.View(func(tx *badger.Txn) error {
		var docs []*core.Document
		if err := forEachDocument(tx, func(doc *core.Document) error {
			if doc.Status == core.StatusCompleted {
				docs = append(docs, doc)
			}
			return nil
		}); err != nil {
			return err
		}

		for _, doc := range docs {
			nameMatches := strings.Contains(strings.ToLower(doc.Filename), needle)

			opts := badger.DefaultIteratorOptions
			opts.Prefix = makeChunkPrefix(doc.ID)
			iter := tx.NewIterator(opts)

			for iter.Rewind(); iter.Valid() && len(matches) < limit; iter.Next() {
				var chunk *core.Chunk
				if err := iter.Item().Value(func(val []byte) error {
					var err error
					chunk, err = storage.UnmarshalChunk(val)
					return err
				}); err != nil {
					iter.Close()
					return err
				}
				if nameMatches || strings.Contains(strings.ToLower(chunk.Content), needle) {
					matches = append(matches, &storage.KeywordMatch{
						DocumentID: doc.ID,
						Filename:   doc.Filename,
						Content:    chunk.Content,
					})
				}
			}
			iter.Close()

			if len(matches) >= limit {
				break
			}
		}
		return nil
	})
	return matches, err
}

// Helper functions

// completedDocuments maps the ID of every completed document to its filename.
func completedDocuments(tx *badger.Txn) (map[core.ID]string, error) {
	filenames := make(map[core.ID]string)
	err := forEachDocument(tx, func(doc *core.Document) error {
		if doc.Status == core.StatusCompleted {
			filenames[doc.ID] = doc.Filename
		}
		return nil
	})
	return filenames, err
}

func readChunk(tx *badger.Txn, documentID core.ID, index int) (*core.Chunk, error) {
	val, err := getValue(tx, makeChunkKey(documentID, index))
	if err != nil || val == nil {
		return nil, err
	}
	chunk, err := storage.UnmarshalChunk(val)
	if err != nil {
		return nil, err
	}
	chunk.Embedding, err = readVector(tx, documentID, index)
	return chunk, err
}

func readVector(tx *badger.Txn, documentID core.ID, index int) ([]float32, error) {
	val, err := getValue(tx, makeVectorKey(documentID, index))
	if err != nil || val == nil {
		return nil, err
	}
	return storage.UnmarshalVector(val)
}

// cosineDistance returns 1 - cos(a, b). Zero vectors are at distance 1.
// a and b must have the same length.
func cosineDistance(a []float32, aNorm float64, b []float32) float64 {
	bNorm := norm(b)
	if aNorm == 0 || bNorm == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return 1 - dot/(aNorm*bNorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
