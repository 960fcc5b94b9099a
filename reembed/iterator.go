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


package reembed

import (
	"context"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

const (
	// DefaultBatchSize is the default number of chunks re-embedded together
	DefaultBatchSize = 100
)

// ChunkIterator walks the chunks of every completed document in batches.
type ChunkIterator struct {
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	batchSize int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks per batch (defaults when <= 0)
func NewChunkIterator(documents storage.DocumentRepository, chunks storage.ChunkRepository, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		documents: documents,
		chunks:    chunks,
		batchSize: batchSize,
	}
}

// Documents returns the documents whose chunks are visited.
func (it *ChunkIterator) Documents(ctx context.Context) ([]*core.Document, error) {
	all, err := it.documents.AllDocuments(ctx)
	if err != nil {
		return nil, err
	}
	completed := all[:0]
	for _, doc := range all {
		if doc.Status == core.StatusCompleted {
			completed = append(completed, doc)
		}
	}
	return completed, nil
}

// ForEach calls fn with batches of chunks. A batch never spans documents
// being deleted mid-run: missing documents yield no chunks and are skipped.
// Iteration stops on the first error from fn. Context cancellation is checked
// between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.Chunk) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	docs, err := it.Documents(ctx)
	if err != nil {
		return err
	}

	batch := make([]*core.Chunk, 0, it.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]*core.Chunk, 0, it.batchSize)
		return ctx.Err()
	}

	for _, doc := range docs {
		chunks, err := it.chunks.GetChunks(ctx, doc.ID)
		if err != nil {
			return err
		}
		for _, chunk := range chunks {
			batch = append(batch, chunk)
			if len(batch) == it.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}
