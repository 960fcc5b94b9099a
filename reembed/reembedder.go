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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded and stored together
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
	}
}

// Reembedder re-embeds the chunks of every completed document.
type Reembedder struct {
	chunks    storage.ChunkRepository
	config    *Config
	progress  io.Writer
	logger    *slog.Logger
	processor *BatchProcessor
	iterator  *ChunkIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(documents storage.DocumentRepository, chunks storage.ChunkRepository, embedder Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if documents == nil || chunks == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		chunks:    chunks,
		config:    config,
		progress:  progress,
		logger:    slog.Default().With("component", "reembed"),
		processor: NewBatchProcessor(chunks, embedder),
		iterator:  NewChunkIterator(documents, chunks, config.BatchSize),
	}, nil
}

// Run executes the reembedding operation and reports progress to the
// configured writer. It returns the number of chunks re-embedded.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	docs, err := r.iterator.Documents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}

	total := 0
	for _, doc := range docs {
		total += doc.ChunkCount
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks from %d documents (batch size: %d)\n",
		total, len(docs), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(chunks []*core.Chunk) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		processed += len(chunks)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		r.logger.Error("reembedding stopped", "processed", processed, "err", err)
		return processed, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())
	return processed, nil
}
