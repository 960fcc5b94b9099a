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


package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *DocumentRepository) Close() error {
	return nil
}

// AddDocument stores a new document.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = core.NewID()
	}
	if doc.Status == "" {
		doc.Status = core.StatusUploading
	}
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt

	err := r.backend.Update(func(tx *badger.Txn) error {
		existing, err := readDocument(tx, doc.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: document %s", storage.ErrDuplicateKey, doc.ID)
		}
		if err := writeDocument(tx, doc); err != nil {
			return err
		}
		return tx.Set(makeOwnerKey(documentOwnerPrefix, doc.Owner, doc.CreatedAt, doc.ID), []byte(doc.ID))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return doc, err
}

// ListDocuments returns the documents of one owner, newest first.
func (r *DocumentRepository) ListDocuments(ctx context.Context, owner string) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.View(func(tx *badger.Txn) error {
		prefix := makeOwnerPrefix(documentOwnerPrefix, owner)

		// Use reverse iterator to get most recent documents first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seeking past the prefix positions a reverse iterator on its last key.
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seekKey); iter.ValidForPrefix(prefix); iter.Next() {
			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				id = core.ID(val)
				return nil
			}); err != nil {
				return err
			}

			doc, err := readDocument(tx, id)
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	})
	return results, err
}

// AllDocuments returns every stored document.
func (r *DocumentRepository) AllDocuments(ctx context.Context) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.View(func(tx *badger.Txn) error {
		return forEachDocument(tx, func(doc *core.Document) error {
			results = append(results, doc)
			return nil
		})
	})
	return results, err
}

// UpdateStatus moves a document to a new status.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id core.ID, status core.DocumentStatus, message string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.Update(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if !doc.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidStatusTransition, doc.Status, status)
		}

		doc.Status = status
		doc.ErrorMessage = message
		doc.UpdatedAt = time.Now().UTC()

		if status == core.StatusFailed {
			if err := deleteChunks(tx, id); err != nil {
				return err
			}
			doc.ChunkCount = 0
		}
		return writeDocument(tx, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// CompleteDocument stores chunks and marks the document completed.
//
// Chunks are written with a write batch first, which splits large documents
// across transactions. They stay invisible to searches until the final
// transaction flips the status to completed. If anything fails the chunks
// written so far are removed.
func (r *DocumentRepository) CompleteDocument(ctx context.Context, id core.ID, chunks []*core.Chunk) (*core.Document, error) {
	doc, err := r.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Status.CanTransitionTo(core.StatusCompleted) {
		return nil, fmt.Errorf("%w: %s -> %s", core.ErrInvalidStatusTransition, doc.Status, core.StatusCompleted)
	}

	now := time.Now().UTC()
	type entry struct{ key, value []byte }
	entries := make([]entry, 0, 2*len(chunks))
	for _, chunk := range chunks {
		chunk.DocumentID = id
		chunk.ID = core.ChunkID(id, chunk.Index)
		chunk.CreatedAt = now
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
		value, err := storage.MarshalChunk(chunk)
		if err != nil {
			return nil, err
		}
		entries = append(entries,
			entry{makeChunkKey(id, chunk.Index), value},
			entry{makeVectorKey(id, chunk.Index), storage.MarshalVector(chunk.Embedding)},
		)
	}

	wb := r.backend.NewWriteBatch()
	for _, e := range entries {
		if err := wb.Set(e.key, e.value); err != nil {
			wb.Cancel()
			r.discardChunks(id)
			return nil, err
		}
	}
	if err := wb.Flush(); err != nil {
		r.discardChunks(id)
		return nil, err
	}

	err = r.backend.Update(func(tx *badger.Txn) error {
		// Re-read: the document may have been deleted or failed meanwhile.
		doc, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if !doc.Status.CanTransitionTo(core.StatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", core.ErrInvalidStatusTransition, doc.Status, core.StatusCompleted)
		}
		doc.Status = core.StatusCompleted
		doc.ErrorMessage = ""
		doc.ChunkCount = len(chunks)
		doc.UpdatedAt = time.Now().UTC()
		return writeDocument(tx, doc)
	})
	if err != nil {
		r.discardChunks(id)
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document, its owner index entry and its chunks.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.Update(func(tx *badger.Txn) error {
		var err error
		doc, err = readDocument(tx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		if err := deleteChunks(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(makeOwnerKey(documentOwnerPrefix, doc.Owner, doc.CreatedAt, doc.ID)); err != nil {
			return err
		}
		return tx.Delete(makeDocumentKey(id))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// discardChunks removes partially written chunks after a failed completion.
func (r *DocumentRepository) discardChunks(id core.ID) {
	if err := r.backend.Update(func(tx *badger.Txn) error {
		return deleteChunks(tx, id)
	}); err != nil {
		r.backend.logger.Error("failed to discard chunks", "document", id, "err", err)
	}
}

// Helper functions

// readDocument reads a document from the transaction.
// Returns nil, nil if it doesn't exist.
func readDocument(tx *badger.Txn, id core.ID) (*core.Document, error) {
	val, err := getValue(tx, makeDocumentKey(id))
	if err != nil || val == nil {
		return nil, err
	}
	return storage.UnmarshalDocument(val)
}

func writeDocument(tx *badger.Txn, doc *core.Document) error {
	value, err := storage.MarshalDocument(doc)
	if err != nil {
		return err
	}
	return tx.Set(makeDocumentKey(doc.ID), value)
}

// forEachDocument calls fn for every stored document in key order.
func forEachDocument(tx *badger.Txn, fn func(*core.Document) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentPrefix)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var doc *core.Document
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			doc, err = storage.UnmarshalDocument(val)
			return err
		}); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// deleteChunks removes every chunk and vector of a document.
func deleteChunks(tx *badger.Txn, id core.ID) error {
	if err := deletePrefix(tx, makeChunkPrefix(id)); err != nil {
		return err
	}
	return deletePrefix(tx, makeVectorPrefix(id))
}
