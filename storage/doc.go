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


// Package storage declares the repositories docent persists through.
//
// DocumentRepository holds uploaded documents and their ingestion status,
// ChunkRepository the embedded chunks that search reads, and ChatRepository
// sessions with their append-only message logs. The badger subpackage is
// the only implementation:
//
//	backend, err := badger.OpenBackend(dir, false)
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
// Tests use badger.NewMemoryRepositories instead.
//
// Records are encoded as JSON. Embeddings are kept apart from chunk records
// as little-endian float32 bytes; see MarshalVector.
//
// Implementations are safe for concurrent use. Records that belong to a
// different owner are reported as ErrNotFound wrapped with ErrOwnerMismatch.
package storage
