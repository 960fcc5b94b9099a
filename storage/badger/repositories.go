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

import "errors"

// Repositories bundles every repository sharing one backend.
type Repositories struct {
	Documents *DocumentRepository
	Chunks    *ChunkRepository
	Chats     *ChatRepository
	Backend   *Backend
}

// NewRepositories creates all repositories on top of backend.
func NewRepositories(backend *Backend) (*Repositories, error) {
	chats, err := NewChatRepository(backend)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Documents: NewDocumentRepository(backend),
		Chunks:    NewChunkRepository(backend),
		Chats:     chats,
		Backend:   backend,
	}, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}

// Close releases the repositories and closes the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Chats.Close(),
		r.Chunks.Close(),
		r.Documents.Close(),
		r.Backend.Close(),
	)
}
