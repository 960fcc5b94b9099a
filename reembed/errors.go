package reembed

import "errors"

var (
	// ErrEmbeddingCountMismatch is returned when the embedder returns a
	// different number of vectors than chunks sent.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")

	// ErrRepositoryRequired is returned when a repository is not provided.
	ErrRepositoryRequired = errors.New("document and chunk repositories required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
