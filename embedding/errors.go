package embedding

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrInvalidBatchSize is returned when the batch size is <= 0
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
)
