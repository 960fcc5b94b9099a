package ai

import "errors"

var (
	// ErrProviderConnection indicates the model service could not be reached
	// or did not answer in time.
	ErrProviderConnection = errors.New("cannot reach the model service")

	// ErrProviderModel indicates the configured model does not exist on the
	// model service.
	ErrProviderModel = errors.New("model not available on the model service")

	// ErrProviderServer indicates the model service answered with a server
	// error. Unlike the two errors above it is worth retrying.
	ErrProviderServer = errors.New("model service returned a server error")

	// ErrEmptyEmbedding indicates the service answered without a vector.
	ErrEmptyEmbedding = errors.New("embedding service returned no vector")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownProvider indicates an unsupported Config.Provider value.
	ErrUnknownProvider = errors.New("unknown ai provider")

	// ErrConfigRequired indicates a provider constructor was given no config.
	ErrConfigRequired = errors.New("ai config required")
)

// IsUnavailable reports whether err means the model service cannot serve
// requests right now.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrProviderConnection) || errors.Is(err, ErrProviderModel)
}
