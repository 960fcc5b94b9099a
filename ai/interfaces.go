package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MessageRole identifies who authored a prompt message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a generation prompt.
type Message struct {
	Role    MessageRole
	Content string
}

// StreamFunc receives answer fragments in order as they are produced.
// Returning an error aborts generation.
type StreamFunc func(ctx context.Context, chunk string) error

// Generator produces answers from an ordered list of prompt messages.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the complete answer.
	Generate(ctx context.Context, messages []Message) (string, error)

	// GenerateStream delivers the answer incrementally to onChunk and returns
	// the concatenation of every delivered fragment.
	GenerateStream(ctx context.Context, messages []Message, onChunk StreamFunc) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the answer generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Ping checks that the backing service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
