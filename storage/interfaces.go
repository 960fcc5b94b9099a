package storage

import (
	"context"

	"github.com/poiesic/docent/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	// It does not close the shared backend.
	Close() error
}

// DocumentRepository provides operations for managing uploaded documents.
type DocumentRepository interface {
	Repository

	// AddDocument stores a new document.
	// Generates an ID when empty, defaults Status to uploading and sets
	// CreatedAt/UpdatedAt. Returns the stored document.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments returns the documents of one owner, newest first.
	ListDocuments(ctx context.Context, owner string) ([]*core.Document, error)

	// AllDocuments returns every document regardless of owner.
	AllDocuments(ctx context.Context) ([]*core.Document, error)

	// UpdateStatus moves a document to status, recording message as its
	// error message. Returns core.ErrInvalidStatusTransition for a move the
	// status machine forbids. Moving to failed removes any stored chunks.
	UpdateStatus(ctx context.Context, id core.ID, status core.DocumentStatus, message string) (*core.Document, error)

	// CompleteDocument stores the chunks of a processing document and marks
	// it completed with ChunkCount set. Either both happen or neither does:
	// on error no chunk of the document remains visible.
	CompleteDocument(ctx context.Context, id core.ID, chunks []*core.Chunk) (*core.Document, error)

	// DeleteDocument removes a document and all of its chunks.
	// Returns the deleted document, or ErrNotFound.
	DeleteDocument(ctx context.Context, id core.ID) (*core.Document, error)
}

// ChunkRepository provides read and search operations over stored chunks.
type ChunkRepository interface {
	Repository

	// GetChunks returns the chunks of a document ordered by index.
	GetChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID core.ID) (int, error)

	// UpdateEmbeddings replaces the embeddings of existing chunks.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateEmbeddings(ctx context.Context, chunks ...*core.Chunk) error

	// FindSimilar returns up to limit chunks of completed documents ordered by
	// ascending cosine distance to vector.
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]*core.RetrievedChunk, error)

	// FindByKeyword returns up to limit chunks of completed documents whose
	// content or document filename contains query, ignoring case.
	FindByKeyword(ctx context.Context, query string, limit int) ([]*KeywordMatch, error)
}

// KeywordMatch is a chunk found by substring matching.
type KeywordMatch struct {
	DocumentID core.ID
	Filename   string
	Content    string
}

// RetitleFunc maps a session's current title to a new one, or "" to keep it.
type RetitleFunc func(current string) string

// ChatRepository provides operations for managing chat sessions and their messages.
type ChatRepository interface {
	Repository

	// CreateSession stores a new session.
	// Generates an ID and sets the default title when empty.
	CreateSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error)

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id core.ID) (*core.ChatSession, error)

	// ListSessions returns the sessions of one owner, most recently updated first.
	ListSessions(ctx context.Context, owner string) ([]*core.ChatSession, error)

	// DeleteSession removes a session and all of its messages.
	// Returns ErrNotFound if the session doesn't exist.
	DeleteSession(ctx context.Context, id core.ID) error

	// AppendExchange appends messages to a session in order. When retitle is
	// non-nil it is called with the stored title inside the same transaction
	// and a non-empty result renames the session. Message IDs and timestamps
	// are assigned here.
	AppendExchange(ctx context.Context, sessionID core.ID, retitle RetitleFunc, messages ...*core.ChatMessage) ([]*core.ChatMessage, error)

	// GetRecentMessages returns the last limit messages of a session in
	// chronological order.
	GetRecentMessages(ctx context.Context, sessionID core.ID, limit int) ([]*core.ChatMessage, error)

	// ListMessages returns every message of a session in chronological order.
	ListMessages(ctx context.Context, sessionID core.ID) ([]*core.ChatMessage, error)
}
