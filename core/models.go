package core

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
type ID string

// NewID returns a random identifier for documents, sessions and messages.
func NewID() ID {
	return ID(uuid.NewString())
}

// ChunkID derives a deterministic chunk identifier from its parent document
// and position using BLAKE2b hashing.
// Re-processing a document therefore reproduces the same chunk IDs.
func ChunkID(documentID ID, index int) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(string(documentID) + ":" + strconv.Itoa(index)))
	return ID(hex.EncodeToString(h.Sum(nil)))
}

// FileType is the declared format of an uploaded document.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeXLSX FileType = "xlsx"
)

// FileTypes lists every supported format.
var FileTypes = []FileType{FileTypePDF, FileTypeDOCX, FileTypeXLSX}

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

const (
	StatusUploading  DocumentStatus = "uploading"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next respects
// uploading -> processing -> {completed, failed}.
// An upload that never starts processing may still fail.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case StatusUploading:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Role identifies the author of a chat message.
type Role int

const (
	// RoleUser is a question asked by a person.
	RoleUser Role = iota + 1
	// RoleAssistant is a generated answer.
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	if err := ValidateRole(r); err != nil {
		return nil, err
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(text []byte) error {
	switch string(text) {
	case "user":
		*r = RoleUser
	case "assistant":
		*r = RoleAssistant
	default:
		return ErrInvalidRole
	}
	return nil
}

// DefaultSessionTitle is the title every new session starts with.
// The first question asked in a session replaces it.
const DefaultSessionTitle = "New conversation"

// Document is an uploaded file and its ingestion state.
type Document struct {
	ID           ID             `json:"id"`
	Filename     string         `json:"filename"`
	Path         string         `json:"-"`
	Type         FileType       `json:"file_type"`
	Size         int64          `json:"file_size"`
	Owner        string         `json:"owner"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ChunkCount   int            `json:"chunk_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Chunk is a segment of a document's text and its embedding.
type Chunk struct {
	ID         ID        `json:"id"`
	DocumentID ID        `json:"document_id"`
	Index      int       `json:"chunk_index"` // zero-based, contiguous within a document
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatSession is a conversation owned by one user.
type ChatSession struct {
	ID        ID        `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is an immutable entry in a session's log.
type ChatMessage struct {
	ID        ID        `json:"id"`
	SessionID ID        `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"` // assistant messages only
	CreatedAt time.Time `json:"created_at"`
}

// Source is a document cited by an answer.
type Source struct {
	DocumentID ID      `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"relevance_score"`
}

// RetrievedChunk is a chunk returned by vector retrieval.
type RetrievedChunk struct {
	Chunk    *Chunk
	Filename string
	Distance float64 // cosine distance, lower is closer
	Score    float64 // round(1 - Distance, 4)
}

// SearchHit is one document in a search result.
// Score is nil for hits found only by keyword matching.
type SearchHit struct {
	DocumentID ID       `json:"document_id"`
	Filename   string   `json:"filename"`
	Snippet    string   `json:"content_snippet"`
	Score      *float64 `json:"score,omitempty"`
}
