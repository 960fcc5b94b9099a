package ingestion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/docent/extract"
)

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrExtractorRequired is returned when a text extractor is not provided.
	ErrExtractorRequired = errors.New("text extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrPipelineClosed is returned by Submit after Release.
	ErrPipelineClosed = errors.New("ingestion pipeline is closed")

	// ErrEmptyText means the extracted text was blank.
	ErrEmptyText = errors.New("no text could be extracted: the file is empty or contains only images")

	// ErrNoChunks means the chunker produced nothing from non-blank text.
	ErrNoChunks = errors.New("chunking produced no text segments")
)

// Limits applied to error details recorded on failed documents.
const (
	stageDetailLimit = 200
	otherDetailLimit = 300
)

type stage string

const (
	stageExtract stage = "extract"
	stageEmbed   stage = "embed"
)

// stageError tags a failure with the stage that produced it.
type stageError struct {
	stage stage
	err   error
}

func (e *stageError) Error() string { return fmt.Sprintf("%s: %v", e.stage, e.err) }
func (e *stageError) Unwrap() error { return e.err }

// failureMessage renders err as the message stored on a failed document.
func failureMessage(err error) string {
	for _, fixed := range []error{ErrEmptyText, ErrNoChunks} {
		if errors.Is(err, fixed) {
			return fixed.Error()
		}
	}

	var se *stageError
	if errors.As(err, &se) {
		switch se.stage {
		case stageExtract:
			detail := strings.TrimPrefix(se.err.Error(), extract.ErrExtraction.Error()+": ")
			return "text extraction failed: " + truncate(detail, stageDetailLimit)
		case stageEmbed:
			return "embedding failed: " + truncate(se.err.Error(), stageDetailLimit)
		}
	}
	return "processing error: " + truncate(err.Error(), otherDetailLimit)
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
