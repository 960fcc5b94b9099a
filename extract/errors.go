package extract

import "errors"

var (
	// ErrExtraction is wrapped by every failure to read a document.
	ErrExtraction = errors.New("text extraction failed")

	// ErrUnsupportedFormat is returned for a file type without an extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)
