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


package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/docent/core"
)

// Extractor returns the plain text of a stored document.
type Extractor interface {
	Extract(ctx context.Context, path string, fileType core.FileType) (string, error)
}

// Func extracts the text of a single format.
type Func func(ctx context.Context, path string) (string, error)

// Registry maps each supported file type to its extractor.
type Registry struct {
	extractors map[core.FileType]Func
	logger     *slog.Logger
}

var _ Extractor = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// WithExtractor replaces the extractor used for fileType.
func WithExtractor(fileType core.FileType, fn Func) Option {
	return func(r *Registry) {
		r.extractors[fileType] = fn
	}
}

// NewRegistry creates a Registry covering every core.FileType.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		extractors: make(map[core.FileType]Func),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "extract")

	defaults := map[core.FileType]Func{
		core.FileTypePDF:  newPDFExtractor(r.logger),
		core.FileTypeDOCX: extractDOCX,
		core.FileTypeXLSX: newXLSXExtractor(r.logger, MaxSheetRows),
	}
	for fileType, fn := range defaults {
		if _, ok := r.extractors[fileType]; !ok {
			r.extractors[fileType] = fn
		}
	}
	return r
}

// Extract returns the text of the document at path.
// Failures wrap ErrExtraction; unknown types return ErrUnsupportedFormat.
func (r *Registry) Extract(ctx context.Context, path string, fileType core.FileType) (text string, err error) {
	fn, ok := r.extractors[fileType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileType)
	}

	// Parsers of malformed files may panic.
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = fmt.Errorf("%w: %s: %v", ErrExtraction, fileType, p)
		}
	}()

	text, err = fn(ctx, path)
	if err != nil {
		r.logger.Error("text extraction failed", "path", path, "type", fileType, "err", err)
		return "", fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	r.logger.Info("text extracted", "path", path, "type", fileType, "chars", len(text))
	return text, nil
}
