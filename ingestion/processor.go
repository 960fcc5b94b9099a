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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/docent/core"
)

// process runs one document through the status machine and returns its
// final state. Only a failure to load the document is returned as an error;
// everything else is recorded on the document.
func (p *Pipeline) process(ctx context.Context, id core.ID) (*core.Document, error) {
	logger := p.logger.With("document", id)

	doc, err := p.documents.GetDocument(ctx, id)
	if err != nil {
		logger.Error("error loading document", "err", err)
		return nil, err
	}
	if doc.Status.IsTerminal() {
		logger.Debug("document already processed", "status", doc.Status)
		return doc, nil
	}

	if doc.Status != core.StatusProcessing {
		doc, err = p.documents.UpdateStatus(ctx, id, core.StatusProcessing, "")
		if err != nil {
			if errors.Is(err, core.ErrInvalidStatusTransition) {
				return p.documents.GetDocument(ctx, id)
			}
			logger.Error("error starting processing", "err", err)
			return p.fail(ctx, id, err)
		}
	}
	logger.Info("processing document", "filename", doc.Filename, "type", doc.Type)

	chunks, err := p.prepare(ctx, doc)
	if err != nil {
		return p.fail(ctx, id, err)
	}

	completed, err := p.documents.CompleteDocument(ctx, id, chunks)
	if err != nil {
		logger.Error("error storing chunks", "err", err)
		return p.fail(ctx, id, err)
	}
	if stored, err := p.chunks.CountChunks(ctx, id); err == nil && stored != completed.ChunkCount {
		logger.Warn("stored chunk count differs from document", "stored", stored, "expected", completed.ChunkCount)
	}
	logger.Info("document processed", "chunks", completed.ChunkCount)
	return completed, nil
}

// prepare extracts, chunks and embeds the document. Panics are returned as errors.
func (p *Pipeline) prepare(ctx context.Context, doc *core.Document) (chunks []*core.Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	text, err := p.extractor.Extract(ctx, doc.Path, doc.Type)
	if err != nil {
		return nil, &stageError{stage: stageExtract, err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	texts := p.chunker.Split(text)
	if len(texts) == 0 {
		return nil, ErrNoChunks
	}
	p.logger.Debug("document chunked", "document", doc.ID, "chunks", len(texts))

	chunks, err = p.embeddings.process(ctx, texts)
	if err != nil {
		return nil, &stageError{stage: stageEmbed, err: err}
	}
	return chunks, nil
}

// fail records cause on the document and returns its final state.
func (p *Pipeline) fail(ctx context.Context, id core.ID, cause error) (*core.Document, error) {
	message := failureMessage(cause)
	p.logger.Warn("document processing failed", "document", id, "reason", message, "err", cause)

	// The job's own context may be what failed.
	ctx = context.WithoutCancel(ctx)

	doc, err := p.documents.UpdateStatus(ctx, id, core.StatusFailed, message)
	if err != nil {
		p.logger.Error("error recording failure", "document", id, "err", err)
		return p.documents.GetDocument(ctx, id)
	}
	return doc, nil
}
