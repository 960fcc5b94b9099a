package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/chunker"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testExtractor returns canned text or an error and counts calls.
type testExtractor struct {
	text  string
	err   error
	panic bool
	delay time.Duration
	calls atomic.Int32
}

func (e *testExtractor) Extract(ctx context.Context, path string, fileType core.FileType) (string, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.panic {
		panic("corrupt xref table")
	}
	return e.text, e.err
}

// testEmbedder implements Embedder for testing
type testEmbedder struct {
	err   error
	short bool
}

func (m *testEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{float32(i) * 0.1, 0.2, 0.3}
	}
	if m.short {
		result = result[:len(result)-1]
	}
	return result, nil
}

type fixture struct {
	repos     *badger.Repositories
	extractor *testExtractor
	embedder  *testEmbedder
	pipeline  *Pipeline
}

func setup(t *testing.T, text string, opts ...Option) *fixture {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	f := &fixture{
		repos:     repos,
		extractor: &testExtractor{text: text},
		embedder:  &testEmbedder{},
	}
	f.pipeline, err = NewPipeline(repos.Documents, repos.Chunks, f.extractor, f.embedder, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		f.pipeline.Release()
		repos.Close()
	})
	return f
}

func (f *fixture) upload(t *testing.T, filename string) *core.Document {
	t.Helper()
	doc, err := f.repos.Documents.AddDocument(context.Background(), &core.Document{
		Filename: filename,
		Path:     "/uploads/" + filename,
		Type:     core.FileTypePDF,
		Size:     1024,
		Owner:    "alice",
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) chunkCount(t *testing.T, id core.ID) int {
	t.Helper()
	n, err := f.repos.Chunks.CountChunks(context.Background(), id)
	require.NoError(t, err)
	return n
}

func TestNewPipeline_RequiredDependencies(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	extractor := &testExtractor{}
	embedder := &testEmbedder{}

	_, err = NewPipeline(nil, repos.Chunks, extractor, embedder)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	_, err = NewPipeline(repos.Documents, nil, extractor, embedder)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)
	_, err = NewPipeline(repos.Documents, repos.Chunks, nil, embedder)
	assert.ErrorIs(t, err, ErrExtractorRequired)
	_, err = NewPipeline(repos.Documents, repos.Chunks, extractor, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestProcess_Completes(t *testing.T) {
	f := setup(t, strings.Repeat("word ", 300))
	doc := f.upload(t, "handbook.pdf")

	done, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, done.Status)
	assert.Empty(t, done.ErrorMessage)
	assert.Equal(t, 4, done.ChunkCount)

	chunks, err := f.repos.Chunks.GetChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, done.ChunkCount)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.NotEmpty(t, chunk.Embedding)
		assert.NotEmpty(t, strings.TrimSpace(chunk.Content))
	}
}

func TestProcess_CustomChunker(t *testing.T) {
	c, err := chunker.New(100, 10)
	require.NoError(t, err)
	f := setup(t, strings.Repeat("word ", 300), WithChunker(c))
	doc := f.upload(t, "a.pdf")

	done, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(c.Split(strings.Repeat("word ", 300))), done.ChunkCount)
}

func TestProcess_EmptyExtraction(t *testing.T) {
	f := setup(t, " \n\t ")
	doc := f.upload(t, "scan.pdf")

	done, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, done.Status)
	assert.Equal(t, "no text could be extracted: the file is empty or contains only images", done.ErrorMessage)
	assert.Zero(t, done.ChunkCount)
	assert.Zero(t, f.chunkCount(t, doc.ID))
}

func TestProcess_ExtractionFailure(t *testing.T) {
	f := setup(t, "")
	f.extractor.err = errors.New(strings.Repeat("x", 500))
	doc := f.upload(t, "broken.pdf")

	done, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, done.Status)
	assert.Equal(t, "text extraction failed: "+strings.Repeat("x", 200), done.ErrorMessage)
	assert.Zero(t, f.chunkCount(t, doc.ID))
}

func TestProcess_EmbeddingFailure(t *testing.T) {
	f := setup(t, "Some real text to embed.")
	f.embedder.err = fmt.Errorf("%w: dial tcp 127.0.0.1:11434: connect: connection refused", ai.ErrProviderConnection)
	doc := f.upload(t, "a.pdf")

	done, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, done.Status)
	assert.True(t, strings.HasPrefix(done.ErrorMessage, "embedding failed: cannot reach the model service"), done.ErrorMessage)
	assert.Zero(t, f.chunkCount(t, doc.ID))
}

func TestProcess_EmbeddingCountMismatch(t *testing.T) {
	f := setup(t, "Some real text to embed.")
	f.embedder.short = true
	doc := f.upload(t, "a.pdf")

	done, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, done.Status)
	assert.Contains(t, done.ErrorMessage, "embedding failed: embedding result mismatch")
}

func TestProcess_PanicIsRecorded(t *testing.T) {
	f := setup(t, "")
	f.extractor.panic = true
	doc := f.upload(t, "a.pdf")

	done, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, done.Status)
	assert.Equal(t, "processing error: panic: corrupt xref table", done.ErrorMessage)
}

func TestProcess_UnknownDocument(t *testing.T) {
	f := setup(t, "text")

	_, err := f.pipeline.Process(context.Background(), "missing")
	assert.Error(t, err)
	assert.Zero(t, f.extractor.calls.Load())
}

func TestProcess_TerminalDocumentIsNotReprocessed(t *testing.T) {
	f := setup(t, "Some text.")
	doc := f.upload(t, "a.pdf")

	_, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)
	again, err := f.pipeline.Process(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, again.Status)
	assert.Equal(t, int32(1), f.extractor.calls.Load())
}

func TestProcess_ConcurrentTriggersRunOnce(t *testing.T) {
	f := setup(t, "Some text.")
	f.extractor.delay = 50 * time.Millisecond
	doc := f.upload(t, "a.pdf")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := f.pipeline.Process(context.Background(), doc.ID)
			assert.NoError(t, err)
			assert.Equal(t, core.StatusCompleted, done.Status)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.extractor.calls.Load())
	assert.Equal(t, 1, f.chunkCount(t, doc.ID))
}

func TestSubmit_ProcessesInBackground(t *testing.T) {
	f := setup(t, strings.Repeat("word ", 300), WithPoolSize(2))

	docs := make([]*core.Document, 4)
	for i := range docs {
		docs[i] = f.upload(t, fmt.Sprintf("doc%d.pdf", i))
		require.NoError(t, f.pipeline.Submit(docs[i].ID))
	}
	f.pipeline.Wait()

	for _, doc := range docs {
		got, err := f.repos.Documents.GetDocument(context.Background(), doc.ID)
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, got.Status)
		assert.Equal(t, got.ChunkCount, f.chunkCount(t, doc.ID))
	}
}

func TestSubmit_AfterRelease(t *testing.T) {
	f := setup(t, "text")
	doc := f.upload(t, "a.pdf")

	f.pipeline.Release()
	assert.ErrorIs(t, f.pipeline.Submit(doc.ID), ErrPipelineClosed)
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "extraction strips the extractor prefix",
			err:  &stageError{stage: stageExtract, err: errors.New("text extraction failed: not a PDF file: invalid header")},
			want: "text extraction failed: not a PDF file: invalid header",
		},
		{
			name: "embedding",
			err:  &stageError{stage: stageEmbed, err: errors.New("503")},
			want: "embedding failed: 503",
		},
		{
			name: "other errors are truncated to 300 runes",
			err:  errors.New(strings.Repeat("가", 400)),
			want: "processing error: " + strings.Repeat("가", 300),
		},
		{
			name: "fixed messages",
			err:  fmt.Errorf("wrapped: %w", ErrNoChunks),
			want: "chunking produced no text segments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failureMessage(tt.err))
		})
	}
}
