package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepositories(t *testing.T) *Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func addDocument(t *testing.T, repos *Repositories, owner, filename string) *core.Document {
	t.Helper()
	doc, err := repos.Documents.AddDocument(context.Background(), &core.Document{
		Filename: filename,
		Type:     core.FileTypePDF,
		Size:     100,
		Owner:    owner,
		Path:     "/uploads/" + filename,
	})
	require.NoError(t, err)
	return doc
}

func makeChunks(texts ...string) []*core.Chunk {
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{Index: i, Content: text, Embedding: []float32{float32(i + 1), 1}}
	}
	return chunks
}

func completeDocument(t *testing.T, repos *Repositories, doc *core.Document, chunks []*core.Chunk) *core.Document {
	t.Helper()
	ctx := context.Background()
	_, err := repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusProcessing, "")
	require.NoError(t, err)
	done, err := repos.Documents.CompleteDocument(ctx, doc.ID, chunks)
	require.NoError(t, err)
	return done
}

func TestAddDocument(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	doc := addDocument(t, repos, "alice", "handbook.pdf")
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, core.StatusUploading, doc.Status)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := repos.Documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "handbook.pdf", got.Filename)
	assert.Equal(t, "/uploads/handbook.pdf", got.Path)

	_, err = repos.Documents.AddDocument(ctx, &core.Document{ID: doc.ID, Filename: "x.pdf", Type: core.FileTypePDF})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = repos.Documents.AddDocument(ctx, &core.Document{Filename: "x.txt", Type: "txt"})
	assert.ErrorIs(t, err, core.ErrUnsupportedFileType)
}

func TestGetDocument_NotFound(t *testing.T) {
	repos := newTestRepositories(t)

	_, err := repos.Documents.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListDocuments_ByOwnerNewestFirst(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()

	var want []core.ID
	for i := 0; i < 3; i++ {
		doc := addDocument(t, repos, "alice", fmt.Sprintf("doc%d.pdf", i))
		want = append([]core.ID{doc.ID}, want...)
		time.Sleep(time.Millisecond)
	}
	addDocument(t, repos, "alicia", "other.pdf")

	docs, err := repos.Documents.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i, doc := range docs {
		assert.Equal(t, want[i], doc.ID)
	}

	none, err := repos.Documents.ListDocuments(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := repos.Documents.AllDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	doc := addDocument(t, repos, "alice", "a.pdf")

	_, err := repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusCompleted, "")
	assert.ErrorIs(t, err, core.ErrInvalidStatusTransition)

	updated, err := repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusProcessing, "")
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessing, updated.Status)

	failed, err := repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusFailed, "text extraction failed: boom")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, failed.Status)
	assert.Equal(t, "text extraction failed: boom", failed.ErrorMessage)

	_, err = repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusProcessing, "")
	assert.ErrorIs(t, err, core.ErrInvalidStatusTransition, "terminal states never change")

	_, err = repos.Documents.UpdateStatus(ctx, "missing", core.StatusProcessing, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCompleteDocument(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	doc := addDocument(t, repos, "alice", "a.pdf")

	done := completeDocument(t, repos, doc, makeChunks("first", "second", "third"))
	assert.Equal(t, core.StatusCompleted, done.Status)
	assert.Equal(t, 3, done.ChunkCount)

	chunks, err := repos.Chunks.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, core.ChunkID(doc.ID, i), chunk.ID)
		assert.Equal(t, doc.ID, chunk.DocumentID)
		assert.Equal(t, []float32{float32(i + 1), 1}, chunk.Embedding)
	}

	count, err := repos.Chunks.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, done.ChunkCount, count)
}

func TestCompleteDocument_RequiresProcessing(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	doc := addDocument(t, repos, "alice", "a.pdf")

	_, err := repos.Documents.CompleteDocument(ctx, doc.ID, makeChunks("x"))
	assert.ErrorIs(t, err, core.ErrInvalidStatusTransition)

	count, err := repos.Chunks.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCompleteDocument_InvalidChunkWritesNothing(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	doc := addDocument(t, repos, "alice", "a.pdf")
	_, err := repos.Documents.UpdateStatus(ctx, doc.ID, core.StatusProcessing, "")
	require.NoError(t, err)

	chunks := makeChunks("ok", "no vector")
	chunks[1].Embedding = nil
	_, err = repos.Documents.CompleteDocument(ctx, doc.ID, chunks)
	assert.ErrorIs(t, err, core.ErrInvalidChunk)

	count, err := repos.Chunks.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := repos.Documents.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusProcessing, got.Status)
}

func TestCompleteDocument_ManyChunks(t *testing.T) {
	repos := newTestRepositories(t)
	doc := addDocument(t, repos, "alice", "big.pdf")

	texts := make([]string, 2000)
	for i := range texts {
		texts[i] = fmt.Sprintf("chunk number %d", i)
	}
	done := completeDocument(t, repos, doc, makeChunks(texts...))
	assert.Equal(t, 2000, done.ChunkCount)

	count, err := repos.Chunks.CountChunks(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000, count)
}

func TestDeleteDocument_Cascades(t *testing.T) {
	repos := newTestRepositories(t)
	ctx := context.Background()
	doc := addDocument(t, repos, "alice", "a.pdf")
	completeDocument(t, repos, doc, makeChunks("one", "two"))

	deleted, err := repos.Documents.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a.pdf", deleted.Path)

	_, err = repos.Documents.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := repos.Chunks.CountChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	docs, err := repos.Documents.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = repos.Documents.DeleteDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
