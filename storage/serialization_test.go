package storage

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_KeepsStoragePath(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &core.Document{
		ID:           "doc-1",
		Filename:     "handbook.pdf",
		Path:         "/var/uploads/0b9e.pdf",
		Type:         core.FileTypePDF,
		Size:         2048,
		Owner:        "alice",
		Status:       core.StatusFailed,
		ErrorMessage: "no text could be extracted",
		ChunkCount:   0,
		CreatedAt:    now,
		UpdatedAt:    now.Add(time.Second),
	}

	data, err := MarshalDocument(doc)
	require.NoError(t, err)

	decoded, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)

	// the API representation still hides it
	public, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.NotContains(t, string(public), "/var/uploads")
}

func TestDocument_ZeroTimes(t *testing.T) {
	doc := &core.Document{ID: "doc-2", Filename: "a.xlsx", Type: core.FileTypeXLSX, Status: core.StatusUploading}

	data, err := MarshalDocument(doc)
	require.NoError(t, err)

	decoded, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.IsZero())
	assert.Equal(t, doc, decoded)
}

func TestChunk_OmitsEmbedding(t *testing.T) {
	chunk := &core.Chunk{
		ID:         core.ChunkID("doc-1", 3),
		DocumentID: "doc-1",
		Index:      3,
		Content:    "Refunds are accepted within 30 days.",
		Embedding:  []float32{0.1, 0.2},
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	data, err := MarshalChunk(chunk)
	require.NoError(t, err)
	assert.Len(t, chunk.Embedding, 2, "caller's chunk must not be modified")

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk.ID, decoded.ID)
	assert.Equal(t, chunk.Content, decoded.Content)
	assert.Equal(t, 3, decoded.Index)
	assert.Equal(t, chunk.CreatedAt, decoded.CreatedAt)
	assert.Nil(t, decoded.Embedding)
}

func TestVector(t *testing.T) {
	vector := []float32{0, 1, -1, 0.5, math.MaxFloat32, float32(math.Inf(-1))}

	decoded, err := UnmarshalVector(MarshalVector(vector))
	require.NoError(t, err)
	assert.Equal(t, vector, decoded)

	empty, err := UnmarshalVector(MarshalVector(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUnmarshal_Malformed(t *testing.T) {
	data := MarshalVector([]float32{1, 2, 3})

	_, err := UnmarshalVector(data[:len(data)-2])
	assert.ErrorIs(t, err, ErrSerializationFailed, "cut inside the last value")

	_, err = UnmarshalVector(append(data, 0))
	assert.ErrorIs(t, err, ErrTrailingData)

	// a count far larger than the payload
	_, err = UnmarshalVector([]byte{0xff, 0xff, 0x03, 0, 0})
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalChatSession(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestChatSession(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	session := &core.ChatSession{ID: "s1", Owner: "alice", Title: core.DefaultSessionTitle, CreatedAt: now, UpdatedAt: now}

	data, err := MarshalChatSession(session)
	require.NoError(t, err)

	decoded, err := UnmarshalChatSession(data)
	require.NoError(t, err)
	assert.Equal(t, session, decoded)
}

func TestChatMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  *core.ChatMessage
	}{
		{
			name: "assistant with sources",
			msg: &core.ChatMessage{
				ID:        "m1",
				SessionID: "s1",
				Role:      core.RoleAssistant,
				Content:   "See the handbook.",
				Sources: []core.Source{
					{DocumentID: "d1", Filename: "handbook.pdf", Score: 0.8123},
					{DocumentID: "d2", Filename: "policy.docx", Score: -0.05},
				},
				CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
			},
		},
		{
			name: "user without sources",
			msg: &core.ChatMessage{
				ID:        "m2",
				SessionID: "s1",
				Role:      core.RoleUser,
				Content:   "Where is the refund policy?",
				CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalChatMessage(tt.msg)
			require.NoError(t, err)

			decoded, err := UnmarshalChatMessage(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, decoded)
		})
	}
}

func TestChatMessage_InvalidRole(t *testing.T) {
	_, err := MarshalChatMessage(&core.ChatMessage{Role: core.Role(7)})
	assert.ErrorIs(t, err, ErrSerializationFailed)
	assert.ErrorIs(t, err, core.ErrInvalidRole)

	_, err = MarshalChatMessage(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
