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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/poiesic/docent/core"
)

func marshal[T any](ser mus.Serializer[T], v T) []byte {
	buf := make([]byte, ser.Size(v))
	ser.Marshal(v, buf)
	return buf
}

func unmarshal[T any](ser mus.Serializer[T], data []byte) (T, error) {
	v, n, err := ser.Unmarshal(data)
	if err != nil {
		return v, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != len(data) {
		return v, fmt.Errorf("%w: %d of %d bytes decoded", ErrTrailingData, n, len(data))
	}
	return v, nil
}

// MarshalDocument serializes a Document, including its storage path.
func MarshalDocument(doc *core.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrSerializationFailed)
	}
	return marshal(core.DocumentMUS, *doc), nil
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, err := unmarshal(core.DocumentMUS, data)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// MarshalChunk serializes a Chunk without its embedding.
// Embeddings are stored on their own with MarshalVector.
func MarshalChunk(chunk *core.Chunk) ([]byte, error) {
	if chunk == nil {
		return nil, fmt.Errorf("%w: nil chunk", ErrSerializationFailed)
	}
	return marshal(core.ChunkMUS, *chunk), nil
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, err := unmarshal(core.ChunkMUS, data)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// MarshalVector encodes an embedding as a count followed by float32 values.
func MarshalVector(vector []float32) []byte {
	return marshal(core.VectorMUS, vector)
}

// UnmarshalVector decodes bytes written by MarshalVector.
func UnmarshalVector(data []byte) ([]float32, error) {
	return unmarshal(core.VectorMUS, data)
}

// MarshalChatSession serializes a ChatSession to bytes.
func MarshalChatSession(session *core.ChatSession) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", ErrSerializationFailed)
	}
	return marshal(core.ChatSessionMUS, *session), nil
}

// UnmarshalChatSession deserializes a ChatSession from bytes.
func UnmarshalChatSession(data []byte) (*core.ChatSession, error) {
	session, err := unmarshal(core.ChatSessionMUS, data)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// MarshalChatMessage serializes a ChatMessage. Messages with an unknown
// role are refused since they could not be read back.
func MarshalChatMessage(msg *core.ChatMessage) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrSerializationFailed)
	}
	if err := core.ValidateRole(msg.Role); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return marshal(core.ChatMessageMUS, *msg), nil
}

// UnmarshalChatMessage deserializes a ChatMessage from bytes.
func UnmarshalChatMessage(data []byte) (*core.ChatMessage, error) {
	msg, err := unmarshal(core.ChatMessageMUS, data)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
