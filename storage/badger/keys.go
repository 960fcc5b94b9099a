package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/docent/core"
)

// Key prefixes for different data types
const (
	documentPrefix      = "doc:"
	documentOwnerPrefix = "docown:"
	chunkPrefix         = "chk:"
	vectorPrefix        = "vec:"
	sessionPrefix       = "ses:"
	sessionOwnerPrefix  = "sesown:"
	messagePrefix       = "msg:"
	messageSeq          = "msgseq"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(documentPrefix + string(id))
}

// makeOwnerPrefix generates the index prefix for one owner.
// The owner is length-prefixed so that no owner's keys are a prefix of another's.
// Format: prefix len(owner) owner
func makeOwnerPrefix(prefix, owner string) []byte {
	buf := make([]byte, 0, len(prefix)+2+len(owner))
	buf = append(buf, prefix...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(owner)))
	buf = append(buf, owner...)
	return buf
}

// makeOwnerKey generates a composite key for an owner index.
// Format: ownerPrefix timestamp id
func makeOwnerKey(prefix, owner string, createdAt time.Time, id core.ID) []byte {
	buf := makeOwnerPrefix(prefix, owner)
	// Write in BigEndian order so lexicographic sort works correctly
	buf = binary.BigEndian.AppendUint64(buf, uint64(createdAt.UnixMicro()))
	return append(buf, id...)
}

// makeChunkPrefix generates the prefix shared by a document's chunks.
func makeChunkPrefix(documentID core.ID) []byte {
	return []byte(chunkPrefix + string(documentID) + ":")
}

// makeChunkKey generates a key for a chunk.
// Format: prefix documentID:index
func makeChunkKey(documentID core.ID, index int) []byte {
	return binary.BigEndian.AppendUint32(makeChunkPrefix(documentID), uint32(index))
}

// makeVectorPrefix generates the prefix shared by a document's vectors.
func makeVectorPrefix(documentID core.ID) []byte {
	return []byte(vectorPrefix + string(documentID) + ":")
}

// makeVectorKey generates a key for a chunk embedding.
// Format: prefix documentID:index
func makeVectorKey(documentID core.ID, index int) []byte {
	return binary.BigEndian.AppendUint32(makeVectorPrefix(documentID), uint32(index))
}

// parseVectorKey extracts the document ID and chunk index from a vector key.
func parseVectorKey(key []byte) (core.ID, int, bool) {
	if len(key) < len(vectorPrefix)+5 {
		return "", 0, false
	}
	idEnd := len(key) - 5
	if key[idEnd] != ':' {
		return "", 0, false
	}
	id := core.ID(key[len(vectorPrefix):idEnd])
	index := int(binary.BigEndian.Uint32(key[idEnd+1:]))
	return id, index, true
}

// makeSessionKey generates a key for a chat session by ID.
func makeSessionKey(id core.ID) []byte {
	return []byte(sessionPrefix + string(id))
}

// makeMessagePrefix generates the prefix shared by a session's messages.
func makeMessagePrefix(sessionID core.ID) []byte {
	return []byte(messagePrefix + string(sessionID) + ":")
}

// makeMessageKey generates a key for a message.
// The sequence number keeps messages in insertion order.
// Format: prefix sessionID:seq
func makeMessageKey(sessionID core.ID, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(makeMessagePrefix(sessionID), seq)
}
