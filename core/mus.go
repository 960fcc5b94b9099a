package core

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Binary codecs for the records kept in storage. Fields are written in
// declaration order; appending a field at the end of a record is the only
// compatible change.
var (
	IDMUS          mus.Serializer[ID]             = stringMUS[ID]{}
	FileTypeMUS    mus.Serializer[FileType]       = stringMUS[FileType]{}
	StatusMUS      mus.Serializer[DocumentStatus] = stringMUS[DocumentStatus]{}
	RoleMUS        mus.Serializer[Role]           = roleMUS{}
	TimeMUS        mus.Serializer[time.Time]      = timeMUS{}
	VectorMUS      mus.Serializer[[]float32]      = sliceMUS[float32]{elem: raw.Float32}
	SourceMUS      mus.Serializer[Source]         = sourceMUS{}
	SourcesMUS     mus.Serializer[[]Source]       = sliceMUS[Source]{elem: SourceMUS}
	DocumentMUS    mus.Serializer[Document]       = documentMUS{}
	ChunkMUS       mus.Serializer[Chunk]          = chunkMUS{}
	ChatSessionMUS mus.Serializer[ChatSession]    = chatSessionMUS{}
	ChatMessageMUS mus.Serializer[ChatMessage]    = chatMessageMUS{}
)

// reader threads an offset and the first error through a sequence of
// field reads.
type reader struct {
	bs  []byte
	n   int
	err error
}

func read[T any](r *reader, ser mus.Serializer[T], dst *T) {
	if r.err != nil {
		return
	}
	v, n, err := ser.Unmarshal(r.bs[r.n:])
	r.n += n
	if err != nil {
		r.err = err
		return
	}
	*dst = v
}

func skipWith[T any](ser mus.Serializer[T], bs []byte) (int, error) {
	_, n, err := ser.Unmarshal(bs)
	return n, err
}

type stringMUS[T ~string] struct{}

func (stringMUS[T]) Marshal(v T, bs []byte) int { return ord.String.Marshal(string(v), bs) }
func (stringMUS[T]) Size(v T) int { return ord.String.Size(string(v)) }
func (stringMUS[T]) Skip(bs []byte) (int, error) { return ord.String.Skip(bs) }

func (stringMUS[T]) Unmarshal(bs []byte) (T, int, error) {
	s, n, err := ord.String.Unmarshal(bs)
	return T(s), n, err
}

type roleMUS struct{}

func (roleMUS) Marshal(v Role, bs []byte) int { return varint.Int.Marshal(int(v), bs) }
func (roleMUS) Size(v Role) int { return varint.Int.Size(int(v)) }
func (roleMUS) Skip(bs []byte) (int, error) { return varint.Int.Skip(bs) }

func (roleMUS) Unmarshal(bs []byte) (Role, int, error) {
	v, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return 0, n, err
	}
	role := Role(v)
	if err := ValidateRole(role); err != nil {
		return 0, n, err
	}
	return role, n, nil
}

// timeMUS stores microseconds since the epoch and decodes to UTC.
type timeMUS struct{}

func (timeMUS) Marshal(v time.Time, bs []byte) int { return varint.Int64.Marshal(v.UnixMicro(), bs) }
func (timeMUS) Size(v time.Time) int { return varint.Int64.Size(v.UnixMicro()) }
func (timeMUS) Skip(bs []byte) (int, error) { return varint.Int64.Skip(bs) }

func (timeMUS) Unmarshal(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

// sliceMUS prefixes the elements with their count. An empty slice decodes
// as nil.
type sliceMUS[T any] struct {
	elem mus.Serializer[T]
}

func (s sliceMUS[T]) Marshal(v []T, bs []byte) (n int) {
	n = varint.PositiveInt.Marshal(len(v), bs)
	for _, e := range v {
		n += s.elem.Marshal(e, bs[n:])
	}
	return n
}

func (s sliceMUS[T]) Size(v []T) (size int) {
	size = varint.PositiveInt.Size(len(v))
	for _, e := range v {
		size += s.elem.Size(e)
	}
	return size
}

func (s sliceMUS[T]) Unmarshal(bs []byte) ([]T, int, error) {
	length, n, err := varint.PositiveInt.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	// every element takes at least one byte
	if length < 0 || length > len(bs)-n {
		return nil, n, fmt.Errorf("slice of %d elements in %d bytes", length, len(bs)-n)
	}
	v := make([]T, length)
	for i := range v {
		e, m, err := s.elem.Unmarshal(bs[n:])
		n += m
		if err != nil {
			return nil, n, err
		}
		v[i] = e
	}
	return v, n, nil
}

func (s sliceMUS[T]) Skip(bs []byte) (int, error) { return skipWith[[]T](s, bs) }

type sourceMUS struct{}

func (sourceMUS) Marshal(v Source, bs []byte) (n int) {
	n = IDMUS.Marshal(v.DocumentID, bs)
	n += ord.String.Marshal(v.Filename, bs[n:])
	return n + raw.Float64.Marshal(v.Score, bs[n:])
}

func (sourceMUS) Size(v Source) int {
	return IDMUS.Size(v.DocumentID) + ord.String.Size(v.Filename) + raw.Float64.Size(v.Score)
}

func (sourceMUS) Unmarshal(bs []byte) (v Source, n int, err error) {
	r := &reader{bs: bs}
	read(r, IDMUS, &v.DocumentID)
	read(r, ord.String, &v.Filename)
	read(r, raw.Float64, &v.Score)
	return v, r.n, r.err
}

func (s sourceMUS) Skip(bs []byte) (int, error) { return skipWith[Source](s, bs) }

type documentMUS struct{}

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Filename, bs[n:])
	n += ord.String.Marshal(v.Path, bs[n:])
	n += FileTypeMUS.Marshal(v.Type, bs[n:])
	n += varint.Int64.Marshal(v.Size, bs[n:])
	n += ord.String.Marshal(v.Owner, bs[n:])
	n += StatusMUS.Marshal(v.Status, bs[n:])
	n += ord.String.Marshal(v.ErrorMessage, bs[n:])
	n += varint.PositiveInt.Marshal(v.ChunkCount, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	return n + TimeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (documentMUS) Size(v Document) int {
	return IDMUS.Size(v.ID) +
		ord.String.Size(v.Filename) +
		ord.String.Size(v.Path) +
		FileTypeMUS.Size(v.Type) +
		varint.Int64.Size(v.Size) +
		ord.String.Size(v.Owner) +
		StatusMUS.Size(v.Status) +
		ord.String.Size(v.ErrorMessage) +
		varint.PositiveInt.Size(v.ChunkCount) +
		TimeMUS.Size(v.CreatedAt) +
		TimeMUS.Size(v.UpdatedAt)
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	r := &reader{bs: bs}
	read(r, IDMUS, &v.ID)
	read(r, ord.String, &v.Filename)
	read(r, ord.String, &v.Path)
	read(r, FileTypeMUS, &v.Type)
	read(r, varint.Int64, &v.Size)
	read(r, ord.String, &v.Owner)
	read(r, StatusMUS, &v.Status)
	read(r, ord.String, &v.ErrorMessage)
	read(r, varint.PositiveInt, &v.ChunkCount)
	read(r, TimeMUS, &v.CreatedAt)
	read(r, TimeMUS, &v.UpdatedAt)
	return v, r.n, r.err
}

func (s documentMUS) Skip(bs []byte) (int, error) { return skipWith[Document](s, bs) }

// chunkMUS leaves out the embedding, which is stored under its own key.
type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += IDMUS.Marshal(v.DocumentID, bs[n:])
	n += varint.PositiveInt.Marshal(v.Index, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	return n + TimeMUS.Marshal(v.CreatedAt, bs[n:])
}

func (chunkMUS) Size(v Chunk) int {
	return IDMUS.Size(v.ID) +
		IDMUS.Size(v.DocumentID) +
		varint.PositiveInt.Size(v.Index) +
		ord.String.Size(v.Content) +
		TimeMUS.Size(v.CreatedAt)
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	r := &reader{bs: bs}
	read(r, IDMUS, &v.ID)
	read(r, IDMUS, &v.DocumentID)
	read(r, varint.PositiveInt, &v.Index)
	read(r, ord.String, &v.Content)
	read(r, TimeMUS, &v.CreatedAt)
	return v, r.n, r.err
}

func (s chunkMUS) Skip(bs []byte) (int, error) { return skipWith[Chunk](s, bs) }

type chatSessionMUS struct{}

func (chatSessionMUS) Marshal(v ChatSession, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Owner, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	return n + TimeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (chatSessionMUS) Size(v ChatSession) int {
	return IDMUS.Size(v.ID) +
		ord.String.Size(v.Owner) +
		ord.String.Size(v.Title) +
		TimeMUS.Size(v.CreatedAt) +
		TimeMUS.Size(v.UpdatedAt)
}

func (chatSessionMUS) Unmarshal(bs []byte) (v ChatSession, n int, err error) {
	r := &reader{bs: bs}
	read(r, IDMUS, &v.ID)
	read(r, ord.String, &v.Owner)
	read(r, ord.String, &v.Title)
	read(r, TimeMUS, &v.CreatedAt)
	read(r, TimeMUS, &v.UpdatedAt)
	return v, r.n, r.err
}

func (s chatSessionMUS) Skip(bs []byte) (int, error) { return skipWith[ChatSession](s, bs) }

type chatMessageMUS struct{}

func (chatMessageMUS) Marshal(v ChatMessage, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += IDMUS.Marshal(v.SessionID, bs[n:])
	n += RoleMUS.Marshal(v.Role, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += SourcesMUS.Marshal(v.Sources, bs[n:])
	return n + TimeMUS.Marshal(v.CreatedAt, bs[n:])
}

func (chatMessageMUS) Size(v ChatMessage) int {
	return IDMUS.Size(v.ID) +
		IDMUS.Size(v.SessionID) +
		RoleMUS.Size(v.Role) +
		ord.String.Size(v.Content) +
		SourcesMUS.Size(v.Sources) +
		TimeMUS.Size(v.CreatedAt)
}

func (chatMessageMUS) Unmarshal(bs []byte) (v ChatMessage, n int, err error) {
	r := &reader{bs: bs}
	read(r, IDMUS, &v.ID)
	read(r, IDMUS, &v.SessionID)
	read(r, RoleMUS, &v.Role)
	read(r, ord.String, &v.Content)
	read(r, SourcesMUS, &v.Sources)
	read(r, TimeMUS, &v.CreatedAt)
	return v, r.n, r.err
}

func (s chatMessageMUS) Skip(bs []byte) (int, error) { return skipWith[ChatMessage](s, bs) }
