package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/search"
)

// multipartSlack covers the multipart framing around the file itself.
const multipartSlack = 1 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, fmt.Errorf("%w: %w", core.ErrInvalidDocument, core.ErrFileTooLarge))
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: multipart field \"file\" is required", ErrInvalidBody))
		return
	}
	defer file.Close()

	doc, err := s.deps.Documents.Upload(r.Context(), ownerOf(r), header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Documents.ListDocuments(r.Context(), ownerOf(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*core.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Documents.GetDocument(r.Context(), ownerOf(r), core.ID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Documents.DeleteDocument(r.Context(), ownerOf(r), core.ID(r.PathValue("id"))); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	mode, err := search.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	hits, err := s.deps.Search.Search(r.Context(), req.Query, mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}
	return nil
}
