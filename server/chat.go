package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/poiesic/docent/chat"
	"github.com/poiesic/docent/core"
)

type createSessionRequest struct {
	Title string `json:"title"`
}

type questionRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.deps.Chat.CreateSession(r.Context(), ownerOf(r), req.Title)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.deps.Chat.ListSessions(r.Context(), ownerOf(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*core.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.deps.Chat.Messages(r.Context(), ownerOf(r), core.ID(r.PathValue("id")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*core.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Chat.DeleteSession(r.Context(), ownerOf(r), core.ID(r.PathValue("id"))); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	answer, err := s.deps.Chat.Ask(r.Context(), ownerOf(r), core.ID(r.PathValue("id")), req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleStream relays answer events as server-sent events. Failures after
// the stream has started are reported as an error event, not a status code.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for ev := range s.deps.Chat.AskStream(r.Context(), ownerOf(r), core.ID(r.PathValue("id")), req.Question) {
		if ev.Type == chat.EventError && statusFor(ev.Err) == http.StatusInternalServerError {
			ev.Content = publicMessage(ev.Err)
		}
		if err := writeEvent(w, ev); err != nil {
			s.logger.Debug("stream client gone", "err", err)
			return
		}
		if err := rc.Flush(); err != nil {
			s.logger.Debug("stream flush failed", "err", err)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev chat.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
