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


package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/poiesic/docent/ai"
	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
)

var (
	// ErrOwnerMissing is returned when a request has no X-User-ID header.
	ErrOwnerMissing = errors.New("missing X-User-ID header")

	// ErrInvalidBody is returned when a request body cannot be decoded.
	ErrInvalidBody = errors.New("invalid request body")
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an error to the HTTP status reported to the client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrOwnerMissing):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidBody), errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case ai.IsUnavailable(err), errors.Is(err, ai.ErrProviderServer):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the text a client may see for err.
func publicMessage(err error) string {
	switch status := statusFor(err); status {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusNotFound:
		return "not found"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, errorResponse{Error: publicMessage(err)})
}
