// Package server exposes documents, search and chat over HTTP.
//
// Requests identify their owner with the X-User-ID header. Responses are
// JSON; streamed answers use server-sent events, one JSON object per event.
package server
